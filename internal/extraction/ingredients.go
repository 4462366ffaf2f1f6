package extraction

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/invoice"
	"github.com/zombor/expertise-reader/internal/money"
)

const ingredientType = "Ingrédients peinture"

var (
	reForfaitPerShock = regexp.MustCompile(`forfaits?\s+par\s+choc`)
	reAlphaExpert     = regexp.MustCompile(`^(\pL[^\n]*?)\s*-\s*(` + numPattern + `)\s*h\s*-\s*(` + numPattern + `)\s*€?\s*/\s*h\s*-\s*(` + numPattern + `)\s*€?\s*$`)
	reLabelAmount     = regexp.MustCompile(`^(\pL[\pL\s'.\-]{2,40}?)\s+-\s+(` + numPattern + `)\s*€?\s*$`)
)

// extractIngredientsAndForfaits adds paint ingredient and flat-rate labour
// found by looser patterns. Every line added here is tagged
// auto_interpreted.
func extractIngredientsAndForfaits(src *source, doc *document.Document) {
	used := false
	if !hasIngredientLabor(doc) {
		if l, heuristic, ok := findIngredientLabor(src); ok && addLabor(doc, l) {
			doc.Debug["ingredient_heuristic"] = heuristic
			used = true
		}
	}

	if i := src.find(reForfaitPerShock, 0); i >= 0 {
		for j := i + 1; j < len(src.lines) && j < i+20; j++ {
			f := src.folded[j]
			if f == "" || reSectionEnd.MatchString(f) {
				break
			}
			v, ok := lastAmount(src.lines[j])
			label := leadingText(src.lines[j])
			if !ok || label == "" {
				continue
			}
			if addLabor(doc, document.LaborLine{Type: "Forfait " + label, Hours: document.Unspecified(), Rate: document.Unspecified(), Total: v}) {
				used = true
			}
		}
	}

	for i, line := range src.lines {
		if m := reAlphaExpert.FindStringSubmatch(fold(line)); m != nil {
			h, r, t := money.ParseNumber(m[2]), money.ParseNumber(m[3]), money.ParseNumber(m[4])
			label := originalPrefix(line, m[1])
			l := document.LaborLine{Type: label, Hours: document.Known(h), Rate: document.Known(r), Total: t}
			if isIngredient(label) {
				l.Type = ingredientType
			}
			if addLabor(doc, l) {
				used = true
			}
			continue
		}
		m := reLabelAmount.FindStringSubmatch(src.folded[i])
		if m == nil || strings.Contains(m[1], "total") || strings.Contains(m[1], "tva") {
			continue
		}
		label := originalPrefix(line, m[1])
		amount := money.ParseNumber(m[2])
		if reLaborKeyword.MatchString(m[1]) {
			l := document.LaborLine{Type: label, Hours: document.Unspecified(), Rate: document.Unspecified(), Total: amount}
			if isIngredient(label) {
				l.Type = ingredientType
			}
			if addLabor(doc, l) {
				used = true
			}
			continue
		}
		if doc.AddPart(document.PartLine{Description: label, Quantity: 1, UnitPrice: amount, Category: categoryOf(label)}) {
			used = true
		}
	}

	if used {
		doc.AddWarning(document.WarningAutoInterpreted)
	}
}

// findIngredientLabor applies the paint ingredient heuristics in order:
// inline HT+TTC pair, HT/TTC split over the following lines, a bare HT
// amount, then an hours+rate+total triple. The first one that fires wins.
func findIngredientLabor(src *source) (document.LaborLine, string, bool) {
	rate := src.cfg.TaxRate
	for i, line := range src.lines {
		loc := invoice.IngredientLabel.FindStringIndex(line)
		if loc == nil {
			continue
		}
		l := document.LaborLine{Type: ingredientType, Hours: document.Unspecified(), Rate: document.Unspecified()}
		nums := amounts(line[loc[1]:])

		if ht, ok := htTTCPair(nums, rate); ok {
			l.Total = ht
			if len(nums) >= 3 && product(nums[0], nums[1], nums[2]) && near(nums[2], ht, money.Tolerance) {
				l.Hours, l.Rate = document.Known(nums[0]), document.Known(nums[1])
			}
			return l, "inline_ht_ttc", true
		}
		if len(nums) == 0 {
			var below []float64
			for j := i + 1; j < len(src.lines) && j <= i+3; j++ {
				if invoice.IngredientLabel.MatchString(src.lines[j]) {
					break
				}
				below = append(below, amounts(src.lines[j])...)
			}
			if ht, ok := htTTCPair(below, rate); ok {
				l.Total = ht
				return l, "split_ht_ttc", true
			}
			continue
		}
		if len(nums) == 1 {
			l.Total = nums[0]
			return l, "bare_ht", true
		}
		if len(nums) >= 3 && product(nums[0], nums[1], nums[2]) {
			l.Hours, l.Rate, l.Total = document.Known(nums[0]), document.Known(nums[1]), nums[2]
			return l, "hours_rate_total", true
		}
	}
	return document.LaborLine{}, "", false
}

// htTTCPair finds the first amounts a, b (a before b) with b = a×(1+rate).
func htTTCPair(nums []float64, rate float64) (float64, bool) {
	for i := 0; i < len(nums); i++ {
		for j := i + 1; j < len(nums); j++ {
			ttc := money.FromCents(money.ToCents(nums[i]) + money.PercentOfCents(money.ToCents(nums[i]), rate))
			if nums[i] > 0 && near(ttc, nums[j], 0.02) {
				return nums[i], true
			}
		}
	}
	return 0, false
}

// originalPrefix returns the start of line whose folded form is
// foldedPrefix, walking the line one rune at a time so combining marks and
// ligatures keep the two offsets aligned.
func originalPrefix(line, foldedPrefix string) string {
	want := len([]rune(foldedPrefix))
	r := []rune(norm.NFC.String(ligatures.Replace(line)))
	n, got := 0, 0
	for n < len(r) && got < want {
		got += len([]rune(fold(string(r[n]))))
		n++
	}
	return strings.TrimSpace(string(r[:n]))
}

package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/invoice"
	"github.com/zombor/expertise-reader/internal/money"
)

var (
	reLaborTotalHT  = regexp.MustCompile(`(?:total\s+)?(?:main\s*d'?\s*oeuvre|\bmo\b)\s*(?:total\s*)?h\.?\s?t\b`)
	reLaborPerShock = regexp.MustCompile(`main\s*d'?\s*oeuvre\s+par\s+choc`)
	reQualification = regexp.MustCompile(`^(?:t[1-3]|m[1-3]|p[1-3]|peinture(?:\s+n\d)?|tolerie|mecanique|electricite|garnissage)\b`)
	reHourlyRate    = regexp.MustCompile(`taux\s+horaire(?:\s+\pL+)?\s*[:=]?\s*(` + numPattern + `)`)
	reHoursTimes    = regexp.MustCompile(`(` + numPattern + `)\s*h(?:eures?)?\b[^\n]{0,40}?[x×*]\s*(` + numPattern + `)`)
	reSectionEnd    = regexp.MustCompile(`^(?:total|sous[\s\-]*total|pieces|ingredients?|fournitures?|tva)\b`)
)

// extractLabor merges labour table rows into the document and resolves the
// labour totals: HT line, per-shock qualification rows, estimate from the
// rate, generic "<h>h x <rate>" pattern, then the default rate.
func extractLabor(src *source, doc *document.Document) {
	for _, row := range ParseLaborTable(src.text) {
		addLabor(doc, row.laborLine())
	}

	for i := len(src.folded) - 1; i >= 0 && doc.LaborTotal == nil; i-- {
		loc := reLaborTotalHT.FindStringIndex(src.folded[i])
		if loc == nil {
			continue
		}
		if v, ok := lastAmount(src.folded[i][loc[1]:]); ok {
			doc.LaborTotal = document.Float(v)
		}
	}

	if i := src.find(reLaborPerShock, 0); i >= 0 {
		perShockLabor(src, doc, i+1)
	}

	if doc.LaborRate == nil {
		if m := reHourlyRate.FindStringSubmatch(src.foldedText); m != nil {
			doc.LaborRate = document.Float(money.ParseNumber(m[1]))
		}
	}

	if doc.LaborTotal != nil && doc.LaborHours == nil && doc.LaborRate != nil && *doc.LaborRate > 0 {
		doc.LaborHours = document.Float(money.Round2(*doc.LaborTotal / *doc.LaborRate))
	}

	if m := reHoursTimes.FindStringSubmatch(src.foldedText); m != nil {
		h, r := money.ParseNumber(m[1]), money.ParseNumber(m[2])
		if h > 0 && r > 0 {
			if doc.LaborHours == nil {
				doc.LaborHours = document.Float(h)
			}
			if doc.LaborRate == nil {
				doc.LaborRate = document.Float(r)
			}
			if doc.LaborTotal == nil {
				doc.LaborTotal = document.Float(money.FromCents(money.MulCents(h, r)))
			}
		}
	}

	if doc.LaborTotal == nil && len(doc.LaborDetails) > 0 {
		var cents int64
		var hours float64
		known := false
		for _, l := range doc.LaborDetails {
			cents += money.ToCents(l.Total)
			if h, ok := l.Hours.Value(); ok {
				hours += h
				known = true
			}
		}
		doc.LaborTotal = document.Float(money.FromCents(cents))
		if known && doc.LaborHours == nil {
			doc.LaborHours = document.Float(money.Round2(hours))
		}
	}

	if doc.LaborRate == nil {
		doc.LaborRate = document.Float(src.cfg.DefaultLaborRate)
	}
}

// perShockLabor reads the qualification rows of a "Main d'oeuvre par choc"
// table starting at line from.
func perShockLabor(src *source, doc *document.Document, from int) {
	var cents int64
	var hours float64
	var rate *float64
	rows := 0
	for i := from; i < len(src.folded) && i < from+30; i++ {
		f := src.folded[i]
		if f == "" || reSectionEnd.MatchString(f) {
			if rows > 0 {
				break
			}
			continue
		}
		if !reQualification.MatchString(f) {
			continue
		}
		nums := amounts(f[len(reQualification.FindString(f)):])
		if len(nums) < 2 {
			continue
		}
		total := nums[len(nums)-1]
		line := document.LaborLine{Type: leadingText(src.lines[i]), Hours: document.Known(nums[0]), Rate: document.Unspecified(), Total: total}
		if len(nums) >= 3 {
			line.Rate = document.Known(nums[1])
			if rate == nil {
				rate = document.Float(nums[1])
			}
		}
		addLabor(doc, line)
		cents += money.ToCents(total)
		hours += nums[0]
		rows++
	}
	if rows == 0 {
		return
	}
	if doc.LaborTotal == nil {
		doc.LaborTotal = document.Float(money.FromCents(cents))
	}
	if doc.LaborHours == nil {
		doc.LaborHours = document.Float(money.Round2(hours))
	}
	if doc.LaborRate == nil {
		doc.LaborRate = rate
	}
}

// addLabor appends l unless an equal line exists. A document holds at most
// one paint ingredient line.
func addLabor(doc *document.Document, l document.LaborLine) bool {
	l.Type = strings.TrimSpace(l.Type)
	if l.Type == "" {
		l.Type = "Main d'oeuvre"
	}
	ingredient := isIngredient(l.Type)
	for _, e := range doc.LaborDetails {
		if ingredient && isIngredient(e.Type) {
			return false
		}
		if strings.EqualFold(e.Type, l.Type) && near(e.Total, l.Total, money.Tolerance) {
			return false
		}
	}
	doc.LaborDetails = append(doc.LaborDetails, l)
	return true
}

func isIngredient(label string) bool {
	return invoice.IngredientLabel.MatchString(label) || strings.Contains(fold(label), "ingredient")
}

func hasIngredientLabor(doc *document.Document) bool {
	for _, l := range doc.LaborDetails {
		if isIngredient(l.Type) {
			return true
		}
	}
	return false
}

func formatAmount(v float64) string {
	return strings.Replace(fmt.Sprintf("%.2f", v), ".", ",", 1)
}

package extraction

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/money"
)

var (
	rePartName = regexp.MustCompile(`\b(?:pare[\s\-]?chocs?|boucliers?|capot|ailes?|portes?|portieres?|retroviseurs?|optiques?|phares?|feux|feu|projecteurs?|antibrouillards?|calandres?|pare[\s\-]?brise|lunette\s+arriere|hayon|coffre|jantes?|pneus?|pneumatiques?|radiateurs?|condenseurs?|amortisseurs?|triangles?|rotules?|enjoliveurs?|grilles?|longerons?|traverses?|absorbeurs?|supports?|agrafes?|bas\s+de\s+caisse|custodes?|vitres?|leve[\s\-]?vitres?|poignees?|serrures?|airbags?|ceintures?|capteurs?|sondes?|ecussons?|monogrammes?|baguettes?|spoilers?|becquets?|passages?\s+de\s+roue|pare[\s\-]?boue|moulures?|joints?|deflecteurs?|renforts?|tablier|platines?|faisceaux?|carenages?|doublures?|pavillon|montants?|seuils?|marchepieds?)\b`)
	reCriticalPart = regexp.MustCompile(`\b(?:amortisseurs?|pneus?|pneumatiques?|jantes?|roues?|rotules?|triangles?|bras\s+de\s+suspension|biellettes?|cardans?|moyeux?|roulements?|disques?|plaquettes?|etriers?)\b`)
	reNotPart      = regexp.MustCompile(`total|\btva\b|main\s*d'?\s*oeuvre|taux|remise|rabais|franchise|ingredient|forfait|\bmo\b|net\s+a\s+payer|acompte|\bt[1-3]\b|fourniture|page\s+\d`)
	rePartsPerShock = regexp.MustCompile(`pieces\s+par\s+choc`)
	rePartsEnd      = regexp.MustCompile(`^(?:total|sous[\s\-]*total|main\s*d'?\s*oeuvre|ingredients?|tva|fournitures?)\b`)
	opCodes         = map[string]bool{"E": true, "R": true, "P": true, "C": true, "D": true, "T": true, "M": true, "REP": true, "ECH": true, "PEI": true, "DEP": true, "E+P": true, "R+P": true}
)

// partLine is a table row split into its columns.
type partLine struct {
	op, ref, desc string
	qty, pu       float64
	numbers       int
	consistent    bool
	percent       bool
}

// splitPartLine splits "[op] [ref] description [qty] [pu] [total]". The
// trailing amounts are read both with and without thousands grouping and the
// reading where qty×pu matches the total is kept.
func splitPartLine(line string) (partLine, bool) {
	fields := strings.Fields(line)
	j := len(fields)
	for j > 0 && isNumericField(fields[j-1]) {
		j--
	}
	var p partLine
	head, tail := fields[:j], fields[j:]

	k := 0
	for k < len(head) && !isWordField(head[k]) {
		k++
	}
	codes := head[:k]
	if len(codes) > 0 && opCodes[strings.ToUpper(codes[0])] {
		p.op, codes = strings.ToUpper(codes[0]), codes[1:]
	}
	p.ref = strings.Join(codes, " ")
	p.desc = strings.Trim(strings.Join(head[k:], " "), " :;-=|!*")

	var split []float64
	var joined []string
	for _, f := range tail {
		f = strings.Trim(f, "€")
		if f == "" {
			continue
		}
		if strings.HasSuffix(f, "%") {
			p.percent = true
			continue
		}
		split = append(split, money.ParseNumber(f))
		joined = append(joined, f)
	}
	p.numbers = len(split)
	if p.desc == "" || len(split) == 0 {
		return p, false
	}
	grouped := amounts(strings.Join(joined, " "))

	if q := leadingQuantity(p); q > 0 && len(split) == 2 && product(q, split[0], split[1]) {
		p.ref, p.qty, p.pu, p.consistent = "", q, split[0], true
		return p, true
	}

	switch {
	case len(grouped) >= 2 && readRow(grouped, &p):
	case readRow(split, &p):
	case len(split) == 2 && isSmallQuantity(split[0], split[1]):
		p.qty, p.pu = split[0], money.Round2(split[1]/split[0])
	default:
		if len(split) == 2 && split[0] == math.Trunc(split[0]) {
			p.desc += " " + joined[0]
		}
		p.qty, p.pu = 1, split[len(split)-1]
	}
	return p, true
}

// leadingQuantity returns the quantity of a "qty desc pu total" row, whose
// only leading code is a small integer.
func leadingQuantity(p partLine) float64 {
	if p.op != "" || strings.Contains(p.ref, " ") {
		return 0
	}
	q := money.ParseNumber(p.ref)
	if math.IsNaN(q) || q <= 0 || q > 999 || q != math.Trunc(q) {
		return 0
	}
	return q
}

// readRow accepts "qty pu total" with qty×pu = total, or "pu total" with
// equal values.
func readRow(nums []float64, p *partLine) bool {
	n := len(nums)
	switch {
	case n >= 3 && nums[n-3] > 0 && product(nums[n-3], nums[n-2], nums[n-1]):
		p.qty, p.pu = nums[n-3], nums[n-2]
	case n == 2 && near(nums[0], nums[1], money.Tolerance):
		p.qty, p.pu = 1, nums[1]
	case n == 1:
		p.qty, p.pu = 1, nums[0]
	default:
		return false
	}
	p.consistent = n >= 2
	return true
}

// isSmallQuantity reports whether q reads as a quantity dividing total into
// whole cents.
func isSmallQuantity(q, total float64) bool {
	if q < 1 || q > 20 || q != math.Trunc(q) {
		return false
	}
	return money.ToCents(total)%int64(q) == 0
}

func isNumericField(f string) bool {
	f = strings.Trim(f, "€")
	if f == "" {
		return true
	}
	return money.IsNumber(strings.TrimSuffix(f, "%"))
}

func isWordField(f string) bool {
	letters, digits := 0, 0
	for _, r := range f {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	return letters >= 3 || (letters >= 2 && digits == 0)
}

func (p partLine) part() document.PartLine {
	return document.PartLine{
		Description: p.desc,
		Quantity:    p.qty,
		UnitPrice:   money.Round2(p.pu),
		Reference:   p.ref,
		Operation:   p.op,
		Category:    categoryOf(p.desc),
	}
}

func categoryOf(desc string) document.Category {
	f := fold(desc)
	switch {
	case strings.Contains(f, "peinture"):
		return document.CategoryPeinture
	case strings.Contains(f, "forfait"):
		return document.CategoryForfait
	default:
		return document.CategoryPiece
	}
}

// extractParts unions every parts pass; AddPart drops description+price
// duplicates.
func extractParts(src *source, doc *document.Document) {
	dictionaryParts(src, doc, false)
	tabulatedParts(src, doc)
	if i := src.find(rePartsPerShock, 0); i >= 0 {
		perShockParts(src, doc, i+1)
	}
	if len(doc.Parts) == 0 {
		dictionaryParts(src, doc, true)
	}
	criticalParts(src, doc)
}

// dictionaryParts adds lines naming a known part with a price on the same
// line. The global rescan also accepts a price alone on the next line and
// ignores the exclusion list.
func dictionaryParts(src *source, doc *document.Document, global bool) {
	for i, f := range src.folded {
		if !rePartName.MatchString(f) || (!global && excludedPart(f, src.lines[i])) {
			continue
		}
		p, ok := splitPartLine(src.lines[i])
		if ok && !p.percent {
			doc.AddPart(p.part())
			continue
		}
		if !global || p.desc == "" || p.numbers > 0 {
			continue
		}
		next := src.line(i + 1)
		if m := moneyAmounts(next); len(m) > 0 && leadingText(next) == "" {
			p.qty, p.pu = 1, m[len(m)-1]
			doc.AddPart(p.part())
		}
	}
}

// tabulatedParts reads "desc qty pu total" and "qty desc pu total" rows
// whose arithmetic holds.
func tabulatedParts(src *source, doc *document.Document) {
	for i, f := range src.folded {
		if f == "" || excludedPart(f, src.lines[i]) {
			continue
		}
		if p, ok := splitPartLine(src.lines[i]); ok && p.consistent && !p.percent {
			doc.AddPart(p.part())
		}
	}
}

// perShockParts reads the rows under a "Pièces par choc" heading.
func perShockParts(src *source, doc *document.Document, from int) {
	rows := 0
	for i := from; i < len(src.folded) && i < from+40; i++ {
		f := src.folded[i]
		if f == "" || rePartsEnd.MatchString(f) {
			if rows > 0 {
				return
			}
			continue
		}
		if excludedPart(f, src.lines[i]) {
			continue
		}
		if p, ok := splitPartLine(src.lines[i]); ok && !p.percent {
			doc.AddPart(p.part())
			rows++
		}
	}
}

// excludedPart reports whether a line is a total, tax, discount or labour
// line rather than a part.
func excludedPart(folded, line string) bool {
	if reNotPart.MatchString(folded) {
		return true
	}
	_, labor := parsePrimaryLabor(strings.Join(strings.Fields(strings.ReplaceAll(line, "|", " ")), " "))
	return labor
}

// criticalParts adds suspension, tyre and wheel lines the other passes may
// have excluded.
func criticalParts(src *source, doc *document.Document) {
	for i, f := range src.folded {
		if !reCriticalPart.MatchString(f) || strings.Contains(f, "total") || strings.Contains(f, "tva") {
			continue
		}
		m := moneyAmounts(src.lines[i])
		if len(m) == 0 {
			continue
		}
		p, ok := splitPartLine(src.lines[i])
		if !ok || p.percent {
			continue
		}
		doc.AddPart(p.part())
	}
}

package extraction

import (
	"regexp"
	"strings"

	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/money"
)

// candidateTolerance is the slack allowed when deciding whether a set of
// totals read from the report belongs together.
const candidateTolerance = 1.0

// totalsCandidate is one reading of the report totals.
type totalsCandidate struct {
	HT, TVA, TTC *float64
	Source       string
	Confidence   float64
}

func (c totalsCandidate) count() int {
	n := 0
	for _, v := range []*float64{c.HT, c.TVA, c.TTC} {
		if v != nil {
			n++
		}
	}
	return n
}

func (c totalsCandidate) consistent() bool {
	return c.count() == 3 && money.Consistent(*c.HT, *c.TVA, *c.TTC, candidateTolerance)
}

var (
	reTotalGeneral    = regexp.MustCompile(`total\s+general`)
	reSousTotal       = regexp.MustCompile(`sous[\s\-]*total\s+general`)
	reVetusteDeduite  = regexp.MustCompile(`vetuste\s+deduite`)
	reTotalHTLabel    = regexp.MustCompile(`\b(?:total|montant)\s+h\.?\s?t\b|^h\.?t\.?\s*:`)
	reTotalTVALabel   = regexp.MustCompile(`^(?:total\s+|montant\s+(?:de\s+la\s+|de\s+)?)?t\.?v\.?a\b`)
	reTotalTTCLabel   = regexp.MustCompile(`\b(?:total|montant)\s+t\.?\s?t\.?\s?c\b|net\s+a\s+payer|^t\.?t\.?c\.?\s*:`)
	reSubtotalContext = regexp.MustCompile(`piece|main|oeuvre|ingredient|peinture|fourniture|forfait|choc|\bmo\b`)
)

// permutations tried on a three amount block, most likely order first.
var permutations = [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

// extractTotals picks the report totals from ranked candidates: the first
// internally consistent one wins, else the best partial reading is kept as
// read. A consistent SOUS TOTAL GENERAL only overrides an inconsistent pick.
func extractTotals(src *source, doc *document.Document) {
	candidates := []totalsCandidate{
		blockCandidate(src, reTotalGeneral, reSousTotal, "total_general", 0.9),
		labelCandidate(src),
		blockCandidate(src, reVetusteDeduite, nil, "vetuste_deduite", 0.6),
	}

	var chosen *totalsCandidate
	for i := range candidates {
		if candidates[i].consistent() {
			chosen = &candidates[i]
			break
		}
	}
	for _, need := range []int{2, 1} {
		for i := range candidates {
			if chosen == nil && candidates[i].count() >= need {
				chosen = &candidates[i]
			}
		}
	}
	if sous := blockCandidate(src, reSousTotal, nil, "sous_total_general", 0.5); sous.consistent() {
		if chosen == nil || !chosen.consistent() {
			chosen = &sous
		}
	}
	if chosen == nil {
		return
	}

	c := backDerive(*chosen)
	if doc.TotalHT == nil {
		doc.TotalHT = c.HT
	}
	if doc.TaxAmount == nil {
		doc.TaxAmount = c.TVA
	}
	if doc.TotalTTC == nil {
		doc.TotalTTC = c.TTC
	}
	doc.Debug["totals_source"] = c.Source
	doc.Debug["totals_confidence"] = c.Confidence
}

// backDerive fills a single missing value from the two others.
func backDerive(c totalsCandidate) totalsCandidate {
	switch {
	case c.HT != nil && c.TVA != nil && c.TTC == nil:
		c.TTC = document.Float(money.Round2(*c.HT + *c.TVA))
	case c.HT != nil && c.TTC != nil && c.TVA == nil:
		c.TVA = document.Float(money.Round2(*c.TTC - *c.HT))
	case c.TVA != nil && c.TTC != nil && c.HT == nil:
		c.HT = document.Float(money.Round2(*c.TTC - *c.TVA))
	}
	return c
}

// blockCandidate reads three amounts on the header line matching re and the
// two lines after it (three when the header carries no amount), trying every
// column order until one is consistent.
func blockCandidate(src *source, re, exclude *regexp.Regexp, name string, confidence float64) totalsCandidate {
	c := totalsCandidate{Source: name, Confidence: confidence}
	for i := len(src.folded) - 1; i >= 0; i-- {
		f := src.folded[i]
		if !re.MatchString(f) || (exclude != nil && exclude.MatchString(f)) {
			continue
		}
		// A bare header line may have HT, TVA and TTC on one line each below it
		last := i + 2
		if len(amounts(src.lines[i])) == 0 {
			last = i + 3
		}
		var nums []float64
		for j := i; j < len(src.lines) && j <= last && len(nums) < 3; j++ {
			nums = append(nums, amounts(src.lines[j])...)
		}
		if len(nums) < 3 {
			continue
		}
		nums = nums[:3]
		for _, p := range permutations {
			ht, tva, ttc := nums[p[0]], nums[p[1]], nums[p[2]]
			if money.Consistent(ht, tva, ttc, candidateTolerance) {
				c.HT, c.TVA, c.TTC = document.Float(ht), document.Float(tva), document.Float(ttc)
				return c
			}
		}
		c.HT, c.TVA, c.TTC = document.Float(nums[0]), document.Float(nums[1]), document.Float(nums[2])
		return c
	}
	return c
}

// labelCandidate reads the last "Total HT", "TVA" and "Total TTC" labels.
func labelCandidate(src *source) totalsCandidate {
	c := totalsCandidate{Source: "labels", Confidence: 0.8}
	c.HT = labelAmount(src, reTotalHTLabel, func(f string) bool {
		return strings.Contains(f, "ttc") || strings.Contains(f, "tva") || reSubtotalContext.MatchString(f)
	})
	c.TVA = labelAmount(src, reTotalTVALabel, func(f string) bool {
		return strings.Contains(f, "ttc") || strings.HasPrefix(f, "taux")
	})
	c.TTC = labelAmount(src, reTotalTTCLabel, func(f string) bool {
		return reSubtotalContext.MatchString(f)
	})
	return c
}

// labelAmount returns the last non-percentage amount on the last line that
// carries the label, or on the line below it when the label stands alone.
func labelAmount(src *source, re *regexp.Regexp, skip func(string) bool) *float64 {
	for i := len(src.folded) - 1; i >= 0; i-- {
		f := src.folded[i]
		loc := re.FindStringIndex(f)
		if loc == nil || skip(f) {
			continue
		}
		if v, ok := lastAmount(f[loc[1]:]); ok {
			return document.Float(v)
		}
		if next := src.line(i + 1); next != "" && len(amounts(next)) == 1 {
			v, _ := lastAmount(next)
			return document.Float(v)
		}
	}
	return nil
}

package extraction

import (
	"math"
	"regexp"
	"strings"

	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/money"
)

var (
	reGlobalDiscount = regexp.MustCompile(`\b(remise|rabais|reduction)\b(?:\s+(?:globale|commerciale|exceptionnelle|generale|sur\s+(?:pieces|total|facture)))*\s*(?:de\s+)?[:=]?\s*-?\s*(` + numPattern + `)\s*(%|€|eur)?`)
	reTableHeader    = regexp.MustCompile(`designation|libelle|\bqte\b|quantite|\bp\.?\s?u\b|prix|montant|\bref\b`)
)

// extractGlobalDiscount applies the first document wide remise, rabais or
// réduction to TotalHT and records it as a negative discount line. A
// percentage is taken on the lines read so far, else on TotalHT. A discount
// already reflected in TotalHT is only recorded.
func extractGlobalDiscount(src *source, doc *document.Document) {
	for i, f := range src.folded {
		if isTableHeader(f) || strings.HasPrefix(f, "!") {
			continue
		}
		m := reGlobalDiscount.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		loc := reGlobalDiscount.FindStringIndex(f)
		if len(tokens(f[:loc[0]])) > 0 {
			// a remise column inside a part row
			continue
		}
		value := money.ParseNumber(m[2])
		if math.IsNaN(value) || value <= 0 {
			continue
		}

		base := partsTotal(doc) + laborTotal(doc)
		if base <= 0 && doc.TotalHT != nil {
			base = *doc.TotalHT
		}
		amount := value
		if m[3] == "%" {
			if base <= 0 {
				continue
			}
			amount = money.FromCents(money.PercentOfCents(money.ToCents(base), math.Min(value, 100)/100))
		}

		label := strings.TrimSpace(originalPrefix(src.lines[i], f[:loc[0]]+m[1]))
		if label == "" {
			label = "Remise"
		}
		doc.AddPart(document.PartLine{
			Description: label,
			Quantity:    1,
			UnitPrice:   -amount,
			Category:    document.CategoryDiscount,
		})
		doc.Debug["global_discount"] = amount

		if doc.TotalHT != nil && !near(partsTotal(doc)+laborTotal(doc), *doc.TotalHT, money.Tolerance) {
			doc.TotalHT = document.Float(money.Round2(*doc.TotalHT - amount))
		}
		return
	}
}

func isTableHeader(folded string) bool {
	return len(reTableHeader.FindAllString(folded, -1)) >= 2
}

// partsTotal sums quantity × unit price over the parts, in cents.
func partsTotal(doc *document.Document) float64 {
	var cents int64
	for _, p := range doc.Parts {
		cents += money.MulCents(p.Quantity, p.UnitPrice)
	}
	return money.FromCents(cents)
}

// laborTotal sums the labour line totals, in cents.
func laborTotal(doc *document.Document) float64 {
	var cents int64
	for _, l := range doc.LaborDetails {
		cents += money.ToCents(l.Total)
	}
	return money.FromCents(cents)
}

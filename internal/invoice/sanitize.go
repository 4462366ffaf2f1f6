package invoice

import (
	"math"
	"regexp"
	"strings"

	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/money"
)

var (
	reVATLabel    = regexp.MustCompile(`(?i)^TVA\b`)
	rePercentOnly = regexp.MustCompile(`^\d+(?:[.,]\d+)?\s*%$`)
	// IngredientLabel matches paint ingredient labels billed as labour.
	IngredientLabel = regexp.MustCompile(`(?i)ingr[ée]dients?\s+(?:de\s+)?(?:peintures?|m[ée]tal(?:lis[ée])?\s+vernis)`)
)

// SanitizeParts normalises raw part records for billing. Lines without a
// usable description or price are dropped, quantities default to 1 and any
// line discount is applied to the unit price and removed from the record.
// The input slice is not modified.
func SanitizeParts(parts []RawPart) []document.PartLine {
	out := make([]document.PartLine, 0, len(parts))
	for _, p := range parts {
		desc := strings.TrimSpace(p.Description)
		if dropDescription(desc) {
			continue
		}

		price, consumed := resolveUnitPrice(p)
		if math.IsNaN(price) {
			continue
		}

		comment := strings.TrimSpace(p.Comment)
		remise := strings.TrimSpace(p.Remise)
		if consumed && comment == "" {
			comment = "Importé avec remise " + remise
		}

		category := p.Category
		if category == "" {
			category = document.CategoryPiece
		}

		out = append(out, document.PartLine{
			Description: desc,
			Quantity:    resolveQuantity(p.Quantity),
			UnitPrice:   price,
			Reference:   strings.TrimSpace(p.Reference),
			Operation:   strings.TrimSpace(p.Operation),
			Category:    category,
			Comment:     comment,
		})
	}
	return out
}

// SanitizeDocumentParts sanitises already extracted part lines.
func SanitizeDocumentParts(parts []document.PartLine) []document.PartLine {
	raw := make([]RawPart, 0, len(parts))
	for _, p := range parts {
		raw = append(raw, RawPartFrom(p))
	}
	return SanitizeParts(raw)
}

func dropDescription(desc string) bool {
	if desc == "" {
		return true
	}
	if reVATLabel.MatchString(desc) || rePercentOnly.MatchString(desc) {
		return true
	}
	if strings.Contains(strings.ToLower(desc), "taux") {
		return true
	}
	return IngredientLabel.MatchString(desc)
}

func resolveQuantity(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1
	}
	// Zero or negative quantities survive so the calculator can reject them
	q := money.ParseNumber(raw)
	if math.IsNaN(q) {
		return 1
	}
	return q
}

// resolveUnitPrice applies the precedence net amount > price minus remise >
// unit price minus remise. It reports whether the remise was consumed.
func resolveUnitPrice(p RawPart) (float64, bool) {
	if net := strings.TrimSpace(p.NetAmount); net != "" {
		if v := money.ParseNumber(net); !math.IsNaN(v) {
			return v, false
		}
	}

	base := math.NaN()
	if price := strings.TrimSpace(p.Price); price != "" {
		base = money.ParseNumber(price)
	}
	if math.IsNaN(base) {
		base = money.ParseNumber(p.UnitPrice)
	}
	if math.IsNaN(base) {
		return base, false
	}
	return ApplyDiscount(base, p.Remise)
}

// ApplyDiscount subtracts a raw remise from amount: a percentage when the
// remise contains '%', an absolute amount otherwise. It reports whether a
// non-zero discount was applied.
func ApplyDiscount(amount float64, remise string) (float64, bool) {
	remise = strings.TrimSpace(remise)
	if remise == "" {
		return amount, false
	}
	if strings.Contains(remise, "%") {
		pct := money.ParseNumber(strings.ReplaceAll(remise, "%", ""))
		if math.IsNaN(pct) || pct == 0 {
			return amount, false
		}
		pct = clamp(pct, 0, 100)
		cents := money.ToCents(amount)
		return money.FromCents(cents - money.PercentOfCents(cents, pct/100)), true
	}
	v := money.ParseNumber(remise)
	if math.IsNaN(v) || v == 0 {
		return amount, false
	}
	return money.FromCents(money.ToCents(amount) - money.ToCents(math.Abs(v))), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

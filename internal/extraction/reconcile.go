package extraction

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/money"
)

const missingPaint = "Peinture à prévoir"

var rePaintToPlan = regexp.MustCompile(`peinture\s+a\s+prevoir`)

// reconcile routes ingredient parts to labour, completes the totals and
// checks them. Totals that do not add up are kept as read and flagged.
func reconcile(src *source, doc *document.Document) {
	reconcileIngredients(doc)

	lines := money.ToCents(partsTotal(doc)) + money.ToCents(laborTotal(doc))
	if len(doc.Parts) > 0 || len(doc.LaborDetails) > 0 {
		doc.LinesTotalHT = document.Float(money.FromCents(lines))
	}

	if doc.TotalHT == nil && doc.TaxAmount == nil && doc.TotalTTC == nil {
		if doc.LinesTotalHT != nil {
			tax := money.PercentOfCents(lines, doc.TaxRate)
			doc.TotalHT = document.Float(money.FromCents(lines))
			doc.TaxAmount = document.Float(money.FromCents(tax))
			doc.TotalTTC = document.Float(money.FromCents(lines + tax))
			doc.Debug["totals_source"] = "lines"
		}
	} else {
		c := backDerive(totalsCandidate{HT: doc.TotalHT, TVA: doc.TaxAmount, TTC: doc.TotalTTC})
		doc.TotalHT, doc.TaxAmount, doc.TotalTTC = c.HT, c.TVA, c.TTC
	}

	if doc.TotalHT != nil && doc.TaxAmount != nil && *doc.TotalHT > 0 && *doc.TaxAmount >= 0 {
		doc.TaxRate = decimal.NewFromFloat(*doc.TaxAmount).
			Div(decimal.NewFromFloat(*doc.TotalHT)).
			Round(4).InexactFloat64()
	}

	doc.TotalsVerified = doc.TotalHT != nil && doc.TaxAmount != nil && doc.TotalTTC != nil &&
		money.Consistent(*doc.TotalHT, *doc.TaxAmount, *doc.TotalTTC, money.Tolerance)
	if doc.TotalHT != nil && doc.TaxAmount != nil && doc.TotalTTC != nil && !doc.TotalsVerified {
		doc.AddWarning(document.WarningTotalsMismatch)
	}

	if rePaintToPlan.MatchString(src.foldedText) && !paintCosted(doc) {
		doc.AddMissingTerm(missingPaint)
	}
}

// reconcileIngredients keeps a single ingredient labour line. An ingredient
// part becomes that line when none exists; the remaining ingredient parts
// are dropped. Unrelated parts that merely share the ingredient amount are
// kept and listed in Debug["ingredient_amount_collisions"].
func reconcileIngredients(doc *document.Document) {
	var kept []document.PartLine
	var ingredients []document.PartLine
	for _, p := range doc.Parts {
		if isIngredient(p.Description) {
			ingredients = append(ingredients, p)
			continue
		}
		kept = append(kept, p)
	}
	if len(ingredients) > 0 && !hasIngredientLabor(doc) {
		p := ingredients[0]
		addLabor(doc, document.LaborLine{
			Type:  ingredientType,
			Hours: document.Unspecified(),
			Rate:  document.Unspecified(),
			Total: money.FromCents(money.MulCents(p.Quantity, p.UnitPrice)),
		})
	}
	if kept == nil {
		kept = []document.PartLine{}
	}
	doc.Parts = kept

	for _, l := range doc.LaborDetails {
		if !isIngredient(l.Type) {
			continue
		}
		var collisions []string
		for _, p := range doc.Parts {
			if p.Category != document.CategoryDiscount && near(money.FromCents(money.MulCents(p.Quantity, p.UnitPrice)), l.Total, money.Tolerance) {
				collisions = append(collisions, p.Description)
			}
		}
		if len(collisions) > 0 {
			doc.Debug["ingredient_amount_collisions"] = collisions
		}
	}
}

// paintCosted reports whether any part or labour line bills paint.
func paintCosted(doc *document.Document) bool {
	for _, p := range doc.Parts {
		if (p.Category == document.CategoryPeinture || strings.Contains(fold(p.Description), "peinture")) && math.Abs(p.UnitPrice) > 0 {
			return true
		}
	}
	for _, l := range doc.LaborDetails {
		if strings.Contains(fold(l.Type), "peinture") && !isIngredient(l.Type) && l.Total > 0 {
			return true
		}
	}
	return false
}

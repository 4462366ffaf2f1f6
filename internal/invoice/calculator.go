package invoice

import (
	"fmt"
	"math"

	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/money"
)

// LineItem is an invoice line as edited on the invoicing screen.
type LineItem struct {
	ID              string            `json:"id"`
	Description     string            `json:"description,omitempty"`
	Price           float64           `json:"price"`
	Quantity        float64           `json:"quantity"`
	Deleted         bool              `json:"deleted,omitempty"`
	DiscountPercent float64           `json:"discountPercent,omitempty"`
	DiscountAmount  float64           `json:"discountAmount,omitempty"`
	Category        document.Category `json:"category,omitempty"`
}

// LaborEntry is a labour line as used by RecalculateTotal.
type LaborEntry struct {
	Type            string          `json:"type"`
	Hours           document.Number `json:"hours"`
	Rate            document.Number `json:"rate"`
	Total           float64         `json:"total"`
	DiscountPercent float64         `json:"discountPercent,omitempty"`
	DiscountAmount  float64         `json:"discountAmount,omitempty"`
}

// Totals is the result of CalculateInvoiceTotal.
type Totals struct {
	Subtotal  float64 `json:"subtotal"`
	TaxAmount float64 `json:"taxAmount"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"itemCount"`
}

// Recalculation is the result of RecalculateTotal.
type Recalculation struct {
	TotalHT  float64 `json:"totalHT"`
	TVA      float64 `json:"tva"`
	TotalTTC float64 `json:"totalTTC"`
}

// TaxRateOf normalises a tax rate given either as a fraction (0.2) or a
// percentage (20).
func TaxRateOf(rate float64) float64 {
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	if rate > 1 {
		return rate / 100
	}
	return rate
}

func (i LineItem) valid() bool {
	return i.ID != "" && !i.Deleted &&
		!math.IsNaN(i.Price) && !math.IsInf(i.Price, 0) && i.Price >= 0 &&
		!math.IsNaN(i.Quantity) && i.Quantity > 0
}

// CalculateInvoiceTotal sums the valid items in integer cents and applies
// taxRate. Items with a negative price, a non-positive quantity, no ID or
// marked deleted are ignored.
func CalculateInvoiceTotal(items []LineItem, taxRate float64) Totals {
	rate := TaxRateOf(taxRate)
	var subtotal int64
	count := 0
	for _, item := range items {
		if !item.valid() {
			continue
		}
		subtotal += money.MulCents(item.Price, item.Quantity)
		count++
	}
	tax := money.PercentOfCents(subtotal, rate)
	return Totals{
		Subtotal:  money.FromCents(subtotal),
		TaxAmount: money.FromCents(tax),
		Total:     money.FromCents(subtotal + tax),
		ItemCount: count,
	}
}

// RecalculateTotal derives HT, TVA and TTC from item and labour lines,
// applying each line's own discount first. taxRate may be a fraction or a
// percentage.
func RecalculateTotal(items []LineItem, labor []LaborEntry, taxRate float64) Recalculation {
	rate := TaxRateOf(taxRate)
	var ht int64
	for _, item := range items {
		if item.Deleted || math.IsNaN(item.Price) || math.IsNaN(item.Quantity) || item.Quantity <= 0 {
			continue
		}
		line := money.MulCents(item.Price, item.Quantity)
		ht += discounted(line, item.DiscountPercent, item.DiscountAmount)
	}
	for _, entry := range labor {
		ht += discounted(entry.cents(), entry.DiscountPercent, entry.DiscountAmount)
	}
	tva := money.PercentOfCents(ht, rate)
	return Recalculation{
		TotalHT:  money.FromCents(ht),
		TVA:      money.FromCents(tva),
		TotalTTC: money.FromCents(ht + tva),
	}
}

func (e LaborEntry) cents() int64 {
	hours, hoursOK := e.Hours.Value()
	rate, rateOK := e.Rate.Value()
	if hoursOK && hours > 0 && rateOK {
		return money.MulCents(hours, rate)
	}
	if math.IsNaN(e.Total) {
		return 0
	}
	return money.ToCents(e.Total)
}

// discounted applies a percentage (clamped to [0,100]) then an absolute
// discount to a line amount in cents. Positive lines never go below zero.
func discounted(cents int64, percent, amount float64) int64 {
	if !math.IsNaN(percent) && percent != 0 {
		p := clamp(percent, 0, 100)
		cents -= money.PercentOfCents(cents, p/100)
	}
	if !math.IsNaN(amount) && amount != 0 {
		reduced := cents - money.ToCents(math.Abs(amount))
		if cents > 0 && reduced < 0 {
			reduced = 0
		}
		cents = reduced
	}
	return cents
}

// ItemsFromParts turns sanitised part lines into invoice line items.
func ItemsFromParts(parts []document.PartLine) []LineItem {
	items := make([]LineItem, 0, len(parts))
	for i, p := range parts {
		items = append(items, LineItem{
			ID:          fmt.Sprintf("part-%d", i+1),
			Description: p.Description,
			Price:       p.UnitPrice,
			Quantity:    p.Quantity,
			Category:    p.Category,
		})
	}
	return items
}

// LaborEntriesFrom turns extracted labour lines into labour entries.
func LaborEntriesFrom(lines []document.LaborLine) []LaborEntry {
	entries := make([]LaborEntry, 0, len(lines))
	for _, l := range lines {
		entries = append(entries, LaborEntry{Type: l.Type, Hours: l.Hours, Rate: l.Rate, Total: l.Total})
	}
	return entries
}

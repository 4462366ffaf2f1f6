package extraction

import (
	"regexp"
	"strings"

	"github.com/zombor/expertise-reader/internal/document"
)

var reSupplies = regexp.MustCompile(`petites?\s+fournitures|fournitures\s+diverses`)

// extractSupplies synthesizes a supplies line when the report mentions
// supplies that no earlier pass priced.
func extractSupplies(src *source, doc *document.Document) {
	i := src.find(reSupplies, 0)
	if i < 0 {
		return
	}
	for _, p := range doc.Parts {
		if strings.Contains(fold(p.Description), "fourniture") {
			return
		}
	}

	amount := src.cfg.DefaultSuppliesAmount
	loc := reSupplies.FindStringIndex(src.folded[i])
	if v, ok := lastAmount(src.folded[i][loc[1]:]); ok {
		amount = v
	} else if next := src.line(i + 1); leadingText(next) == "" {
		if v, ok := lastAmount(next); ok {
			amount = v
		}
	}

	desc := "Petites fournitures"
	if strings.Contains(src.folded[i][loc[0]:loc[1]], "diverses") {
		desc = "Fournitures diverses"
	}
	doc.AddPart(document.PartLine{Description: desc, Quantity: 1, UnitPrice: amount, Category: document.CategorySupply})
}

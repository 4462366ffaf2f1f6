package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/zombor/expertise-reader/internal/document"
)

// RawPart is a loosely typed part record as imported from an expertise
// table or posted by a client. Numeric fields are kept as text until
// sanitisation.
type RawPart struct {
	Description string            `json:"description"`
	Quantity    string            `json:"quantity,omitempty"`
	UnitPrice   string            `json:"unitPrice,omitempty"`
	Price       string            `json:"price,omitempty"`
	NetAmount   string            `json:"netAmount,omitempty"`
	Remise      string            `json:"remise,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	Operation   string            `json:"operation,omitempty"`
	Category    document.Category `json:"category,omitempty"`
	Comment     string            `json:"comment,omitempty"`
}

// Synonym keys accepted when decoding. The first key present wins.
var (
	descriptionKeys = []string{"description", "designation", "libelle", "label", "name"}
	quantityKeys    = []string{"quantity", "quantite", "qty", "qte"}
	unitPriceKeys   = []string{"unitPrice", "prixUnitaire", "pu"}
	priceKeys       = []string{"price", "prix", "montantHT", "montant", "totalHT"}
	netAmountKeys   = []string{"netAmount", "montantNet", "htNet", "netHT", "montantHTNet", "vetusteDeduite", "totalNet"}
	remiseKeys      = []string{"remise", "discount", "rabais"}
	referenceKeys   = []string{"reference", "ref"}
	operationKeys   = []string{"operation", "op"}
	categoryKeys    = []string{"category", "categorie"}
	commentKeys     = []string{"comment", "commentaire"}
)

// UnmarshalJSON decodes a part accepting numbers or strings for every
// field and the French synonyms used by the various report vendors.
func (p *RawPart) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("decoding part: %w", err)
	}

	pick := func(keys []string) string {
		for _, k := range keys {
			if v, ok := m[k]; ok {
				if s := stringify(v); s != "" {
					return s
				}
			}
		}
		return ""
	}

	*p = RawPart{
		Description: pick(descriptionKeys),
		Quantity:    pick(quantityKeys),
		UnitPrice:   pick(unitPriceKeys),
		Price:       pick(priceKeys),
		NetAmount:   pick(netAmountKeys),
		Remise:      pick(remiseKeys),
		Reference:   pick(referenceKeys),
		Operation:   pick(operationKeys),
		Category:    document.Category(pick(categoryKeys)),
		Comment:     pick(commentKeys),
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// RawPartFrom converts an extracted part line back to a raw record so it can
// go through SanitizeParts.
func RawPartFrom(p document.PartLine) RawPart {
	return RawPart{
		Description: p.Description,
		Quantity:    formatNumber(p.Quantity),
		UnitPrice:   formatNumber(p.UnitPrice),
		Remise:      p.Remise,
		Reference:   p.Reference,
		Operation:   p.Operation,
		Category:    p.Category,
		Comment:     p.Comment,
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

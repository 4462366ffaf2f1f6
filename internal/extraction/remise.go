package extraction

import (
	"math"
	"regexp"
	"strings"

	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/invoice"
	"github.com/zombor/expertise-reader/internal/money"
)

type column int

const (
	colIgnore column = iota
	colRef
	colDesc
	colQty
	colPU
	colRemise
	colMontant
)

var (
	reColumnGap = regexp.MustCompile(`\s{2,}`)
	reRemiseEnd = regexp.MustCompile(`^!?\s*(?:total|sous[\s\-]*total|main\s*d'?\s*oeuvre|tva)\b`)
	reRule      = regexp.MustCompile(`^[!\-=_+|\s]*$`)
)

func columnOf(cell string) column {
	c := fold(strings.TrimSpace(cell))
	switch {
	case strings.Contains(c, "remise"):
		return colRemise
	case strings.HasPrefix(c, "ref"):
		return colRef
	case strings.Contains(c, "designation") || strings.Contains(c, "libelle") || strings.Contains(c, "description") || c == "piece" || c == "pieces":
		return colDesc
	case strings.HasPrefix(c, "qte") || strings.HasPrefix(c, "quantite") || c == "qty":
		return colQty
	case strings.HasPrefix(c, "p.u") || c == "pu" || strings.Contains(c, "unitaire") || c == "prix":
		return colPU
	case strings.Contains(c, "montant") || strings.Contains(c, "total") || strings.Contains(c, "net"):
		return colMontant
	default:
		return colIgnore
	}
}

// splitCells splits a row on '!' for the Alliance Experts layout, else on
// runs of two or more spaces.
func splitCells(line string) []string {
	var raw []string
	if strings.Contains(line, "!") {
		raw = strings.Split(line, "!")
	} else {
		raw = reColumnGap.Split(line, -1)
	}
	var out []string
	for _, c := range raw {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// extractRemiseTables reads part tables carrying a remise column and stores
// the net unit price of each row, replacing a gross price read earlier for
// the same description.
func extractRemiseTables(src *source, doc *document.Document) {
	for i := 0; i < len(src.folded); i++ {
		f := src.folded[i]
		if !strings.Contains(f, "remise") || !isTableHeader(f) {
			continue
		}
		var cols []column
		for _, c := range splitCells(src.lines[i]) {
			cols = append(cols, columnOf(c))
		}
		if !hasColumn(cols, colDesc) || !hasColumn(cols, colRemise) {
			continue
		}
		i = remiseRows(src, doc, cols, i+1)
	}
}

func remiseRows(src *source, doc *document.Document, cols []column, from int) int {
	rows := 0
	i := from
	for ; i < len(src.lines) && i < from+60; i++ {
		line := src.lines[i]
		if reRule.MatchString(line) {
			if line == "" && rows > 0 {
				return i
			}
			continue
		}
		if reRemiseEnd.MatchString(src.folded[i]) {
			return i
		}
		row, ok := remiseRow(line, cols)
		if !ok {
			continue
		}
		applyRemiseRow(doc, row)
		rows++
	}
	return i
}

type remiseCells struct {
	ref, desc, remise string
	qty, pu, montant  float64
}

func remiseRow(line string, cols []column) (remiseCells, bool) {
	r := remiseCells{qty: 1, pu: math.NaN(), montant: math.NaN()}
	cells := splitCells(line)
	if len(cells) != len(cols) {
		var ok bool
		if cells, ok = tokenCells(line, cols); !ok {
			return r, false
		}
	}
	for k, c := range cells {
		switch cols[k] {
		case colRef:
			r.ref = c
		case colDesc:
			r.desc = c
		case colQty:
			if q := money.ParseNumber(c); !math.IsNaN(q) && q > 0 {
				r.qty = q
			}
		case colPU:
			r.pu = money.ParseNumber(c)
		case colRemise:
			r.remise = strings.TrimSpace(c)
		case colMontant:
			r.montant = money.ParseNumber(c)
		}
	}
	if r.desc == "" || (math.IsNaN(r.pu) && math.IsNaN(r.montant)) {
		return r, false
	}
	return r, true
}

// tokenCells aligns a single-space separated row with the numeric columns
// that follow the description. An empty remise cell is allowed.
func tokenCells(line string, cols []column) ([]string, bool) {
	d := indexColumn(cols, colDesc)
	if d < 0 {
		return nil, false
	}
	fields := strings.Fields(line)
	j := len(fields)
	for j > 0 && isNumericField(fields[j-1]) {
		j--
	}
	tail := fields[j:]
	after := cols[d+1:]
	switch len(tail) {
	case len(after):
	case len(after) - 1:
		r := indexColumn(after, colRemise)
		if r < 0 {
			return nil, false
		}
		tail = append(append(append([]string{}, tail[:r]...), ""), tail[r:]...)
	default:
		return nil, false
	}
	head := fields[:j]
	cells := make([]string, len(cols))
	for k := 0; k < d && k < len(head); k++ {
		cells[k] = head[k]
	}
	cells[d] = strings.Join(head[min(d, len(head)):], " ")
	copy(cells[d+1:], tail)
	return cells, true
}

func applyRemiseRow(doc *document.Document, r remiseCells) {
	gross := r.pu
	if math.IsNaN(gross) && !math.IsNaN(r.montant) {
		gross = money.Round2(r.montant / r.qty)
	}
	net := gross
	discounted := false
	switch {
	case !math.IsNaN(r.montant) && !math.IsNaN(r.pu) && !near(r.montant, money.Round2(r.qty*r.pu), 0.01):
		// Montant differs from qty x P.U. so it already carries the remise
		net = money.Round2(r.montant / r.qty)
		discounted = true
	case !math.IsNaN(gross):
		net, discounted = invoice.ApplyDiscount(gross, r.remise)
	}
	if math.IsNaN(net) {
		return
	}

	comment := ""
	if discounted && r.remise != "" && money.ParseNumber(strings.TrimSuffix(r.remise, "%")) != 0 {
		comment = "Remise " + r.remise + " appliquée"
		if !math.IsNaN(gross) {
			comment += " (PU brut " + formatAmount(gross) + ")"
		}
	}

	for k := range doc.Parts {
		if strings.EqualFold(doc.Parts[k].Description, r.desc) {
			doc.Parts[k].UnitPrice = net
			doc.Parts[k].Quantity = r.qty
			if comment != "" {
				doc.Parts[k].Comment = comment
			}
			return
		}
	}
	doc.AddPart(document.PartLine{
		Description: r.desc,
		Quantity:    r.qty,
		UnitPrice:   net,
		Reference:   r.ref,
		Category:    categoryOf(r.desc),
		Comment:     comment,
	})
}

func hasColumn(cols []column, c column) bool {
	return indexColumn(cols, c) >= 0
}

func indexColumn(cols []column, c column) int {
	for i, x := range cols {
		if x == c {
			return i
		}
	}
	return -1
}

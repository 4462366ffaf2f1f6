package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/money"
)

// LaborRow is one line of a labour table.
type LaborRow struct {
	Label      string   `json:"label"`
	Hours      float64  `json:"hours"`
	Rate       float64  `json:"rate"`
	MontantHT  float64  `json:"montantHT"`
	MontantTVA *float64 `json:"montantTVA,omitempty"`
	MontantTTC *float64 `json:"montantTTC,omitempty"`
}

var (
	reLaborPrimary = regexp.MustCompile(fmt.Sprintf(
		`^(?P<label>\pL[\pL\d'./()\- ]*?)\s*:?\s+(?P<hours>%[1]s)\s*(?P<hmark>h)?\s+(?P<rate>%[1]s)\s*€?(?P<permark>\s*/\s*h)?\s+(?P<ht>%[1]s)\s*€?(?:\s+(?P<tva>%[1]s)\s*€?)?(?:\s+(?P<ttc>%[1]s)\s*€?)?$`,
		numPattern))
	reLaborKeyword = regexp.MustCompile(`\b(?:t[1-3]|m[1-3]|p[1-3]|mo|main|oeuvre|peinture|forfaits?|ingredients?|tolerie|mecanique|electricite|garnissage|controle|demontage|remontage)\b`)
	reForfait      = regexp.MustCompile(`(?i)forfait`)
)

// ParseLaborTable reads labour rows out of report text. Each line yields at
// most one row. A primary row needs a labour label or an explicit hour mark,
// otherwise "desc qty pu total" part lines would read as labour.
func ParseLaborTable(text string) []LaborRow {
	text = strings.ReplaceAll(text, "\f", "\n")
	var rows []LaborRow
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(reSpaces.ReplaceAllString(strings.ReplaceAll(line, "|", " "), " "))
		if line == "" {
			continue
		}
		if row, ok := parsePrimaryLabor(line); ok {
			rows = append(rows, row)
			continue
		}
		if row, ok := parseForfaitLabor(line); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func parsePrimaryLabor(line string) (LaborRow, bool) {
	m := reLaborPrimary.FindStringSubmatch(line)
	if m == nil {
		return LaborRow{}, false
	}
	get := func(name string) string { return m[reLaborPrimary.SubexpIndex(name)] }
	label := strings.TrimSpace(get("label"))
	folded := fold(label)
	if strings.HasPrefix(folded, "total") || strings.Contains(folded, "tva") {
		return LaborRow{}, false
	}
	row := LaborRow{
		Label:     label,
		Hours:     money.ParseNumber(get("hours")),
		Rate:      money.ParseNumber(get("rate")),
		MontantHT: money.ParseNumber(get("ht")),
	}
	if row.Hours <= 0 || row.Hours > 500 || row.Rate <= 0 || row.MontantHT < 0 {
		return LaborRow{}, false
	}
	marked := get("hmark") != "" || get("permark") != ""
	if !reLaborKeyword.MatchString(folded) && !(marked && product(row.Hours, row.Rate, row.MontantHT)) {
		return LaborRow{}, false
	}
	if v := get("tva"); v != "" {
		row.MontantTVA = document.Float(money.ParseNumber(v))
	}
	if v := get("ttc"); v != "" {
		row.MontantTTC = document.Float(money.ParseNumber(v))
	}
	return row, true
}

func parseForfaitLabor(line string) (LaborRow, bool) {
	if !reForfait.MatchString(line) {
		return LaborRow{}, false
	}
	nums := amounts(line)
	if len(nums) < 3 {
		return LaborRow{}, false
	}
	label := leadingText(line)
	if label == "" {
		label = "FORFAITS"
	}
	row := LaborRow{Label: label, Hours: nums[0], Rate: nums[1], MontantHT: nums[2]}
	if len(nums) > 3 {
		row.MontantTVA = document.Float(nums[3])
	}
	if len(nums) > 4 {
		row.MontantTTC = document.Float(nums[4])
	}
	return row, true
}

// laborLine converts a row into a document labour line.
func (r LaborRow) laborLine() document.LaborLine {
	hours, rate := document.Unspecified(), document.Unspecified()
	if r.Hours > 0 {
		hours = document.Known(r.Hours)
	}
	if r.Rate > 0 {
		rate = document.Known(r.Rate)
	}
	return document.LaborLine{Type: r.Label, Hours: hours, Rate: rate, Total: money.Round2(r.MontantHT)}
}

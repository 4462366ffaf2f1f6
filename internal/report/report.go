package report

import (
	"errors"
	"time"

	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/invoice"
)

// ErrNotFound is returned when a report or invoice does not exist
var ErrNotFound = errors.New("not found")

// Report is an uploaded expertise report with its extracted document
type Report struct {
	ID           string             `json:"id"`
	Filename     string             `json:"filename,omitempty"` // empty for raw text submissions
	ContentType  string             `json:"content_type,omitempty"`
	ScanMethod   string             `json:"scan_method"`
	Pages        int                `json:"pages"`
	ScanWarnings []string           `json:"scan_warnings,omitempty"`
	Text         string             `json:"text"`
	Document     *document.Document `json:"document"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Invoice is the billing view of a report: sanitised parts, labour lines and
// recomputed totals
type Invoice struct {
	ID       string               `json:"id"`
	ReportID string               `json:"report_id"`
	Parts    []document.PartLine  `json:"parts"`
	Labor    []invoice.LaborEntry `json:"labor"`
	TaxRate  float64              `json:"tax_rate"`
	TotalHT  float64              `json:"total_ht"`
	TVA      float64              `json:"tva"`
	TotalTTC float64              `json:"total_ttc"`

	// ReportTotalTTC is the TTC printed on the report, when one was found
	ReportTotalTTC *float64  `json:"report_total_ttc,omitempty"`
	MatchesReport  bool      `json:"matches_report"`
	CreatedAt      time.Time `json:"created_at"`
}

package extraction

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/zombor/expertise-reader/internal/document"
)

// Config holds the business defaults applied during extraction.
type Config struct {
	// TaxRate is the VAT rate used when the report does not state one.
	TaxRate float64
	// DefaultLaborRate is the hourly rate assumed when none is found.
	DefaultLaborRate float64
	// DefaultSuppliesAmount is the price of a synthesized supplies line
	// when the report mentions supplies without an amount.
	DefaultSuppliesAmount float64
}

// DefaultConfig returns the French defaults: 20% VAT and 70 €/h.
func DefaultConfig() Config {
	return Config{
		TaxRate:          0.20,
		DefaultLaborRate: 70,
	}
}

// Stage is one named pass of the pipeline. A stage only writes the fields it
// owns and never overwrites a value found by an earlier stage.
type Stage struct {
	Name string
	Run  func(src *source, doc *document.Document)
}

// Extractor turns report text into a Document. It is immutable after New
// and safe for concurrent use.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
	stages []Stage
}

// New returns an Extractor. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TaxRate <= 0 {
		cfg.TaxRate = DefaultConfig().TaxRate
	}
	if cfg.DefaultLaborRate <= 0 {
		cfg.DefaultLaborRate = DefaultConfig().DefaultLaborRate
	}
	return &Extractor{
		cfg:    cfg,
		logger: logger,
		stages: []Stage{
			{Name: "identity", Run: extractIdentity},
			{Name: "contact", Run: extractContact},
			{Name: "address", Run: extractAddress},
			{Name: "insurer", Run: extractInsurer},
			{Name: "vehicle", Run: extractVehicle},
			{Name: "identifiers", Run: extractIdentifiers},
			{Name: "totals", Run: extractTotals},
			{Name: "labor", Run: extractLabor},
			{Name: "parts", Run: extractParts},
			{Name: "ingredients", Run: extractIngredientsAndForfaits},
			{Name: "discount", Run: extractGlobalDiscount},
			{Name: "remise_tables", Run: extractRemiseTables},
			{Name: "supplies", Run: extractSupplies},
			{Name: "reconcile", Run: reconcile},
		},
	}
}

// Stages returns the stage names in execution order.
func (e *Extractor) Stages() []string {
	names := make([]string, len(e.stages))
	for i, s := range e.stages {
		names[i] = s.Name
	}
	return names
}

// Extract runs every stage over text. It never fails: fields that cannot be
// read keep their defaults.
func (e *Extractor) Extract(text string) *document.Document {
	start := time.Now()
	doc := document.New(e.cfg.TaxRate)
	doc.Report.ReportType = DetectReportType(text)
	src := newSource(text, e.cfg)

	for _, st := range e.stages {
		e.run(st, src, doc)
	}

	doc.DebugSummary = summarize(doc)
	e.logger.Debug("Extraction finished",
		"type", doc.Report.ReportType,
		"parts", len(doc.Parts),
		"labor", len(doc.LaborDetails),
		"verified", doc.TotalsVerified,
		"duration", time.Since(start))
	return doc
}

func (e *Extractor) run(st Stage, src *source, doc *document.Document) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Extraction stage failed", "stage", st.Name, "panic", r)
			errs, _ := doc.Debug["stage_errors"].([]string)
			doc.Debug["stage_errors"] = append(errs, fmt.Sprintf("%s: %v", st.Name, r))
		}
	}()
	parts, labor := len(doc.Parts), len(doc.LaborDetails)
	st.Run(src, doc)
	e.logger.Debug("Extraction stage",
		"stage", st.Name,
		"parts_added", len(doc.Parts)-parts,
		"labor_added", len(doc.LaborDetails)-labor)
}

func summarize(doc *document.Document) string {
	totals := "unverified"
	if doc.TotalsVerified {
		totals = "verified"
	}
	src, _ := doc.Debug["totals_source"].(string)
	if src == "" {
		src = "none"
	}
	return fmt.Sprintf("type=%s parts=%d labor=%d totals=%s source=%s warnings=%d",
		doc.Report.ReportType, len(doc.Parts), len(doc.LaborDetails), totals, src, len(doc.Warnings))
}

package report

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/invoice"
	"github.com/zombor/expertise-reader/internal/scanning"
)

// IDGenerator generates unique IDs for reports and invoices
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// Extractor turns report text into a document
type Extractor interface {
	Extract(text string) *document.Document
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles report operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	extractor   Extractor
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID ids and the wall clock
func NewService(db DB, scanner scanning.Scanner, storage Storage, extractor Extractor) *Service {
	return NewServiceWithDeps(db, scanner, storage, extractor, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, extractor Extractor, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		extractor:   extractor,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	reFilenameChars  = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	reFilenameSpaces = regexp.MustCompile(`\s+`)
)

// sanitizeFilename removes special characters and truncates long scanner
// generated names
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = reFilenameChars.ReplaceAllString(base, "")
	base = reFilenameSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "rapport"
	}
	return base + ext
}

// ProcessReport stores an uploaded report, reads its text and extracts the
// document
func (s *Service) ProcessReport(filename string, data []byte, contentType string) (*Report, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	scan, err := s.scanner.ScanDocument(data, contentType)
	if err != nil {
		slog.Error("Failed to scan report",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("scanning report: %w", err)
	}

	report := &Report{
		ID:           id,
		Filename:     savedPath,
		ContentType:  contentType,
		ScanMethod:   scan.Method,
		Pages:        scan.Pages,
		ScanWarnings: scan.Warnings,
		Text:         scan.Text,
		Document:     s.extractor.Extract(scan.Text),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.SaveReport(report); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving report to database: %w", err)
	}

	slog.Info("Report extracted",
		"id", id,
		"method", scan.Method,
		"type", report.Document.Report.ReportType,
		"parts", len(report.Document.Parts),
		"labor", len(report.Document.LaborDetails),
		"verified", report.Document.TotalsVerified,
	)
	return report, nil
}

// ExtractText extracts and stores a report submitted as raw text
func (s *Service) ExtractText(text string) (*Report, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("extracting text: %w", scanning.ErrNoText)
	}

	now := s.timeSource.Now()
	report := &Report{
		ID:         s.idGenerator.Generate(),
		ScanMethod: scanning.MethodPlainText,
		Pages:      1,
		Text:       text,
		Document:   s.extractor.Extract(text),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.SaveReport(report); err != nil {
		return nil, fmt.Errorf("saving report to database: %w", err)
	}
	return report, nil
}

// GetReport retrieves a report by ID
func (s *Service) GetReport(id string) (*Report, error) {
	report, err := s.db.GetReport(id)
	if err != nil {
		return nil, fmt.Errorf("getting report: %w", err)
	}
	return report, nil
}

// ListReports returns all reports, newest first
func (s *Service) ListReports() ([]*Report, error) {
	reports, err := s.db.ListReports()
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

// DeleteReport removes a report, its file and its invoices
func (s *Service) DeleteReport(id string) error {
	report, err := s.db.GetReport(id)
	if err != nil {
		return fmt.Errorf("getting report for deletion: %w", err)
	}

	if report.Filename != "" {
		if err := s.storage.Delete(report.Filename); err != nil {
			// Log error but continue with database deletion
			slog.Warn("Failed to delete file", "filename", report.Filename, "error", err)
		}
	}

	invoices, err := s.db.ListInvoices()
	if err != nil {
		return fmt.Errorf("listing invoices for deletion: %w", err)
	}
	for _, inv := range invoices {
		if inv.ReportID != id {
			continue
		}
		if err := s.db.DeleteInvoice(inv.ID); err != nil {
			return fmt.Errorf("deleting invoice %s: %w", inv.ID, err)
		}
	}

	if err := s.db.DeleteReport(id); err != nil {
		return fmt.Errorf("deleting report from database: %w", err)
	}
	return nil
}

// GetReportFile retrieves the original file of a report
func (s *Service) GetReportFile(id string) ([]byte, string, error) {
	report, err := s.db.GetReport(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting report: %w", err)
	}
	if report.Filename == "" {
		return nil, "", fmt.Errorf("report %s has no file: %w", id, ErrNotFound)
	}

	data, err := s.storage.Get(report.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting report file: %w", err)
	}
	return data, report.ContentType, nil
}

// CreateInvoice sanitises the parts of a report and recomputes its totals
func (s *Service) CreateInvoice(reportID string) (*Invoice, error) {
	report, err := s.db.GetReport(reportID)
	if err != nil {
		return nil, fmt.Errorf("getting report %s: %w", reportID, err)
	}
	if report.Document == nil {
		return nil, fmt.Errorf("report %s has no document", reportID)
	}
	doc := report.Document.Clone()

	parts := invoice.SanitizeDocumentParts(doc.Parts)
	labor := invoice.LaborEntriesFrom(doc.LaborDetails)
	totals := invoice.RecalculateTotal(invoice.ItemsFromParts(parts), labor, doc.TaxRate)

	inv := &Invoice{
		ID:             s.idGenerator.Generate(),
		ReportID:       reportID,
		Parts:          parts,
		Labor:          labor,
		TaxRate:        invoice.TaxRateOf(doc.TaxRate),
		TotalHT:        totals.TotalHT,
		TVA:            totals.TVA,
		TotalTTC:       totals.TotalTTC,
		ReportTotalTTC: doc.TotalTTC,
		CreatedAt:      s.timeSource.Now(),
	}
	if doc.TotalTTC != nil {
		inv.MatchesReport = math.Abs(*doc.TotalTTC-totals.TotalTTC) <= 0.01
	}

	if err := s.db.SaveInvoice(inv); err != nil {
		return nil, fmt.Errorf("saving invoice: %w", err)
	}
	return inv, nil
}

// GetInvoice retrieves an invoice by ID
func (s *Service) GetInvoice(id string) (*Invoice, error) {
	inv, err := s.db.GetInvoice(id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice: %w", err)
	}
	return inv, nil
}

// ListInvoices returns all invoices, newest first
func (s *Service) ListInvoices() ([]*Invoice, error) {
	invoices, err := s.db.ListInvoices()
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	sort.SliceStable(invoices, func(i, j int) bool {
		return invoices[i].CreatedAt.After(invoices[j].CreatedAt)
	})
	return invoices, nil
}

// IsNotFound reports whether err means a missing report, invoice or file
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

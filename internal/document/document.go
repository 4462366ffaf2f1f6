package document

import (
	"slices"
	"strings"
)

// ReportType classifies the source expertise report.
type ReportType string

const (
	ReportBCA           ReportType = "BCA"
	ReportIndependent   ReportType = "Independent"
	ReportStructuredPDF ReportType = "StructuredPDF"
	ReportGeneric       ReportType = "Generic"
)

// Category of a part line.
type Category string

const (
	CategoryPiece    Category = "piece"
	CategoryPeinture Category = "peinture"
	CategoryForfait  Category = "forfait"
	CategoryDiscount Category = "discount"
	CategorySupply   Category = "supply"
)

// Unknown is the placeholder used for unresolved client names.
const Unknown = "Unknown"

// Warning tags.
const (
	WarningTotalsMismatch  = "totals mismatch"
	WarningAutoInterpreted = "auto_interpreted"
)

// Client is the insured party.
type Client struct {
	Name      string `json:"name,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

// Vehicle is the assessed vehicle.
type Vehicle struct {
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Registration string `json:"registration,omitempty"`
	VIN          string `json:"vin,omitempty"`
	Year         string `json:"year,omitempty"`
	Mileage      string `json:"mileage,omitempty"`
}

// Insurer is the insurance company handling the claim.
type Insurer struct {
	Name         string `json:"name,omitempty"`
	PolicyNumber string `json:"policyNumber,omitempty"`
	ClaimNumber  string `json:"claimNumber,omitempty"`
	Contact      string `json:"contact,omitempty"`
	Address      string `json:"address,omitempty"`
}

// Report identifies the expertise report itself.
type Report struct {
	ReportType   ReportType `json:"reportType"`
	ReportNumber string     `json:"reportNumber,omitempty"`
	Tracabilite  string     `json:"tracabilite,omitempty"`
}

// PartLine is one billed part, paint or flat-rate item.
type PartLine struct {
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   float64  `json:"unitPrice"`
	Reference   string   `json:"reference,omitempty"`
	Operation   string   `json:"operation,omitempty"`
	Category    Category `json:"category"`
	Comment     string   `json:"comment,omitempty"`
	// Remise is the raw discount read next to the line; the sanitizer
	// applies and removes it.
	Remise string `json:"remise,omitempty"`
}

// LaborLine is one labour entry.
type LaborLine struct {
	Type  string  `json:"type"`
	Hours Number  `json:"hours"`
	Rate  Number  `json:"rate"`
	Total float64 `json:"total"`
}

// Document is the structured result of one extraction.
type Document struct {
	Client       Client      `json:"client"`
	Vehicle      Vehicle     `json:"vehicle"`
	Insurer      Insurer     `json:"insurer"`
	Report       Report      `json:"report"`
	Parts        []PartLine  `json:"parts"`
	LaborDetails []LaborLine `json:"laborDetails"`

	TotalHT      *float64 `json:"totalHT"`
	TaxAmount    *float64 `json:"taxAmount"`
	TotalTTC     *float64 `json:"totalTTC"`
	TaxRate      float64  `json:"taxRate"`
	LaborHours   *float64 `json:"laborHours"`
	LaborRate    *float64 `json:"laborRate"`
	LaborTotal   *float64 `json:"laborTotal"`
	LinesTotalHT *float64 `json:"linesTotalHT"`

	TotalsVerified bool     `json:"totalsVerified"`
	Warnings       []string `json:"warnings"`
	MissingTerms   []string `json:"missingTerms,omitempty"`

	Debug        map[string]any `json:"debug,omitempty"`
	DebugSummary string         `json:"debugSummary,omitempty"`
}

// New returns an all-default document for the given tax rate.
func New(taxRate float64) *Document {
	return &Document{
		Client:       Client{FirstName: Unknown, LastName: Unknown},
		Report:       Report{ReportType: ReportGeneric},
		Parts:        []PartLine{},
		LaborDetails: []LaborLine{},
		TaxRate:      taxRate,
		Warnings:     []string{},
		Debug:        map[string]any{},
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// AddWarning records a warning tag once.
func (d *Document) AddWarning(tag string) {
	if !slices.Contains(d.Warnings, tag) {
		d.Warnings = append(d.Warnings, tag)
	}
}

// HasWarning reports whether the tag was recorded.
func (d *Document) HasWarning(tag string) bool {
	return slices.Contains(d.Warnings, tag)
}

// AddMissingTerm records a missing term once.
func (d *Document) AddMissingTerm(term string) {
	if !slices.Contains(d.MissingTerms, term) {
		d.MissingTerms = append(d.MissingTerms, term)
	}
}

// HasPart reports whether a part with the same description (case
// insensitive) and unit price within one cent already exists.
func (d *Document) HasPart(description string, unitPrice float64) bool {
	for _, p := range d.Parts {
		if strings.EqualFold(strings.TrimSpace(p.Description), strings.TrimSpace(description)) &&
			abs(p.UnitPrice-unitPrice) <= 0.01 {
			return true
		}
	}
	return false
}

// AddPart appends p unless it duplicates an existing line. It reports
// whether the part was added.
func (d *Document) AddPart(p PartLine) bool {
	p.Description = strings.TrimSpace(p.Description)
	if p.Description == "" || d.HasPart(p.Description, p.UnitPrice) {
		return false
	}
	if p.Quantity <= 0 {
		p.Quantity = 1
	}
	if p.Category == "" {
		p.Category = CategoryPiece
	}
	d.Parts = append(d.Parts, p)
	return true
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	c.Parts = slices.Clone(d.Parts)
	c.LaborDetails = slices.Clone(d.LaborDetails)
	c.Warnings = slices.Clone(d.Warnings)
	c.MissingTerms = slices.Clone(d.MissingTerms)
	c.TotalHT = clonePtr(d.TotalHT)
	c.TaxAmount = clonePtr(d.TaxAmount)
	c.TotalTTC = clonePtr(d.TotalTTC)
	c.LaborHours = clonePtr(d.LaborHours)
	c.LaborRate = clonePtr(d.LaborRate)
	c.LaborTotal = clonePtr(d.LaborTotal)
	c.LinesTotalHT = clonePtr(d.LinesTotalHT)
	if d.Debug != nil {
		c.Debug = make(map[string]any, len(d.Debug))
		for k, v := range d.Debug {
			c.Debug[k] = v
		}
	}
	return &c
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

package report

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/expertise-reader/internal/invoice"
	"github.com/zombor/expertise-reader/internal/scanning"
)

// maxUploadSize bounds multipart uploads; phone photos of multi-page reports are large
const maxUploadSize = int64(50 << 20)

// maxJSONSize bounds JSON request bodies
const maxJSONSize = int64(5 << 20)

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body with CORS headers set
func writeError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// decodeJSON reads a bounded JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONSize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		slog.Warn("Error decoding request body", "path", r.URL.Path, "error", err)
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// contentTypeOf returns the declared upload type, guessing from the extension
func contentTypeOf(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUploadReport handles report upload
func (s *Server) handleUploadReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			errorMsg = "File is too large. Maximum size is 50MB."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := contentTypeOf(header.Header.Get("Content-Type"), header.Filename)
	report, err := s.service.ProcessReport(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing report", "filename", header.Filename, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, scanning.ErrNoText) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

type extractTextRequest struct {
	Text string `json:"text"`
}

// handleExtractText extracts a report submitted as raw text
func (s *Server) handleExtractText(w http.ResponseWriter, r *http.Request) {
	var req extractTextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := s.service.ExtractText(req.Text)
	if err != nil {
		if errors.Is(err, scanning.ErrNoText) {
			writeError(w, "Text is required", http.StatusBadRequest)
			return
		}
		slog.Error("Error extracting text", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// handleListReports returns a list of all reports
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.service.ListReports()
	if err != nil {
		slog.Error("Error listing reports", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// handleGetReport returns a single report
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.GetReport(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, "Report not found", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleGetReportFile returns the original file of a report
func (s *Server) handleGetReportFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReportFile(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, "File not found", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReport deletes a report
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReport(r.PathValue("id")); err != nil {
		s.serviceError(w, "Report not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateInvoice builds and stores the invoice of a report
func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.service.CreateInvoice(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, "Report not found", err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// handleListInvoices returns a list of all invoices
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.service.ListInvoices()
	if err != nil {
		slog.Error("Error listing invoices", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// handleGetInvoice returns a single invoice
func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.service.GetInvoice(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, "Invoice not found", err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// handleSanitizeParts cleans a list of raw extracted parts
func (s *Server) handleSanitizeParts(w http.ResponseWriter, r *http.Request) {
	var parts []invoice.RawPart
	if !decodeJSON(w, r, &parts) {
		return
	}
	writeJSON(w, http.StatusOK, invoice.SanitizeParts(parts))
}

type calculateRequest struct {
	Items   []invoice.LineItem `json:"items"`
	TaxRate float64            `json:"taxRate"`
}

// handleCalculate totals line items
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, invoice.CalculateInvoiceTotal(req.Items, req.TaxRate))
}

type recalculateRequest struct {
	Items   []invoice.LineItem   `json:"items"`
	Labor   []invoice.LaborEntry `json:"labor"`
	TaxRate float64              `json:"taxRate"`
}

// handleRecalculate derives HT, TVA and TTC from items and labour lines
func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	var req recalculateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, invoice.RecalculateTotal(req.Items, req.Labor, req.TaxRate))
}

// serviceError maps service errors to 404 or 500 responses
func (s *Server) serviceError(w http.ResponseWriter, notFound string, err error) {
	if IsNotFound(err) {
		writeError(w, notFound, http.StatusNotFound)
		return
	}
	slog.Error("Service error", "error", err)
	writeError(w, "Internal server error", http.StatusInternalServerError)
}

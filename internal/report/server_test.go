package report

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/expertise-reader/internal/document"
	"github.com/zombor/expertise-reader/internal/invoice"
	"github.com/zombor/expertise-reader/internal/scanning"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		scanner     *mockScanner
		storage     *mockStorage
		service     *Service
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	startServer := func() {
		server := NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		anyPath := regexp.MustCompile(`^/`)
		for _, method := range []string{"GET", "POST", "DELETE", "OPTIONS"} {
			ghttpServer.RouteToHandler(method, anyPath, server.ServeHTTP)
		}
	}

	do := func(method, path, contentType string, body io.Reader) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	decode := func(resp *http.Response, v any) {
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	upload := func(filename, contentType string, data []byte) *http.Response {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())
		return do("POST", "/api/reports", writer.FormDataContentType(), &body)
	}

	BeforeEach(func() {
		db = newMockDB()
		scanner = newMockScanner()
		storage = newMockStorage()
		ids := &fixedIDs{ids: []string{"r1", "i1"}}
		clock := &fixedTime{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
		service = NewServiceWithDeps(db, scanner, storage, newMockExtractor(), ids, clock)
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		startServer()
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	Describe("GET /api/health", func() {
		It("returns ok", func() {
			resp := do("GET", "/api/health", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /api/reports", func() {
		When("a file is uploaded", func() {
			It("returns the created report", func() {
				resp := upload("rapport.pdf", "", []byte("%PDF-1.7"))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var report Report
				decode(resp, &report)
				Expect(report.ID).To(Equal("r1"))
				Expect(report.ContentType).To(Equal("application/pdf"))
				Expect(report.Document.Parts).To(HaveLen(2))
			})
		})

		When("no text can be read", func() {
			BeforeEach(func() {
				scanner.err = scanning.ErrNoText
			})

			It("returns unprocessable entity", func() {
				resp := upload("photo.jpg", "", []byte{0xff, 0xd8})
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

				var body map[string]string
				decode(resp, &body)
				Expect(body["error"]).To(ContainSubstring("no text found"))
			})
		})

		When("no file is sent", func() {
			It("returns bad request", func() {
				var body bytes.Buffer
				writer := multipart.NewWriter(&body)
				Expect(writer.WriteField("note", "x")).To(Succeed())
				Expect(writer.Close()).To(Succeed())

				resp := do("POST", "/api/reports", writer.FormDataContentType(), &body)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("POST /api/reports/text", func() {
		It("extracts raw text", func() {
			resp := do("POST", "/api/reports/text", "application/json", strings.NewReader(`{"text":"TOTAL TTC : 336,00"}`))
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var report Report
			decode(resp, &report)
			Expect(report.Text).To(Equal("TOTAL TTC : 336,00"))
		})

		It("rejects empty text", func() {
			resp := do("POST", "/api/reports/text", "application/json", strings.NewReader(`{"text":""}`))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects invalid JSON", func() {
			resp := do("POST", "/api/reports/text", "application/json", strings.NewReader(`{`))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("report routes", func() {
		BeforeEach(func() {
			_, err := service.ProcessReport("rapport.pdf", []byte("%PDF-1.7"), "application/pdf")
			Expect(err).NotTo(HaveOccurred())
		})

		It("lists reports", func() {
			resp := do("GET", "/api/reports", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var reports []*Report
			decode(resp, &reports)
			Expect(reports).To(HaveLen(1))
		})

		It("gets a report", func() {
			resp := do("GET", "/api/reports/r1", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("returns 404 for unknown reports", func() {
			resp := do("GET", "/api/reports/missing", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("serves the original file", func() {
			resp := do("GET", "/api/reports/r1/file", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
			data, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("%PDF-1.7")))
		})

		It("deletes a report", func() {
			resp := do("DELETE", "/api/reports/r1", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.reports).To(BeEmpty())
		})

		It("returns 500 when the database fails", func() {
			db.listErr = io.ErrUnexpectedEOF
			resp := do("GET", "/api/reports", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})

		It("creates and fetches an invoice", func() {
			resp := do("POST", "/api/reports/r1/invoice", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var inv Invoice
			decode(resp, &inv)
			Expect(inv.TotalTTC).To(Equal(336.0))

			resp = do("GET", "/api/invoices/"+inv.ID, "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp = do("GET", "/api/invoices", "", nil)
			var invoices []*Invoice
			decode(resp, &invoices)
			Expect(invoices).To(HaveLen(1))
		})

		It("returns 404 for unknown invoices", func() {
			resp := do("GET", "/api/invoices/missing", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("stateless invoice helpers", func() {
		It("sanitises raw parts", func() {
			body := `[{"description":"Aile avant","prixUnitaire":"100,00","remise":"10%"},{"description":"TVA 20%","price":"20"}]`
			resp := do("POST", "/api/parts/sanitize", "application/json", strings.NewReader(body))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var parts []document.PartLine
			decode(resp, &parts)
			Expect(parts).To(HaveLen(1))
			Expect(parts[0].UnitPrice).To(Equal(90.0))
		})

		It("calculates invoice totals", func() {
			body := `{"items":[{"id":"1","price":100,"quantity":2},{"id":"2","price":50,"quantity":1,"deleted":true}],"taxRate":20}`
			resp := do("POST", "/api/invoices/calculate", "application/json", strings.NewReader(body))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var totals invoice.Totals
			decode(resp, &totals)
			Expect(totals.Subtotal).To(Equal(200.0))
			Expect(totals.TaxAmount).To(Equal(40.0))
			Expect(totals.Total).To(Equal(240.0))
		})

		It("recalculates with labour", func() {
			body := `{"items":[{"id":"1","price":100,"quantity":1}],"labor":[{"type":"T1","hours":2,"rate":50,"total":0}],"taxRate":0.2}`
			resp := do("POST", "/api/invoices/recalculate", "application/json", strings.NewReader(body))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var rec invoice.Recalculation
			decode(resp, &rec)
			Expect(rec.TotalHT).To(Equal(200.0))
			Expect(rec.TVA).To(Equal(40.0))
			Expect(rec.TotalTTC).To(Equal(240.0))
		})
	})

	Describe("CORS", func() {
		It("answers preflight requests", func() {
			resp := do("OPTIONS", "/api/reports", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("sets headers on regular responses", func() {
			resp := do("GET", "/api/reports", "", nil)
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("DELETE"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "expert", Password: "secret"}
		})

		It("rejects missing credentials", func() {
			resp := do("GET", "/api/reports", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("accepts valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/reports", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("expert:secret")))
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("rejects wrong passwords", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/reports", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("expert", "nope")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("leaves the health check open", func() {
			resp := do("GET", "/api/health", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})

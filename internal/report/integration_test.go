package report_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/expertise-reader/internal/extraction"
	"github.com/zombor/expertise-reader/internal/report"
	"github.com/zombor/expertise-reader/internal/scanning"
)

const expertiseText = `BCA EXPERTISE
Rapport d'expertise
N° de rapport : RAP-2024-001
ASSURÉ : DUPONT Jean
Véhicule : RENAULT CLIO IV
Immatriculation : AB-123-CD

Pièces par choc
E 7701474967 PARE-CHOCS AVANT 1 245,00 245,00
E OPTIQUE AVANT GAUCHE 1 180,50 180,50

Main d'oeuvre par choc
T1 2,00 60,00 120,00
Peinture 3,00 65,00 195,00

Ingrédients peinture 85,00 102,00

TOTAL HT : 825,50
TVA : 165,10
TOTAL TTC : 990,60`

var _ = Describe("Integration", func() {
	var (
		db       *report.BoltDB
		ghServer *ghttp.Server
	)

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()

		var err error
		db, err = report.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err := report.NewLocalStorage(filepath.Join(tempDir, "reports"))
		Expect(err).NotTo(HaveOccurred())

		scanner := scanning.NewChain(0, scanning.NewTextLayer(0))
		extractor := extraction.New(extraction.DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
		service := report.NewService(db, scanner, store, extractor)
		server := report.NewServer(service, report.BasicAuth{})

		ghServer = ghttp.NewServer()
		ghServer.AppendHandlers(
			server.ServeHTTP, // upload
			server.ServeHTTP, // invoice
			server.ServeHTTP, // file download
		)
	})

	AfterEach(func() {
		ghServer.Close()
		db.Close()
	})

	It("uploads a report, extracts it and builds a matching invoice", func() {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "rapport.txt")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte(expertiseText))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/reports", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var created report.Report
		Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
		Expect(created.ScanMethod).To(Equal(scanning.MethodPlainText))
		Expect(created.Document.Report.ReportNumber).To(Equal("RAP-2024-001"))
		Expect(created.Document.Vehicle.Registration).To(Equal("AB-123-CD"))
		Expect(created.Document.TotalsVerified).To(BeTrue())
		Expect(created.Document.Parts).To(HaveLen(2))

		resp, err = http.Post(ghServer.URL()+"/api/reports/"+created.ID+"/invoice", "application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var inv report.Invoice
		Expect(json.NewDecoder(resp.Body).Decode(&inv)).To(Succeed())
		Expect(inv.TotalHT).To(BeNumerically("~", 825.5, 0.001))
		Expect(inv.TVA).To(BeNumerically("~", 165.1, 0.001))
		Expect(inv.TotalTTC).To(BeNumerically("~", 990.6, 0.001))
		Expect(inv.MatchesReport).To(BeTrue())

		resp, err = http.Get(ghServer.URL() + "/api/reports/" + created.ID + "/file")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(expertiseText))
	})
})

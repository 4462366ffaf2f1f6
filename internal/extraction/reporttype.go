package extraction

import (
	"regexp"
	"strings"

	"github.com/zombor/expertise-reader/internal/document"
)

var (
	bcaMarkers        = []string{"bca expertise", "bcaexpertise", "groupe bca", "bca.fr", "rapport bca", "expert bca"}
	independentMarker = "emetteur"
	reStructured      = regexp.MustCompile(`liste des pieces|\bqte\b|\blibelle\b|\bref\.`)
)

// DetectReportType classifies a report from its text. The first matching rule
// wins: BCA phrases, then the independent expert marker, then structured
// table headers, else Generic.
func DetectReportType(text string) document.ReportType {
	t := fold(text)
	for _, m := range bcaMarkers {
		if strings.Contains(t, m) {
			return document.ReportBCA
		}
	}
	if strings.Contains(t, independentMarker) {
		return document.ReportIndependent
	}
	if reStructured.MatchString(t) {
		return document.ReportStructuredPDF
	}
	return document.ReportGeneric
}

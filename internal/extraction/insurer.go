package extraction

import (
	"regexp"
	"strings"

	"github.com/zombor/expertise-reader/internal/document"
)

var (
	reInsurerName = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(?:assureur|compagnie(?:\s+d'assurances?)?|soci[ée]t[ée]\s+d'assurances?|mandant)\s*:\s*(.+)$`),
		regexp.MustCompile(`(?i)^\s*(?:assurance|cie)\s*:\s*(.+)$`),
	}
	rePolicy = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bn[°o]\s*(?:de\s+)?(?:police|contrat)\s*[:.]?\s*([A-Z0-9][A-Z0-9\-/.]{3,})`),
		regexp.MustCompile(`(?i)(?:police|contrat)\s*(?:n[°o])?\s*:\s*([A-Z0-9][A-Z0-9\-/.]{3,})`),
	}
	reClaim = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bn[°o]\s*(?:de\s+)?sinistre\s*[:.]?\s*([A-Z0-9][A-Z0-9\-/.]{3,})`),
		regexp.MustCompile(`(?i)(?:sinistre|r[ée]f(?:[ée]rence)?\s+sinistre)\s*(?:n[°o])?\s*:\s*([A-Z0-9][A-Z0-9\-/.]{3,})`),
	}
	reInsurerContact = regexp.MustCompile(`(?i)^\s*(?:gestionnaire|interlocuteur|contact\s+assureur|suivi\s+par)\s*:\s*(.+)$`)
	reInsurerAddress = regexp.MustCompile(`(?i)^\s*adresse\s+(?:de\s+l'|de\s+la\s+)?(?:assureur|compagnie)\s*:\s*(.+)$`)
)

// knownInsurers is scanned when no insurer label is present.
var knownInsurers = []struct {
	name string
	re   *regexp.Regexp
}{
	{"AXA", regexp.MustCompile(`\bAXA\b`)},
	{"MAAF", regexp.MustCompile(`\bMAAF\b`)},
	{"MACIF", regexp.MustCompile(`\bMACIF\b`)},
	{"MAIF", regexp.MustCompile(`\bMAIF\b`)},
	{"MATMUT", regexp.MustCompile(`(?i)\bmatmut\b`)},
	{"GMF", regexp.MustCompile(`\bGMF\b`)},
	{"MMA", regexp.MustCompile(`\bMMA\b`)},
	{"Allianz", regexp.MustCompile(`(?i)\ballianz\b`)},
	{"Groupama", regexp.MustCompile(`(?i)\bgroupama\b`)},
	{"Generali", regexp.MustCompile(`(?i)\bgenerali\b`)},
	{"Pacifica", regexp.MustCompile(`(?i)\bpacifica\b`)},
	{"Direct Assurance", regexp.MustCompile(`(?i)\bdirect\s+assurance\b`)},
	{"Covéa", regexp.MustCompile(`(?i)\bcov[ée]a\b`)},
	{"Thélem", regexp.MustCompile(`(?i)\bth[ée]lem\b`)},
	{"L'olivier", regexp.MustCompile(`(?i)\bl'olivier\s+assurance`)},
}

func extractInsurer(src *source, doc *document.Document) {
	ins := &doc.Insurer
	if ins.Name == "" {
		ins.Name = labelled(src, reInsurerName...)
	}
	if ins.Name == "" {
		for _, k := range knownInsurers {
			if k.re.MatchString(src.text) {
				ins.Name = k.name
				break
			}
		}
	}
	if ins.PolicyNumber == "" {
		ins.PolicyNumber = matchAny(src.text, rePolicy...)
	}
	if ins.ClaimNumber == "" {
		ins.ClaimNumber = matchAny(src.text, reClaim...)
	}
	if ins.Contact == "" {
		ins.Contact = labelled(src, reInsurerContact)
	}
	if ins.Address == "" {
		ins.Address = labelled(src, reInsurerAddress)
	}
}

// labelled returns the first "Label: value" capture over all lines, cut at
// the next field.
func labelled(src *source, res ...*regexp.Regexp) string {
	for _, re := range res {
		for _, line := range src.lines {
			if m := re.FindStringSubmatch(line); m != nil {
				if v := cutField(m[1]); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func matchAny(text string, res ...*regexp.Regexp) string {
	for _, re := range res {
		if v := firstSubmatch(re, text); v != "" {
			return strings.TrimRight(v, ".-/")
		}
	}
	return ""
}

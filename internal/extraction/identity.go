package extraction

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/zombor/expertise-reader/internal/document"
)

var (
	reInsuredLabel  = regexp.MustCompile(`(?i)^\s*(?:nom\s+(?:de\s+l')?)?assur[ée]e?(?:\(e\))?\s*[:\-]\s*(.+)$`)
	reClientLabel   = regexp.MustCompile(`(?i)^\s*(?:client|nom\s+du\s+client|propri[ée]taire|l[ée]s[ée])\s*:\s*(.+)$`)
	reCivility      = regexp.MustCompile(`\b(?:M\.|Mr\.?|Mme\.?|Mlle\.?|Monsieur|Madame|Mademoiselle)\s+(\p{Lu}[\pL'\-]+(?:\s+\p{Lu}[\pL'\-]+){0,2})`)
	reCivilityStrip = regexp.MustCompile(`(?i)^(?:M\.|Mr\.?|Mme\.?|Mlle\.?|Monsieur|Madame|Mademoiselle)\s+`)
	reFieldCut      = regexp.MustCompile(`\s{2,}|\s+[-|]\s+|\s+(?i:t[ée]l|tel|email|e-mail|adresse|n[°o]|immat|police|contrat)\b`)

	reReportNumber = regexp.MustCompile(`(?i)(?:\bn[°o]\s*(?:de\s+)?(?:rapport|dossier)|rapport\s*n[°o]|r[ée]f[ée]rence\s+(?:du\s+)?dossier)\s*[:.]?\s*([A-Z0-9][A-Z0-9\-/]{3,})`)
	reTracabilite  = regexp.MustCompile(`(?i)tra[çc]abilit[ée]\s*[:.]?\s*([A-Z0-9][A-Z0-9\-/]{3,})`)

	reEmail = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	rePhone = regexp.MustCompile(`(?:\+33\s?\(?0?\)?\s?|0033\s?|\b0)[1-9](?:[\s.\-]?\d{2}){4}\b`)
)

// extractIdentity resolves the client name, the report number and the
// traceability code.
func extractIdentity(src *source, doc *document.Document) {
	if num := firstSubmatch(reReportNumber, src.text); num != "" {
		doc.Report.ReportNumber = num
	}
	if code := firstSubmatch(reTracabilite, src.text); code != "" {
		doc.Report.Tracabilite = code
	}

	for _, line := range src.lines {
		if m := reInsuredLabel.FindStringSubmatch(line); m != nil {
			if setClientName(doc, m[1]) {
				return
			}
		}
	}
	for _, line := range src.lines {
		if m := reCivility.FindStringSubmatch(line); m != nil {
			if setClientName(doc, m[1]) {
				return
			}
		}
	}
	for _, line := range src.lines {
		if m := reClientLabel.FindStringSubmatch(line); m != nil {
			if setClientName(doc, m[1]) {
				return
			}
		}
	}
}

// setClientName splits a raw name into first and last names. Fully
// upper-case words are surnames; when every word is upper-case the French
// "SURNAME Firstname" order is assumed.
func setClientName(doc *document.Document, raw string) bool {
	raw = cutField(raw)
	raw = strings.TrimSpace(reCivilityStrip.ReplaceAllString(raw, ""))
	words := strings.Fields(raw)
	if len(words) == 0 || len(words) > 5 || strings.ContainsAny(raw, "0123456789@") {
		return false
	}

	var upper, other []string
	for _, w := range words {
		if isUpperWord(w) {
			upper = append(upper, w)
		} else {
			other = append(other, w)
		}
	}

	var first, last string
	switch {
	case len(upper) > 0 && len(other) > 0:
		last, first = strings.Join(upper, " "), strings.Join(other, " ")
	case len(words) == 1:
		last = words[0]
	case len(other) == 0:
		last, first = words[0], strings.Join(words[1:], " ")
	default:
		first, last = strings.Join(words[:len(words)-1], " "), words[len(words)-1]
	}

	doc.Client.Name = strings.Join(words, " ")
	if first != "" {
		doc.Client.FirstName = first
	}
	doc.Client.LastName = last
	return true
}

func isUpperWord(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters >= 2
}

// cutField drops whatever follows the value on a multi-field line.
func cutField(s string) string {
	if loc := reFieldCut.FindStringIndex(s); loc != nil && loc[0] > 0 {
		s = s[:loc[0]]
	}
	return strings.Trim(s, " :;,.")
}

func firstSubmatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractContact reads the first email and French phone number.
func extractContact(src *source, doc *document.Document) {
	if doc.Client.Email == "" {
		doc.Client.Email = reEmail.FindString(src.text)
	}
	if doc.Client.Phone == "" {
		if p := rePhone.FindString(src.text); p != "" {
			doc.Client.Phone = normalizePhone(p)
		}
	}
}

// normalizePhone renders a French number as "06 12 34 56 78".
func normalizePhone(p string) string {
	var digits []rune
	for _, r := range p {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	d := string(digits)
	switch {
	case strings.HasPrefix(d, "0033"):
		d = "0" + d[4:]
	case strings.HasPrefix(d, "330") && len(d) == 12:
		d = d[2:]
	case strings.HasPrefix(d, "33") && len(d) == 11:
		d = "0" + d[2:]
	}
	if len(d) != 10 {
		return strings.TrimSpace(p)
	}
	return d[0:2] + " " + d[2:4] + " " + d[4:6] + " " + d[6:8] + " " + d[8:10]
}

var (
	addressLabels = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*adresse\s+(?:de\s+l'|du\s+)?(?:assur[ée]e?|client|propri[ée]taire)\s*:\s*(.+)$`),
		regexp.MustCompile(`(?i)^\s*adresse\s*:\s*(.+)$`),
		regexp.MustCompile(`(?i)^\s*domicile\s*:\s*(.+)$`),
		regexp.MustCompile(`(?i)^\s*demeurant\s*(?:[àa]\s*)?:?\s*(.+)$`),
		regexp.MustCompile(`(?i)^\s*(?:r[ée]sidence|si[èe]ge)\s*:\s*(.+)$`),
	}
	rePostalCity      = regexp.MustCompile(`\b(?:0[1-9]|[1-8]\d|9[0-8])\d{3}\s+\pL`)
	reAddressExcluded = regexp.MustCompile(`(?i)t[ée]l|fax|@|mail|immat|assur|police|contrat|sinistre|total|tva|vin\b|date|n[°o]|expert|garage|client|v[ée]hicule|marque|mod[èe]le|rapport|page|siret|siren|rcs`)
)

// extractAddress reads a labelled address, or walks up from the first
// postal code line.
func extractAddress(src *source, doc *document.Document) {
	if doc.Client.Address != "" {
		return
	}
	for _, re := range addressLabels {
		for i, line := range src.lines {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			addr := strings.Trim(m[1], " ,;")
			if addr == "" {
				continue
			}
			if !rePostalCity.MatchString(addr) && rePostalCity.MatchString(src.line(i+1)) {
				addr += ", " + src.line(i+1)
			}
			doc.Client.Address = addr
			return
		}
	}

	for i, line := range src.lines {
		if !rePostalCity.MatchString(line) || reAddressExcluded.MatchString(line) {
			continue
		}
		var parts []string
		for j := max(0, i-3); j < i; j++ {
			l := src.lines[j]
			if l == "" || reAddressExcluded.MatchString(l) || strings.Contains(l, ":") {
				continue
			}
			parts = append(parts, l)
		}
		doc.Client.Address = strings.Join(append(parts, line), ", ")
		return
	}
}

package extraction

import (
	"regexp"
	"strings"

	"github.com/zombor/expertise-reader/internal/document"
)

type brand struct {
	name string
	re   *regexp.Regexp
}

// brands is the make dictionary. Short or common words are matched in
// upper case only.
var brands = []brand{
	{"Renault", regexp.MustCompile(`(?i)\brenault\b`)},
	{"Peugeot", regexp.MustCompile(`(?i)\bpeugeot\b`)},
	{"Citroën", regexp.MustCompile(`(?i)\bcitro[eë]n\b`)},
	{"Dacia", regexp.MustCompile(`(?i)\bdacia\b`)},
	{"Volkswagen", regexp.MustCompile(`(?i)\b(?:volkswagen|vw)\b`)},
	{"Audi", regexp.MustCompile(`(?i)\baudi\b`)},
	{"BMW", regexp.MustCompile(`(?i)\bbmw\b`)},
	{"Mercedes", regexp.MustCompile(`(?i)\bmercedes(?:-benz)?\b`)},
	{"Opel", regexp.MustCompile(`(?i)\bopel\b`)},
	{"Ford", regexp.MustCompile(`(?i)\bford\b`)},
	{"Toyota", regexp.MustCompile(`(?i)\btoyota\b`)},
	{"Nissan", regexp.MustCompile(`(?i)\bnissan\b`)},
	{"Fiat", regexp.MustCompile(`(?i)\bfiat\b`)},
	{"Seat", regexp.MustCompile(`\bSEAT\b|\bSeat\b`)},
	{"Skoda", regexp.MustCompile(`(?i)\bskoda\b`)},
	{"Kia", regexp.MustCompile(`(?i)\bkia\b`)},
	{"Hyundai", regexp.MustCompile(`(?i)\bhyundai\b`)},
	{"Volvo", regexp.MustCompile(`(?i)\bvolvo\b`)},
	{"Tesla", regexp.MustCompile(`(?i)\btesla\b`)},
	{"Honda", regexp.MustCompile(`(?i)\bhonda\b`)},
	{"Mazda", regexp.MustCompile(`(?i)\bmazda\b`)},
	{"Suzuki", regexp.MustCompile(`(?i)\bsuzuki\b`)},
	{"Mitsubishi", regexp.MustCompile(`(?i)\bmitsubishi\b`)},
	{"Alfa Romeo", regexp.MustCompile(`(?i)\balfa\s+romeo\b`)},
	{"Jeep", regexp.MustCompile(`(?i)\bjeep\b`)},
	{"Land Rover", regexp.MustCompile(`(?i)\bland\s+rover\b`)},
	{"Porsche", regexp.MustCompile(`(?i)\bporsche\b`)},
	{"Lexus", regexp.MustCompile(`(?i)\blexus\b`)},
	{"Jaguar", regexp.MustCompile(`(?i)\bjaguar\b`)},
	{"Mini", regexp.MustCompile(`\bMINI\b`)},
	{"Smart", regexp.MustCompile(`\bSMART\b`)},
	{"DS", regexp.MustCompile(`\bDS\s?\d\b`)},
}

var (
	reVehicleSection = regexp.MustCompile(`(?i)^\s*v[ée]hicule\s*:\s*(.+)$`)
	reMake           = regexp.MustCompile(`(?i)\bmarque\s*:\s*([\pL][\pL\-]*(?:\s+[\pL][\pL\-]*)?)`)
	reModel          = regexp.MustCompile(`(?i)\bmod[èe]le\s*:\s*([\pL\d][\pL\d\-.]*(?:\s[\pL\d][\pL\d\-.]*){0,3})`)
	reModelStop      = regexp.MustCompile(`(?i)^(?:mod[èe]le|type|immat\w*|couleur|[ée]nergie|km|vin|version|genre|date|n[°o])`)
)

// extractVehicle fills make and model. The first method that finds a value
// wins; later methods only fill gaps.
func extractVehicle(src *source, doc *document.Document) {
	v := &doc.Vehicle
	if v.Make == "" {
		for _, b := range brands {
			loc := b.re.FindStringIndex(src.text)
			if loc == nil {
				continue
			}
			v.Make = b.name
			if b.name == "DS" {
				v.Model = strings.ReplaceAll(src.text[loc[0]:loc[1]], " ", "")
				break
			}
			if v.Model == "" {
				v.Model = modelAfter(src.text[loc[1]:])
			}
			break
		}
	}

	for _, line := range src.lines {
		m := reVehicleSection.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		words := strings.Fields(cutField(m[1]))
		if len(words) == 0 {
			continue
		}
		if v.Make == "" {
			v.Make = canonicalMake(words[0])
		}
		if v.Model == "" && len(words) > 1 {
			v.Model = modelAfter(strings.Join(words[1:], " "))
		}
		break
	}

	if v.Make == "" {
		if mk := modelAfter(firstSubmatch(reMake, src.text)); mk != "" {
			v.Make = canonicalMake(mk)
		}
	}
	if v.Model == "" {
		if md := firstSubmatch(reModel, src.text); md != "" {
			v.Model = modelAfter(md)
		}
	}
}

// modelAfter reads up to two model words from the start of rest, on the
// same line, stopping at the next field label.
func modelAfter(rest string) string {
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.TrimLeft(rest, " :-")
	var out []string
	for _, w := range strings.Fields(rest) {
		if len(out) == 2 || reModelStop.MatchString(w) || strings.ContainsAny(w, ":@") {
			break
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

func canonicalMake(word string) string {
	for _, b := range brands {
		if b.re.MatchString(word) {
			return b.name
		}
	}
	return strings.TrimSpace(word)
}

var (
	reRegistrationLabel = regexp.MustCompile(`(?i)immat(?:riculation|\.)?\s*(?:n[°o])?\s*[:.]?\s*([A-Z]{2}[\s\-]?\d{3}[\s\-]?[A-Z]{2}|\d{1,4}\s?[A-Z]{1,3}\s?\d{2,3})\b`)
	reRegistrationSIV   = regexp.MustCompile(`\b([A-HJ-NP-TV-Z]{2})[\s\-]?(\d{3})[\s\-]?([A-HJ-NP-TV-Z]{2})\b`)
	reVINLabel          = regexp.MustCompile(`(?i)(?:vin|n[°o]\s*(?:de\s+)?s[ée]rie|ch[âa]ssis)\s*[:.]?\s*([A-HJ-NPR-Z0-9]{17})\b`)
	reVIN               = regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`)
	reMileageLabel      = regexp.MustCompile(`(?i)(?:kilom[ée]trage|km\s+compteur|compteur)\s*(?:relev[ée])?\s*[:.]?\s*(\d{1,3}(?:[\s.]\d{3})+|\d{1,7})`)
	reMileage           = regexp.MustCompile(`(?i)\b(\d{1,3}(?:[\s.]\d{3})+|\d{1,7})\s*km\b`)
	reYear              = regexp.MustCompile(`(?i)(?:mise\s+en\s+circulation|\bmec\b|1[èe]?re\s+immat\w*|ann[ée]e(?:\s+mod[èe]le)?)\s*[:.]?\s*(?:\d{1,2}[/.\-]\d{1,2}[/.\-])?((?:19|20)\d{2})\b`)
	reNonDigit          = regexp.MustCompile(`\D`)
	reSIVNormalize      = regexp.MustCompile(`^([A-Z]{2})[\s\-]?(\d{3})[\s\-]?([A-Z]{2})$`)
)

// extractIdentifiers reads registration, VIN, mileage and year.
func extractIdentifiers(src *source, doc *document.Document) {
	v := &doc.Vehicle
	if v.Registration == "" {
		if r := firstSubmatch(reRegistrationLabel, src.text); r != "" {
			v.Registration = normalizeRegistration(r)
		} else if m := reRegistrationSIV.FindStringSubmatch(src.text); m != nil {
			v.Registration = m[1] + "-" + m[2] + "-" + m[3]
		}
	}
	if v.VIN == "" {
		if vin := firstSubmatch(reVINLabel, src.text); vin != "" {
			v.VIN = vin
		} else {
			for _, c := range reVIN.FindAllString(src.text, -1) {
				if strings.ContainsAny(c, "0123456789") && strings.IndexFunc(c, isASCIILetter) >= 0 {
					v.VIN = c
					break
				}
			}
		}
	}
	if v.Mileage == "" {
		km := firstSubmatch(reMileageLabel, src.text)
		if km == "" {
			km = firstSubmatch(reMileage, src.text)
		}
		v.Mileage = reNonDigit.ReplaceAllString(km, "")
	}
	if v.Year == "" {
		v.Year = firstSubmatch(reYear, src.text)
	}
}

func normalizeRegistration(r string) string {
	r = strings.ToUpper(strings.TrimSpace(r))
	if m := reSIVNormalize.FindStringSubmatch(r); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	return strings.Join(strings.Fields(r), " ")
}

func isASCIILetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

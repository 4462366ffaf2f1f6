package extraction

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/zombor/expertise-reader/internal/money"
)

// numPattern matches one amount: space or dot grouped thousands only when a
// decimal part follows, so that adjacent table columns stay separate.
const numPattern = `-?\d{1,3}(?:[ \x{00A0}\x{202F}.]\d{3})+,\d{1,2}|-?\d{1,3}(?:[ \x{00A0}\x{202F},]\d{3})+\.\d{1,2}|-?\d+(?:[.,]\d+)?`

// moneyPattern is numPattern restricted to amounts with two decimals.
const moneyPattern = `-?\d{1,3}(?:[ \x{00A0}\x{202F}.]\d{3})+,\d{2}|-?\d{1,3}(?:[ \x{00A0}\x{202F},]\d{3})+\.\d{2}|-?\d+[.,]\d{2}`

var (
	reNumber = regexp.MustCompile(numPattern)
	reMoney  = regexp.MustCompile(moneyPattern)
	reSpaces = regexp.MustCompile(`[ \t\x{00A0}\x{202F}]+`)
)

var ligatures = strings.NewReplacer("œ", "oe", "Œ", "oe", "æ", "ae", "Æ", "ae", "’", "'", "‘", "'", "`", "'", "–", "-", "—", "-")

// fold lower-cases s and strips diacritics so keyword tests ignore accents and
// OCR casing ("Main d’Œuvre" -> "main d'oeuvre").
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, ligatures.Replace(s))
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// source is the raw text prepared once for every stage.
type source struct {
	text       string
	lines      []string
	folded     []string
	foldedText string
	cfg        Config
}

func newSource(text string, cfg Config) *source {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	raw := strings.Split(strings.ReplaceAll(text, "\f", "\n"), "\n")
	s := &source{text: text, cfg: cfg}
	for _, l := range raw {
		l = strings.TrimSpace(strings.ReplaceAll(l, "\t", "  "))
		s.lines = append(s.lines, l)
		s.folded = append(s.folded, fold(l))
	}
	s.foldedText = strings.Join(s.folded, "\n")
	return s
}

// find returns the index of the first folded line at or after from that
// matches re, or -1.
func (s *source) find(re *regexp.Regexp, from int) int {
	for i := max(from, 0); i < len(s.folded); i++ {
		if re.MatchString(s.folded[i]) {
			return i
		}
	}
	return -1
}

// line returns the original line i or "" when out of range.
func (s *source) line(i int) string {
	if i < 0 || i >= len(s.lines) {
		return ""
	}
	return s.lines[i]
}

// numToken is one amount found in a line.
type numToken struct {
	value   float64
	start   int
	end     int
	percent bool
	decimal bool
}

// tokens returns the amounts in line, flagging those followed by '%'.
func tokens(line string) []numToken {
	var out []numToken
	for _, loc := range reNumber.FindAllStringIndex(line, -1) {
		start, end := loc[0], loc[1]
		// skip digits glued to letters (references such as "N2" or "7701AB")
		if start > 0 && isLetterByte(line[start-1]) {
			continue
		}
		if end < len(line) && isLetterByte(line[end]) && !strings.ContainsRune("hHxX", rune(line[end])) {
			continue
		}
		raw := line[start:end]
		v := money.ParseNumber(raw)
		if math.IsNaN(v) {
			continue
		}
		rest := strings.TrimLeft(line[end:], " ")
		out = append(out, numToken{
			value:   v,
			start:   start,
			end:     end,
			percent: strings.HasPrefix(rest, "%"),
			decimal: strings.ContainsAny(raw, ",."),
		})
	}
	return out
}

func isLetterByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// amounts returns the non-percentage amounts of line.
func amounts(line string) []float64 {
	var out []float64
	for _, t := range tokens(line) {
		if !t.percent {
			out = append(out, t.value)
		}
	}
	return out
}

// moneyAmounts returns the two-decimal amounts of line.
func moneyAmounts(line string) []float64 {
	var out []float64
	for _, m := range reMoney.FindAllStringIndex(line, -1) {
		if m[0] > 0 && isLetterByte(line[m[0]-1]) {
			continue
		}
		rest := strings.TrimLeft(line[m[1]:], " ")
		if strings.HasPrefix(rest, "%") {
			continue
		}
		if v := money.ParseNumber(line[m[0]:m[1]]); !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// lastAmount returns the last non-percentage amount of line.
func lastAmount(line string) (float64, bool) {
	a := amounts(line)
	if len(a) == 0 {
		return 0, false
	}
	return a[len(a)-1], true
}

// leadingText returns the text of line before its first amount, trimmed of
// separators.
func leadingText(line string) string {
	toks := tokens(line)
	if len(toks) > 0 {
		line = line[:toks[0].start]
	}
	return strings.Trim(line, " :;-–—=|!*€\t")
}

// near reports whether a and b are within tol.
func near(a, b, tol float64) bool {
	return money.Equal(a, b, tol)
}

// product reports whether a*b ≈ c within a relative tolerance of 1% (at
// least one cent).
func product(a, b, c float64) bool {
	tol := math.Max(0.011, math.Abs(c)*0.01)
	return near(money.Round2(a*b), c, tol)
}

package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ColorMatchKind is how a preferred color relates to a vehicle color.
type ColorMatchKind int

const (
	ColorNone ColorMatchKind = iota
	ColorFamily
	ColorExact
)

func (k ColorMatchKind) String() string {
	switch k {
	case ColorExact:
		return "exact"
	case ColorFamily:
		return "family"
	default:
		return "none"
	}
}

var colorFamilies = [][]string{
	{"red", "ruby", "crimson", "scarlet"},
	{"blue", "navy", "azure", "cobalt"},
	{"black", "midnight", "onyx"},
	{"white", "pearl", "frost"},
	{"silver", "gray", "grey", "metallic"},
	{"green", "forest", "emerald"},
}

// ColorFamilies returns a copy of the keyword groups used for partial color credit.
func ColorFamilies() [][]string {
	out := make([][]string, 0, len(colorFamilies))
	for _, f := range colorFamilies {
		out = append(out, append([]string(nil), f...))
	}
	return out
}

// ColorMatch compares a preferred color with a vehicle color.
// Either string containing the other is exact; sharing a family keyword is a family match.
func ColorMatch(pref, actual string) ColorMatchKind {
	p, a := foldColor(pref), foldColor(actual)
	if strings.Contains(a, p) || strings.Contains(p, a) {
		return ColorExact
	}
	if similar(p, a) {
		return ColorFamily
	}
	return ColorNone
}

// SimilarColor reports whether both colors contain a keyword of the same family.
func SimilarColor(a, b string) bool {
	return similar(foldColor(a), foldColor(b))
}

func similar(a, b string) bool {
	for _, family := range colorFamilies {
		if inFamily(a, family) && inFamily(b, family) {
			return true
		}
	}
	return false
}

func inFamily(color string, family []string) bool {
	for _, kw := range family {
		if strings.Contains(color, kw) {
			return true
		}
	}
	return false
}

// foldColor lowercases and strips diacritics so "Crème" and "creme" compare equal.
func foldColor(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

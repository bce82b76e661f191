// Package textnorm implements C1: deterministic query normalization and
// variant generation (spec §4.1).
package textnorm

import (
	"regexp"
	"strings"
)

var (
	vsRegexp      = regexp.MustCompile(`\bvs\.?\b`)
	quarterRange1 = regexp.MustCompile(`\bq([1-4])-q([1-4])\b`)
	quarterRange2 = regexp.MustCompile(`\bquarter\s+([1-4])\s+to\s+quarter\s+([1-4])\b`)
	nonWord       = regexp.MustCompile(`[^\w\s\x00]`)
	numberDot     = regexp.MustCompile(`(\d)\.(\d)`)
	qDigit        = regexp.MustCompile(`\bq([1-4])\b`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// defaultAbbreviations is the built-in whole-word abbreviation mapping
// (spec §4.1 step 6). New falls back to it when given no mapping, which is
// how main.go builds the service's Normalizer.
var defaultAbbreviations = map[string]string{
	"dept":  "department",
	"mgmt":  "management",
	"rev":   "revenue",
	"qtr":   "quarter",
	"yoy":   "year over year",
	"approx": "approximately",
	"info":  "information",
}

// Normalizer applies spec §4.1's Normalize and GenerateVariants operations.
// It is stateless and safe for concurrent use by many requests (spec §5).
type Normalizer struct {
	abbreviations map[string]string
}

// New builds a Normalizer. A nil or empty abbreviations map falls back to
// the built-in default set.
func New(abbreviations map[string]string) *Normalizer {
	if len(abbreviations) == 0 {
		abbreviations = defaultAbbreviations
	}
	return &Normalizer{abbreviations: abbreviations}
}

// Normalize is deterministic and idempotent: Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(query string) string {
	s := strings.ToLower(query)

	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "%", " percent ")
	s = strings.ReplaceAll(s, "/", " or ")
	s = vsRegexp.ReplaceAllString(s, "versus")

	s = expandQuarterRanges(s)

	// Strip non-word characters except periods that sit between digits
	// (preserve "3.5" while still discarding stray punctuation).
	s = numberDot.ReplaceAllString(s, "$1\x00$2")
	s = nonWord.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\x00", ".")

	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	s = qDigit.ReplaceAllString(s, "quarter $1")
	s = expandAbbreviations(s, n.abbreviations)

	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	return s
}

func expandQuarterRanges(s string) string {
	s = quarterRange1.ReplaceAllStringFunc(s, func(m string) string {
		parts := quarterRange1.FindStringSubmatch(m)
		return expandRange(parts[1], parts[2], "q")
	})
	s = quarterRange2.ReplaceAllStringFunc(s, func(m string) string {
		parts := quarterRange2.FindStringSubmatch(m)
		return expandRange(parts[1], parts[2], "quarter ")
	})
	return s
}

func expandRange(fromStr, toStr, prefix string) string {
	from := int(fromStr[0] - '0')
	to := int(toStr[0] - '0')
	if from > to {
		from, to = to, from
	}
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, prefix+string(rune('0'+i)))
	}
	return strings.Join(out, " ")
}

func expandAbbreviations(s string, abbrevs map[string]string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if expansion, ok := abbrevs[w]; ok {
			words[i] = expansion
		}
	}
	return strings.Join(words, " ")
}

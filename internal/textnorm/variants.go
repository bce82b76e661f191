package textnorm

import "strings"

// stopwords is the closed set dropped by the "stopwords-removed" variant
// (spec §4.1).
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
}

// keyVocabulary is the closed domain vocabulary retained by the "key-terms"
// variant. Grounded on the teacher's querySynonyms key set (rag/query_expand.go).
var keyVocabulary = map[string]bool{
	"revenue": true, "profit": true, "policy": true, "employee": true,
	"quarter": true, "growth": true, "margin": true, "budget": true,
	"forecast": true, "expense": true, "headcount": true, "benefits": true,
	"compliance": true, "market": true, "share": true, "strategy": true,
}

// synonyms mirrors the teacher's domain synonym table (rag/query_expand.go),
// trimmed to the key vocabulary above.
var synonyms = map[string][]string{
	"revenue":  {"income", "sales"},
	"profit":   {"earnings", "net income"},
	"growth":   {"increase", "expansion"},
	"policy":   {"guideline", "procedure"},
	"employee": {"staff", "personnel"},
	"margin":   {"spread"},
	"budget":   {"allocation", "spend"},
	"forecast": {"projection", "outlook"},
}

// GenerateVariants returns 1-4 query variants, the normalized original
// first, with duplicates removed while preserving order (spec §4.1).
func GenerateVariants(normalized string) []string {
	variants := []string{normalized}
	seen := map[string]bool{normalized: true}

	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		variants = append(variants, v)
	}

	add(stopwordsRemoved(normalized))
	add(keyTermsOnly(normalized))
	add(synonymExpanded(normalized))

	return variants
}

func stopwordsRemoved(normalized string) string {
	words := strings.Fields(normalized)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if !stopwords[w] {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

func keyTermsOnly(normalized string) string {
	words := strings.Fields(normalized)
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); i++ {
		w := words[i]
		if w == "quarter" && i+1 < len(words) && isDigit1to9(words[i+1]) {
			out = append(out, w, words[i+1])
			i++
			continue
		}
		if keyVocabulary[w] {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

func isDigit1to9(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}

// synonymExpanded appends configured synonyms for every recognized key term,
// emitted only if the resulting string grows by at least 20% over the input
// (spec §4.1's length-growth gate — absent from the teacher's own
// query_expand.go, added here per spec).
func synonymExpanded(normalized string) string {
	words := strings.Fields(normalized)
	out := append([]string(nil), words...)
	for _, w := range words {
		if syns, ok := synonyms[w]; ok {
			out = append(out, syns...)
		}
	}
	expanded := strings.Join(out, " ")
	if len(normalized) == 0 {
		return ""
	}
	if float64(len(expanded)) < float64(len(normalized))*1.2 {
		return ""
	}
	return expanded
}

package docprep

import "github.com/jdkato/prose/v2"

// CountTokens implements the token count used for the chunker's paragraph
// packing and for Chunk.TokenCount (spec §4.2). It is word-approximated:
// prose/v2's tokenizer, not a precise subword scheme. The chunker's
// oversized-paragraph slicing and its overlap count whitespace-separated
// words instead, so those two sizes are not measured with this function.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	doc, err := prose.NewDocument(text, prose.WithExtraction(false), prose.WithTagging(false))
	if err != nil {
		return len(text) / 4
	}
	return len(doc.Tokens())
}

// Sentences splits text into sentence-bounded fragments using prose/v2's
// sentence tokenizer, grounded on the teacher's splitter.go role but backed
// by a real library rather than a hand-rolled rune scanner.
func Sentences(text string) []string {
	if text == "" {
		return nil
	}
	doc, err := prose.NewDocument(text, prose.WithExtraction(false), prose.WithTagging(false))
	if err != nil {
		return []string{text}
	}
	var out []string
	for _, s := range doc.Sentences() {
		out = append(out, s.Text)
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

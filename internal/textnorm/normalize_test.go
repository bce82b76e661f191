package textnorm

import "testing"

func TestNormalizeIdempotent(t *testing.T) {
	n := New(nil)
	cases := []string{
		"Q4 revenue growth",
		"market share Q4",
		"what is the finance policy",
		"Revenue vs. Profit: Q1-Q3 review & 10% margin",
		"",
	}
	for _, s := range cases {
		once := n.Normalize(s)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("normalize not idempotent for %q: once=%q twice=%q", s, once, twice)
		}
	}
}

func TestNormalizeQuarterExpansion(t *testing.T) {
	n := New(nil)
	got := n.Normalize("Q4 revenue growth")
	if want := "quarter"; !contains(got, want) {
		t.Errorf("normalize(%q) = %q, want it to contain %q", "Q4 revenue growth", got, want)
	}
}

func TestNormalizeQuarterRange(t *testing.T) {
	n := New(nil)
	got := n.Normalize("q1-q3 results")
	// expandQuarterRanges rewrites "q1-q3" to "q1 q2 q3" first, then the
	// qDigit pass expands each "qN" token to "quarter N" before returning.
	for _, want := range []string{"quarter 1", "quarter 2", "quarter 3"} {
		if !contains(got, want) {
			t.Errorf("normalize(q1-q3 results) = %q, want it to contain %q", got, want)
		}
	}
}

func TestGenerateVariantsContainment(t *testing.T) {
	n := New(nil)
	normalized := n.Normalize("Q4 revenue growth and profit margin")
	variants := GenerateVariants(normalized)

	if len(variants) == 0 || variants[0] != normalized {
		t.Fatalf("generate_variants first element = %q, want %q", variants[0], normalized)
	}

	seen := map[string]bool{}
	for _, v := range variants {
		if seen[v] {
			t.Errorf("variant %q is not distinct", v)
		}
		seen[v] = true
	}

	if len(variants) < 1 || len(variants) > 4 {
		t.Errorf("generate_variants returned %d variants, want 1-4", len(variants))
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

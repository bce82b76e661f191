package embedding

import "testing"

func TestEmbedUnitNorm(t *testing.T) {
	e, err := New(384, 256)
	if err != nil {
		t.Fatal(err)
	}
	cases := []string{"quarter 4 revenue growth", "", "a", "the finance policy document"}
	for _, s := range cases {
		v := e.Embed(s)
		if len(v) != 384 {
			t.Fatalf("embed(%q) returned %d dims, want 384", s, len(v))
		}
		norm := Norm(v)
		if !ApproxEqual(norm, 1.0, 1e-5) {
			t.Errorf("embed(%q) norm = %f, want 1 +- 1e-5", s, norm)
		}
	}
}

func TestEmbedDeterministic(t *testing.T) {
	e, err := New(384, 0)
	if err != nil {
		t.Fatal(err)
	}
	a := e.Embed("quarterly revenue")
	b := e.Embed("quarterly revenue")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embed not deterministic at index %d: %f != %f", i, a[i], b[i])
		}
	}
}

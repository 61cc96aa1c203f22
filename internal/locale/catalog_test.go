package locale

import (
	"strings"
	"testing"
)

func TestNewSatisfiesRequiredKeys(t *testing.T) {
	if _, err := New(); err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestRenderWithData(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Render("en", "explain.turn_to_move", map[string]any{"Turn": "White", "Phase": "opening"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "White's turn") || !strings.Contains(out, "opening") {
		t.Fatalf("rendered: %q", out)
	}
}

func TestRenderFallsBackToEnglish(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Unknown locale map is empty, so every key comes from English.
	out, err := c.Render("de", "explain.material_equal", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "Material is equal." {
		t.Fatalf("fallback text: %q", out)
	}
}

func TestRenderMissingKeyFailsClosed(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("en", "explain.no_such_key", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"en":    "en",
		"EN":    "en",
		"pt":    "pt",
		"pt-BR": "pt",
		"fr":    "en",
		"":      "en",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q want %q", in, got, want)
		}
	}
}

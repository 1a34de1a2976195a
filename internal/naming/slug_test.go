package naming

import (
	"regexp"
	"strings"
	"testing"

	"brandgen/internal/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9_]{0,50}$`)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Банк", "bank"},
		{"ООО Ромашка", "ooo_romashka"},
		{"  --Hello,   World!!  ", "hello_world"},
		{"Жёлтый_Щит", "zheltyy_shchit"},
		{"a__b", "a_b"},
		{"Coca-Cola® Zero", "coca_cola_zero"},
		{"東京", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slug(tt.in); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugShapeAndIdempotence(t *testing.T) {
	inputs := []string{
		"Банк", "ООО Ромашка", "ÀÉÎõü", "x" + strings.Repeat("Щ", 40), strings.Repeat("ab ", 30),
		"___", "\x00\xff", "Мир-Труд-Май 2024", "emoji 🎉 brand", strings.Repeat("a", 49) + " b",
	}
	for _, in := range inputs {
		got := Slug(in)
		if !slugPattern.MatchString(got) {
			t.Errorf("Slug(%q) = %q does not match %s", in, got, slugPattern)
		}
		if strings.HasPrefix(got, "_") || strings.HasSuffix(got, "_") {
			t.Errorf("Slug(%q) = %q has edge underscores", in, got)
		}
		if again := Slug(got); again != got {
			t.Errorf("Slug not idempotent: %q -> %q -> %q", in, got, again)
		}
	}
}

func TestSlugTruncation(t *testing.T) {
	got := Slug(strings.Repeat("a", 49) + " bcd")
	if got != strings.Repeat("a", 49) {
		t.Errorf("expected trailing separator to be trimmed after truncation, got %q", got)
	}
	if got := Slug(strings.Repeat("Я", 30)); len(got) != MaxSlugLength {
		t.Errorf("expected length %d, got %d", MaxSlugLength, len(got))
	}
}

func TestName(t *testing.T) {
	restore := newToken
	newToken = func() string { return "deadbeef" }
	defer func() { newToken = restore }()

	tests := []struct {
		name string
		id   models.BrandID
		text string
		want string
	}{
		{"id and slug", "1", "Банк", "1-bank"},
		{"scenario record 3", "3", "ООО Ромашка", "3-ooo_romashka"},
		{"id only when slug empty", "7", "東京", "7"},
		{"id only when text empty", "8", "", "8"},
		{"slug only without id", "", "Acme", "acme"},
		{"random without id and slug", "", "", "brand_deadbeef"},
		{"unsafe id characters dropped", "a/b:c", "Acme", "abc-acme"},
		{"id made of unsafe characters", "../", "", "brand_deadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.id, tt.text); got != tt.want {
				t.Errorf("Name(%q, %q) = %q, want %q", tt.id, tt.text, got, tt.want)
			}
		})
	}
}

func TestNameDeterministic(t *testing.T) {
	a := Name("42", "Ромашка")
	b := Name("42", "Ромашка")
	if a != b {
		t.Errorf("expected deterministic names, got %q and %q", a, b)
	}
}

func TestRandomFallbackToken(t *testing.T) {
	a := Name("", "")
	b := Name("", "")
	pattern := regexp.MustCompile(`^brand_[0-9a-f]{8}$`)
	if !pattern.MatchString(a) || !pattern.MatchString(b) {
		t.Fatalf("unexpected fallback names %q, %q", a, b)
	}
	if a == b {
		t.Errorf("expected distinct random names, got %q twice", a)
	}
}

func TestFilename(t *testing.T) {
	got := Filename(models.BrandRecord{ID: "1", Brand: "Банк"})
	if got != "1-bank.png" {
		t.Errorf("Filename = %q, want 1-bank.png", got)
	}
}

package naming

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"brandgen/internal/translit"
)

// maxStoredBase keeps stored names well under common 255-byte filename limits.
const maxStoredBase = 200

// forbidden are stripped from uploaded names.
const forbidden = `<>:"/\|?*`

// DefaultStoredBase replaces a name that sanitizes down to nothing.
const DefaultStoredBase = "upload"

// StoredName cleans an uploaded filename before it is persisted:
// transliterate, fold Latin diacritics, drop forbidden and control
// characters, turn whitespace runs into "_", drop commas, and make sure an
// extension is present (derived from contentType, else Extension).
// Applying it to its own output returns the same name.
func StoredName(original, contentType string) string {
	// Leading dots would make hidden files or parent references.
	cleaned := strings.TrimLeft(clean(fold(original)), ".")

	ext := path.Ext(cleaned)
	base := strings.TrimSuffix(cleaned, ext)
	if ext == "." {
		ext = ""
	}

	base = truncateBytes(base, maxStoredBase)
	if base == "" {
		base = DefaultStoredBase
	}

	if ext == "" {
		ext = ExtFromMime(contentType)
		if ext == "" {
			ext = Extension
		}
	}
	return base + ext
}

// fold runs NFC, the transliteration table and diacritic removal.
func fold(s string) string {
	t := transform.Chain(
		norm.NFC,
		translit.Transformer{},
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return translit.Transliterate(s)
	}
	return out
}

func clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case strings.ContainsRune(forbidden, r), r == ',', unicode.IsControl(r), r == utf8.RuneError:
			continue
		}
		if space {
			b.WriteByte('_')
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		b.WriteByte('_')
	}
	return b.String()
}

func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// ExtFromMime returns the file extension for the image types the server accepts.
func ExtFromMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}

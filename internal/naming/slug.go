// Package naming derives filesystem-safe names for rendered artifacts.
//
// Two independent sanitizers live here. Slug/Name run on the producer side
// and build deterministic "<id>-<slug>" names. StoredName runs on the upload
// server and cleans whatever filename arrives, whether or not the producer
// already sanitized it.
package naming

import (
	"strings"

	"github.com/google/uuid"

	"brandgen/internal/models"
	"brandgen/internal/translit"
)

const (
	// MaxSlugLength caps the slug part of a name.
	MaxSlugLength = 50
	// FallbackTag prefixes random names for records that cannot be named otherwise.
	FallbackTag = "brand_"
	// Extension is the native extension of rendered artifacts.
	Extension = ".png"
)

// newToken returns 8 random lowercase hex characters.
var newToken = func() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Slug transliterates text, lower-cases it and collapses every run of
// characters outside [a-z0-9] into one underscore. Leading and trailing
// underscores are stripped before and after truncation, so Slug is idempotent.
func Slug(text string) string {
	lower := strings.ToLower(translit.Transliterate(text))

	var b strings.Builder
	b.Grow(len(lower))
	sep := false
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
			continue
		}
		sep = true
	}

	out := b.String()
	if len(out) > MaxSlugLength {
		out = strings.TrimRight(out[:MaxSlugLength], "_")
	}
	return out
}

// Name builds "<id>-<slug>". Without a usable slug it falls back to the id
// alone, and without an id to a random FallbackTag name. Only that last
// branch is non-deterministic.
func Name(id models.BrandID, text string) string {
	prefix := cleanID(id)
	slug := Slug(text)

	switch {
	case prefix != "" && slug != "":
		return prefix + "-" + slug
	case prefix != "":
		return prefix
	case slug != "":
		return slug
	default:
		return FallbackTag + newToken()
	}
}

// Filename is Name plus the artifact extension.
func Filename(r models.BrandRecord) string {
	return Name(r.ID, r.Brand) + Extension
}

// cleanID keeps the characters of an identifier that are safe in a filename.
func cleanID(id models.BrandID) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(id.String()) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

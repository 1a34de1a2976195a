package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// BrandID is the opaque catalog identifier. Catalogs carry it as a JSON
// number or string; the literal text is kept so it round-trips unchanged.
type BrandID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *BrandID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = BrandID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("brand id must be a number or string: %w", err)
	}
	*id = BrandID(n.String())
	return nil
}

// MarshalJSON writes numeric ids back as numbers and everything else as strings.
func (id BrandID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if json.Valid([]byte(id)) && isNumeric(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id BrandID) String() string { return string(id) }

// Present reports whether the record carried an identifier.
func (id BrandID) Present() bool { return id != "" }

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '-' && i == 0 && len(s) > 1:
		default:
			return false
		}
	}
	return true
}

// BrandRecord is one catalog entry. Records are never modified after load.
type BrandRecord struct {
	ID          BrandID `json:"id"`
	Brand       string  `json:"brand"`
	Description string  `json:"description,omitempty"`
	Country     string  `json:"country,omitempty"`
}

// Usable reports whether the record may enter the pipeline. Only an empty or
// missing brand is excluded; a whitespace-only brand still renders.
func (r BrandRecord) Usable() bool {
	return r.Brand != ""
}

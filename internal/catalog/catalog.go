// Package catalog loads brand records, either from the JSON file the server
// owns or from the server's /api/brands endpoint.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"brandgen/internal/models"
	"brandgen/internal/pkg/logger"
)

// Source yields the full record catalog for one run.
type Source interface {
	Fetch(ctx context.Context) ([]models.BrandRecord, error)
}

// ErrNotArray means the catalog file is valid JSON but not an array.
var ErrNotArray = fmt.Errorf("catalog is not a JSON array")

// Skipped is a catalog element that could not be read as a record.
type Skipped struct {
	Index int
	Err   error
}

// Catalog is a decoded catalog. Raw keeps every element untouched, in file
// order; Records holds the elements that decoded, in the same order.
type Catalog struct {
	Raw     []json.RawMessage
	Records []models.BrandRecord
	Skipped []Skipped
}

// LoadFile reads a JSON array of records. A missing file is reported as an
// error wrapping os.ErrNotExist.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// Decode parses a JSON array element by element. An element with the wrong
// shape is skipped and listed in Skipped; it never spoils its neighbours.
func Decode(raw []byte) (*Catalog, error) {
	if !json.Valid(raw) {
		return nil, fmt.Errorf("decode catalog: invalid JSON")
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		Raw:     make([]json.RawMessage, 0, len(elems)),
		Records: make([]models.BrandRecord, 0, len(elems)),
	}
	for i, elem := range elems {
		c.Raw = append(c.Raw, elem)

		var rec models.BrandRecord
		if err := json.Unmarshal(elem, &rec); err != nil {
			c.Skipped = append(c.Skipped, Skipped{Index: i, Err: err})
			continue
		}
		c.Records = append(c.Records, rec)
	}
	return c, nil
}

// LogSkipped writes one warning per skipped element.
func (c *Catalog) LogSkipped(log *logger.Logger) {
	if log == nil {
		return
	}
	for _, sk := range c.Skipped {
		log.Warn("catalog record skipped", "index", sk.Index, "error", sk.Err.Error())
	}
}

// Usable drops records without a brand name, keeping order.
func Usable(records []models.BrandRecord) []models.BrandRecord {
	out := make([]models.BrandRecord, 0, len(records))
	for _, r := range records {
		if r.Usable() {
			out = append(out, r)
		}
	}
	return out
}

// FileSource reads the catalog straight from disk, bypassing the server.
type FileSource struct {
	Path string
	Log  *logger.Logger
}

// Fetch implements Source.
func (s FileSource) Fetch(_ context.Context) ([]models.BrandRecord, error) {
	c, err := LoadFile(s.Path)
	if err != nil {
		return nil, err
	}
	c.LogSkipped(s.Log)
	return c.Records, nil
}

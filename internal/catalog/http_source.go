package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"brandgen/internal/models"
	"brandgen/internal/pkg/logger"
)

// BrandsPath is the catalog endpoint on the upload server.
const BrandsPath = "/api/brands"

// BrandsResponse is the body of GET /api/brands. Brands are the catalog
// elements exactly as stored; filtering is the client's job.
type BrandsResponse struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Brands  []json.RawMessage `json:"brands"`
}

// HTTPSource fetches the catalog from the upload server.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewHTTPSource builds a source for baseURL. A nil client gets a 30s timeout.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// WithLogger sets where skipped catalog elements are reported.
func (s *HTTPSource) WithLogger(log *logger.Logger) *HTTPSource {
	s.log = log
	return s
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) ([]models.BrandRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+BrandsPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Success bool             `json:"success"`
		Brands  *json.RawMessage `json:"brands"`
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid brands payload: %w", err)
	}
	if !payload.Success || payload.Brands == nil {
		return nil, fmt.Errorf("invalid brands payload")
	}
	c, err := Decode(*payload.Brands)
	if err != nil {
		return nil, err
	}
	c.LogSkipped(s.log)
	return c.Records, nil
}

package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	v1 "brandgen/internal/contracts/renderer/v1"
	"brandgen/internal/models"
)

// RenderPath is the endpoint exposed by the remote renderer.
const RenderPath = "/render/v1"

// HTTPRenderer delegates rasterization to a remote renderer service.
type HTTPRenderer struct {
	baseURL string
	width   int
	height  int
	client  *http.Client
}

// NewHTTPRenderer returns a renderer posting to baseURL. Zero dimensions fall
// back to the defaults.
func NewHTTPRenderer(baseURL string, width, height int, timeout time.Duration) *HTTPRenderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPRenderer{
		baseURL: strings.TrimRight(baseURL, "/"),
		width:   width,
		height:  height,
		client:  &http.Client{Timeout: timeout},
	}
}

// Render implements Renderer.
func (c *HTTPRenderer) Render(ctx context.Context, rec models.BrandRecord) (image.Image, error) {
	spec := v1.RenderSpec{
		ID:          rec.ID.String(),
		Brand:       rec.Brand,
		Description: rec.Description,
		Country:     rec.Country,
		Output:      v1.Output{Width: c.width, Height: c.height, Format: "png"},
	}
	body, err := c.post(ctx, RenderPath, spec)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode renderer output: %w", err)
	}
	return img, nil
}

func (c *HTTPRenderer) post(ctx context.Context, path string, spec any) ([]byte, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("renderer http %d", res.StatusCode)
	}
	out, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("renderer returned an empty body")
	}
	return out, nil
}

// Package render turns brand records into rasterized card images and encodes
// them for upload.
package render

import (
	"context"
	"image"

	"brandgen/internal/models"
)

// Card dimensions used when nothing else is configured.
const (
	DefaultWidth  = 900
	DefaultHeight = 1200
)

// Placeholder text for records missing optional fields.
const (
	UntitledText      = "Untitled"
	NoDescriptionText = "No description available"
)

// Renderer rasterizes one record. Implementations must be safe for
// concurrent use; the pipeline renders a whole batch at once.
type Renderer interface {
	Render(ctx context.Context, rec models.BrandRecord) (image.Image, error)
}

// Encoder converts a rasterized card into transferable bytes.
type Encoder interface {
	Encode(ctx context.Context, img image.Image) ([]byte, error)
	ContentType() string
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, rec models.BrandRecord) (image.Image, error)

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, rec models.BrandRecord) (image.Image, error) {
	return f(ctx, rec)
}

func emptyImage(img image.Image) bool {
	if img == nil {
		return true
	}
	b := img.Bounds()
	return b.Dx() <= 0 || b.Dy() <= 0
}

package v1

// RenderSpec v1: request body for the remote card renderer.
// The renderer answers with the encoded image (Content-Type image/png).
type RenderSpec struct {
	ID          string `json:"id,omitempty"`
	Brand       string `json:"brand"`
	Description string `json:"description,omitempty"`
	Country     string `json:"country,omitempty"`
	Output      Output `json:"output"`
}

// Output describes the raster the renderer must produce.
type Output struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

package pipeline

import (
	"fmt"
	"image/png"
	"net/http"

	"brandgen/internal/catalog"
	"brandgen/internal/config"
	"brandgen/internal/pkg/logger"
	"brandgen/internal/progress"
	"brandgen/internal/render"
	"brandgen/internal/upload"
)

// FromConfig wires a pipeline against the upload server at cfg.APIBaseURL.
// Cards are drawn in-process unless a remote renderer is configured. The
// catalog comes from the server unless cfg.CatalogFile names a local file.
func FromConfig(cfg config.Generator, log *logger.Logger, reporter *progress.Reporter) (*Pipeline, error) {
	client := &http.Client{Timeout: cfg.HTTPTimeout()}

	var renderer render.Renderer
	if cfg.RendererBaseURL != "" {
		renderer = render.NewHTTPRenderer(cfg.RendererBaseURL, cfg.CardWidth, cfg.CardHeight, cfg.HTTPTimeout())
	} else {
		style := render.DefaultCardStyle()
		style.Width, style.Height = cfg.CardWidth, cfg.CardHeight
		card, err := render.NewCardRenderer(style)
		if err != nil {
			return nil, fmt.Errorf("card renderer: %w", err)
		}
		renderer = card
	}

	var source catalog.Source = catalog.NewHTTPSource(cfg.APIBaseURL, client).WithLogger(log)
	if cfg.CatalogFile != "" {
		source = catalog.FileSource{Path: cfg.CatalogFile, Log: log}
	}

	return New(Deps{
		Source:      source,
		Renderer:    renderer,
		Encoder:     render.NewPNGEncoder(png.DefaultCompression),
		Transport:   upload.NewClient(cfg.APIBaseURL, client),
		Reporter:    reporter,
		Log:         log,
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.RenderConcurrency,
	}), nil
}

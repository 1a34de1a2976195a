package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"brandgen/internal/httpapi/handlers"
	"brandgen/internal/httpkit"
	"brandgen/internal/pkg/logger"
	"brandgen/internal/pkg/middleware"
)

type Deps struct {
	Handlers       handlers.Deps
	AllowedOrigins []string
	Log            *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	if d.Handlers.Log == nil {
		d.Handlers.Log = log
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	// ---- CORS ----
	allowedOrigins := d.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Accept", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAgeSeconds:  600,
	}))

	h := handlers.New(d.Handlers)

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- CATALOG ----
	r.Get("/api/brands", h.ListBrands)

	// ---- UPLOADS ----
	r.Post("/api/upload-batch", middleware.WrapHandler(log, h.UploadBatch))
	r.Get("/uploads/{name}", middleware.WrapHandler(log, h.ServeUpload))

	// ---- RUNS ----
	r.Post("/api/generate", middleware.WrapHandler(log, h.Generate))

	return r
}

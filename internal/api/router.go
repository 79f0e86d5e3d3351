package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/galerija/internal/catalog"
	"github.com/erazemk/galerija/internal/reconcile"
	"github.com/erazemk/galerija/internal/storage/filestore"
)

// Options holds what the router needs.
type Options struct {
	DB            *sql.DB
	Files         *filestore.FileStore
	Reconciler    *reconcile.Reconciler
	Catalog       *catalog.Catalog
	MaxBodyBytes  int64
	AllowedOrigin string
	Logger        *slog.Logger
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	mux := http.NewServeMux()

	imagesHandler := &ImagesHandler{
		Reconciler:   opts.Reconciler,
		Catalog:      opts.Catalog,
		MaxBodyBytes: opts.MaxBodyBytes,
		Logger:       opts.Logger.With(slog.String("component", "api")),
	}

	// Legacy single-product endpoint.
	mux.HandleFunc("POST /upload", imagesHandler.UploadDefault)

	mux.HandleFunc("GET /api/products", imagesHandler.ListProducts)
	mux.HandleFunc("GET /api/products/{product}/images", imagesHandler.List)
	mux.HandleFunc("POST /api/products/{product}/images", imagesHandler.Upload)

	mux.Handle("GET /uploads/", staticHandler(opts.Files.Root()))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := opts.DB.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return CORSMiddleware(opts.AllowedOrigin)(mux)
}

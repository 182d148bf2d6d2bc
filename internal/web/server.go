// Package web serves the wavemo journal UI and the JSON records API. The
// API is the same surface the guided flow submits to when it runs against
// a remote server instead of the local database.
package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wavemo/wavemo/internal/config"
	"github.com/wavemo/wavemo/internal/records"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server.
func NewServer(db *sql.DB, cfg *config.Config, version, bind string, port int) *http.Server {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatalf("failed to create template sub-FS: %v", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatalf("failed to create static sub-FS: %v", err)
	}

	h := &Handlers{
		db:       db,
		cfg:      cfg,
		store:    records.NewStore(db),
		renderer: NewRenderer(templateSub, version),
	}

	mux := http.NewServeMux()

	// HTML pages
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/records", http.StatusFound)
	})
	mux.HandleFunc("GET /records", h.HandleRecords)
	mux.HandleFunc("GET /records/analysis", h.HandleAnalysis)
	mux.HandleFunc("GET /records/{id}", h.HandleRecord)
	mux.HandleFunc("POST /records/{id}/delete", h.HandleRecordDelete)
	mux.HandleFunc("GET /cards", h.HandleCards)
	mux.HandleFunc("GET /about", h.HandleAbout)

	// JSON API
	mux.HandleFunc("POST /api/records", h.HandleAPICreateRecord)
	mux.HandleFunc("GET /api/records", h.HandleAPIListRecords)
	mux.HandleFunc("GET /api/records/analysis", h.HandleAPIAnalysis)
	mux.HandleFunc("GET /api/records/{id}", h.HandleAPIGetRecord)
	mux.HandleFunc("PUT /api/records/{id}", h.HandleAPIUpdateRecord)
	mux.HandleFunc("DELETE /api/records/{id}", h.HandleAPIDeleteRecord)
	mux.HandleFunc("GET /api/cards", h.HandleAPICards)
	mux.HandleFunc("GET /api/about", h.HandleAPIAbout)

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bind, port),
		Handler: securityHeaders(mux),
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("wavemo running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

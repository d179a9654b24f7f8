package telemetry

import (
	"context"
	"embed"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

//go:embed static/*
var staticFiles embed.FS

// WebServer exposes frame history and live updates over HTTP.
type WebServer struct {
	srv    *http.Server
	hub    *Hub
	logger *log.Logger
}

// NewWebServer builds an HTTP server serving the embedded UI, history, live
// and stats endpoints.
func NewWebServer(addr string, hub *Hub, logger *log.Logger) *WebServer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	mux := http.NewServeMux()
	mux.Handle("/static/", http.FileServer(http.FS(staticFiles)))
	mux.HandleFunc("/api/history", hub.handleHistory)
	mux.HandleFunc("/api/live", hub.handleLive)
	mux.HandleFunc("/api/stats", hub.handleStats)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, staticFiles, "static/index.html")
	})

	return &WebServer{
		hub:    hub,
		logger: logger,
		srv:    &http.Server{Addr: addr, Handler: mux},
	}
}

// Start begins listening and shuts down when the context is canceled.
func (w *WebServer) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := w.srv.Shutdown(shutdownCtx); err != nil {
			w.logger.Error("web telemetry shutdown", "err", err)
		}
	}()

	if err := w.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		w.logger.Error("web telemetry server", "err", err)
	}
}

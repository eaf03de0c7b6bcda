package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"afval-classifier/api/internal/handle"
)

// NewRouter registers the classification API and its middleware stack.
func NewRouter(h *handle.Handle, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(log))
	r.Use(loggingMiddleware(log))

	r.Get("/", h.Root)
	r.Get("/gezondheid", h.Health)
	r.Get("/healthz", h.Health)
	r.Get("/model-info", h.ModelInfo)
	r.Get("/afval-typen", h.WasteTypes)
	r.Get("/status", h.Status)
	r.Get("/geschiedenis", h.History)

	r.Post("/classificeer", h.Classify)
	r.Post("/classificeer_met_gemini", h.ClassifyWithGemini)

	r.Route("/api/v2", func(r chi.Router) {
		r.Post("/classify", h.Classify)
		r.Get("/waste-types", h.WasteTypeNames)
	})

	r.Post("/admin/settings/reload", h.ReloadSettings)
	return r
}

// Serve runs srv until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Info("shutting down", "addr", addr)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

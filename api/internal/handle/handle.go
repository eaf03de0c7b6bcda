package handle

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"afval-classifier/api/internal/afval"
	"afval-classifier/api/internal/afval/types"
	"afval-classifier/api/internal/settings"
	"afval-classifier/api/internal/store"
)

// History records answered classifications. Optional.
type History interface {
	Insert(ctx context.Context, chatID int64, source, imageHash string, validated bool, res types.CombinedResult) (int64, error)
	Recent(ctx context.Context, limit int) ([]store.ClassificationRow, error)
}

type Handle struct {
	svc      *afval.Service
	settings *settings.Service
	history  History
	timeout  time.Duration
	log      *slog.Logger
}

type Option func(*Handle)

func WithHistory(h History) Option { return func(x *Handle) { x.history = h } }

// WithTimeout sets the default per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(x *Handle) {
		if d > 0 {
			x.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(x *Handle) {
		if l != nil {
			x.log = l
		}
	}
}

func New(svc *afval.Service, st *settings.Service, opts ...Option) *Handle {
	h := &Handle{
		svc:      svc,
		settings: st,
		timeout:  60 * time.Second,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	h.log = h.log.With("module", "handle")
	return h
}

// requestContext applies X-Request-Timeout (seconds) or ?timeoutSec=, else the default.
func (h *Handle) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	deadline := h.timeout
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	return context.WithTimeout(r.Context(), deadline)
}

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeMessage(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, apiError{
		Status:  "error",
		Code:    errCode,
		Message: message,
	})
}

// fail answers with a message from the settings message table.
func (h *Handle) fail(w http.ResponseWriter, r *http.Request, code int, key string, args map[string]any) {
	writeError(w, code, key, h.settings.Message(r.Context(), key, args))
}

package handle

import (
	"context"
	"errors"
	"net/http"

	"afval-classifier/api/internal/afval"
)

const (
	sourceHTTP       = "http"
	sourceHTTPGemini = "http_gemini"
)

// Classify runs the hybrid pipeline (local model, then validation) on an uploaded photo.
// top_k and betrouwbaarheid_drempel are accepted but the full ranked list is always returned.
func (h *Handle) Classify(w http.ResponseWriter, r *http.Request) {
	h.classify(w, r, false)
}

// ClassifyWithGemini sends the photo straight to the validator.
func (h *Handle) ClassifyWithGemini(w http.ResponseWriter, r *http.Request) {
	h.classify(w, r, true)
}

func (h *Handle) classify(w http.ResponseWriter, r *http.Request, direct bool) {
	limit := h.settings.APIDefaults(r.Context()).MaxUploadBytes()
	up, err := readUpload(w, r, limit)
	if err != nil {
		var ue *uploadError
		if errors.As(err, &ue) {
			h.fail(w, r, ue.status, ue.key, ue.args)
			return
		}
		h.fail(w, r, http.StatusInternalServerError, "interne_fout", nil)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	var (
		out    afval.Outcome
		source = sourceHTTP
	)
	if direct {
		source = sourceHTTPGemini
		out = h.svc.ClassifyWithGemini(ctx, up.image, up.mime)
	} else {
		out = h.svc.Classify(ctx, up.image)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		h.log.WarnContext(r.Context(), "classification hit request deadline", "source", source)
	}

	h.record(r.Context(), source, up.image, out)
	writeSuccess(w, http.StatusOK, out.Combined)
}

func (h *Handle) record(ctx context.Context, source string, image []byte, out afval.Outcome) {
	if h.history == nil {
		return
	}
	if _, err := h.history.Insert(ctx, 0, source, afval.ImageHash(image), out.External != nil, out.Combined); err != nil {
		h.log.WarnContext(ctx, "history insert failed", "err", err)
	}
}

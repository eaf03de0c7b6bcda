package handle

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"afval-classifier/api/internal/util"
)

// FormField is the multipart field carrying the photo.
const FormField = "afbeelding"

type uploadError struct {
	status int
	key    string
	args   map[string]any
}

func (e *uploadError) Error() string { return e.key }

type upload struct {
	image []byte
	mime  string
}

type jsonUpload struct {
	ImageB64 string `json:"afbeelding_b64"`
	MIME     string `json:"mime,omitempty"`
}

// readUpload accepts multipart/form-data (field "afbeelding") or a JSON body with
// base64 (data URLs allowed). Anything but an image, or larger than maxBytes, is rejected.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (upload, error) {
	tooLarge := &uploadError{
		status: http.StatusRequestEntityTooLarge,
		key:    "bestand_te_groot",
		args:   map[string]any{"max_size": maxBytes >> 20},
	}
	// base64 inflates by 4/3, multipart adds headers
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes*2+1<<20)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		data     []byte
		declared string
		hint     string
	)
	switch ct {
	case "application/json":
		var req jsonUpload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if isTooLarge(err) {
				return upload{}, tooLarge
			}
			return upload{}, &uploadError{status: http.StatusBadRequest, key: "ongeldig_formaat"}
		}
		if strings.TrimSpace(req.ImageB64) == "" {
			return upload{}, &uploadError{status: http.StatusBadRequest, key: "geen_bestand"}
		}
		b, h, err := util.DecodeBase64MaybeDataURL(req.ImageB64)
		if err != nil {
			return upload{}, &uploadError{status: http.StatusBadRequest, key: "ongeldig_formaat"}
		}
		data, declared, hint = b, req.MIME, h
	case "multipart/form-data":
		f, hdr, err := r.FormFile(FormField)
		if err != nil {
			if isTooLarge(err) {
				return upload{}, tooLarge
			}
			return upload{}, &uploadError{status: http.StatusBadRequest, key: "geen_bestand"}
		}
		defer f.Close()
		b, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
		if err != nil {
			return upload{}, &uploadError{status: http.StatusBadRequest, key: "geen_bestand"}
		}
		data, declared = b, hdr.Header.Get("Content-Type")
	default:
		return upload{}, &uploadError{status: http.StatusBadRequest, key: "geen_bestand"}
	}

	if len(data) == 0 {
		return upload{}, &uploadError{status: http.StatusBadRequest, key: "geen_bestand"}
	}
	if int64(len(data)) > maxBytes {
		return upload{}, tooLarge
	}
	m := util.PickMIME(declared, hint, data)
	if !util.IsImageMIME(m) {
		return upload{}, &uploadError{status: http.StatusBadRequest, key: "ongeldig_formaat"}
	}
	return upload{image: data, mime: m}, nil
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

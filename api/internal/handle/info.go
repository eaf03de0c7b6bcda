package handle

import (
	"maps"
	"net/http"
	"strconv"
	"time"

	"afval-classifier/api/internal/settings"
)

var endpoints = []string{
	"/classificeer",
	"/classificeer_met_gemini",
	"/model-info",
	"/gezondheid",
	"/afval-typen",
	"/status",
	"/geschiedenis",
}

// Root describes the service.
func (h *Handle) Root(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	svc := h.settings.ServiceInfo(ctx)
	model := h.settings.ModelInfo(ctx)
	writeJSON(w, http.StatusOK, map[string]any{
		"service":                svc["naam"],
		"versie":                 svc["versie"],
		"model":                  model["naam"],
		"status":                 "actief",
		"endpoints":              endpoints,
		"prestatie_instellingen": h.settings.Performance(ctx),
	})
}

func (h *Handle) Health(w http.ResponseWriter, r *http.Request) {
	_, err := h.settings.Get(r.Context(), settings.AppConfigKey)
	status := "gezond"
	if err != nil {
		status = "verminderd"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":               status,
		"configuratie_geladen": err == nil,
		"tijdstip":             time.Now().Unix(),
		"service":              h.settings.ServiceInfo(r.Context())["naam"],
	})
}

func (h *Handle) ModelInfo(w http.ResponseWriter, r *http.Request) {
	info := maps.Clone(h.settings.ModelInfo(r.Context()))
	cats := h.svc.Universe().Categories()
	info["categorieën"] = cats
	info["totaal_categorieën"] = len(cats)
	writeJSON(w, http.StatusOK, info)
}

type wasteType struct {
	Name          string `json:"naam"`
	Description   string `json:"beschrijving"`
	ServiceType   string `json:"service_type"`
	Urgency       string `json:"urgentie"`
	RecyclingInfo string `json:"recycling_info"`
}

// WasteTypes lists the configured categories with their details, in universe order.
func (h *Handle) WasteTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	details := map[string]wasteType{}
	for _, c := range h.settings.Categories(ctx) {
		details[c.Name] = wasteType(c)
	}
	cats := h.svc.Universe().Categories()
	out := make([]wasteType, 0, len(cats))
	for _, c := range cats {
		wt, ok := details[string(c)]
		if !ok {
			wt = wasteType{Name: string(c)}
		}
		out = append(out, wt)
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"afval_typen": out,
		"totaal":      len(out),
	})
}

// WasteTypeNames is the short /api/v2 form: only the labels.
func (h *Handle) WasteTypeNames(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.svc.Universe().Categories())
}

func (h *Handle) Status(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Status()
	all := true
	for _, ok := range st {
		all = all && ok
	}
	msg := "Alle services operationeel"
	if !all {
		msg = "Sommige services niet beschikbaar"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lokaal_model":   st["lokaal_model"],
		"gemini_ai":      st["gemini_ai"],
		"overall_status": all,
		"bericht":        msg,
	})
}

// ReloadSettings drops cached settings documents and reads them again.
func (h *Handle) ReloadSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.ReloadAll(r.Context()); err != nil {
		h.log.ErrorContext(r.Context(), "settings reload failed", "err", err)
		writeError(w, http.StatusInternalServerError, "herladen_mislukt", err.Error())
		return
	}
	writeMessage(w, http.StatusOK, h.settings.Message(r.Context(), "herladen", nil))
}

// History returns the most recent classifications, ?limit= bounded by the repository.
func (h *Handle) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.fail(w, r, http.StatusNotFound, "niet_gevonden", nil)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.log.ErrorContext(r.Context(), "history query failed", "err", err)
		h.fail(w, r, http.StatusInternalServerError, "interne_fout", nil)
		return
	}
	writeSuccess(w, http.StatusOK, rows)
}

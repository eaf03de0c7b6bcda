package settings

import (
	"context"
	"maps"

	"afval-classifier/api/internal/afval/types"
	"afval-classifier/api/internal/util"
)

// Category is one entry of app_config.categories.
type Category struct {
	Name          string `json:"naam"`
	Description   string `json:"beschrijving"`
	ServiceType   string `json:"service_type"`
	Urgency       string `json:"urgentie_niveau"`
	RecyclingInfo string `json:"recycling_info"`
}

type APIDefaults struct {
	MaxUploadMB int `json:"max_bestand_grootte_mb"`
}

func (d APIDefaults) MaxUploadBytes() int64 { return int64(d.MaxUploadMB) << 20 }

const defaultMaxUploadMB = 10

var defaultMessages = map[string]string{
	"bestand_te_groot":   "Bestand te groot. Maximaal {max_size}MB toegestaan.",
	"ongeldig_formaat":   "Ongeldig bestandsformaat. Upload een afbeelding.",
	"geen_bestand":       "Geen afbeelding ontvangen in veld 'afbeelding'.",
	"classificatie_fout": "Fout tijdens classificatie: {error}",
	"niet_gevonden":      "Niet gevonden.",
	"interne_fout":       "Er ging iets mis. Probeer het later opnieuw.",
	"herladen":           "Configuratie herladen.",
	"time_out":           "Classificatie duurde te lang.",
}

var defaultServiceInfo = map[string]any{
	"naam":         "Afval Classificatie Service",
	"versie":       "2.0.0",
	"beschrijving": "Classificeert afval op foto's met een lokaal model en Gemini validatie",
}

var defaultModelInfo = map[string]any{
	"naam":           "SwinConvNeXt",
	"architectuur":   "Swin Transformer + ConvNeXt",
	"nauwkeurigheid": 98.97,
}

// section returns the document for key, or nil with a warning when it cannot be used.
func (s *Service) section(ctx context.Context, key string) Document {
	doc, err := s.Get(ctx, key)
	if err != nil {
		s.log.WarnContext(ctx, "settings unavailable, using defaults", "key", key, "err", err)
		return nil
	}
	return doc
}

// Categories returns the configured categories in file order, or the built-in
// names when app_config is missing or invalid.
func (s *Service) Categories(ctx context.Context) []Category {
	doc := s.section(ctx, AppConfigKey)
	list, _ := doc["categories"].([]any)
	out := make([]Category, 0, len(list))
	for _, it := range list {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Category{
			Name:          str(m["name"]),
			Description:   str(m["description"]),
			ServiceType:   str(m["service_type"]),
			Urgency:       str(m["urgentie_niveau"]),
			RecyclingInfo: str(m["recycling_info"]),
		})
	}
	if len(out) > 0 {
		return out
	}
	for _, c := range types.DefaultCategories {
		out = append(out, Category{Name: string(c)})
	}
	return out
}

func (s *Service) CategoryNames(ctx context.Context) []types.Category {
	cats := s.Categories(ctx)
	out := make([]types.Category, len(cats))
	for i, c := range cats {
		out[i] = types.Category(c.Name)
	}
	return out
}

// NoWasteCategory is app_config.geen_afval_type, default "Geen afval".
func (s *Service) NoWasteCategory(ctx context.Context) types.Category {
	doc := s.section(ctx, AppConfigKey)
	if v := str(doc["geen_afval_type"]); v != "" {
		return types.Category(v)
	}
	return types.NoWasteLabel
}

// Universe builds the category universe from app_config. An unusable
// configuration yields the default universe.
func (s *Service) Universe(ctx context.Context) *types.Universe {
	u, err := types.NewUniverse(s.CategoryNames(ctx), s.NoWasteCategory(ctx))
	if err != nil {
		s.log.WarnContext(ctx, "configured categories rejected, using defaults", "err", err)
		return types.DefaultUniverse()
	}
	return u
}

func (s *Service) APIDefaults(ctx context.Context) APIDefaults {
	d := APIDefaults{MaxUploadMB: defaultMaxUploadMB}
	api, _ := s.section(ctx, AppConfigKey)["api"].(map[string]any)
	if n, ok := number(api["max_bestand_grootte_mb"]); ok && n > 0 {
		d.MaxUploadMB = int(n)
	}
	return d
}

// Message looks up app_config.response_berichten[key] and fills its {placeholders}.
func (s *Service) Message(ctx context.Context, key string, args map[string]any) string {
	msgs, _ := s.section(ctx, AppConfigKey)["response_berichten"].(map[string]any)
	msg := str(msgs[key])
	if msg == "" {
		msg = defaultMessages[key]
	}
	if msg == "" {
		return "Onbekend bericht: " + key
	}
	return util.FillPlaceholders(msg, args)
}

func (s *Service) ServiceInfo(ctx context.Context) map[string]any {
	return s.classifierSection(ctx, "service", defaultServiceInfo)
}

func (s *Service) ModelInfo(ctx context.Context) map[string]any {
	return s.classifierSection(ctx, "model", defaultModelInfo)
}

func (s *Service) Performance(ctx context.Context) map[string]any {
	return s.classifierSection(ctx, "performance", map[string]any{})
}

// ImageSizeLimits returns classifier_config.model.{min,max}_bestand_bytes, zero when unset.
func (s *Service) ImageSizeLimits(ctx context.Context) (minBytes, maxBytes int) {
	model, _ := s.section(ctx, ClassifierConfigKey)["model"].(map[string]any)
	if n, ok := number(model["min_bestand_bytes"]); ok && n > 0 {
		minBytes = int(n)
	}
	if n, ok := number(model["max_bestand_bytes"]); ok && n > 0 {
		maxBytes = int(n)
	}
	return minBytes, maxBytes
}

func (s *Service) classifierSection(ctx context.Context, name string, def map[string]any) map[string]any {
	if m, ok := s.section(ctx, ClassifierConfigKey)[name].(map[string]any); ok {
		return m
	}
	return maps.Clone(def)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

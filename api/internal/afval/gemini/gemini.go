package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/option"

	"afval-classifier/api/internal/afval/types"
	"afval-classifier/api/internal/prompt"
	"afval-classifier/api/internal/util"
)

var errEmptyResponse = errors.New("gemini: empty response")

// GenerateFunc performs one model call and returns the first text part.
type GenerateFunc func(ctx context.Context, system string, parts ...genai.Part) (string, error)

type Engine struct {
	APIKey string
	Model  string

	universe *types.Universe
	prompts  *prompt.Set
	generate GenerateFunc
	injected bool
	retries  uint64
	backoff  time.Duration
	log      *slog.Logger
}

type Option func(*Engine)

// WithGenerator replaces the Gemini SDK call, mostly for tests.
func WithGenerator(fn GenerateFunc) Option {
	return func(e *Engine) { e.generate, e.injected = fn, true }
}

func WithRetry(retries uint64, backoff time.Duration) Option {
	return func(e *Engine) { e.retries, e.backoff = retries, backoff }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func New(apiKey, model string, u *types.Universe, ps *prompt.Set, opts ...Option) *Engine {
	if ps == nil {
		ps = prompt.Default()
	}
	e := &Engine{
		APIKey:   strings.TrimSpace(apiKey),
		Model:    strings.TrimSpace(model),
		universe: u,
		prompts:  ps,
		retries:  2,
		backoff:  300 * time.Millisecond,
		log:      slog.Default(),
	}
	e.generate = e.callGemini
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("module", "gemini")
	return e
}

func (e *Engine) Name() string { return "gemini" }

// Ready is false without an API key, unless a generator was injected.
func (e *Engine) Ready() bool {
	return e.APIKey != "" || e.injected
}

// --------------------------- VALIDATE ---------------------------

// Validate asks the model to judge the local top predictions from their text summary.
// Any failure answers with the validation fallback built from top[0].
func (e *Engine) Validate(ctx context.Context, description string, top []types.ScoredCategory) types.ExternalResult {
	if !e.Ready() {
		return e.validationFallback(top)
	}
	tpl := e.prompts.Prompts.TextValidation
	body := tpl.Body(map[string]any{
		"local_description": description,
		"local_predictions": FormatPredictions(top),
		"afval_types":       e.categoryList(),
	})

	txt, err := e.call(ctx, tpl.SystemRole, genai.Text(body))
	if err != nil {
		e.log.ErrorContext(ctx, "validation call failed", "err", err)
		return e.validationFallback(top)
	}
	res, err := e.parse(txt)
	if err != nil {
		e.log.WarnContext(ctx, "validation response unusable", "err", err, "raw", truncate(txt, 200))
		return e.validationFallback(top)
	}
	return res
}

// --------------------------- ANALYZE ---------------------------

// Analyze classifies the raw image. Call errors answer with the "error" fallback,
// an empty answer with "no_response" and malformed JSON with the validation fallback.
func (e *Engine) Analyze(ctx context.Context, image []byte, mime string) types.ExternalResult {
	if !e.Ready() {
		return e.fallback(prompt.FallbackError)
	}
	tpl := e.prompts.Prompts.ImageAnalysis
	body := tpl.Body(map[string]any{"afval_types": e.categoryList()})
	mime = util.PickMIME(mime, "", image)

	txt, err := e.call(ctx, tpl.SystemRole, genai.Text(body), &genai.Blob{MIMEType: mime, Data: image})
	switch {
	case errors.Is(err, errEmptyResponse):
		e.log.WarnContext(ctx, "empty image analysis response")
		return e.fallback(prompt.FallbackNoResponse)
	case err != nil:
		e.log.ErrorContext(ctx, "image analysis failed", "err", err, "mime", mime, "bytes", len(image))
		return e.fallback(prompt.FallbackError)
	}
	res, err := e.parse(txt)
	if err != nil {
		e.log.WarnContext(ctx, "image analysis response unusable", "err", err, "raw", truncate(txt, 200))
		return e.fallback(prompt.FallbackValidation)
	}
	return res
}

// call runs generate with retries on transport errors; an empty answer is final.
func (e *Engine) call(ctx context.Context, system string, parts ...genai.Part) (string, error) {
	var txt string
	b := retry.WithMaxRetries(e.retries, retry.NewFibonacci(e.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		out, err := e.generate(ctx, system, parts...)
		if err != nil {
			e.log.DebugContext(ctx, "generate attempt failed", "err", err)
			return retry.RetryableError(err)
		}
		txt = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		return "", err
	}
	if txt == "" {
		return "", errEmptyResponse
	}
	return txt, nil
}

func (e *Engine) callGemini(ctx context.Context, system string, parts ...genai.Part) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	if s := strings.TrimSpace(system); s != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(s)}}
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	return firstText(resp), nil
}

func (e *Engine) categoryList() string {
	cats := e.universe.Categories()
	names := make([]string, 0, len(cats)+1)
	for _, c := range cats {
		names = append(names, string(c))
	}
	names = append(names, string(types.Unclassifiable))
	return strings.Join(names, ", ")
}

// FormatPredictions renders at most three predictions as "Glas (0.85), Textiel (0.10)".
func FormatPredictions(top []types.ScoredCategory) string {
	if len(top) > 3 {
		top = top[:3]
	}
	out := make([]string, 0, len(top))
	for _, p := range top {
		out = append(out, fmt.Sprintf("%s (%.2f)", p.Category, p.Confidence))
	}
	return strings.Join(out, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

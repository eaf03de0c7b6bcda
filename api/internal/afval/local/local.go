package local

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"afval-classifier/api/internal/afval/types"
)

const (
	DefaultMinBytes = 1 << 10
	DefaultMaxBytes = 10 << 20

	defaultAccuracy = 0.975

	FailureDescription = "Lokaal model kon geen betrouwbare classificatie uitvoeren"
)

// per-category accuracy of the SwinConvNeXt stand-in
var accuracy = map[types.Category]float64{
	"Grofvuil":            0.976,
	"Restafval":           0.978,
	"Glas":                0.983,
	"Papier en karton":    0.985,
	"Organisch":           0.987,
	"Textiel":             0.980,
	"Elektronisch afval":  0.974,
	"Bouw- en sloopafval": 0.971,
	"Chemisch afval":      0.969,
	"Overig":              0.960,
}

// Scorer is a randomised oracle that honours the LocalResult contract. It stands in
// for the SwinConvNeXt model and is shared for the life of the process.
type Scorer struct {
	candidates []types.Category
	minBytes   int
	maxBytes   int
	log        *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Scorer)

func WithSizeLimits(minBytes, maxBytes int) Option {
	return func(s *Scorer) {
		s.minBytes, s.maxBytes = minBytes, maxBytes
	}
}

// WithSource makes the scorer deterministic.
func WithSource(src rand.Source) Option {
	return func(s *Scorer) { s.rnd = rand.New(src) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.log = l
		}
	}
}

func New(u *types.Universe, opts ...Option) *Scorer {
	s := &Scorer{
		minBytes: DefaultMinBytes,
		maxBytes: DefaultMaxBytes,
		log:      slog.Default(),
		rnd:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
	for _, o := range opts {
		o(s)
	}
	for _, c := range u.Categories() {
		if c != u.NoWaste() {
			s.candidates = append(s.candidates, c)
		}
	}
	s.log = s.log.With("module", "local")
	return s
}

func (s *Scorer) Name() string { return "swin-convnext" }

func (s *Scorer) Ready() bool { return len(s.candidates) > 0 }

// Accepts reports whether the payload size is within the scorer's limits.
func (s *Scorer) Accepts(image []byte) bool {
	n := len(image)
	return n > 0 && n >= s.minBytes && n <= s.maxBytes
}

func (s *Scorer) Classify(ctx context.Context, image []byte) types.LocalResult {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return types.FailedLocalResult()
	}
	if !s.Accepts(image) || !s.Ready() {
		s.log.DebugContext(ctx, "image rejected", "bytes", len(image), "min", s.minBytes, "max", s.maxBytes)
		return types.FailedLocalResult()
	}

	s.mu.Lock()
	preds := s.predict()
	jitter := time.Duration(80+s.rnd.IntN(71)) * time.Millisecond
	s.mu.Unlock()

	r := types.NewLocalResult(true, preds, preds[0].Confidence)
	r.ProcessingTime = time.Since(start) + jitter
	return r
}

// predict must be called with mu held.
func (s *Scorer) predict() []types.ScoredCategory {
	perm := s.rnd.Perm(len(s.candidates))
	primary := s.candidates[perm[0]]

	acc, ok := accuracy[primary]
	if !ok {
		acc = defaultAccuracy
	}
	conf := (0.85 + s.rnd.Float64()*0.14) * acc
	preds := []types.ScoredCategory{{Category: primary, Confidence: conf}}

	remaining := 1 - conf
	nSecondary := min(2, len(s.candidates)-1)
	for i := 0; i < nSecondary; i++ {
		c := s.candidates[perm[i+1]]
		p := remaining
		if i < nSecondary-1 {
			lo, hi := 0.05, remaining*0.6
			if hi < lo {
				lo, hi = hi, lo
			}
			p = min(lo+s.rnd.Float64()*(hi-lo), remaining)
			remaining -= p
		}
		preds = append(preds, types.ScoredCategory{Category: c, Confidence: max(p, 0)})
	}

	slices.SortStableFunc(preds, func(a, b types.ScoredCategory) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	return preds
}

func (s *Scorer) Describe(r types.LocalResult) string {
	if !r.Success || len(r.Predictions) == 0 {
		return FailureDescription
	}
	best := r.Predictions[0]
	return fmt.Sprintf("Gedetecteerd: %s (%.1f%%)", best.Category, best.Confidence*100)
}

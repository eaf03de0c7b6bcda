package afval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"afval-classifier/api/internal/afval/types"
)

// AnalysisStore persists image analyses by content hash.
type AnalysisStore interface {
	Find(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (types.ExternalResult, error)
	Upsert(ctx context.Context, imageHash, engine, model string, res types.ExternalResult) error
}

// CachedValidator reuses earlier Analyze answers for identical images.
// Validate is passed through unchanged.
type CachedValidator struct {
	Validator
	u      *types.Universe
	store  AnalysisStore
	model  string
	maxAge time.Duration
	log    *slog.Logger
}

func NewCachedValidator(v Validator, u *types.Universe, store AnalysisStore, model string, maxAge time.Duration, log *slog.Logger) *CachedValidator {
	if log == nil {
		log = slog.Default()
	}
	return &CachedValidator{Validator: v, u: u, store: store, model: model, maxAge: maxAge, log: log.With("module", "analysis_cache")}
}

func (c *CachedValidator) Analyze(ctx context.Context, image []byte, mime string) types.ExternalResult {
	hash := ImageHash(image)
	if res, err := c.store.Find(ctx, hash, c.Name(), c.model, c.maxAge); err == nil {
		c.log.DebugContext(ctx, "analysis cache hit", "hash", hash)
		return res
	}
	res := c.Validator.Analyze(ctx, image, mime)
	if !c.classified(res) {
		return res
	}
	if err := c.store.Upsert(ctx, hash, c.Name(), c.model, res); err != nil {
		c.log.WarnContext(ctx, "analysis cache write failed", "err", err)
	}
	return res
}

// classified reports whether res names at least one category of the universe
// with a positive confidence. Fallback answers and unknown labels do not count.
func (c *CachedValidator) classified(res types.ExternalResult) bool {
	for _, p := range res.Predictions {
		if c.u.Contains(p.Category) && p.Confidence > 0 {
			return true
		}
	}
	return false
}

// ImageHash is the hex SHA-256 of the payload.
func ImageHash(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

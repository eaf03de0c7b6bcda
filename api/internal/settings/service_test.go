package settings

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"afval-classifier/api/internal/afval/types"
)

// countingRepo is an in-memory Repository that records loads.
type countingRepo struct {
	docs  map[string]Document
	loads map[string]int
}

func newCountingRepo(docs map[string]Document) *countingRepo {
	return &countingRepo{docs: docs, loads: map[string]int{}}
}

func (r *countingRepo) Load(_ context.Context, key string) (Document, error) {
	r.loads[key]++
	d, ok := r.docs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return cloneDoc(d), nil
}

func (r *countingRepo) Save(_ context.Context, key string, doc Document) error {
	r.docs[key] = cloneDoc(doc)
	return nil
}

func (r *countingRepo) Exists(_ context.Context, key string) (bool, error) {
	_, ok := r.docs[key]
	return ok, nil
}

func (r *countingRepo) Keys(context.Context) ([]string, error) {
	var out []string
	for k := range r.docs {
		out = append(out, k)
	}
	return out, nil
}

func appConfig(names ...string) Document {
	cats := make([]any, 0, len(names))
	for _, n := range names {
		cats = append(cats, cat(n))
	}
	return Document{
		"categories":      cats,
		"geen_afval_type": "Niets",
		"api":             map[string]any{"max_bestand_grootte_mb": 4},
		"response_berichten": map[string]any{
			"bestand_te_groot": "Te groot, max {max_size}MB",
		},
	}
}

func TestService_GetUsesCache(t *testing.T) {
	repo := newCountingRepo(map[string]Document{AppConfigKey: appConfig("Glas", "Niets")})
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Get(ctx, AppConfigKey)
		require.NoError(t, err)
	}
	require.Equal(t, 1, repo.loads[AppConfigKey])

	require.NoError(t, svc.Reload(ctx, AppConfigKey))
	require.Equal(t, 2, repo.loads[AppConfigKey])
	_, err := svc.Get(ctx, AppConfigKey)
	require.NoError(t, err)
	require.Equal(t, 2, repo.loads[AppConfigKey])
}

func TestService_TTLExpiry(t *testing.T) {
	now := time.Unix(0, 0)
	repo := newCountingRepo(map[string]Document{ClassifierConfigKey: {}})
	svc := NewService(repo,
		WithCache(NewMemoryCache().WithClock(func() time.Time { return now })),
		WithTTL(time.Minute))
	ctx := context.Background()

	_, _ = svc.Get(ctx, ClassifierConfigKey)
	_, _ = svc.Get(ctx, ClassifierConfigKey)
	require.Equal(t, 1, repo.loads[ClassifierConfigKey])

	now = now.Add(2 * time.Minute)
	_, _ = svc.Get(ctx, ClassifierConfigKey)
	require.Equal(t, 2, repo.loads[ClassifierConfigKey])
}

func TestService_ValidationFailure(t *testing.T) {
	repo := newCountingRepo(map[string]Document{AppConfigKey: {"categories": []any{}}})
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Get(ctx, AppConfigKey)
	require.Error(t, err)
	require.Error(t, svc.Reload(ctx, AppConfigKey))

	// accessors degrade
	require.Equal(t, types.DefaultUniverse().Categories(), svc.Universe(ctx).Categories())
	require.Equal(t, defaultMaxUploadMB, svc.APIDefaults(ctx).MaxUploadMB)

	svc = NewService(repo, WithValidator(AppConfigKey, nil))
	_, err = svc.Get(ctx, AppConfigKey)
	require.NoError(t, err)
}

func TestService_ReloadAll(t *testing.T) {
	repo := newCountingRepo(map[string]Document{AppConfigKey: appConfig("Glas", "Niets")})
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.ReloadAll(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
	require.Equal(t, 1, repo.loads[AppConfigKey])

	repo.docs[ClassifierConfigKey] = Document{"model": map[string]any{"naam": "m"}}
	require.NoError(t, svc.ReloadAll(ctx))
	require.Equal(t, "m", svc.ModelInfo(ctx)["naam"])
}

func TestService_Save(t *testing.T) {
	repo := newCountingRepo(map[string]Document{})
	svc := NewService(repo)
	ctx := context.Background()

	require.Error(t, svc.Save(ctx, AppConfigKey, Document{}))
	require.NoError(t, svc.Save(ctx, AppConfigKey, appConfig("Glas", "Niets")))
	require.Contains(t, repo.docs, AppConfigKey)

	names := svc.CategoryNames(ctx)
	require.Equal(t, []types.Category{"Glas", "Niets"}, names)
	require.Zero(t, repo.loads[AppConfigKey], "served from cache after save")
}

func TestService_Accessors(t *testing.T) {
	repo := newCountingRepo(map[string]Document{
		AppConfigKey:        appConfig("Glas", "Textiel", "Niets"),
		ClassifierConfigKey: {"service": map[string]any{"naam": "svc"}},
	})
	svc := NewService(repo)
	ctx := context.Background()

	u := svc.Universe(ctx)
	require.Equal(t, []types.Category{"Glas", "Textiel", "Niets"}, u.Categories())
	require.Equal(t, types.Category("Niets"), u.NoWaste())
	require.Equal(t, 4, svc.APIDefaults(ctx).MaxUploadMB)
	require.Equal(t, int64(4<<20), svc.APIDefaults(ctx).MaxUploadBytes())

	require.Equal(t, "Te groot, max 4MB", svc.Message(ctx, "bestand_te_groot", map[string]any{"max_size": 4}))
	require.Equal(t, defaultMessages["ongeldig_formaat"], svc.Message(ctx, "ongeldig_formaat", nil))
	require.Equal(t, "Onbekend bericht: bestaat_niet", svc.Message(ctx, "bestaat_niet", nil))

	require.Equal(t, "svc", svc.ServiceInfo(ctx)["naam"])
	require.Equal(t, defaultModelInfo["naam"], svc.ModelInfo(ctx)["naam"])
	require.Empty(t, svc.Performance(ctx))

	lo, hi := svc.ImageSizeLimits(ctx)
	require.Zero(t, lo)
	require.Zero(t, hi)
	require.NoError(t, svc.Save(ctx, ClassifierConfigKey, Document{
		"model": map[string]any{"min_bestand_bytes": 512, "max_bestand_bytes": 2048},
	}))
	lo, hi = svc.ImageSizeLimits(ctx)
	require.Equal(t, 512, lo)
	require.Equal(t, 2048, hi)
}

func TestService_UniverseFallsBackWhenSentinelMissing(t *testing.T) {
	repo := newCountingRepo(map[string]Document{AppConfigKey: appConfig("Glas", "Textiel")})
	svc := NewService(repo)
	require.Equal(t, types.NoWasteLabel, svc.Universe(context.Background()).NoWaste())
}

func TestService_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newCountingRepo(map[string]Document{AppConfigKey: appConfig("Glas", "Niets")})
	svc := NewService(repo, WithCache(NewRedisCache(client, "")), WithTTL(time.Hour))
	ctx := context.Background()

	require.Equal(t, 4, svc.APIDefaults(ctx).MaxUploadMB, "json round trip keeps numbers usable")
	require.Equal(t, 4, svc.APIDefaults(ctx).MaxUploadMB)
	require.Equal(t, 1, repo.loads[AppConfigKey])
	require.True(t, mr.Exists(defaultRedisPrefix+AppConfigKey))

	mr.FastForward(2 * time.Hour)
	_ = svc.APIDefaults(ctx)
	require.Equal(t, 2, repo.loads[AppConfigKey])

	// a broken cache only costs a repository read
	mr.Close()
	require.Equal(t, []types.Category{"Glas", "Niets"}, svc.CategoryNames(ctx))
}

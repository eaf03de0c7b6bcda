package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	AppConfigKey        = "app_config"
	ClassifierConfigKey = "classifier_config"

	DefaultTTL = time.Hour
)

// Service is the read path over a Repository: cache, then repository, then
// validation, then back into the cache.
type Service struct {
	repo       Repository
	cache      Cache
	validators map[string]Validator
	ttl        time.Duration
	keys       []string
	log        *slog.Logger
}

type ServiceOption func(*Service)

func WithCache(c Cache) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.ttl = ttl }
}

// WithValidator sets (or with nil, removes) the validator for key.
func WithValidator(key string, v Validator) ServiceOption {
	return func(s *Service) {
		if v == nil {
			delete(s.validators, key)
			return
		}
		s.validators[key] = v
	}
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:       repo,
		cache:      NewMemoryCache(),
		validators: map[string]Validator{AppConfigKey: CategoryValidator{}},
		ttl:        DefaultTTL,
		keys:       []string{AppConfigKey, ClassifierConfigKey},
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("module", "settings")
	return s
}

// Get returns the document for key. Cache failures are logged and treated as misses.
func (s *Service) Get(ctx context.Context, key string) (Document, error) {
	doc, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.WarnContext(ctx, "settings cache read failed", "key", key, "err", err)
	}
	if ok {
		return doc, nil
	}
	return s.load(ctx, key)
}

func (s *Service) load(ctx context.Context, key string) (Document, error) {
	doc, err := s.repo.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if v, ok := s.validators[key]; ok {
		if err := v.Validate(doc); err != nil {
			return nil, fmt.Errorf("validate %s: %w", key, err)
		}
	}
	if err := s.cache.Set(ctx, key, doc, s.ttl); err != nil {
		s.log.WarnContext(ctx, "settings cache write failed", "key", key, "err", err)
	}
	return doc, nil
}

// Reload drops the cached copy of key and reads it again from the repository.
func (s *Service) Reload(ctx context.Context, key string) error {
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.WarnContext(ctx, "settings cache invalidate failed", "key", key, "err", err)
	}
	if _, err := s.load(ctx, key); err != nil {
		return fmt.Errorf("reload %s: %w", key, err)
	}
	s.log.InfoContext(ctx, "settings reloaded", "key", key)
	return nil
}

// ReloadAll clears the cache and reloads every known key; all failures are reported.
func (s *Service) ReloadAll(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		s.log.WarnContext(ctx, "settings cache clear failed", "err", err)
	}
	var errs []error
	for _, k := range s.keys {
		if err := s.Reload(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Save stores doc after validation and refreshes the cache.
func (s *Service) Save(ctx context.Context, key string, doc Document) error {
	if v, ok := s.validators[key]; ok {
		if err := v.Validate(doc); err != nil {
			return fmt.Errorf("validate %s: %w", key, err)
		}
	}
	if err := s.repo.Save(ctx, key, doc); err != nil {
		return err
	}
	return s.cache.Set(ctx, key, doc, s.ttl)
}

// Keys lists the keys the repository holds.
func (s *Service) Keys(ctx context.Context) ([]string, error) { return s.repo.Keys(ctx) }

package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var ErrNotFound = errors.New("settings: not found")

var keyRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidKey reports whether key is a plain basename usable by every repository.
func ValidKey(key string) bool { return keyRe.MatchString(key) }

// Repository stores documents by key.
type Repository interface {
	Load(ctx context.Context, key string) (Document, error)
	Save(ctx context.Context, key string, doc Document) error
	Exists(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}

// FileRepository keeps one file per key in dir, e.g. configs/app_config.yaml.
type FileRepository struct {
	dir   string
	codec Codec
}

func NewFileRepository(dir string, codec Codec) (*FileRepository, error) {
	if codec == nil {
		codec = YAMLCodec{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("settings dir: %w", err)
	}
	return &FileRepository{dir: dir, codec: codec}, nil
}

func (r *FileRepository) path(key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("invalid settings key %q", key)
	}
	return filepath.Join(r.dir, key+r.codec.Ext()), nil
}

func (r *FileRepository) Load(_ context.Context, key string) (Document, error) {
	p, err := r.path(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	doc, err := r.codec.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return doc, nil
}

// Save writes atomically: temp file in the same directory, then rename.
func (r *FileRepository) Save(_ context.Context, key string, doc Document) error {
	p, err := r.path(key)
	if err != nil {
		return err
	}
	b, err := r.codec.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(r.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp: %w", err)
	}
	_ = tmp.Chmod(0o644)
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (r *FileRepository) Exists(_ context.Context, key string) (bool, error) {
	p, err := r.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (r *FileRepository) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != r.codec.Ext() {
			continue
		}
		if k := strings.TrimSuffix(name, r.codec.Ext()); ValidKey(k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// LocalStage keeps staged chunks as files under dir/bucket. It serves
// warehouses running on the same host, such as a local postgres reading with
// COPY.
type LocalStage struct {
	root string
}

var _ Stage = &LocalStage{}

func NewLocalStage(dir, bucket string) (*LocalStage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("error resolving stage dir %s: %w", dir, err)
	}
	return &LocalStage{root: filepath.Join(abs, bucket)}, nil
}

func (s *LocalStage) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *LocalStage) Prepare(ctx context.Context) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("error creating stage dir %s: %w", s.root, err)
	}
	return nil
}

func (s *LocalStage) Upload(ctx context.Context, key string, body io.Reader) (Location, error) {
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Location{}, fmt.Errorf("error creating dir for chunk %s: %w", key, err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return Location{}, fmt.Errorf("error creating chunk %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return Location{}, fmt.Errorf("error writing chunk %s: %w", key, err)
	}
	return Location{URI: dst, URL: "file://" + filepath.ToSlash(dst)}, nil
}

func (s *LocalStage) Download(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("error reading chunk %s: %w", key, err)
	}
	return data, nil
}

func (s *LocalStage) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.path(prefix), func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error listing stage prefix %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *LocalStage) Remove(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("error removing staged chunks: %w", errors.Join(errs...))
	}
	return nil
}

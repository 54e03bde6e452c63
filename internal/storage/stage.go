package storage

import (
	"context"
	"io"
)

// Location is where the warehouse finds a staged file. URI is the native form
// (s3://bucket/key or a local path), URL the same object over http or file.
type Location struct {
	URI string
	URL string
}

// Stage is a single bucket holding CSV chunks for bulk loads.
type Stage interface {
	// Prepare makes sure the bucket exists.
	Prepare(ctx context.Context) error

	Upload(ctx context.Context, key string, body io.Reader) (Location, error)

	Download(ctx context.Context, key string) ([]byte, error)

	// Keys lists the staged keys below prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Remove deletes the given keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error
}

// Package archive defines the store used to archive finished night videos.
package archive

import (
	"context"
	"io"
)

// Store writes one artifact and returns a URI for it.
type Store interface {
	Put(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

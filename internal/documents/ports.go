// Package documents stores the files attached to projects. The ledger keeps
// the metadata; a Store keeps the bytes under an opaque key.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotExist is returned by Open when no file is stored under the key.
var ErrNotExist = errors.New("document file does not exist")

// Store is implemented by the local directory and the GCS bucket backends.
// Delete of a missing key succeeds.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh key grouped by upload month, for example
// project_documents/2024/03/<uuid>.pdf.
func NewKey(now time.Time) string {
	return fmt.Sprintf("project_documents/%04d/%02d/%s.pdf", now.Year(), int(now.Month()), uuid.NewString())
}

// Package media stores the binary attachments of memories. The document
// only carries journal.MediaRef metadata; blobs live here, keyed by the
// media id.
package media

import (
	"context"

	"github.com/dmitrijs2005/everkeep/internal/journal"
)

type Blob struct {
	Ref  journal.MediaRef
	Data []byte
}

type Store interface {
	// Put stores data under ref.ID, assigning a fresh "media_" id when
	// empty. The returned ref carries the stored size.
	Put(ctx context.Context, data []byte, ref journal.MediaRef) (journal.MediaRef, error)
	// Get returns common.ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Blob, error)
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error
}

func prepare(data []byte, ref journal.MediaRef) journal.MediaRef {
	if ref.ID == "" {
		ref.ID = journal.NewID("media")
	}
	ref.Size = int64(len(data))
	return ref
}

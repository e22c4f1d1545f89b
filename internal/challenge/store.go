package challenge

import (
	"context"
	"time"
)

// Store persists challenges. Implementations keep at most one challenge per
// (kind, mobileUid) and a unique nonce.
type Store interface {
	// Replace removes any challenge of the same kind for the device and saves ch.
	// A concurrent replace that loses the race returns sentinel.ErrConflict.
	Replace(ctx context.Context, ch *Challenge) error
	FindByNonce(ctx context.Context, kind Kind, nonce string) (*Challenge, error)
	FindByDevice(ctx context.Context, kind Kind, mobileUID string) (*Challenge, error)
	// Update overwrites the challenge identified by (kind, nonce) if it still
	// has status from. A superseded challenge, or one whose status moved on
	// since it was read, returns sentinel.ErrNotFound.
	Update(ctx context.Context, ch *Challenge, from Status) error
	ListStale(ctx context.Context, status Status, before time.Time, limit int) ([]*Challenge, error)
}

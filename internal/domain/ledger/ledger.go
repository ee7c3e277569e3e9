package ledger

import (
	"context"
	"errors"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrHoldNotFound        = errors.New("hold not found")
)

// Service escrows wagers. Hold reserves funds and returns an opaque hold
// id. Release and Capture finalize a hold; both are idempotent on the
// ledger side, so re-finalizing an already-finalized hold reports success.
// That contract is what makes settlement retries safe after a crash
// between fund movement and the status flip.
type Service interface {
	Hold(ctx context.Context, userID string, amount int64, reference string) (string, error)
	Release(ctx context.Context, holdID string) error
	Capture(ctx context.Context, holdID, toUserID string) error
}

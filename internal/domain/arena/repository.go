package arena

import "context"

// SettleFunc moves the escrowed funds for a match while the repository
// holds the match row in the settling critical section. Returning an error
// aborts the transition and leaves the match matched.
type SettleFunc func(ctx context.Context, match Match) error

// Repository exposes match persistence. All transitions are conditional on
// the current status and return ErrStateConflict when the row has already
// moved on, so concurrent accept/cancel/settle races resolve to exactly
// one winner.
type Repository interface {
	Insert(ctx context.Context, match Match) error
	GetByID(ctx context.Context, matchID string) (Match, bool, error)
	ListOpen(ctx context.Context, limit int) ([]Match, error)
	ListByParticipant(ctx context.Context, userID string) ([]Match, error)

	// AcceptOpenMatch transitions open -> matched, recording the acceptance.
	AcceptOpenMatch(ctx context.Context, matchID string, acceptance Acceptance) (Match, error)

	// CancelOpenMatch transitions open -> cancelled.
	CancelOpenMatch(ctx context.Context, matchID string) (Match, error)

	// ListSettleable returns up to limit matched matches whose window ended
	// strictly before the given day.
	ListSettleable(ctx context.Context, beforeDay string, limit int) ([]Match, error)

	// Settle transitions matched -> outcome.Status, invoking moveFunds
	// inside the critical section before the transition is committed.
	Settle(ctx context.Context, matchID string, outcome Outcome, moveFunds SettleFunc) (Match, error)
}

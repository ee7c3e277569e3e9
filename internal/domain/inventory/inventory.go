package inventory

import "context"

// Service answers card ownership questions against the collection
// service. MissingCards returns the subset of playerRefs the user does
// not own; an empty result means the whole lineup is covered.
type Service interface {
	MissingCards(ctx context.Context, userID string, playerRefs []string) ([]string, error)
}

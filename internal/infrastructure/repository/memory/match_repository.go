package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/card-arena/internal/domain/arena"
)

type MatchRepository struct {
	mu    sync.Mutex
	items map[string]arena.Match
	now   func() time.Time
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{
		items: make(map[string]arena.Match),
		now:   time.Now,
	}
}

func (r *MatchRepository) Insert(_ context.Context, match arena.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[match.ID]; exists {
		return fmt.Errorf("match %s already exists", match.ID)
	}
	r.items[match.ID] = cloneMatch(match)

	return nil
}

func (r *MatchRepository) GetByID(_ context.Context, matchID string) (arena.Match, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[matchID]
	if !ok {
		return arena.Match{}, false, nil
	}

	return cloneMatch(item), true, nil
}

func (r *MatchRepository) ListOpen(_ context.Context, limit int) ([]arena.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]arena.Match, 0, limit)
	for _, item := range r.items {
		if item.Status != arena.StatusOpen {
			continue
		}
		out = append(out, cloneMatch(item))
	}
	sortMatchesByCreatedAt(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *MatchRepository) ListByParticipant(_ context.Context, userID string) ([]arena.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]arena.Match, 0)
	for _, item := range r.items {
		if item.ChallengerID == userID || (item.Acceptance != nil && item.Acceptance.OpponentID == userID) {
			out = append(out, cloneMatch(item))
		}
	}
	sortMatchesByCreatedAt(out)

	return out, nil
}

func (r *MatchRepository) AcceptOpenMatch(_ context.Context, matchID string, acceptance arena.Acceptance) (arena.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[matchID]
	if !ok {
		return arena.Match{}, fmt.Errorf("match %s not found", matchID)
	}
	if item.Status != arena.StatusOpen {
		return arena.Match{}, fmt.Errorf("%w: match is %s", arena.ErrStateConflict, item.Status)
	}

	item.Status = arena.StatusMatched
	acc := acceptance
	acc.OpponentLineup = append([]arena.PlayerSlot(nil), acceptance.OpponentLineup...)
	item.Acceptance = &acc
	item.UpdatedAt = r.now().UTC()
	r.items[matchID] = item

	return cloneMatch(item), nil
}

func (r *MatchRepository) CancelOpenMatch(_ context.Context, matchID string) (arena.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[matchID]
	if !ok {
		return arena.Match{}, fmt.Errorf("match %s not found", matchID)
	}
	if item.Status != arena.StatusOpen {
		return arena.Match{}, fmt.Errorf("%w: match is %s", arena.ErrStateConflict, item.Status)
	}

	item.Status = arena.StatusCancelled
	item.UpdatedAt = r.now().UTC()
	r.items[matchID] = item

	return cloneMatch(item), nil
}

func (r *MatchRepository) ListSettleable(_ context.Context, beforeDay string, limit int) ([]arena.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]arena.Match, 0, limit)
	for _, item := range r.items {
		if item.Status != arena.StatusMatched || item.EndDate >= beforeDay {
			continue
		}
		out = append(out, cloneMatch(item))
	}
	sortMatchesByCreatedAt(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *MatchRepository) Settle(ctx context.Context, matchID string, outcome arena.Outcome, moveFunds arena.SettleFunc) (arena.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[matchID]
	if !ok {
		return arena.Match{}, fmt.Errorf("match %s not found", matchID)
	}
	if item.Status != arena.StatusMatched {
		return arena.Match{}, fmt.Errorf("%w: match is %s", arena.ErrStateConflict, item.Status)
	}
	if outcome.Status != arena.StatusSettled && outcome.Status != arena.StatusVoided {
		return arena.Match{}, fmt.Errorf("settle outcome status must be settled or voided, got %s", outcome.Status)
	}

	if moveFunds != nil {
		if err := moveFunds(ctx, cloneMatch(item)); err != nil {
			return arena.Match{}, fmt.Errorf("move funds: %w", err)
		}
	}

	item.Status = outcome.Status
	out := outcome
	item.Outcome = &out
	item.UpdatedAt = r.now().UTC()
	r.items[matchID] = item

	return cloneMatch(item), nil
}

func sortMatchesByCreatedAt(items []arena.Match) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func cloneMatch(item arena.Match) arena.Match {
	copied := item
	copied.ChallengerLineup = append([]arena.PlayerSlot(nil), item.ChallengerLineup...)
	copied.Categories = append([]arena.StatCategory(nil), item.Categories...)
	if item.Acceptance != nil {
		acc := *item.Acceptance
		acc.OpponentLineup = append([]arena.PlayerSlot(nil), item.Acceptance.OpponentLineup...)
		copied.Acceptance = &acc
	}
	if item.Outcome != nil {
		out := *item.Outcome
		copied.Outcome = &out
	}
	return copied
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/card-arena/internal/domain/arena"
	"github.com/riskibarqy/card-arena/internal/domain/inventory"
	"github.com/riskibarqy/card-arena/internal/domain/ledger"
	"github.com/riskibarqy/card-arena/internal/platform/logging"
)

const openMatchListLimit = 100

type CreateMatchInput struct {
	ChallengerID    string
	Lineup          []arena.PlayerSlot
	Format          arena.Format
	Categories      []arena.StatCategory
	WagerAmount     int64
	StartDate       string
	EndDate         string
	InvitedUsername string
}

type AcceptMatchInput struct {
	MatchID          string
	OpponentID       string
	OpponentUsername string
	OpponentLineup   []arena.PlayerSlot
}

type idGenerator interface {
	NewID() (string, error)
}

// MatchService owns the match lifecycle up to settlement: create with
// escrowed wager, accept, cancel, and reads.
type MatchService struct {
	matchRepo arena.Repository
	ledger    ledger.Service
	inventory inventory.Service
	idgen     idGenerator
	logger    *logging.Logger
	now       func() time.Time
}

func NewMatchService(
	matchRepo arena.Repository,
	ledgerSvc ledger.Service,
	inventorySvc inventory.Service,
	idgen idGenerator,
	logger *logging.Logger,
) *MatchService {
	if logger == nil {
		logger = logging.Default()
	}

	return &MatchService{
		matchRepo: matchRepo,
		ledger:    ledgerSvc,
		inventory: inventorySvc,
		idgen:     idgen,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *MatchService) Create(ctx context.Context, input CreateMatchInput) (arena.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Create")
	defer span.End()

	input.ChallengerID = strings.TrimSpace(input.ChallengerID)
	input.InvitedUsername = strings.TrimSpace(input.InvitedUsername)
	if input.ChallengerID == "" {
		return arena.Match{}, fmt.Errorf("%w: challenger id is required", ErrInvalidInput)
	}

	if err := arena.ValidateLineup(input.Format, input.Lineup); err != nil {
		return arena.Match{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := arena.ValidateCategories(input.Categories); err != nil {
		return arena.Match{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	today := arena.NormalizeDay(s.now())
	if err := arena.ValidateWindow(input.StartDate, input.EndDate, today); err != nil {
		return arena.Match{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if input.WagerAmount < arena.MinWager {
		return arena.Match{}, fmt.Errorf("%w: wager must be at least %d units", ErrInvalidInput, arena.MinWager)
	}

	if err := s.verifyOwnership(ctx, input.ChallengerID, input.Lineup); err != nil {
		return arena.Match{}, err
	}

	matchID, err := s.idgen.NewID()
	if err != nil {
		return arena.Match{}, fmt.Errorf("generate match id: %w", err)
	}

	// The hold comes first: a match row must never exist without escrowed
	// funds behind it.
	holdID, err := s.ledger.Hold(ctx, input.ChallengerID, input.WagerAmount, "arena:create:"+matchID)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			return arena.Match{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return arena.Match{}, fmt.Errorf("%w: hold challenger wager: %v", ErrDependencyUnavailable, err)
	}

	nowUTC := s.now().UTC()
	match := arena.Match{
		ID:               matchID,
		ChallengerID:     input.ChallengerID,
		ChallengerLineup: append([]arena.PlayerSlot(nil), input.Lineup...),
		ChallengerHoldID: holdID,
		Format:           input.Format,
		Categories:       append([]arena.StatCategory(nil), input.Categories...),
		WagerAmount:      input.WagerAmount,
		StartDate:        input.StartDate,
		EndDate:          input.EndDate,
		InvitedUsername:  input.InvitedUsername,
		Status:           arena.StatusOpen,
		CreatedAt:        nowUTC,
		UpdatedAt:        nowUTC,
	}

	if err := s.matchRepo.Insert(ctx, match); err != nil {
		if releaseErr := s.ledger.Release(ctx, holdID); releaseErr != nil {
			s.logger.ErrorContext(ctx, "release hold after failed match insert",
				"match_id", matchID, "hold_id", holdID, "error", releaseErr)
		}
		return arena.Match{}, fmt.Errorf("insert match: %w", err)
	}

	return match, nil
}

func (s *MatchService) Accept(ctx context.Context, input AcceptMatchInput) (arena.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Accept")
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	input.OpponentID = strings.TrimSpace(input.OpponentID)
	if input.MatchID == "" || input.OpponentID == "" {
		return arena.Match{}, fmt.Errorf("%w: match id and opponent id are required", ErrInvalidInput)
	}

	match, exists, err := s.matchRepo.GetByID(ctx, input.MatchID)
	if err != nil {
		return arena.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !exists {
		return arena.Match{}, fmt.Errorf("%w: match=%s", ErrNotFound, input.MatchID)
	}

	if err := match.CanAccept(input.OpponentID, input.OpponentUsername); err != nil {
		switch {
		case errors.Is(err, arena.ErrStateConflict):
			return arena.Match{}, fmt.Errorf("%w: %v", ErrConflict, err)
		default:
			return arena.Match{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	if err := arena.ValidateLineup(match.Format, input.OpponentLineup); err != nil {
		return arena.Match{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.verifyOwnership(ctx, input.OpponentID, input.OpponentLineup); err != nil {
		return arena.Match{}, err
	}

	holdID, err := s.ledger.Hold(ctx, input.OpponentID, match.WagerAmount, "arena:accept:"+match.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			return arena.Match{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return arena.Match{}, fmt.Errorf("%w: hold opponent wager: %v", ErrDependencyUnavailable, err)
	}

	accepted, err := s.matchRepo.AcceptOpenMatch(ctx, match.ID, arena.Acceptance{
		OpponentID:     input.OpponentID,
		OpponentLineup: append([]arena.PlayerSlot(nil), input.OpponentLineup...),
		OpponentHoldID: holdID,
		AcceptedAt:     s.now().UTC(),
	})
	if err != nil {
		// Lost the race for this open match. The compensating release keeps
		// the loser's balance whole.
		if releaseErr := s.ledger.Release(ctx, holdID); releaseErr != nil {
			s.logger.ErrorContext(ctx, "release hold after lost accept race",
				"match_id", match.ID, "hold_id", holdID, "error", releaseErr)
		}
		if errors.Is(err, arena.ErrStateConflict) {
			return arena.Match{}, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return arena.Match{}, fmt.Errorf("accept match: %w", err)
	}

	return accepted, nil
}

func (s *MatchService) Cancel(ctx context.Context, matchID, userID string) (arena.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.Cancel")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	userID = strings.TrimSpace(userID)
	if matchID == "" || userID == "" {
		return arena.Match{}, fmt.Errorf("%w: match id and user id are required", ErrInvalidInput)
	}

	match, exists, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return arena.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !exists {
		return arena.Match{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}
	if match.ChallengerID != userID {
		return arena.Match{}, fmt.Errorf("%w: only the challenger can cancel", ErrUnauthorized)
	}

	cancelled, err := s.matchRepo.CancelOpenMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, arena.ErrStateConflict) {
			return arena.Match{}, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return arena.Match{}, fmt.Errorf("cancel match: %w", err)
	}

	if err := s.ledger.Release(ctx, cancelled.ChallengerHoldID); err != nil {
		s.logger.ErrorContext(ctx, "release challenger hold after cancel",
			"match_id", matchID, "hold_id", cancelled.ChallengerHoldID, "error", err)
	}

	return cancelled, nil
}

func (s *MatchService) GetByID(ctx context.Context, matchID string) (arena.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.GetByID")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return arena.Match{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	match, exists, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return arena.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !exists {
		return arena.Match{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}

	return match, nil
}

func (s *MatchService) ListOpen(ctx context.Context) ([]arena.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ListOpen")
	defer span.End()

	matches, err := s.matchRepo.ListOpen(ctx, openMatchListLimit)
	if err != nil {
		return nil, fmt.Errorf("list open matches: %w", err)
	}

	return matches, nil
}

func (s *MatchService) ListMine(ctx context.Context, userID string) ([]arena.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ListMine")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	matches, err := s.matchRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list matches by participant: %w", err)
	}

	return matches, nil
}

func (s *MatchService) verifyOwnership(ctx context.Context, userID string, lineup []arena.PlayerSlot) error {
	refs := make([]string, 0, len(lineup))
	for _, slot := range lineup {
		refs = append(refs, slot.PlayerRef)
	}

	missing, err := s.inventory.MissingCards(ctx, userID, refs)
	if err != nil {
		return fmt.Errorf("%w: verify card ownership: %v", ErrDependencyUnavailable, err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: user does not own cards %s", ErrInvalidInput, strings.Join(missing, ", "))
	}

	return nil
}

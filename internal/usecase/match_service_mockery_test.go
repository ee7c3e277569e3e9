package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/card-arena/internal/domain/arena"
	"github.com/riskibarqy/card-arena/internal/infrastructure/repository/memory"
	arenamock "github.com/riskibarqy/card-arena/internal/mocks/domain/arena"
	"github.com/riskibarqy/card-arena/internal/platform/id"
)

func TestMatchService_Create_ReleasesHoldWhenInsertFailsUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	matchRepo := arenamock.NewRepository(t)
	ledgerSvc := memory.NewLedger()
	inventorySvc := memory.NewInventory()

	ledgerSvc.Credit("alice", 50)
	inventorySvc.Grant("alice", "nba:curry")

	matchRepo.
		On("Insert", mock.Anything, mock.AnythingOfType("arena.Match")).
		Return(errors.New("connection reset")).
		Once()

	service := NewMatchService(matchRepo, ledgerSvc, inventorySvc, id.NewRandomGenerator(), nil)

	start := arena.NormalizeDay(time.Now().UTC().Add(48 * time.Hour))
	end := arena.NormalizeDay(time.Now().UTC().Add(96 * time.Hour))
	_, err := service.Create(ctx, CreateMatchInput{
		ChallengerID: "alice",
		Lineup:       []arena.PlayerSlot{{PlayerRef: "nba:curry", TeamRef: "nba:gsw"}},
		Format:       arena.Format1v1,
		Categories:   []arena.StatCategory{arena.CategoryPoints},
		WagerAmount:  10,
		StartDate:    start,
		EndDate:      end,
	})
	if err == nil {
		t.Fatalf("expected error when insert fails")
	}
	if got := ledgerSvc.Balance("alice"); got != 50 {
		t.Fatalf("balance after failed insert = %d, want 50 (hold released)", got)
	}
}

func TestMatchService_GetByID_NotFoundUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	matchRepo := arenamock.NewRepository(t)

	matchRepo.
		On("GetByID", mock.MatchedBy(func(v context.Context) bool { return v != nil }), "missing-match").
		Return(arena.Match{}, false, nil).
		Once()

	service := NewMatchService(matchRepo, memory.NewLedger(), memory.NewInventory(), id.NewRandomGenerator(), nil)

	_, err := service.GetByID(ctx, "missing-match")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

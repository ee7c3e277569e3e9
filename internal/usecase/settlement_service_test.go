package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/card-arena/internal/domain/arena"
	"github.com/riskibarqy/card-arena/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/card-arena/internal/platform/id"
)

var (
	settlementCreateClock = time.Date(2026, time.January, 4, 10, 0, 0, 0, time.UTC)
	settlementRunClock    = time.Date(2026, time.January, 15, 3, 0, 0, 0, time.UTC)
)

type settlementFixture struct {
	repo       *memory.MatchRepository
	ledger     *memory.Ledger
	inventory  *memory.Inventory
	provider   *memory.StatProvider
	matches    *MatchService
	settlement *SettlementService
}

func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()

	f := &settlementFixture{
		repo:      memory.NewMatchRepository(),
		ledger:    memory.NewLedger(),
		inventory: memory.NewInventory(),
		provider:  memory.NewStatProvider(),
	}
	f.matches = NewMatchService(f.repo, f.ledger, f.inventory, id.NewRandomGenerator(), nil)
	f.matches.now = func() time.Time { return settlementCreateClock }
	f.settlement = NewSettlementService(f.repo, f.ledger, f.provider, nil, nil)
	f.settlement.now = func() time.Time { return settlementRunClock }

	return f
}

// matchedPtsMatch creates and accepts a 1v1 PTS match whose window has
// already closed relative to the settlement clock.
func (f *settlementFixture) matchedPtsMatch(t *testing.T, wager int64) arena.Match {
	t.Helper()

	f.ledger.Credit("alice", wager)
	f.ledger.Credit("bob", wager)
	f.inventory.Grant("alice", "nba:curry")
	f.inventory.Grant("bob", "nba:lebron")

	match, err := f.matches.Create(t.Context(), CreateMatchInput{
		ChallengerID: "alice",
		Lineup:       []arena.PlayerSlot{{PlayerRef: "nba:curry", TeamRef: "nba:gsw"}},
		Format:       arena.Format1v1,
		Categories:   []arena.StatCategory{arena.CategoryPoints},
		WagerAmount:  wager,
		StartDate:    "2026-01-05",
		EndDate:      "2026-01-11",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := f.matches.Accept(t.Context(), AcceptMatchInput{
		MatchID:        match.ID,
		OpponentID:     "bob",
		OpponentLineup: []arena.PlayerSlot{{PlayerRef: "nba:lebron", TeamRef: "nba:lal"}},
	}); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	return match
}

func TestSettlementDecisiveWin(t *testing.T) {
	f := newSettlementFixture(t)
	match := f.matchedPtsMatch(t, 10)

	f.provider.SeedPlayerLog("nba:curry",
		arena.GameLog{GameDate: "2026-01-06", Stats: map[arena.StatCategory]int{arena.CategoryPoints: 20}},
		arena.GameLog{GameDate: "2026-01-09", Stats: map[arena.StatCategory]int{arena.CategoryPoints: 15}},
	)
	f.provider.SeedPlayerLog("nba:lebron",
		arena.GameLog{GameDate: "2026-01-07", Stats: map[arena.StatCategory]int{arena.CategoryPoints: 10}},
	)
	f.provider.SeedTeamSchedule("nba:gsw",
		arena.TeamGame{GameDate: "2026-01-06", Final: true},
		arena.TeamGame{GameDate: "2026-01-09", Final: true},
	)
	f.provider.SeedTeamSchedule("nba:lal",
		arena.TeamGame{GameDate: "2026-01-07", Final: true},
	)

	result, err := f.settlement.Run(t.Context(), SettlementInput{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ScannedCount != 1 || result.SettledCount != 1 || result.VoidedCount != 0 || result.FailedCount != 0 {
		t.Fatalf("Run() result = %+v, want 1 scanned and 1 settled", result)
	}

	settled, err := f.matches.GetByID(t.Context(), match.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if settled.Status != arena.StatusSettled {
		t.Fatalf("status = %s, want %s", settled.Status, arena.StatusSettled)
	}
	if settled.Outcome == nil {
		t.Fatalf("settled match has no outcome")
	}
	if settled.Outcome.ChallengerScore != 35 || settled.Outcome.OpponentScore != 10 {
		t.Fatalf("scores = %d vs %d, want 35 vs 10",
			settled.Outcome.ChallengerScore, settled.Outcome.OpponentScore)
	}
	if settled.Outcome.WinnerID != "alice" {
		t.Fatalf("winner = %q, want alice", settled.Outcome.WinnerID)
	}
	if got := f.ledger.Balance("alice"); got != 20 {
		t.Fatalf("winner balance = %d, want 20", got)
	}
	if got := f.ledger.Balance("bob"); got != 0 {
		t.Fatalf("loser balance = %d, want 0", got)
	}
}

func TestSettlementVoidsOnMissedFinalGame(t *testing.T) {
	f := newSettlementFixture(t)
	match := f.matchedPtsMatch(t, 10)

	f.provider.SeedPlayerLog("nba:curry",
		arena.GameLog{GameDate: "2026-01-06", Stats: map[arena.StatCategory]int{arena.CategoryPoints: 30}},
	)
	f.provider.SeedTeamSchedule("nba:gsw",
		arena.TeamGame{GameDate: "2026-01-06", Final: true},
	)
	// LeBron's team played a completed game he has no log for.
	f.provider.SeedPlayerLog("nba:lebron",
		arena.GameLog{GameDate: "2026-01-07", Stats: map[arena.StatCategory]int{arena.CategoryPoints: 25}},
	)
	f.provider.SeedTeamSchedule("nba:lal",
		arena.TeamGame{GameDate: "2026-01-07", Final: true},
		arena.TeamGame{GameDate: "2026-01-10", Final: true},
	)

	result, err := f.settlement.Run(t.Context(), SettlementInput{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.VoidedCount != 1 || result.SettledCount != 0 {
		t.Fatalf("Run() result = %+v, want 1 voided", result)
	}

	voided, err := f.matches.GetByID(t.Context(), match.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if voided.Status != arena.StatusVoided {
		t.Fatalf("status = %s, want %s", voided.Status, arena.StatusVoided)
	}
	if got := f.ledger.Balance("alice"); got != 10 {
		t.Fatalf("challenger balance after void = %d, want 10", got)
	}
	if got := f.ledger.Balance("bob"); got != 10 {
		t.Fatalf("opponent balance after void = %d, want 10", got)
	}
}

func TestSettlementTieRefundsBoth(t *testing.T) {
	f := newSettlementFixture(t)
	match := f.matchedPtsMatch(t, 10)

	f.provider.SeedPlayerLog("nba:curry",
		arena.GameLog{GameDate: "2026-01-06", Stats: map[arena.StatCategory]int{arena.CategoryPoints: 22}},
	)
	f.provider.SeedPlayerLog("nba:lebron",
		arena.GameLog{GameDate: "2026-01-07", Stats: map[arena.StatCategory]int{arena.CategoryPoints: 22}},
	)
	f.provider.SeedTeamSchedule("nba:gsw", arena.TeamGame{GameDate: "2026-01-06", Final: true})
	f.provider.SeedTeamSchedule("nba:lal", arena.TeamGame{GameDate: "2026-01-07", Final: true})

	result, err := f.settlement.Run(t.Context(), SettlementInput{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.SettledCount != 1 {
		t.Fatalf("Run() result = %+v, want 1 settled", result)
	}

	tied, err := f.matches.GetByID(t.Context(), match.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if tied.Outcome == nil || tied.Outcome.WinnerID != "" {
		t.Fatalf("tie produced a winner: %+v", tied.Outcome)
	}
	if f.ledger.Balance("alice") != 10 || f.ledger.Balance("bob") != 10 {
		t.Fatalf("tie balances = %d and %d, want both refunded to 10",
			f.ledger.Balance("alice"), f.ledger.Balance("bob"))
	}
}

func TestSettlementEmptyStatsSettleAsScorelessTie(t *testing.T) {
	f := newSettlementFixture(t)
	match := f.matchedPtsMatch(t, 10)

	result, err := f.settlement.Run(t.Context(), SettlementInput{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.SettledCount != 1 || result.VoidedCount != 0 {
		t.Fatalf("Run() result = %+v, want 1 settled", result)
	}

	settled, err := f.matches.GetByID(t.Context(), match.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if settled.Outcome.ChallengerScore != 0 || settled.Outcome.OpponentScore != 0 {
		t.Fatalf("scores = %d vs %d, want 0 vs 0",
			settled.Outcome.ChallengerScore, settled.Outcome.OpponentScore)
	}
	if f.ledger.Balance("alice") != 10 || f.ledger.Balance("bob") != 10 {
		t.Fatalf("scoreless tie must refund both wagers")
	}
}

func TestSettlementIdempotentRerun(t *testing.T) {
	f := newSettlementFixture(t)
	f.matchedPtsMatch(t, 10)

	f.provider.SeedPlayerLog("nba:curry",
		arena.GameLog{GameDate: "2026-01-06", Stats: map[arena.StatCategory]int{arena.CategoryPoints: 35}},
	)
	f.provider.SeedPlayerLog("nba:lebron",
		arena.GameLog{GameDate: "2026-01-07", Stats: map[arena.StatCategory]int{arena.CategoryPoints: 10}},
	)
	f.provider.SeedTeamSchedule("nba:gsw", arena.TeamGame{GameDate: "2026-01-06", Final: true})
	f.provider.SeedTeamSchedule("nba:lal", arena.TeamGame{GameDate: "2026-01-07", Final: true})

	first, err := f.settlement.Run(t.Context(), SettlementInput{})
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.SettledCount != 1 {
		t.Fatalf("first Run() result = %+v, want 1 settled", first)
	}
	winnerBalance := f.ledger.Balance("alice")

	second, err := f.settlement.Run(t.Context(), SettlementInput{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.ScannedCount != 0 || second.SettledCount != 0 {
		t.Fatalf("second Run() result = %+v, want nothing to do", second)
	}
	if got := f.ledger.Balance("alice"); got != winnerBalance {
		t.Fatalf("winner balance changed on rerun: %d -> %d", winnerBalance, got)
	}
}

func TestSettlementSkipsFailingMatch(t *testing.T) {
	f := newSettlementFixture(t)
	match := f.matchedPtsMatch(t, 10)

	f.provider.FailPlayer("nba:curry", errors.New("stat source exploded"))

	result, err := f.settlement.Run(t.Context(), SettlementInput{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.FailedCount != 1 || result.SettledCount != 0 || result.VoidedCount != 0 {
		t.Fatalf("Run() result = %+v, want 1 failed", result)
	}

	stuck, err := f.matches.GetByID(t.Context(), match.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stuck.Status != arena.StatusMatched {
		t.Fatalf("failed match status = %s, want it left %s", stuck.Status, arena.StatusMatched)
	}
	if f.ledger.Balance("alice") != 0 || f.ledger.Balance("bob") != 0 {
		t.Fatalf("holds must stay escrowed while the match is unresolved")
	}

	// The next run picks it up once the stat source recovers.
	f.provider.FailPlayer("nba:curry", nil)
	retry, err := f.settlement.Run(t.Context(), SettlementInput{})
	if err != nil {
		t.Fatalf("retry Run() error = %v", err)
	}
	if retry.SettledCount != 1 {
		t.Fatalf("retry Run() result = %+v, want 1 settled", retry)
	}
}

func TestSettlementHonorsBatchLimit(t *testing.T) {
	f := newSettlementFixture(t)
	for range 3 {
		f.matchedPtsMatch(t, 10)
	}

	first, err := f.settlement.Run(t.Context(), SettlementInput{BatchLimit: 2, MaxWorkers: 2})
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.ScannedCount != 2 || first.SettledCount != 2 {
		t.Fatalf("first Run() result = %+v, want batch of 2", first)
	}
	if first.WorkerCount != 2 {
		t.Fatalf("first Run() worker count = %d, want 2", first.WorkerCount)
	}

	second, err := f.settlement.Run(t.Context(), SettlementInput{BatchLimit: 2})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.ScannedCount != 1 || second.SettledCount != 1 {
		t.Fatalf("second Run() result = %+v, want the remaining match", second)
	}
}

func TestSettlementIgnoresUnmaturedMatches(t *testing.T) {
	// Window closes on the run day itself, so it has not matured yet.
	f := newSettlementFixture(t)
	f.settlement.now = func() time.Time {
		return time.Date(2026, time.January, 11, 12, 0, 0, 0, time.UTC)
	}
	f.matchedPtsMatch(t, 10)

	result, err := f.settlement.Run(t.Context(), SettlementInput{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ScannedCount != 0 {
		t.Fatalf("Run() scanned %d matches, want 0 before the window closes", result.ScannedCount)
	}
}

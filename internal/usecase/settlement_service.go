package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/card-arena/internal/domain/arena"
	"github.com/riskibarqy/card-arena/internal/domain/ledger"
	"github.com/riskibarqy/card-arena/internal/platform/cache"
	"github.com/riskibarqy/card-arena/internal/platform/logging"
)

const (
	defaultSettlementBatchLimit = 20
	defaultSettlementWorkers    = 4
	defaultFetchConcurrency     = 8
)

// StatProvider reads NBA box scores and schedules from the upstream stat
// source. Implementations normalize every timestamp to the canonical day
// format before returning.
type StatProvider interface {
	FetchPlayerGameLog(ctx context.Context, playerRef string, window arena.Window) ([]arena.GameLog, error)
	FetchTeamSchedule(ctx context.Context, teamRef string) ([]arena.TeamGame, error)
}

type SettlementInput struct {
	BatchLimit int
	MaxWorkers int
}

type SettlementResult struct {
	ScannedCount int   `json:"scanned_count"`
	SettledCount int   `json:"settled_count"`
	VoidedCount  int   `json:"voided_count"`
	FailedCount  int   `json:"failed_count"`
	WorkerCount  int   `json:"worker_count"`
	DurationMs   int64 `json:"duration_ms"`
}

// SettlementService walks matured matched matches and resolves each one
// atomically. Every step is safe to retry: a match that fails stays
// matched and is picked up again on the next run.
type SettlementService struct {
	matchRepo        arena.Repository
	ledger           ledger.Service
	provider         StatProvider
	scheduleCache    *cache.Store
	logger           *logging.Logger
	batchLimit       int
	maxWorkers       int
	fetchConcurrency int
	now              func() time.Time
}

func NewSettlementService(
	matchRepo arena.Repository,
	ledgerSvc ledger.Service,
	provider StatProvider,
	scheduleCache *cache.Store,
	logger *logging.Logger,
) *SettlementService {
	if logger == nil {
		logger = logging.Default()
	}

	return &SettlementService{
		matchRepo:        matchRepo,
		ledger:           ledgerSvc,
		provider:         provider,
		scheduleCache:    scheduleCache,
		logger:           logger,
		batchLimit:       defaultSettlementBatchLimit,
		maxWorkers:       defaultSettlementWorkers,
		fetchConcurrency: defaultFetchConcurrency,
		now:              time.Now,
	}
}

// SetRunDefaults overrides the batch limit, worker count, and upstream
// fetch concurrency used when a trigger request does not specify them.
// Zero or negative values keep the current defaults.
func (s *SettlementService) SetRunDefaults(batchLimit, maxWorkers, fetchConcurrency int) {
	if batchLimit > 0 {
		s.batchLimit = batchLimit
	}
	if maxWorkers > 0 {
		s.maxWorkers = maxWorkers
	}
	if fetchConcurrency > 0 {
		s.fetchConcurrency = fetchConcurrency
	}
}

// Run settles every matured match in the batch. Designed to be triggered
// by the scheduler and safe to invoke concurrently or repeatedly: the
// repository's conditional transition guarantees each match settles once.
func (s *SettlementService) Run(ctx context.Context, input SettlementInput) (SettlementResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.Run")
	defer span.End()

	if s.provider == nil {
		return SettlementResult{}, fmt.Errorf("%w: stat provider is not configured", ErrDependencyUnavailable)
	}

	started := s.now()
	batchLimit := input.BatchLimit
	if batchLimit <= 0 {
		batchLimit = s.batchLimit
	}

	today := arena.NormalizeDay(started)
	matches, err := s.matchRepo.ListSettleable(ctx, today, batchLimit)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("list settleable matches: %w", err)
	}

	result := SettlementResult{ScannedCount: len(matches)}
	workerCount := normalizeWorkerCount(input.MaxWorkers, s.maxWorkers, len(matches))
	result.WorkerCount = workerCount
	if len(matches) == 0 {
		result.DurationMs = time.Since(started).Milliseconds()
		return result, nil
	}

	var settledCount atomic.Int32
	var voidedCount atomic.Int32
	var failedCount atomic.Int32

	workers, err := ants.NewPool(workerCount)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer workers.Release()

	var wg sync.WaitGroup
	for _, match := range matches {
		match := match
		wg.Add(1)
		if err := workers.Submit(func() {
			defer wg.Done()

			settled, settleErr := s.settleMatch(ctx, match)
			if settleErr != nil {
				if errors.Is(settleErr, arena.ErrStateConflict) {
					s.logger.InfoContext(ctx, "match already resolved by a concurrent run",
						"match_id", match.ID)
					return
				}
				failedCount.Add(1)
				s.logger.WarnContext(ctx, "settle match failed, leaving for next run",
					"match_id", match.ID, "error", settleErr)
				return
			}
			if settled.Status == arena.StatusVoided {
				voidedCount.Add(1)
				return
			}
			settledCount.Add(1)
		}); err != nil {
			wg.Done()
			return SettlementResult{}, fmt.Errorf("submit match to worker pool: %w", err)
		}
	}
	wg.Wait()

	result.SettledCount = int(settledCount.Load())
	result.VoidedCount = int(voidedCount.Load())
	result.FailedCount = int(failedCount.Load())
	result.DurationMs = time.Since(started).Milliseconds()

	s.logger.InfoContext(ctx, "settlement run finished",
		"scanned", result.ScannedCount,
		"settled", result.SettledCount,
		"voided", result.VoidedCount,
		"failed", result.FailedCount,
		"duration_ms", result.DurationMs,
	)

	return result, nil
}

type pairStats struct {
	mu         sync.Mutex
	logsByRef  map[string][]arena.GameLog
	gamesByRef map[string][]arena.TeamGame
}

func (s *SettlementService) settleMatch(ctx context.Context, match arena.Match) (arena.Match, error) {
	if match.Acceptance == nil {
		return arena.Match{}, fmt.Errorf("match %s has no acceptance record", match.ID)
	}

	window := arena.Window{StartDate: match.StartDate, EndDate: match.EndDate}
	slots := distinctSlots(match.ChallengerLineup, match.Acceptance.OpponentLineup)

	stats, err := s.fetchPairStats(ctx, slots, window)
	if err != nil {
		return arena.Match{}, err
	}

	voided := false
	for _, slot := range slots {
		if arena.DetectDNP(stats.gamesByRef[slot.TeamRef], stats.logsByRef[slot.PlayerRef], window) {
			s.logger.InfoContext(ctx, "voiding match: player missed a completed game",
				"match_id", match.ID, "player_ref", slot.PlayerRef, "team_ref", slot.TeamRef)
			voided = true
			break
		}
	}

	challengerScore := arena.LineupScore(match.ChallengerLineup, stats.logsByRef, match.Categories, window)
	opponentScore := arena.LineupScore(match.Acceptance.OpponentLineup, stats.logsByRef, match.Categories, window)

	outcome := arena.Outcome{
		Status:          arena.StatusSettled,
		ChallengerScore: challengerScore,
		OpponentScore:   opponentScore,
		SettledAt:       s.now().UTC(),
	}
	switch {
	case voided:
		outcome.Status = arena.StatusVoided
	case challengerScore > opponentScore:
		outcome.WinnerID = match.ChallengerID
	case opponentScore > challengerScore:
		outcome.WinnerID = match.Acceptance.OpponentID
	}

	return s.matchRepo.Settle(ctx, match.ID, outcome, func(ctx context.Context, current arena.Match) error {
		return s.moveFunds(ctx, current, outcome)
	})
}

// moveFunds runs inside the repository's settling critical section. Hold
// finalization is idempotent on the ledger side, so a crash after the
// funds moved but before the status flip is repaired by the next run.
func (s *SettlementService) moveFunds(ctx context.Context, match arena.Match, outcome arena.Outcome) error {
	opponentHoldID := ""
	if match.Acceptance != nil {
		opponentHoldID = match.Acceptance.OpponentHoldID
	}

	if outcome.Status == arena.StatusVoided || outcome.WinnerID == "" {
		if err := s.ledger.Release(ctx, match.ChallengerHoldID); err != nil {
			return fmt.Errorf("release challenger hold: %w", err)
		}
		if err := s.ledger.Release(ctx, opponentHoldID); err != nil {
			return fmt.Errorf("release opponent hold: %w", err)
		}
		return nil
	}

	if err := s.ledger.Capture(ctx, match.ChallengerHoldID, outcome.WinnerID); err != nil {
		return fmt.Errorf("capture challenger hold: %w", err)
	}
	if err := s.ledger.Capture(ctx, opponentHoldID, outcome.WinnerID); err != nil {
		return fmt.Errorf("capture opponent hold: %w", err)
	}

	return nil
}

func (s *SettlementService) fetchPairStats(ctx context.Context, slots []arena.PlayerSlot, window arena.Window) (*pairStats, error) {
	stats := &pairStats{
		logsByRef:  make(map[string][]arena.GameLog, len(slots)),
		gamesByRef: make(map[string][]arena.TeamGame, len(slots)),
	}

	teamRefs := make(map[string]struct{}, len(slots))
	fetchers := pool.New().WithContext(ctx).WithMaxGoroutines(s.fetchConcurrency).WithCancelOnError()

	for _, slot := range slots {
		slot := slot
		fetchers.Go(func(ctx context.Context) error {
			logs, err := s.provider.FetchPlayerGameLog(ctx, slot.PlayerRef, window)
			if err != nil {
				return fmt.Errorf("fetch game log player=%s: %w", slot.PlayerRef, err)
			}
			stats.mu.Lock()
			stats.logsByRef[slot.PlayerRef] = logs
			stats.mu.Unlock()
			return nil
		})

		if _, seen := teamRefs[slot.TeamRef]; seen {
			continue
		}
		teamRefs[slot.TeamRef] = struct{}{}
		teamRef := slot.TeamRef
		fetchers.Go(func(ctx context.Context) error {
			games, err := s.fetchTeamSchedule(ctx, teamRef)
			if err != nil {
				return fmt.Errorf("fetch schedule team=%s: %w", teamRef, err)
			}
			stats.mu.Lock()
			stats.gamesByRef[teamRef] = games
			stats.mu.Unlock()
			return nil
		})
	}

	if err := fetchers.Wait(); err != nil {
		return nil, err
	}

	return stats, nil
}

// fetchTeamSchedule goes through the TTL cache when one is configured:
// schedules rarely change mid-run and several matches in a batch usually
// share teams.
func (s *SettlementService) fetchTeamSchedule(ctx context.Context, teamRef string) ([]arena.TeamGame, error) {
	if s.scheduleCache == nil {
		return s.provider.FetchTeamSchedule(ctx, teamRef)
	}

	value, err := s.scheduleCache.GetOrLoad(ctx, "schedule:"+teamRef, func(ctx context.Context) (any, error) {
		return s.provider.FetchTeamSchedule(ctx, teamRef)
	})
	if err != nil {
		return nil, err
	}

	games, ok := value.([]arena.TeamGame)
	if !ok {
		return nil, fmt.Errorf("unexpected cached schedule type %T", value)
	}

	return games, nil
}

func distinctSlots(lineups ...[]arena.PlayerSlot) []arena.PlayerSlot {
	seen := make(map[string]struct{})
	out := make([]arena.PlayerSlot, 0)
	for _, lineup := range lineups {
		for _, slot := range lineup {
			key := slot.PlayerRef + "::" + slot.TeamRef
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, slot)
		}
	}

	return out
}

func normalizeWorkerCount(requested, fallback, taskCount int) int {
	count := requested
	if count <= 0 {
		count = fallback
	}
	if count <= 0 {
		count = defaultSettlementWorkers
	}
	if taskCount > 0 && count > taskCount {
		count = taskCount
	}
	if count < 1 {
		count = 1
	}

	return count
}

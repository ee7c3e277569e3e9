package memory

import (
	"github.com/riskibarqy/card-arena/internal/domain/arena"
)

// SeedAccount is a demo user for memory-backed deployments.
type SeedAccount struct {
	UserID   string
	Username string
	Balance  int64
	Cards    []string
}

func SeedAccounts() []SeedAccount {
	return []SeedAccount{
		{
			UserID:   "usr-demo-alice",
			Username: "alice_hoops",
			Balance:  250,
			Cards:    []string{"nba:curry", "nba:thompson", "nba:green", "nba:wiggins", "nba:kuminga"},
		},
		{
			UserID:   "usr-demo-bob",
			Username: "bob_buckets",
			Balance:  250,
			Cards:    []string{"nba:lebron", "nba:davis", "nba:reaves", "nba:russell", "nba:hachimura"},
		},
		{
			UserID:   "usr-demo-carol",
			Username: "carol_clamps",
			Balance:  120,
			Cards:    []string{"nba:tatum", "nba:brown", "nba:jokic"},
		},
	}
}

func SeedPlayerLogs() map[string][]arena.GameLog {
	return map[string][]arena.GameLog{
		"nba:curry": {
			{GameDate: "2026-03-02", Stats: map[arena.StatCategory]int{
				arena.CategoryPoints: 31, arena.CategoryRebounds: 5, arena.CategoryAssists: 7,
				arena.CategorySteals: 2, arena.CategoryBlocks: 0,
			}},
			{GameDate: "2026-03-04", Stats: map[arena.StatCategory]int{
				arena.CategoryPoints: 27, arena.CategoryRebounds: 4, arena.CategoryAssists: 6,
				arena.CategorySteals: 1, arena.CategoryBlocks: 0,
			}},
		},
		"nba:lebron": {
			{GameDate: "2026-03-02", Stats: map[arena.StatCategory]int{
				arena.CategoryPoints: 25, arena.CategoryRebounds: 8, arena.CategoryAssists: 9,
				arena.CategorySteals: 1, arena.CategoryBlocks: 1,
			}},
			{GameDate: "2026-03-05", Stats: map[arena.StatCategory]int{
				arena.CategoryPoints: 28, arena.CategoryRebounds: 7, arena.CategoryAssists: 11,
				arena.CategorySteals: 0, arena.CategoryBlocks: 1,
			}},
		},
		"nba:tatum": {
			{GameDate: "2026-03-03", Stats: map[arena.StatCategory]int{
				arena.CategoryPoints: 33, arena.CategoryRebounds: 9, arena.CategoryAssists: 4,
				arena.CategorySteals: 1, arena.CategoryBlocks: 1,
			}},
		},
		"nba:jokic": {
			{GameDate: "2026-03-03", Stats: map[arena.StatCategory]int{
				arena.CategoryPoints: 26, arena.CategoryRebounds: 13, arena.CategoryAssists: 10,
				arena.CategorySteals: 1, arena.CategoryBlocks: 1,
			}},
		},
	}
}

func SeedTeamSchedules() map[string][]arena.TeamGame {
	return map[string][]arena.TeamGame{
		"nba:gsw": {
			{GameDate: "2026-03-02", Final: true},
			{GameDate: "2026-03-04", Final: true},
			{GameDate: "2026-03-07", Final: false},
		},
		"nba:lal": {
			{GameDate: "2026-03-02", Final: true},
			{GameDate: "2026-03-05", Final: true},
			{GameDate: "2026-03-08", Final: false},
		},
		"nba:bos": {
			{GameDate: "2026-03-03", Final: true},
			{GameDate: "2026-03-06", Final: false},
		},
		"nba:den": {
			{GameDate: "2026-03-03", Final: true},
			{GameDate: "2026-03-06", Final: false},
		},
	}
}

// ApplySeedData loads the demo accounts and box scores into the memory
// doubles. Used when the service runs without Postgres and Vault.
func ApplySeedData(ledger *Ledger, inventory *Inventory, provider *StatProvider) {
	for _, account := range SeedAccounts() {
		ledger.Credit(account.UserID, account.Balance)
		inventory.Grant(account.UserID, account.Cards...)
	}
	for playerRef, logs := range SeedPlayerLogs() {
		provider.SeedPlayerLog(playerRef, logs...)
	}
	for teamRef, games := range SeedTeamSchedules() {
		provider.SeedTeamSchedule(teamRef, games...)
	}
}

package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/card-arena/internal/domain/arena"
)

// StatProvider is a configurable stat source double. Fetches for unseeded
// refs return empty slices, matching the degraded behavior of the real
// provider client.
type StatProvider struct {
	mu         sync.RWMutex
	playerLogs map[string][]arena.GameLog
	teamGames  map[string][]arena.TeamGame
	playerErr  map[string]error
	teamErr    map[string]error
}

func NewStatProvider() *StatProvider {
	return &StatProvider{
		playerLogs: make(map[string][]arena.GameLog),
		teamGames:  make(map[string][]arena.TeamGame),
		playerErr:  make(map[string]error),
		teamErr:    make(map[string]error),
	}
}

func (p *StatProvider) SeedPlayerLog(playerRef string, logs ...arena.GameLog) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playerLogs[playerRef] = append(p.playerLogs[playerRef], logs...)
}

func (p *StatProvider) SeedTeamSchedule(teamRef string, games ...arena.TeamGame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teamGames[teamRef] = append(p.teamGames[teamRef], games...)
}

func (p *StatProvider) FailPlayer(playerRef string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playerErr[playerRef] = err
}

func (p *StatProvider) FailTeam(teamRef string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teamErr[teamRef] = err
}

func (p *StatProvider) FetchPlayerGameLog(_ context.Context, playerRef string, _ arena.Window) ([]arena.GameLog, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.playerErr[playerRef]; err != nil {
		return nil, err
	}

	return append([]arena.GameLog(nil), p.playerLogs[playerRef]...), nil
}

func (p *StatProvider) FetchTeamSchedule(_ context.Context, teamRef string) ([]arena.TeamGame, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.teamErr[teamRef]; err != nil {
		return nil, err
	}

	return append([]arena.TeamGame(nil), p.teamGames[teamRef]...), nil
}

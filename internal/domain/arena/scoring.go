package arena

import (
	"fmt"
	"time"
)

// DayFormat is the canonical calendar-day layout used everywhere in this
// package. Provider timestamps are normalized to it exactly once, at the
// adapter boundary, so all comparisons below are plain string equality.
const DayFormat = "2006-01-02"

// GameLog is one player's box-score line for a single game day.
type GameLog struct {
	GameDate string
	Stats    map[StatCategory]int
}

// TeamGame is one entry of a team's schedule.
type TeamGame struct {
	GameDate string
	Final    bool
}

// Window is an inclusive range of canonical days.
type Window struct {
	StartDate string
	EndDate   string
}

func (w Window) Contains(day string) bool {
	return day >= w.StartDate && day <= w.EndDate
}

// NormalizeDay collapses a timestamp to its canonical UTC day.
func NormalizeDay(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

func ParseDay(raw string) (time.Time, error) {
	parsed, err := time.Parse(DayFormat, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", raw, err)
	}
	return parsed, nil
}

// ComputeScore sums the requested categories over every in-window log
// entry. A category absent from a log line counts as zero, never as an
// error. Out-of-window entries are ignored even if the adapter let them
// through.
func ComputeScore(logs []GameLog, categories []StatCategory, window Window) int {
	total := 0
	for _, entry := range logs {
		if !window.Contains(entry.GameDate) {
			continue
		}
		for _, category := range categories {
			total += entry.Stats[category]
		}
	}

	return total
}

// DetectDNP reports whether the player sat out a completed team game
// inside the window: some Final team game day has no matching log entry.
// A team with zero completed in-window games never triggers a DNP.
func DetectDNP(teamGames []TeamGame, logs []GameLog, window Window) bool {
	if len(teamGames) == 0 {
		return false
	}

	played := make(map[string]struct{}, len(logs))
	for _, entry := range logs {
		played[entry.GameDate] = struct{}{}
	}

	for _, game := range teamGames {
		if !game.Final || !window.Contains(game.GameDate) {
			continue
		}
		if _, ok := played[game.GameDate]; !ok {
			return true
		}
	}

	return false
}

// LineupScore totals one side's lineup given per-player logs keyed by
// player ref.
func LineupScore(lineup []PlayerSlot, logsByPlayer map[string][]GameLog, categories []StatCategory, window Window) int {
	total := 0
	for _, slot := range lineup {
		total += ComputeScore(logsByPlayer[slot.PlayerRef], categories, window)
	}

	return total
}

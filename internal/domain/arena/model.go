package arena

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MatchStatus tracks the lifecycle of a head-to-head match.
type MatchStatus string

const (
	StatusOpen      MatchStatus = "open"
	StatusMatched   MatchStatus = "matched"
	StatusSettled   MatchStatus = "settled"
	StatusVoided    MatchStatus = "voided"
	StatusCancelled MatchStatus = "cancelled"
)

// Format fixes how many player cards each side fields.
type Format string

const (
	Format1v1 Format = "1v1"
	Format3v3 Format = "3v3"
	Format5v5 Format = "5v5"
)

// StatCategory is a scoreable box-score column.
type StatCategory string

const (
	CategoryPoints   StatCategory = "PTS"
	CategoryRebounds StatCategory = "REB"
	CategoryAssists  StatCategory = "AST"
	CategorySteals   StatCategory = "STL"
	CategoryBlocks   StatCategory = "BLK"
)

const MinWager int64 = 5

var (
	ErrStateConflict      = errors.New("match state conflict")
	ErrUnknownFormat      = errors.New("unknown match format")
	ErrInvalidLineup      = errors.New("invalid lineup")
	ErrInvalidCategories  = errors.New("invalid stat categories")
	ErrInvalidWindow      = errors.New("invalid match window")
	ErrWagerBelowMinimum  = errors.New("wager below minimum")
	ErrAcceptorIneligible = errors.New("acceptor is not eligible")
)

// PlayerSlot pins one player card to the team the player suits up for.
// TeamRef is captured at match creation so did-not-play checks compare
// against the roster the challenger committed to.
type PlayerSlot struct {
	PlayerRef string
	TeamRef   string
}

// Acceptance is present once an opponent has matched the challenge.
type Acceptance struct {
	OpponentID     string
	OpponentLineup []PlayerSlot
	OpponentHoldID string
	AcceptedAt     time.Time
}

// Outcome is present once the match reached a terminal scored state.
type Outcome struct {
	Status          MatchStatus
	ChallengerScore int
	OpponentScore   int
	WinnerID        string
	SettledAt       time.Time
}

// Match is a wagered head-to-head stat challenge between two card lineups.
type Match struct {
	ID               string
	ChallengerID     string
	ChallengerLineup []PlayerSlot
	ChallengerHoldID string
	Format           Format
	Categories       []StatCategory
	WagerAmount      int64
	StartDate        string
	EndDate          string
	InvitedUsername  string
	Status           MatchStatus
	Acceptance       *Acceptance
	Outcome          *Outcome
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LineupSize returns the required lineup size for a format.
func LineupSize(format Format) (int, error) {
	switch format {
	case Format1v1:
		return 1, nil
	case Format3v3:
		return 3, nil
	case Format5v5:
		return 5, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// IsTerminal reports whether no further transition can leave the status.
func (s MatchStatus) IsTerminal() bool {
	switch s {
	case StatusSettled, StatusVoided, StatusCancelled:
		return true
	default:
		return false
	}
}

func ValidCategory(c StatCategory) bool {
	switch c {
	case CategoryPoints, CategoryRebounds, CategoryAssists, CategorySteals, CategoryBlocks:
		return true
	default:
		return false
	}
}

// ValidateCategories checks the requested set: non-empty, known, no
// duplicates. Order is preserved by the caller and never normalized here.
func ValidateCategories(categories []StatCategory) error {
	if len(categories) == 0 {
		return fmt.Errorf("%w: at least one category is required", ErrInvalidCategories)
	}

	seen := make(map[StatCategory]struct{}, len(categories))
	for _, c := range categories {
		if !ValidCategory(c) {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidCategories, c)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidCategories, c)
		}
		seen[c] = struct{}{}
	}

	return nil
}

// ValidateLineup checks slot count against the format and rejects blank or
// duplicate player refs.
func ValidateLineup(format Format, lineup []PlayerSlot) error {
	size, err := LineupSize(format)
	if err != nil {
		return err
	}
	if len(lineup) != size {
		return fmt.Errorf("%w: format %s requires exactly %d players, got %d", ErrInvalidLineup, format, size, len(lineup))
	}

	seen := make(map[string]struct{}, len(lineup))
	for _, slot := range lineup {
		playerRef := strings.TrimSpace(slot.PlayerRef)
		if playerRef == "" {
			return fmt.Errorf("%w: player ref cannot be empty", ErrInvalidLineup)
		}
		if strings.TrimSpace(slot.TeamRef) == "" {
			return fmt.Errorf("%w: team ref cannot be empty for player %s", ErrInvalidLineup, playerRef)
		}
		if _, dup := seen[playerRef]; dup {
			return fmt.Errorf("%w: duplicate player ref %s", ErrInvalidLineup, playerRef)
		}
		seen[playerRef] = struct{}{}
	}

	return nil
}

// ValidateWindow checks both dates parse as canonical days, start is not
// after end, and start is not in the past relative to today.
func ValidateWindow(startDate, endDate, today string) error {
	if _, err := ParseDay(startDate); err != nil {
		return fmt.Errorf("%w: start date: %v", ErrInvalidWindow, err)
	}
	if _, err := ParseDay(endDate); err != nil {
		return fmt.Errorf("%w: end date: %v", ErrInvalidWindow, err)
	}
	if startDate > endDate {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidWindow, startDate, endDate)
	}
	if startDate < today {
		return fmt.Errorf("%w: start %s is in the past", ErrInvalidWindow, startDate)
	}

	return nil
}

func (m Match) ValidateBasic() error {
	if m.ID == "" {
		return fmt.Errorf("match id is required")
	}
	if m.ChallengerID == "" {
		return fmt.Errorf("challenger id is required")
	}
	if err := ValidateLineup(m.Format, m.ChallengerLineup); err != nil {
		return err
	}
	if err := ValidateCategories(m.Categories); err != nil {
		return err
	}
	if m.WagerAmount < MinWager {
		return fmt.Errorf("%w: %d < %d", ErrWagerBelowMinimum, m.WagerAmount, MinWager)
	}

	return nil
}

// CanAccept reports whether the given user may accept this match. The
// challenger can never take their own challenge, and invite-only matches
// are restricted to the invited username (case-insensitive).
func (m Match) CanAccept(userID, username string) error {
	if m.Status != StatusOpen {
		return fmt.Errorf("%w: match is %s", ErrStateConflict, m.Status)
	}
	if userID == m.ChallengerID {
		return fmt.Errorf("%w: challenger cannot accept own match", ErrAcceptorIneligible)
	}
	if m.InvitedUsername != "" && !strings.EqualFold(m.InvitedUsername, username) {
		return fmt.Errorf("%w: match is reserved for another user", ErrAcceptorIneligible)
	}

	return nil
}

package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lib/pq"

	"github.com/riskibarqy/card-arena/internal/domain/arena"
)

type matchTableModel struct {
	ID               int64          `db:"id"`
	PublicID         string         `db:"public_id"`
	ChallengerID     string         `db:"challenger_user_id"`
	ChallengerLineup []byte         `db:"challenger_lineup"`
	ChallengerHoldID string         `db:"challenger_hold_id"`
	Format           string         `db:"format"`
	Categories       pq.StringArray `db:"categories"`
	WagerAmount      int64          `db:"wager_amount"`
	StartDate        time.Time      `db:"start_date"`
	EndDate          time.Time      `db:"end_date"`
	InvitedUsername  string         `db:"invited_username"`
	Status           string         `db:"status"`
	OpponentID       sql.NullString `db:"opponent_user_id"`
	OpponentLineup   []byte         `db:"opponent_lineup"`
	OpponentHoldID   sql.NullString `db:"opponent_hold_id"`
	AcceptedAt       *time.Time     `db:"accepted_at"`
	ChallengerScore  sql.NullInt64  `db:"challenger_score"`
	OpponentScore    sql.NullInt64  `db:"opponent_score"`
	WinnerID         sql.NullString `db:"winner_user_id"`
	SettledAt        *time.Time     `db:"settled_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

type matchInsertModel struct {
	PublicID         string         `db:"public_id"`
	ChallengerID     string         `db:"challenger_user_id"`
	ChallengerLineup []byte         `db:"challenger_lineup"`
	ChallengerHoldID string         `db:"challenger_hold_id"`
	Format           string         `db:"format"`
	Categories       pq.StringArray `db:"categories"`
	WagerAmount      int64          `db:"wager_amount"`
	StartDate        time.Time      `db:"start_date"`
	EndDate          time.Time      `db:"end_date"`
	InvitedUsername  string         `db:"invited_username"`
	Status           string         `db:"status"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// slotDocument is the JSONB shape for one lineup slot.
type slotDocument struct {
	PlayerRef string `json:"player_ref"`
	TeamRef   string `json:"team_ref"`
}

func encodeLineup(lineup []arena.PlayerSlot) ([]byte, error) {
	docs := make([]slotDocument, 0, len(lineup))
	for _, slot := range lineup {
		docs = append(docs, slotDocument{PlayerRef: slot.PlayerRef, TeamRef: slot.TeamRef})
	}

	raw, err := sonic.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encode lineup: %w", err)
	}
	return raw, nil
}

func decodeLineup(raw []byte) ([]arena.PlayerSlot, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var docs []slotDocument
	if err := sonic.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode lineup: %w", err)
	}

	out := make([]arena.PlayerSlot, 0, len(docs))
	for _, doc := range docs {
		out = append(out, arena.PlayerSlot{PlayerRef: doc.PlayerRef, TeamRef: doc.TeamRef})
	}
	return out, nil
}

func matchFromRow(row matchTableModel) (arena.Match, error) {
	challengerLineup, err := decodeLineup(row.ChallengerLineup)
	if err != nil {
		return arena.Match{}, fmt.Errorf("match %s: %w", row.PublicID, err)
	}

	categories := make([]arena.StatCategory, 0, len(row.Categories))
	for _, c := range row.Categories {
		categories = append(categories, arena.StatCategory(c))
	}

	match := arena.Match{
		ID:               row.PublicID,
		ChallengerID:     row.ChallengerID,
		ChallengerLineup: challengerLineup,
		ChallengerHoldID: row.ChallengerHoldID,
		Format:           arena.Format(row.Format),
		Categories:       categories,
		WagerAmount:      row.WagerAmount,
		StartDate:        arena.NormalizeDay(row.StartDate),
		EndDate:          arena.NormalizeDay(row.EndDate),
		InvitedUsername:  row.InvitedUsername,
		Status:           arena.MatchStatus(row.Status),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}

	if row.OpponentID.Valid && row.AcceptedAt != nil {
		opponentLineup, err := decodeLineup(row.OpponentLineup)
		if err != nil {
			return arena.Match{}, fmt.Errorf("match %s: %w", row.PublicID, err)
		}
		match.Acceptance = &arena.Acceptance{
			OpponentID:     row.OpponentID.String,
			OpponentLineup: opponentLineup,
			OpponentHoldID: row.OpponentHoldID.String,
			AcceptedAt:     *row.AcceptedAt,
		}
	}

	if row.SettledAt != nil {
		match.Outcome = &arena.Outcome{
			Status:          match.Status,
			ChallengerScore: int(row.ChallengerScore.Int64),
			OpponentScore:   int(row.OpponentScore.Int64),
			WinnerID:        row.WinnerID.String,
			SettledAt:       *row.SettledAt,
		}
	}

	return match, nil
}

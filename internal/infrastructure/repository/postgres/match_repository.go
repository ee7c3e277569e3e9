package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/riskibarqy/card-arena/internal/domain/arena"
	qb "github.com/riskibarqy/card-arena/internal/platform/querybuilder"
)

type MatchRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db, now: time.Now}
}

func (r *MatchRepository) Insert(ctx context.Context, match arena.Match) error {
	lineup, err := encodeLineup(match.ChallengerLineup)
	if err != nil {
		return err
	}

	categories := make(pq.StringArray, 0, len(match.Categories))
	for _, c := range match.Categories {
		categories = append(categories, string(c))
	}

	startDate, err := arena.ParseDay(match.StartDate)
	if err != nil {
		return fmt.Errorf("parse start date: %w", err)
	}
	endDate, err := arena.ParseDay(match.EndDate)
	if err != nil {
		return fmt.Errorf("parse end date: %w", err)
	}

	insertModel := matchInsertModel{
		PublicID:         match.ID,
		ChallengerID:     match.ChallengerID,
		ChallengerLineup: lineup,
		ChallengerHoldID: match.ChallengerHoldID,
		Format:           string(match.Format),
		Categories:       categories,
		WagerAmount:      match.WagerAmount,
		StartDate:        startDate,
		EndDate:          endDate,
		InvitedUsername:  match.InvitedUsername,
		Status:           string(match.Status),
		CreatedAt:        match.CreatedAt,
		UpdatedAt:        match.UpdatedAt,
	}

	query, args, err := qb.InsertModel("arena_matches", insertModel, "")
	if err != nil {
		return fmt.Errorf("build insert match query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	return nil
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (arena.Match, bool, error) {
	query, args, err := matchBaseSelectBuilder().
		Where(qb.Eq("public_id", matchID)).
		ToSQL()
	if err != nil {
		return arena.Match{}, false, fmt.Errorf("build get match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err) {
			return r.getByIDLiteral(ctx, matchID)
		}
		if isNotFound(err) {
			return arena.Match{}, false, nil
		}
		return arena.Match{}, false, fmt.Errorf("get match: %w", err)
	}

	match, err := matchFromRow(row)
	if err != nil {
		return arena.Match{}, false, err
	}
	return match, true, nil
}

func (r *MatchRepository) getByIDLiteral(ctx context.Context, matchID string) (arena.Match, bool, error) {
	query, args, err := matchBaseSelectBuilder().
		Where(qb.EqLiteral("public_id", matchID)).
		ToSQL()
	if err != nil {
		return arena.Match{}, false, fmt.Errorf("build get match literal fallback query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return arena.Match{}, false, nil
		}
		return arena.Match{}, false, fmt.Errorf("get match literal fallback: %w", err)
	}

	match, err := matchFromRow(row)
	if err != nil {
		return arena.Match{}, false, err
	}
	return match, true, nil
}

func (r *MatchRepository) ListOpen(ctx context.Context, limit int) ([]arena.Match, error) {
	query, args, err := matchBaseSelectBuilder().
		Where(qb.EqLiteral("status", string(arena.StatusOpen))).
		OrderBy("created_at", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list open matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list open matches: %w", err)
	}

	return matchesFromRows(rows)
}

func (r *MatchRepository) ListByParticipant(ctx context.Context, userID string) ([]arena.Match, error) {
	query, args, err := matchBaseSelectBuilder().
		Where(qb.Expr("(challenger_user_id = ? OR opponent_user_id = ?)", userID, userID)).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches by participant query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err) {
			return r.listByParticipantSingleParam(ctx, userID)
		}
		return nil, fmt.Errorf("list matches by participant: %w", err)
	}

	return matchesFromRows(rows)
}

func (r *MatchRepository) listByParticipantSingleParam(ctx context.Context, userID string) ([]arena.Match, error) {
	query, _, err := matchBaseSelectBuilder().
		Where(qb.Expr("(challenger_user_id = ($1::text[])[1] OR opponent_user_id = ($1::text[])[1])")).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches by participant fallback query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array([]string{userID})); err != nil {
		return nil, fmt.Errorf("list matches by participant fallback: %w", err)
	}

	return matchesFromRows(rows)
}

func (r *MatchRepository) AcceptOpenMatch(ctx context.Context, matchID string, acceptance arena.Acceptance) (arena.Match, error) {
	lineup, err := encodeLineup(acceptance.OpponentLineup)
	if err != nil {
		return arena.Match{}, err
	}

	query, args, err := qb.Update("arena_matches").
		Set("status", string(arena.StatusMatched)).
		Set("opponent_user_id", acceptance.OpponentID).
		Set("opponent_lineup", lineup).
		Set("opponent_hold_id", acceptance.OpponentHoldID).
		Set("accepted_at", acceptance.AcceptedAt).
		Set("updated_at", r.now().UTC()).
		Where(
			qb.Eq("public_id", matchID),
			qb.EqLiteral("status", string(arena.StatusOpen)),
		).
		ToSQL()
	if err != nil {
		return arena.Match{}, fmt.Errorf("build accept match query: %w", err)
	}

	return r.execConditionalTransition(ctx, matchID, query, args, "accept match")
}

func (r *MatchRepository) CancelOpenMatch(ctx context.Context, matchID string) (arena.Match, error) {
	query, args, err := qb.Update("arena_matches").
		Set("status", string(arena.StatusCancelled)).
		Set("updated_at", r.now().UTC()).
		Where(
			qb.Eq("public_id", matchID),
			qb.EqLiteral("status", string(arena.StatusOpen)),
		).
		ToSQL()
	if err != nil {
		return arena.Match{}, fmt.Errorf("build cancel match query: %w", err)
	}

	return r.execConditionalTransition(ctx, matchID, query, args, "cancel match")
}

// execConditionalTransition runs a guarded status update. Zero affected
// rows means the guard lost: the match either moved on or never existed.
func (r *MatchRepository) execConditionalTransition(ctx context.Context, matchID, query string, args []any, label string) (arena.Match, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return arena.Match{}, fmt.Errorf("%s: %w", label, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return arena.Match{}, fmt.Errorf("%s rows affected: %w", label, err)
	}
	if affected == 0 {
		current, exists, err := r.GetByID(ctx, matchID)
		if err != nil {
			return arena.Match{}, err
		}
		if !exists {
			return arena.Match{}, fmt.Errorf("%s: match %s not found", label, matchID)
		}
		return arena.Match{}, fmt.Errorf("%w: match is %s", arena.ErrStateConflict, current.Status)
	}

	updated, exists, err := r.GetByID(ctx, matchID)
	if err != nil {
		return arena.Match{}, err
	}
	if !exists {
		return arena.Match{}, fmt.Errorf("%s: match %s vanished after update", label, matchID)
	}

	return updated, nil
}

func (r *MatchRepository) ListSettleable(ctx context.Context, beforeDay string, limit int) ([]arena.Match, error) {
	cutoff, err := arena.ParseDay(beforeDay)
	if err != nil {
		return nil, fmt.Errorf("parse settlement cutoff: %w", err)
	}

	query, args, err := matchBaseSelectBuilder().
		Where(
			qb.EqLiteral("status", string(arena.StatusMatched)),
			qb.Expr("end_date < ?", cutoff),
		).
		OrderBy("end_date", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list settleable matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list settleable matches: %w", err)
	}

	return matchesFromRows(rows)
}

// Settle locks the row, verifies the match is still matched, moves the
// funds, and flips the status inside one transaction. moveFunds failing
// rolls everything back and leaves the match claimable by a later run.
func (r *MatchRepository) Settle(ctx context.Context, matchID string, outcome arena.Outcome, moveFunds arena.SettleFunc) (arena.Match, error) {
	if outcome.Status != arena.StatusSettled && outcome.Status != arena.StatusVoided {
		return arena.Match{}, fmt.Errorf("settle outcome status must be settled or voided, got %s", outcome.Status)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return arena.Match{}, fmt.Errorf("begin settle transaction: %w", err)
	}
	defer tx.Rollback()

	lockQuery, lockArgs, err := matchBaseSelectBuilder().
		Where(qb.Eq("public_id", matchID)).
		ToSQL()
	if err != nil {
		return arena.Match{}, fmt.Errorf("build lock match query: %w", err)
	}
	lockQuery += " FOR UPDATE"

	var row matchTableModel
	if err := tx.GetContext(ctx, &row, lockQuery, lockArgs...); err != nil {
		if isNotFound(err) {
			return arena.Match{}, fmt.Errorf("settle match: match %s not found", matchID)
		}
		return arena.Match{}, fmt.Errorf("lock match for settle: %w", err)
	}
	if row.Status != string(arena.StatusMatched) {
		return arena.Match{}, fmt.Errorf("%w: match is %s", arena.ErrStateConflict, row.Status)
	}

	locked, err := matchFromRow(row)
	if err != nil {
		return arena.Match{}, err
	}

	if moveFunds != nil {
		if err := moveFunds(ctx, locked); err != nil {
			return arena.Match{}, fmt.Errorf("move funds: %w", err)
		}
	}

	updateQuery, updateArgs, err := qb.Update("arena_matches").
		Set("status", string(outcome.Status)).
		Set("challenger_score", int64(outcome.ChallengerScore)).
		Set("opponent_score", int64(outcome.OpponentScore)).
		Set("winner_user_id", outcome.WinnerID).
		Set("settled_at", outcome.SettledAt).
		Set("updated_at", r.now().UTC()).
		Where(qb.Eq("id", row.ID)).
		ToSQL()
	if err != nil {
		return arena.Match{}, fmt.Errorf("build settle update query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
		return arena.Match{}, fmt.Errorf("settle match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return arena.Match{}, fmt.Errorf("commit settle transaction: %w", err)
	}

	settled := locked
	settled.Status = outcome.Status
	out := outcome
	settled.Outcome = &out
	settled.UpdatedAt = r.now().UTC()

	return settled, nil
}

func matchesFromRows(rows []matchTableModel) ([]arena.Match, error) {
	out := make([]arena.Match, 0, len(rows))
	for _, row := range rows {
		match, err := matchFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, match)
	}
	return out, nil
}

func matchBaseSelectBuilder() *qb.SelectBuilder {
	return qb.Select("*").From("arena_matches")
}

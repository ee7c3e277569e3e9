package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/card-arena/internal/domain/arena"
	"github.com/riskibarqy/card-arena/internal/usecase"
)

type Handler struct {
	matchService      *usecase.MatchService
	settlementService *usecase.SettlementService
	logger            *slog.Logger
	validator         *validator.Validate
}

func NewHandler(
	matchService *usecase.MatchService,
	settlementService *usecase.SettlementService,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		matchService:      matchService,
		settlementService: settlementService,
		logger:            logger,
		validator:         validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateMatch")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req createMatchRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	match, err := h.matchService.Create(ctx, usecase.CreateMatchInput{
		ChallengerID:    principal.UserID,
		Lineup:          slotsFromPayload(req.Lineup),
		Format:          arena.Format(req.Format),
		Categories:      categoriesFromPayload(req.Categories),
		WagerAmount:     req.WagerAmount,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		InvitedUsername: req.InvitedUsername,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create match failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, matchToDTO(ctx, match))
}

func (h *Handler) AcceptMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AcceptMatch")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	var req acceptMatchRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	match, err := h.matchService.Accept(ctx, usecase.AcceptMatchInput{
		MatchID:          matchID,
		OpponentID:       principal.UserID,
		OpponentUsername: principal.Username,
		OpponentLineup:   slotsFromPayload(req.Lineup),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "accept match failed", "match_id", matchID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(ctx, match))
}

func (h *Handler) CancelMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CancelMatch")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	match, err := h.matchService.Cancel(ctx, matchID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "cancel match failed", "match_id", matchID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(ctx, match))
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	match, err := h.matchService.GetByID(ctx, matchID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(ctx, match))
}

func (h *Handler) ListOpenMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListOpenMatches")
	defer span.End()

	matches, err := h.matchService.ListOpen(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list open matches failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]matchDTO, 0, len(matches))
	for _, m := range matches {
		items = append(items, matchToDTO(ctx, m))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListMyMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyMatches")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matches, err := h.matchService.ListMine(ctx, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "list my matches failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]matchDTO, 0, len(matches))
	for _, m := range matches {
		items = append(items, matchToDTO(ctx, m))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type playerSlotPayload struct {
	PlayerRef string `json:"player_ref" validate:"required"`
	TeamRef   string `json:"team_ref" validate:"required"`
}

type createMatchRequest struct {
	Format          string              `json:"format" validate:"required,oneof=1v1 3v3 5v5"`
	Lineup          []playerSlotPayload `json:"lineup" validate:"required,min=1,max=5,dive"`
	Categories      []string            `json:"categories" validate:"required,min=1,max=5,dive,required"`
	WagerAmount     int64               `json:"wager_amount" validate:"required,min=1"`
	StartDate       string              `json:"start_date" validate:"required"`
	EndDate         string              `json:"end_date" validate:"required"`
	InvitedUsername string              `json:"invited_username"`
}

type acceptMatchRequest struct {
	Lineup []playerSlotPayload `json:"lineup" validate:"required,min=1,max=5,dive"`
}

type playerSlotDTO struct {
	PlayerRef string `json:"player_ref"`
	TeamRef   string `json:"team_ref"`
}

type acceptanceDTO struct {
	OpponentID     string          `json:"opponent_id"`
	OpponentLineup []playerSlotDTO `json:"opponent_lineup"`
	AcceptedAtUTC  string          `json:"accepted_at_utc"`
}

type outcomeDTO struct {
	Status          string `json:"status"`
	ChallengerScore int    `json:"challenger_score"`
	OpponentScore   int    `json:"opponent_score"`
	WinnerID        string `json:"winner_id,omitempty"`
	SettledAtUTC    string `json:"settled_at_utc"`
}

type matchDTO struct {
	ID               string          `json:"id"`
	ChallengerID     string          `json:"challenger_id"`
	ChallengerLineup []playerSlotDTO `json:"challenger_lineup"`
	Format           string          `json:"format"`
	Categories       []string        `json:"categories"`
	WagerAmount      int64           `json:"wager_amount"`
	StartDate        string          `json:"start_date"`
	EndDate          string          `json:"end_date"`
	InvitedUsername  string          `json:"invited_username,omitempty"`
	Status           string          `json:"status"`
	Acceptance       *acceptanceDTO  `json:"acceptance,omitempty"`
	Outcome          *outcomeDTO     `json:"outcome,omitempty"`
	CreatedAtUTC     string          `json:"created_at_utc"`
	UpdatedAtUTC     string          `json:"updated_at_utc"`
}

func matchToDTO(ctx context.Context, v arena.Match) matchDTO {
	ctx, span := startSpan(ctx, "httpapi.matchToDTO")
	defer span.End()

	categories := make([]string, 0, len(v.Categories))
	for _, c := range v.Categories {
		categories = append(categories, string(c))
	}

	dto := matchDTO{
		ID:               v.ID,
		ChallengerID:     v.ChallengerID,
		ChallengerLineup: slotsToDTO(v.ChallengerLineup),
		Format:           string(v.Format),
		Categories:       categories,
		WagerAmount:      v.WagerAmount,
		StartDate:        v.StartDate,
		EndDate:          v.EndDate,
		InvitedUsername:  v.InvitedUsername,
		Status:           string(v.Status),
		CreatedAtUTC:     v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAtUTC:     v.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if v.Acceptance != nil {
		dto.Acceptance = &acceptanceDTO{
			OpponentID:     v.Acceptance.OpponentID,
			OpponentLineup: slotsToDTO(v.Acceptance.OpponentLineup),
			AcceptedAtUTC:  v.Acceptance.AcceptedAt.UTC().Format(time.RFC3339),
		}
	}
	if v.Outcome != nil {
		dto.Outcome = &outcomeDTO{
			Status:          string(v.Outcome.Status),
			ChallengerScore: v.Outcome.ChallengerScore,
			OpponentScore:   v.Outcome.OpponentScore,
			WinnerID:        v.Outcome.WinnerID,
			SettledAtUTC:    v.Outcome.SettledAt.UTC().Format(time.RFC3339),
		}
	}

	return dto
}

func slotsToDTO(slots []arena.PlayerSlot) []playerSlotDTO {
	items := make([]playerSlotDTO, 0, len(slots))
	for _, slot := range slots {
		items = append(items, playerSlotDTO{PlayerRef: slot.PlayerRef, TeamRef: slot.TeamRef})
	}
	return items
}

func slotsFromPayload(slots []playerSlotPayload) []arena.PlayerSlot {
	items := make([]arena.PlayerSlot, 0, len(slots))
	for _, slot := range slots {
		items = append(items, arena.PlayerSlot{
			PlayerRef: strings.TrimSpace(slot.PlayerRef),
			TeamRef:   strings.TrimSpace(slot.TeamRef),
		})
	}
	return items
}

func categoriesFromPayload(categories []string) []arena.StatCategory {
	items := make([]arena.StatCategory, 0, len(categories))
	for _, c := range categories {
		items = append(items, arena.StatCategory(strings.TrimSpace(c)))
	}
	return items
}

package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/card-arena/internal/usecase"
)

type settlementJobRequest struct {
	BatchLimit int `json:"batch_limit" validate:"min=0,max=500"`
	MaxWorkers int `json:"max_workers" validate:"min=0,max=64"`
}

// RunSettlementJob triggers a settlement sweep over matured matches. The
// scheduler posts an empty body for default behavior; an explicit payload
// can shrink the batch for manual replays.
func (h *Handler) RunSettlementJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSettlementJob")
	defer span.End()

	if h.settlementService == nil {
		writeError(ctx, w, fmt.Errorf("%w: settlement service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeSettlementJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.settlementService.Run(ctx, usecase.SettlementInput{
		BatchLimit: req.BatchLimit,
		MaxWorkers: req.MaxWorkers,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "run settlement job failed", "batch_limit", req.BatchLimit, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func decodeSettlementJobRequest(r *http.Request) (settlementJobRequest, error) {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req settlementJobRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return settlementJobRequest{}, nil
		}
		return settlementJobRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}

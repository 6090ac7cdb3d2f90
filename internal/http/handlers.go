package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
	"github.com/google/uuid"
)

// @Summary Health check
// @Tags health
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// @Summary Readiness check
// @Tags health
// @Success 200 {string} string "ready"
// @Failure 503 {string} string "ledger unavailable"
// @Router /readyz [get]
func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if a.health != nil {
		if err := a.health.Ping(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "ledger ping failed", "err", err)
			http.Error(w, "ledger unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// @Summary Allocate a free block
// @Description Finds the lowest free block of the requested size in the region, splitting a larger one when needed.
// @Tags allocations
// @Accept json
// @Produce json
// @Param allocation body AllocateRequest true "Allocation request"
// @Success 201 {object} BlockResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /allocations [post]
func (a *API) handleAllocate(w http.ResponseWriter, r *http.Request) {
	ctx, runID := withRunID(r.Context())
	req, err := decode[AllocateRequest](r)
	defer r.Body.Close()
	if err != nil {
		a.Logger.ErrorContext(ctx, "unmarshaling allocation from request", "err", err.Error())
		a.respond(w, r, http.StatusBadRequest, ErrorResponse{Error: "bad request", RunID: runID})
		return
	}

	input, err := req.toInput()
	if err != nil {
		a.writeError(ctx, w, r, runID, err)
		return
	}

	block, err := a.service.Allocate(ctx, input)
	if err != nil {
		a.writeError(ctx, w, r, runID, err)
		return
	}

	resp := blockToResponse(block)
	resp.RunID = runID
	a.respond(w, r, http.StatusCreated, resp)
}

// @Summary Claim an exact block
// @Description Marks the given range in use without checking its current state. Requires the operator role when auth is enabled.
// @Tags allocations
// @Accept json
// @Produce json
// @Param claim body ClaimRequest true "Manual claim"
// @Success 201 {object} BlockResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /allocations/manual [post]
func (a *API) handleClaimExact(w http.ResponseWriter, r *http.Request) {
	ctx, runID := withRunID(r.Context())
	req, err := decode[ClaimRequest](r)
	defer r.Body.Close()
	if err != nil {
		a.Logger.ErrorContext(ctx, "unmarshaling claim from request", "err", err.Error())
		a.respond(w, r, http.StatusBadRequest, ErrorResponse{Error: "bad request", RunID: runID})
		return
	}

	input, err := req.toInput()
	if err != nil {
		a.writeError(ctx, w, r, runID, err)
		return
	}

	block, err := a.service.ClaimExact(ctx, input)
	if err != nil {
		a.writeError(ctx, w, r, runID, err)
		return
	}

	resp := blockToResponse(block)
	resp.RunID = runID
	a.respond(w, r, http.StatusCreated, resp)
}

// @Summary List ledger blocks
// @Tags blocks
// @Produce json
// @Param availability query string false "available or in-use"
// @Param region query string false "Region"
// @Param prefix_length query int false "Prefix length"
// @Success 200 {array} BlockResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /blocks [get]
func (a *API) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query, err := parseBlockQuery(r)
	if err != nil {
		a.writeError(ctx, w, r, "", err)
		return
	}

	blocks, err := a.service.ListBlocks(ctx, query)
	if err != nil {
		a.writeError(ctx, w, r, "", err)
		return
	}
	a.respond(w, r, http.StatusOK, blocksToResponse(blocks))
}

// @Summary Audit the ledger for overlapping records
// @Tags blocks
// @Produce json
// @Success 200 {array} OverlapResponse
// @Failure 500 {object} ErrorResponse
// @Router /audit [get]
func (a *API) handleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overlaps, err := a.service.Audit(ctx)
	if err != nil {
		a.writeError(ctx, w, r, "", err)
		return
	}
	a.respond(w, r, http.StatusOK, overlapsToResponse(overlaps))
}

func parseBlockQuery(r *http.Request) (domain.BlockQuery, error) {
	values := r.URL.Query()
	var query domain.BlockQuery

	if raw := values.Get("availability"); raw != "" {
		availability, err := domain.ParseAvailability(raw)
		if err != nil {
			return domain.BlockQuery{}, err
		}
		query.Availability = availability
	}
	if raw := values.Get("prefix_length"); raw != "" {
		bits, err := domain.ParseSize(raw)
		if err != nil {
			return domain.BlockQuery{}, err
		}
		query.PrefixLength = bits
	}
	query.Region = values.Get("region")
	return query, nil
}

func withRunID(ctx context.Context) (context.Context, string) {
	id := uuid.New()
	return domain.WithRunID(ctx, id), id.String()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLedgerWrite):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrPoolExhausted), errors.Is(err, domain.ErrRaceLost):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeError(ctx context.Context, w http.ResponseWriter, r *http.Request, runID string, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), RunID: runID}
	if kind := domain.KindOf(err); kind != nil {
		resp.Kind = kind.Error()
	}
	if status == http.StatusInternalServerError {
		a.Logger.ErrorContext(ctx, "request failed", "path", r.URL.Path, "run_id", runID, "err", err.Error())
		if resp.Kind == "" {
			resp.Error = "internal server error"
		}
	}
	a.respond(w, r, status, resp)
}

func (a *API) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := encode(w, r, status, v); err != nil {
		a.Logger.ErrorContext(r.Context(), "responding to client", "err", err.Error())
	}
}

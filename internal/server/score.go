package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/ai"
	"github.com/spigell/matchmaker/internal/filtering"
	"github.com/spigell/matchmaker/internal/learning"
	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/ranking"
	"github.com/spigell/matchmaker/internal/scoring"
	"github.com/spigell/matchmaker/internal/vehicle"
)

type scoreRequest struct {
	Vehicle      *vehicle.Vehicle     `json:"vehicle" validate:"required"`
	Preferences  *vehicle.Preferences `json:"preferences" validate:"required"`
	SwipeHistory *learning.History    `json:"swipeHistory"`
	AllVehicles  []*vehicle.Vehicle   `json:"allVehicles" validate:"omitempty,dive,required"`
}

type scoreResponse struct {
	MatchScore int    `json:"match_score"`
	Reasoning  string `json:"reasoning,omitempty"`
}

type rankRequest struct {
	Preferences  *vehicle.Preferences `json:"preferences" validate:"required"`
	SwipeHistory *learning.History    `json:"swipeHistory"`
}

type rankResponse struct {
	*ranking.Result
	Filters []filtering.Result `json:"filters,omitempty"`
}

func (req *scoreRequest) history() learning.History {
	if req.SwipeHistory == nil {
		return learning.History{}
	}
	return *req.SwipeHistory
}

// index resolves history ids against allVehicles, or the served inventory when absent.
func (h *handlers) index(req *scoreRequest) vehicle.Index {
	if len(req.AllVehicles) > 0 {
		return (&vehicle.Vehicles{Items: req.AllVehicles}).Index()
	}
	return h.Inventory.Index()
}

func (h *handlers) matchScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var opts []scoring.Option
	if req.SwipeHistory != nil {
		tally := learning.FromHistory(*req.SwipeHistory, h.index(&req))
		opts = scoring.LearningOptions(tally, req.Vehicle)
	}

	writeJSON(w, http.StatusOK, scoreResponse{MatchScore: scoring.Score(req.Vehicle, req.Preferences, opts...)})
}

// aiMatchScore surfaces remote failures as status codes; the caller owns the fallback.
func (h *handlers) aiMatchScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.Remote == nil {
		writeError(w, http.StatusInternalServerError, ai.ErrNotConfigured.Error())
		return
	}

	a, err := h.Remote.Score(r.Context(), &ai.Request{
		Vehicle:     req.Vehicle,
		Preferences: req.Preferences,
		History:     req.history(),
		Inventory:   h.index(&req),
	})
	if err != nil {
		h.Logger.Warn("remote scoring failed",
			append(logger.VehicleFields(req.Vehicle), zap.String("reason", ai.Reason(err)), zap.Error(err))...)

		code := ai.StatusCode(err)
		switch {
		case errors.Is(err, ai.ErrRateLimited):
			writeError(w, code, "Rate limit exceeded")
		case errors.Is(err, ai.ErrQuotaExhausted):
			writeError(w, code, "Payment required")
		default:
			writeError(w, code, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, scoreResponse{MatchScore: a.Score, Reasoning: a.Reasoning})
}

// rank filters the served inventory and scores it with fallback. A valid body always gets 200.
func (h *handlers) rank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var hist learning.History
	if req.SwipeHistory != nil {
		hist = *req.SwipeHistory
	}

	candidates, results, err := filtering.Run(r.Context(), h.Filters, filtering.Deps{
		Logger:      h.Logger,
		Preferences: req.Preferences,
		History:     hist,
	}, filtering.Default(), h.Inventory.Clone())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := h.rankContext(r)
	defer cancel()

	res, err := h.Ranker.Rank(ctx, ranking.Input{
		Preferences: req.Preferences,
		History:     hist,
		Inventory:   h.Inventory,
		Candidates:  candidates,
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rankResponse{Result: res, Filters: results})
}

func (h *handlers) listVehicles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Inventory)
}

func (h *handlers) getVehicle(w http.ResponseWriter, r *http.Request) {
	v := h.Inventory.FindByID(chi.URLParam(r, "id"))
	if v == nil {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

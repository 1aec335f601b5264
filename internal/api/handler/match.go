package handler

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/topple/internal/api/request"
	"github.com/mcoot/topple/internal/api/response"
	"github.com/mcoot/topple/internal/model"
	"github.com/mcoot/topple/internal/services/game"
)

// MatchService is the match manager surface the handlers drive
type MatchService interface {
	CreateMatch(ctx context.Context) (*model.MatchSnapshot, error)
	GetMatch(ctx context.Context, id model.MatchID) (*model.MatchSnapshot, error)
	Launch(ctx context.Context, id model.MatchID, aim model.AimDecision) (*model.MatchSnapshot, error)
	Restart(ctx context.Context, id model.MatchID) (*model.MatchSnapshot, error)
	EndMatch(ctx context.Context, id model.MatchID) (*model.MatchSnapshot, error)
	ListMatches(ctx context.Context) ([]model.MatchID, error)
	Structures() []model.Structure
	GameConfig() game.Config
	IsLive(id model.MatchID) bool
	ActiveCount() int
}

// MatchHandler handles match endpoints
type MatchHandler struct {
	matches MatchService
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matches MatchService) *MatchHandler {
	return &MatchHandler{matches: matches}
}

// Create handles POST /api/v1/matches
func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	m, err := h.matches.CreateMatch(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, response.MatchFromModel(m))
}

// List handles GET /api/v1/matches
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.matches.ListMatches(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MatchListFromModel(ids))
}

// Get handles GET /api/v1/matches/{id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.matches.GetMatch(r.Context(), matchID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// Launch handles POST /api/v1/matches/{id}/turns
func (h *MatchHandler) Launch(w http.ResponseWriter, r *http.Request) {
	var req request.LaunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	aim, err := aimFromRequest(req, h.matches.GameConfig())
	if err != nil {
		WriteError(w, err)
		return
	}

	m, err := h.matches.Launch(r.Context(), matchID(r), aim)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusAccepted, response.MatchFromModel(m))
}

// Restart handles POST /api/v1/matches/{id}/restart
func (h *MatchHandler) Restart(w http.ResponseWriter, r *http.Request) {
	m, err := h.matches.Restart(r.Context(), matchID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// End handles DELETE /api/v1/matches/{id}
func (h *MatchHandler) End(w http.ResponseWriter, r *http.Request) {
	m, err := h.matches.EndMatch(r.Context(), matchID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// Structures handles GET /api/v1/structures
func (h *MatchHandler) Structures(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.StructuresFromModel(h.matches.Structures()))
}

// Health handles GET /api/v1/health
func (h *MatchHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{
		Status:        "ok",
		ActiveMatches: h.matches.ActiveCount(),
	})
}

func matchID(r *http.Request) model.MatchID {
	return model.MatchID(mux.Vars(r)["id"])
}

// maxHoldMS is the longest hold that still fits in a time.Duration
const maxHoldMS = math.MaxInt64 / int64(time.Millisecond)

// aimFromRequest resolves the launch direction and power. Out of range power
// and degenerate directions are left for the engine to correct.
func aimFromRequest(req request.LaunchRequest, cfg game.Config) (model.AimDecision, error) {
	var aim model.AimDecision

	switch {
	case req.Direction != nil && req.AngleDeg != nil:
		return aim, NewInvalidRequestError("Specify either direction or angle_deg, not both")
	case req.Direction != nil:
		aim.Direction = *req.Direction
	case req.AngleDeg != nil:
		aim.Direction = model.DirectionFromAngle(*req.AngleDeg * math.Pi / 180)
	default:
		return aim, NewInvalidRequestError("direction or angle_deg is required")
	}

	switch {
	case req.Power != nil && req.HoldMS != nil:
		return aim, NewInvalidRequestError("Specify either power or hold_ms, not both")
	case req.Power != nil:
		aim.Power = *req.Power
	case req.HoldMS != nil:
		if *req.HoldMS < 0 || *req.HoldMS > maxHoldMS {
			return aim, NewInvalidRequestError("hold_ms out of range")
		}
		aim.Power = game.PowerFromHold(time.Duration(*req.HoldMS)*time.Millisecond, cfg)
	default:
		return aim, NewInvalidRequestError("power or hold_ms is required")
	}

	return aim, nil
}

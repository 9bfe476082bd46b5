// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/bloodlink/internal/badge"
	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/middleware"
	"github.com/carterperez-dev/bloodlink/internal/model"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Get("/leaderboard", h.Leaderboard)
	r.Get("/badges", h.Badges)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.With(middleware.RequireRole(string(model.RoleDonor))).
			Patch("/donors/me", h.UpdateDonorMe)
		r.With(middleware.RequireRole(string(model.RoleHospital))).
			Patch("/hospitals/me", h.UpdateHospitalMe)
		r.Get("/donors/{donorID}", h.GetDonor)
	})
}

func (h *Handler) UpdateDonorMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateDonorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}
	if req.Location.Partial() {
		core.BadRequest(w, "location requires both lat and lng")
		return
	}

	donor, err := h.service.UpdateDonor(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.Patch(),
	)
	if err != nil {
		writeError(w, err, "donor")
		return
	}

	core.OK(w, ToDonorResponse(donor))
}

func (h *Handler) UpdateHospitalMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateHospitalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}
	if req.Location.Partial() {
		core.BadRequest(w, "location requires both lat and lng")
		return
	}

	hospital, err := h.service.UpdateHospital(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.Patch(),
	)
	if err != nil {
		writeError(w, err, "hospital")
		return
	}

	core.OK(w, ToHospitalResponse(hospital))
}

// GetDonor returns the public detail view. Donors reading their own
// record get the full response.
func (h *Handler) GetDonor(w http.ResponseWriter, r *http.Request) {
	donorID := chi.URLParam(r, "donorID")

	donor, err := h.service.GetDonor(r.Context(), donorID)
	if err != nil {
		writeError(w, err, "donor")
		return
	}

	if donor.ID == middleware.GetUserID(r.Context()) {
		core.OK(w, ToDonorResponse(donor))
		return
	}
	core.OK(w, ToDonorDetail(donor))
}

// Leaderboard handles GET /leaderboard?limit=
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			core.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	donors, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.List(w, ToLeaderboard(donors), limit, len(donors))
}

func (h *Handler) Badges(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, map[string]any{
		"zero":  badge.Zero,
		"tiers": badge.Tiers(),
	})
}

func writeError(w http.ResponseWriter, err error, resource string) {
	switch {
	case core.IsAppError(err):
		core.JSONError(w, err)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, resource)
	case errors.Is(err, ErrEmailExists):
		core.Conflict(w, "email")
	default:
		core.InternalServerError(w, err)
	}
}

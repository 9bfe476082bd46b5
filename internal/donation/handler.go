// AngelaMos | 2026
// handler.go

package donation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/middleware"
	"github.com/carterperez-dev/bloodlink/internal/model"
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
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/donors/{donorID}/donations", h.ListForDonor)
		r.Get("/hospitals/{hospitalID}/donations", h.ListForHospital)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(model.RoleHospital)))
			r.Post("/donations", h.Create)
			r.Get("/donations/pending", h.ListPending)
			r.Post("/donations/{donationID}/verify", h.Verify)
		})
	})
}

// Create records a pending donation at the caller's hospital.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	d, err := h.service.Create(
		r.Context(),
		req.DonorID,
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		writeError(w, err, "donor")
		return
	}

	core.Created(w, ToResponse(d))
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.VerifyAsHospital(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "donationID"),
	)
	if err != nil {
		writeError(w, err, "donation")
		return
	}

	core.OK(w, ToResponse(d))
}

func (h *Handler) ListForDonor(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.ListForDonor(r.Context(), chi.URLParam(r, "donorID"))
	if err != nil {
		writeError(w, err, "donation")
		return
	}

	core.OK(w, ToListResponse(ds))
}

func (h *Handler) ListForHospital(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.ListForHospital(r.Context(), chi.URLParam(r, "hospitalID"))
	if err != nil {
		writeError(w, err, "donation")
		return
	}

	core.OK(w, ToListResponse(ds))
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.ListPending(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err, "donation")
		return
	}

	core.OK(w, ToListResponse(ds))
}

func writeError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, resource)
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "donation belongs to another hospital")
	case core.IsAppError(err):
		core.JSONError(w, err)
	default:
		core.InternalServerError(w, err)
	}
}

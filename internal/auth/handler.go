// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/middleware"
	"github.com/carterperez-dev/bloodlink/internal/user"
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
	r.Post("/auth/register/donor", h.RegisterDonor)
	r.Post("/auth/register/hospital", h.RegisterHospital)
	r.Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Post("/auth/logout", h.Logout)
		r.Get("/auth/me", h.GetMe)
	})
}

// Login opens a session by email alone. There is no credential check.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	res, err := h.service.Login(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, toAuthResponse(res, h.service.now()))
}

func (h *Handler) RegisterDonor(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterDonorRequest
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

	res, err := h.service.RegisterDonor(r.Context(), req.Input())
	if err != nil {
		writeRegisterError(w, err)
		return
	}

	core.Created(w, toAuthResponse(res, h.service.now()))
}

func (h *Handler) RegisterHospital(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterHospitalRequest
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

	res, err := h.service.RegisterHospital(r.Context(), req.Input())
	if err != nil {
		writeRegisterError(w, err)
		return
	}

	core.Created(w, toAuthResponse(res, h.service.now()))
}

func writeRegisterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrEmailExists):
		core.JSONError(w, core.DuplicateError("email"))
	case core.IsAppError(err):
		core.JSONError(w, err)
	default:
		core.InternalServerError(w, err)
	}
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		core.Unauthorized(w, "")
		return
	}

	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		core.Unauthorized(w, "")
		return
	}

	u, err := h.service.CurrentUser(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, user.ToUserResponse(u))
}

// AngelaMos | 2026
// handler.go

package search

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/middleware"
	"github.com/carterperez-dev/bloodlink/internal/model"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator, middleware.RequireRole(string(model.RoleHospital))).
		Get("/donors/search", h.SearchDonors)
}

// SearchDonors handles GET /donors/search?q=&blood_group=&max_distance_km=&available=
func (h *Handler) SearchDonors(w http.ResponseWriter, r *http.Request) {
	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	hospitalID := middleware.GetUserID(r.Context())

	result, err := h.service.Search(r.Context(), hospitalID, q)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "hospital")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSearchResponse(result))
}

// ParseQuery reads search filters from URL parameters. A blood group of
// "" or "all" means no filter.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{Text: v.Get("q")}

	// An unencoded "+" arrives as a space; blood groups never contain one.
	if raw := strings.ReplaceAll(strings.TrimLeft(v.Get("blood_group"), " "), " ", "+"); raw != "" &&
		!strings.EqualFold(raw, "all") {
		group, err := model.ParseBloodGroup(raw)
		if err != nil {
			return q, errors.New("blood_group must be one of A+ A- B+ B- O+ O- AB+ AB-")
		}
		q.BloodGroup = &group
	}

	if raw := v.Get("max_distance_km"); raw != "" {
		km, err := strconv.ParseFloat(raw, 64)
		if err != nil || km <= 0 || math.IsInf(km, 0) || math.IsNaN(km) {
			return q, errors.New("max_distance_km must be a positive number")
		}
		q.MaxDistanceKm = &km
	}

	if raw := v.Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			return q, errors.New("available must be true or false")
		}
		q.AvailableOnly = available
	}

	return q, nil
}

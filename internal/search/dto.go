// AngelaMos | 2026
// dto.go

package search

import (
	"time"

	"github.com/carterperez-dev/bloodlink/internal/badge"
	"github.com/carterperez-dev/bloodlink/internal/geo"
)

type LocationResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MatchResponse is the public card for a donor in search results. It
// never carries the phone number.
type MatchResponse struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	BloodGroup    string            `json:"blood_group"`
	Available     bool              `json:"available"`
	Verified      bool              `json:"verified"`
	DonationCount int               `json:"donation_count"`
	Badge         badge.Tier        `json:"badge"`
	LastDonation  *time.Time        `json:"last_donation,omitempty"`
	Location      *LocationResponse `json:"location,omitempty"`
	DistanceKm    *float64          `json:"distance_km,omitempty"`
}

type SearchResponse struct {
	Donors  []MatchResponse   `json:"donors"`
	Summary Summary           `json:"summary"`
	Origin  *LocationResponse `json:"origin,omitempty"`
}

func toLocation(p *geo.Point) *LocationResponse {
	if p == nil {
		return nil
	}
	return &LocationResponse{Lat: p.Lat, Lng: p.Lng}
}

func ToMatchResponse(m Match) MatchResponse {
	d := m.Donor
	resp := MatchResponse{
		ID:            d.ID,
		Name:          d.Name,
		BloodGroup:    string(d.BloodGroup),
		Available:     d.Available,
		Verified:      d.Verified,
		DonationCount: d.DonationCount,
		Badge:         d.Badge(),
		LastDonation:  d.LastDonation,
		DistanceKm:    m.DistanceKm,
	}
	if !d.LocationHidden {
		resp.Location = toLocation(d.Location)
	}
	return resp
}

func ToSearchResponse(r *Result) SearchResponse {
	donors := make([]MatchResponse, 0, len(r.Matches))
	for _, m := range r.Matches {
		donors = append(donors, ToMatchResponse(m))
	}
	return SearchResponse{
		Donors:  donors,
		Summary: r.Summary,
		Origin:  toLocation(r.Origin),
	}
}

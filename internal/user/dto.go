// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/carterperez-dev/bloodlink/internal/badge"
	"github.com/carterperez-dev/bloodlink/internal/geo"
	"github.com/carterperez-dev/bloodlink/internal/model"
)

type LocationRequest struct {
	Lat *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng *float64 `json:"lng" validate:"omitempty,longitude"`
}

// Partial reports a location carrying only one coordinate.
func (l *LocationRequest) Partial() bool {
	return l != nil && (l.Lat == nil) != (l.Lng == nil)
}

// Point returns nil unless both coordinates are present.
func (l *LocationRequest) Point() *geo.Point {
	if l == nil || l.Lat == nil || l.Lng == nil {
		return nil
	}
	return &geo.Point{Lat: *l.Lat, Lng: *l.Lng}
}

type RegisterDonorRequest struct {
	Email      string           `json:"email"       validate:"required,email,max=255"`
	Name       string           `json:"name"        validate:"required,min=1,max=100"`
	BloodGroup string           `json:"blood_group" validate:"required,oneof=A+ A- B+ B- O+ O- AB+ AB-"`
	Phone      *string          `json:"phone,omitempty" validate:"omitempty,max=32"`
	Location   *LocationRequest `json:"location,omitempty"`
}

func (r RegisterDonorRequest) Input() RegisterDonorInput {
	return RegisterDonorInput{
		Email:      r.Email,
		Name:       r.Name,
		BloodGroup: r.BloodGroup,
		Phone:      r.Phone,
		Location:   r.Location.Point(),
	}
}

type RegisterHospitalRequest struct {
	Email        string           `json:"email"         validate:"required,email,max=255"`
	Name         string           `json:"name"          validate:"required,min=1,max=100"`
	HospitalName string           `json:"hospital_name" validate:"required,min=1,max=200"`
	Address      string           `json:"address"       validate:"max=500"`
	Location     *LocationRequest `json:"location,omitempty"`
}

func (r RegisterHospitalRequest) Input() RegisterHospitalInput {
	return RegisterHospitalInput{
		Email:        r.Email,
		Name:         r.Name,
		HospitalName: r.HospitalName,
		Address:      r.Address,
		Location:     r.Location.Point(),
	}
}

type UpdateDonorRequest struct {
	Name           *string          `json:"name,omitempty"            validate:"omitempty,min=1,max=100"`
	Phone          *string          `json:"phone,omitempty"           validate:"omitempty,max=32"`
	BloodGroup     *string          `json:"blood_group,omitempty"     validate:"omitempty,oneof=A+ A- B+ B- O+ O- AB+ AB-"`
	Available      *bool            `json:"available,omitempty"`
	LocationHidden *bool            `json:"location_hidden,omitempty"`
	PhoneHidden    *bool            `json:"phone_hidden,omitempty"`
	Location       *LocationRequest `json:"location,omitempty"`
	ClearLocation  bool             `json:"clear_location,omitempty"`
}

func (r UpdateDonorRequest) Patch() DonorPatch {
	return DonorPatch{
		Name:           r.Name,
		Phone:          r.Phone,
		BloodGroup:     r.BloodGroup,
		Available:      r.Available,
		LocationHidden: r.LocationHidden,
		PhoneHidden:    r.PhoneHidden,
		Location:       r.Location.Point(),
		ClearLocation:  r.ClearLocation,
	}
}

type UpdateHospitalRequest struct {
	Name          *string          `json:"name,omitempty"          validate:"omitempty,min=1,max=100"`
	HospitalName  *string          `json:"hospital_name,omitempty" validate:"omitempty,min=1,max=200"`
	Address       *string          `json:"address,omitempty"       validate:"omitempty,max=500"`
	Location      *LocationRequest `json:"location,omitempty"`
	ClearLocation bool             `json:"clear_location,omitempty"`
}

func (r UpdateHospitalRequest) Patch() HospitalPatch {
	return HospitalPatch{
		Name:          r.Name,
		HospitalName:  r.HospitalName,
		Address:       r.Address,
		Location:      r.Location.Point(),
		ClearLocation: r.ClearLocation,
	}
}

type LocationResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func toLocation(p *geo.Point) *LocationResponse {
	if p == nil {
		return nil
	}
	return &LocationResponse{Lat: p.Lat, Lng: p.Lng}
}

// DonorResponse is the owner's own view: every field, plus dashboard
// progress toward the next badge.
type DonorResponse struct {
	ID             string            `json:"id"`
	Email          string            `json:"email"`
	Name           string            `json:"name"`
	Role           string            `json:"role"`
	BloodGroup     string            `json:"blood_group"`
	Phone          *string           `json:"phone,omitempty"`
	Available      bool              `json:"available"`
	Verified       bool              `json:"verified"`
	DonationCount  int               `json:"donation_count"`
	BadgeLevel     int               `json:"badge_level"`
	Badge          badge.Tier        `json:"badge"`
	Progress       badge.Progress    `json:"progress"`
	LastDonation   *time.Time        `json:"last_donation,omitempty"`
	Location       *LocationResponse `json:"location,omitempty"`
	LocationHidden bool              `json:"location_hidden"`
	PhoneHidden    bool              `json:"phone_hidden"`
	CreatedAt      time.Time         `json:"created_at"`
}

type HospitalResponse struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	Role         string            `json:"role"`
	HospitalName string            `json:"hospital_name"`
	Address      string            `json:"address"`
	Location     *LocationResponse `json:"location,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// DonorDetailResponse is what other users see. Phone and coordinates
// appear only when the donor has not hidden them.
type DonorDetailResponse struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	BloodGroup    string            `json:"blood_group"`
	Phone         *string           `json:"phone,omitempty"`
	Available     bool              `json:"available"`
	Verified      bool              `json:"verified"`
	DonationCount int               `json:"donation_count"`
	Badge         badge.Tier        `json:"badge"`
	LastDonation  *time.Time        `json:"last_donation,omitempty"`
	Location      *LocationResponse `json:"location,omitempty"`
}

type LeaderboardEntry struct {
	Rank          int        `json:"rank"`
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	BloodGroup    string     `json:"blood_group"`
	DonationCount int        `json:"donation_count"`
	Badge         badge.Tier `json:"badge"`
}

func ToDonorResponse(d *model.Donor) DonorResponse {
	return DonorResponse{
		ID:             d.ID,
		Email:          d.Email,
		Name:           d.Name,
		Role:           string(model.RoleDonor),
		BloodGroup:     string(d.BloodGroup),
		Phone:          d.Phone,
		Available:      d.Available,
		Verified:       d.Verified,
		DonationCount:  d.DonationCount,
		BadgeLevel:     d.BadgeLevel,
		Badge:          d.Badge(),
		Progress:       badge.ProgressFor(d.DonationCount),
		LastDonation:   d.LastDonation,
		Location:       toLocation(d.Location),
		LocationHidden: d.LocationHidden,
		PhoneHidden:    d.PhoneHidden,
		CreatedAt:      d.CreatedAt,
	}
}

func ToHospitalResponse(h *model.Hospital) HospitalResponse {
	return HospitalResponse{
		ID:           h.ID,
		Email:        h.Email,
		Name:         h.Name,
		Role:         string(model.RoleHospital),
		HospitalName: h.HospitalName,
		Address:      h.Address,
		Location:     toLocation(h.Location),
		CreatedAt:    h.CreatedAt,
	}
}

// ToUserResponse renders the owner's view of either variant.
func ToUserResponse(u model.User) any {
	switch v := u.(type) {
	case *model.Donor:
		return ToDonorResponse(v)
	case *model.Hospital:
		return ToHospitalResponse(v)
	default:
		return nil
	}
}

func ToDonorDetail(d *model.Donor) DonorDetailResponse {
	resp := DonorDetailResponse{
		ID:            d.ID,
		Name:          d.Name,
		BloodGroup:    string(d.BloodGroup),
		Available:     d.Available,
		Verified:      d.Verified,
		DonationCount: d.DonationCount,
		Badge:         d.Badge(),
		LastDonation:  d.LastDonation,
	}
	if !d.PhoneHidden {
		resp.Phone = d.Phone
	}
	if !d.LocationHidden {
		resp.Location = toLocation(d.Location)
	}
	return resp
}

func ToLeaderboard(donors []*model.Donor) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(donors))
	for i, d := range donors {
		out = append(out, LeaderboardEntry{
			Rank:          i + 1,
			ID:            d.ID,
			Name:          d.Name,
			BloodGroup:    string(d.BloodGroup),
			DonationCount: d.DonationCount,
			Badge:         d.Badge(),
		})
	}
	return out
}

// AngelaMos | 2026
// dto.go

package donation

import (
	"time"

	"github.com/carterperez-dev/bloodlink/internal/model"
)

type CreateRequest struct {
	DonorID string `json:"donor_id" validate:"required,max=64"`
}

type Response struct {
	ID           string     `json:"id"`
	DonorID      string     `json:"donor_id"`
	HospitalID   string     `json:"hospital_id"`
	DonorName    string     `json:"donor_name"`
	HospitalName string     `json:"hospital_name"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
}

type ListResponse struct {
	Donations []Response `json:"donations"`
	Stats     Stats      `json:"stats"`
}

func ToResponse(d *model.Donation) Response {
	return Response{
		ID:           d.ID,
		DonorID:      d.DonorID,
		HospitalID:   d.HospitalID,
		DonorName:    d.DonorName,
		HospitalName: d.HospitalName,
		Status:       string(d.Status),
		CreatedAt:    d.CreatedAt,
		VerifiedAt:   d.VerifiedAt,
	}
}

func ToListResponse(ds []*model.Donation) ListResponse {
	out := make([]Response, 0, len(ds))
	for _, d := range ds {
		out = append(out, ToResponse(d))
	}
	return ListResponse{Donations: out, Stats: Tally(ds)}
}

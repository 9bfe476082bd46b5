// AngelaMos | 2026
// donation.go

package model

import (
	"time"
)

type DonationStatus string

const (
	StatusPending  DonationStatus = "pending"
	StatusVerified DonationStatus = "verified"
)

// Donation keeps the donor and hospital names captured when it was
// recorded; later renames do not rewrite history.
type Donation struct {
	ID           string         `json:"id"`
	DonorID      string         `json:"donor_id"`
	HospitalID   string         `json:"hospital_id"`
	DonorName    string         `json:"donor_name"`
	HospitalName string         `json:"hospital_name"`
	Status       DonationStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	VerifiedAt   *time.Time     `json:"verified_at,omitempty"`
}

func (d *Donation) IsVerified() bool {
	return d.Status == StatusVerified
}

// MarkVerified moves pending to verified and reports whether a transition
// happened. A verified donation is left untouched.
func (d *Donation) MarkVerified(at time.Time) bool {
	if d.IsVerified() {
		return false
	}
	d.Status = StatusVerified
	d.VerifiedAt = &at
	return true
}

func (d *Donation) Clone() *Donation {
	c := *d
	if d.VerifiedAt != nil {
		t := *d.VerifiedAt
		c.VerifiedAt = &t
	}
	return &c
}

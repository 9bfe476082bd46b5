// AngelaMos | 2026
// user.go

package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/carterperez-dev/bloodlink/internal/badge"
	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/geo"
)

type Role string

const (
	RoleDonor    Role = "donor"
	RoleHospital Role = "hospital"
)

type BloodGroup string

const (
	APos  BloodGroup = "A+"
	ANeg  BloodGroup = "A-"
	BPos  BloodGroup = "B+"
	BNeg  BloodGroup = "B-"
	OPos  BloodGroup = "O+"
	ONeg  BloodGroup = "O-"
	ABPos BloodGroup = "AB+"
	ABNeg BloodGroup = "AB-"
)

var BloodGroups = []BloodGroup{APos, ANeg, BPos, BNeg, OPos, ONeg, ABPos, ABNeg}

func ParseBloodGroup(s string) (BloodGroup, error) {
	g := BloodGroup(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(BloodGroups, g) {
		return "", fmt.Errorf("blood group %q: %w", s, core.ErrInvalidInput)
	}
	return g, nil
}

// User is the sealed union of Donor and Hospital. Only this package can
// add variants; role-specific access goes through a type switch.
type User interface {
	Base() *Account
	Role() Role
	isUser()
}

type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Donor struct {
	Account

	BloodGroup     BloodGroup
	Phone          *string
	Available      bool
	DonationCount  int
	BadgeLevel     int
	Verified       bool
	LastDonation   *time.Time
	Location       *geo.Point
	LocationHidden bool
	PhoneHidden    bool
}

type Hospital struct {
	Account

	HospitalName string
	Address      string
	Location     *geo.Point
}

func (d *Donor) Base() *Account { return &d.Account }
func (d *Donor) Role() Role     { return RoleDonor }
func (*Donor) isUser()          {}

func (h *Hospital) Base() *Account { return &h.Account }
func (h *Hospital) Role() Role     { return RoleHospital }
func (*Hospital) isUser()          {}

// NewDonor applies registration defaults: available, phone private,
// location visible, no donations.
func NewDonor(account Account, group BloodGroup, phone *string) *Donor {
	return &Donor{
		Account:     account,
		BloodGroup:  group,
		Phone:       phone,
		Available:   true,
		BadgeLevel:  badge.Zero.Level,
		PhoneHidden: true,
	}
}

func NewHospital(account Account, hospitalName, address string) *Hospital {
	return &Hospital{
		Account:      account,
		HospitalName: hospitalName,
		Address:      address,
	}
}

// RecordVerifiedDonation is the only mutator of DonationCount; BadgeLevel
// is recomputed alongside it.
func (d *Donor) RecordVerifiedDonation(at time.Time) {
	d.DonationCount++
	d.BadgeLevel = badge.Resolve(d.DonationCount).Level
	d.LastDonation = &at
	d.Verified = true
}

func (d *Donor) Badge() badge.Tier {
	return badge.Resolve(d.DonationCount)
}

// Searchable reports whether the donor may appear in search results.
// Donors who hid their location but still carry coordinates stay visible.
func (d *Donor) Searchable() bool {
	return !d.LocationHidden || d.Location != nil
}

func (d *Donor) Clone() *Donor {
	c := *d
	if d.Phone != nil {
		p := *d.Phone
		c.Phone = &p
	}
	if d.LastDonation != nil {
		t := *d.LastDonation
		c.LastDonation = &t
	}
	if d.Location != nil {
		l := *d.Location
		c.Location = &l
	}
	return &c
}

func (h *Hospital) Clone() *Hospital {
	c := *h
	if h.Location != nil {
		l := *h.Location
		c.Location = &l
	}
	return &c
}

func CloneUser(u User) User {
	switch v := u.(type) {
	case *Donor:
		return v.Clone()
	case *Hospital:
		return v.Clone()
	default:
		panic(fmt.Sprintf("model: unknown user variant %T", u))
	}
}

func AsDonor(u User) (*Donor, bool) {
	d, ok := u.(*Donor)
	return d, ok
}

func AsHospital(u User) (*Hospital, bool) {
	h, ok := u.(*Hospital)
	return h, ok
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

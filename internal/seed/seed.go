// AngelaMos | 2026
// seed.go

// Package seed loads the demo data set: five donors around New York, two
// hospitals, one verified and one pending donation.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterperez-dev/bloodlink/internal/badge"
	"github.com/carterperez-dev/bloodlink/internal/geo"
	"github.com/carterperez-dev/bloodlink/internal/model"
	"github.com/carterperez-dev/bloodlink/internal/store"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

type donorSeed struct {
	id, email, name string
	group           model.BloodGroup
	phone           *string
	available       bool
	count           int
	lastDonation    *time.Time
	location        geo.Point
	phoneHidden     bool
	createdAt       time.Time
}

var donors = []donorSeed{
	{
		id: "donor1", email: "john@example.com", name: "John Smith",
		group: model.OPos, phone: ptr("+1234567890"), available: true,
		count: 5, lastDonation: ptr(day(2024, 12, 1)),
		location:  geo.Point{Lat: 40.7128, Lng: -74.0060},
		createdAt: day(2024, 1, 15),
	},
	{
		id: "donor2", email: "jane@example.com", name: "Jane Doe",
		group: model.ANeg, phone: ptr("+1234567891"), available: true,
		count: 12, lastDonation: ptr(day(2024, 11, 20)),
		location:    geo.Point{Lat: 40.7580, Lng: -73.9855},
		phoneHidden: true,
		createdAt:   day(2023, 6, 10),
	},
	{
		id: "donor3", email: "bob@example.com", name: "Bob Wilson",
		group: model.BPos, available: false,
		count: 2, lastDonation: ptr(day(2024, 10, 15)),
		location:    geo.Point{Lat: 40.6892, Lng: -74.0445},
		phoneHidden: true,
		createdAt:   day(2024, 3, 20),
	},
	{
		id: "donor4", email: "sarah@example.com", name: "Sarah Johnson",
		group: model.ABPos, phone: ptr("+1234567893"), available: true,
		count: 25, lastDonation: ptr(day(2024, 12, 10)),
		location:  geo.Point{Lat: 40.7484, Lng: -73.9857},
		createdAt: day(2022, 1, 1),
	},
	{
		id: "donor5", email: "mike@example.com", name: "Mike Brown",
		group: model.ONeg, available: true,
		location:    geo.Point{Lat: 40.7306, Lng: -73.9352},
		phoneHidden: true,
		createdAt:   day(2024, 12, 1),
	},
}

func (s donorSeed) build() *model.Donor {
	d := model.NewDonor(model.Account{
		ID:        s.id,
		Email:     s.email,
		Name:      s.name,
		CreatedAt: s.createdAt,
	}, s.group, s.phone)

	d.Available = s.available
	d.PhoneHidden = s.phoneHidden
	d.DonationCount = s.count
	d.BadgeLevel = badge.Resolve(s.count).Level
	d.Verified = s.count > 0
	d.LastDonation = s.lastDonation
	loc := s.location
	d.Location = &loc
	return d
}

func hospitals() []*model.Hospital {
	city := model.NewHospital(model.Account{
		ID: "hospital1", Email: "cityhospital@example.com", Name: "Admin",
		CreatedAt: day(2023, 1, 1),
	}, "City General Hospital", "123 Medical Center Drive, New York, NY")
	city.Location = &geo.Point{Lat: 40.7128, Lng: -74.0060}

	mercy := model.NewHospital(model.Account{
		ID: "hospital2", Email: "mercy@example.com", Name: "Admin",
		CreatedAt: day(2023, 3, 15),
	}, "Mercy Medical Center", "456 Healthcare Ave, Brooklyn, NY")
	mercy.Location = &geo.Point{Lat: 40.6782, Lng: -73.9442}

	return []*model.Hospital{city, mercy}
}

func donations() []*model.Donation {
	return []*model.Donation{
		{
			ID:           "donation1",
			DonorID:      "donor1",
			HospitalID:   "hospital1",
			DonorName:    "John Smith",
			HospitalName: "City General Hospital",
			Status:       model.StatusVerified,
			CreatedAt:    time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC),
			VerifiedAt:   ptr(time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)),
		},
		{
			ID:           "donation2",
			DonorID:      "donor2",
			HospitalID:   "hospital1",
			DonorName:    "Jane Doe",
			HospitalName: "City General Hospital",
			Status:       model.StatusPending,
			CreatedAt:    time.Date(2024, 12, 15, 14, 0, 0, 0, time.UTC),
		},
	}
}

// Demo writes the demo data set when the store holds no users yet and
// reports whether it did. The seeded counts are historical; they are not
// replayed through donation verification.
func Demo(ctx context.Context, st store.Store) (bool, error) {
	existing, err := st.ListUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("seed: list users: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	hs, ds := hospitals(), donations()
	err = st.InTx(ctx, func(tx store.Store) error {
		for _, s := range donors {
			if err := tx.UpsertUser(ctx, s.build()); err != nil {
				return fmt.Errorf("donor %s: %w", s.id, err)
			}
		}
		for _, h := range hs {
			if err := tx.UpsertUser(ctx, h); err != nil {
				return fmt.Errorf("hospital %s: %w", h.ID, err)
			}
		}
		for _, d := range ds {
			if err := tx.UpsertDonation(ctx, d); err != nil {
				return fmt.Errorf("donation %s: %w", d.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}

	slog.InfoContext(ctx, "demo data loaded",
		"donors", len(donors),
		"hospitals", len(hs),
		"donations", len(ds),
	)
	return true, nil
}

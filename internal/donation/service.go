// AngelaMos | 2026
// service.go

// Package donation records donations and moves them from pending to
// verified. Verification is the only path that credits a donor.
package donation

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/ids"
	"github.com/carterperez-dev/bloodlink/internal/metrics"
	"github.com/carterperez-dev/bloodlink/internal/model"
	"github.com/carterperez-dev/bloodlink/internal/store"
)

const tracerName = "bloodlink/donation"

type Stats struct {
	Pending  int `json:"pending"`
	Verified int `json:"verified"`
}

func Tally(donations []*model.Donation) Stats {
	var s Stats
	for _, d := range donations {
		if d.IsVerified() {
			s.Verified++
		} else {
			s.Pending++
		}
	}
	return s
}

type Service struct {
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(st store.Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   st,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Create records a pending donation. Names are copied from the current
// records and never refreshed.
func (s *Service) Create(
	ctx context.Context,
	donorID, hospitalID string,
) (*model.Donation, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "donation.create",
		attribute.String("donor.id", donorID),
		attribute.String("hospital.id", hospitalID),
	)
	defer span.End()

	var created *model.Donation
	err := s.store.InTx(ctx, func(tx store.Store) error {
		donor, err := findDonor(ctx, tx, donorID)
		if err != nil {
			return err
		}
		hospital, err := findHospital(ctx, tx, hospitalID)
		if err != nil {
			return err
		}

		created = &model.Donation{
			ID:           ids.NewDonationID(),
			DonorID:      donor.ID,
			HospitalID:   hospital.ID,
			DonorName:    donor.Name,
			HospitalName: hospital.HospitalName,
			Status:       model.StatusPending,
			CreatedAt:    s.now().UTC(),
		}
		return tx.UpsertDonation(ctx, created)
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("create donation: %w", err)
	}

	s.metrics.IncDonationCreated()
	s.logger.Info("donation recorded",
		"donation_id", created.ID,
		"donor_id", donorID,
		"hospital_id", hospitalID,
	)
	return created, nil
}

// Verify confirms a donation. Verifying an already verified donation
// returns it unchanged and credits nobody.
func (s *Service) Verify(ctx context.Context, donationID string) (*model.Donation, error) {
	return s.verify(ctx, donationID, nil)
}

// VerifyAsHospital only lets the hospital that recorded the donation
// confirm it.
func (s *Service) VerifyAsHospital(
	ctx context.Context,
	hospitalID, donationID string,
) (*model.Donation, error) {
	return s.verify(ctx, donationID, func(d *model.Donation) error {
		if d.HospitalID != hospitalID {
			return core.ErrForbidden
		}
		return nil
	})
}

func (s *Service) verify(
	ctx context.Context,
	donationID string,
	authorize func(*model.Donation) error,
) (*model.Donation, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "donation.verify",
		attribute.String("donation.id", donationID),
	)
	defer span.End()

	var (
		result       *model.Donation
		credited     *model.Donor
		levelBefore  int
		transitioned bool
	)
	err := s.store.InTx(ctx, func(tx store.Store) error {
		d, err := tx.FindDonationByID(ctx, donationID)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(d); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		result = d
		if !d.MarkVerified(now) {
			return nil
		}

		donor, err := findDonor(ctx, tx, d.DonorID)
		if err != nil {
			return err
		}
		levelBefore = donor.BadgeLevel
		donor.RecordVerifiedDonation(now)

		if err := tx.UpsertDonation(ctx, d); err != nil {
			return err
		}
		if err := tx.UpsertUser(ctx, donor); err != nil {
			return err
		}

		credited = donor
		transitioned = true
		return nil
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("verify donation: %w", err)
	}

	span.SetAttributes(attribute.Bool("donation.transitioned", transitioned))
	if transitioned {
		if credited.BadgeLevel > levelBefore {
			core.AddSpanEvent(ctx, "badge.promoted",
				attribute.Int("badge.level", credited.BadgeLevel),
			)
		}
		s.metrics.IncDonationVerified()
		s.logger.Info("donation verified",
			"donation_id", result.ID,
			"donor_id", credited.ID,
			"donation_count", credited.DonationCount,
			"badge_level", credited.BadgeLevel,
		)
	}
	return result, nil
}

func (s *Service) ListForDonor(
	ctx context.Context,
	donorID string,
) ([]*model.Donation, error) {
	ds, err := s.store.ListDonationsByDonor(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("list donor donations: %w", err)
	}
	return newestFirst(ds), nil
}

func (s *Service) ListForHospital(
	ctx context.Context,
	hospitalID string,
) ([]*model.Donation, error) {
	ds, err := s.store.ListDonationsByHospital(ctx, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("list hospital donations: %w", err)
	}
	return newestFirst(ds), nil
}

// ListPending is the hospital's verification queue.
func (s *Service) ListPending(
	ctx context.Context,
	hospitalID string,
) ([]*model.Donation, error) {
	ds, err := s.ListForHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(ds, (*model.Donation).IsVerified), nil
}

// Stats counts every recorded donation.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	ds, err := s.store.ListDonations(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("donation stats: %w", err)
	}
	return Tally(ds), nil
}

func newestFirst(ds []*model.Donation) []*model.Donation {
	slices.SortStableFunc(ds, func(a, b *model.Donation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return ds
}

func findDonor(ctx context.Context, st store.Store, id string) (*model.Donor, error) {
	u, err := st.FindUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("donor %s: %w", id, err)
	}
	d, ok := model.AsDonor(u)
	if !ok {
		return nil, fmt.Errorf("donor %s: %w", id, core.ErrNotFound)
	}
	return d, nil
}

func findHospital(ctx context.Context, st store.Store, id string) (*model.Hospital, error) {
	u, err := st.FindUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("hospital %s: %w", id, err)
	}
	h, ok := model.AsHospital(u)
	if !ok {
		return nil, fmt.Errorf("hospital %s: %w", id, core.ErrNotFound)
	}
	return h, nil
}

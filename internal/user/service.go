// AngelaMos | 2026
// service.go

package user

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/geo"
	"github.com/carterperez-dev/bloodlink/internal/ids"
	"github.com/carterperez-dev/bloodlink/internal/metrics"
	"github.com/carterperez-dev/bloodlink/internal/model"
	"github.com/carterperez-dev/bloodlink/internal/store"
)

// ErrEmailExists also matches core.ErrConflict.
var ErrEmailExists = fmt.Errorf("email already exists: %w", core.ErrConflict)

type RegisterDonorInput struct {
	Email      string
	Name       string
	BloodGroup string
	Phone      *string
	Location   *geo.Point
}

type RegisterHospitalInput struct {
	Email        string
	Name         string
	HospitalName string
	Address      string
	Location     *geo.Point
}

// DonorPatch leaves nil fields untouched. ClearLocation wins over Location.
type DonorPatch struct {
	Name           *string
	Phone          *string
	BloodGroup     *string
	Available      *bool
	LocationHidden *bool
	PhoneHidden    *bool
	Location       *geo.Point
	ClearLocation  bool
}

type HospitalPatch struct {
	Name          *string
	HospitalName  *string
	Address       *string
	Location      *geo.Point
	ClearLocation bool
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

func (s *Service) RegisterDonor(
	ctx context.Context,
	in RegisterDonorInput,
) (*model.Donor, error) {
	account, err := s.newAccount(in.Email, in.Name)
	if err != nil {
		return nil, err
	}

	group, err := model.ParseBloodGroup(in.BloodGroup)
	if err != nil {
		return nil, fmt.Errorf("register donor: %w",
			core.ValidationError("blood_group must be one of A+ A- B+ B- O+ O- AB+ AB-"))
	}

	if err := checkLocation(in.Location); err != nil {
		return nil, err
	}

	donor := model.NewDonor(account, group, normalizePhone(in.Phone))
	donor.Location = in.Location

	if err := s.insert(ctx, donor); err != nil {
		return nil, fmt.Errorf("register donor: %w", err)
	}

	s.metrics.IncRegistration(string(model.RoleDonor))
	s.logger.Info("donor registered",
		"user_id", donor.ID,
		"blood_group", donor.BloodGroup,
	)
	return donor, nil
}

func (s *Service) RegisterHospital(
	ctx context.Context,
	in RegisterHospitalInput,
) (*model.Hospital, error) {
	account, err := s.newAccount(in.Email, in.Name)
	if err != nil {
		return nil, err
	}

	hospitalName := strings.TrimSpace(in.HospitalName)
	if hospitalName == "" {
		return nil, fmt.Errorf("register hospital: %w",
			core.ValidationError("hospital_name is required"))
	}

	if err := checkLocation(in.Location); err != nil {
		return nil, err
	}

	hospital := model.NewHospital(account, hospitalName, strings.TrimSpace(in.Address))
	hospital.Location = in.Location

	if err := s.insert(ctx, hospital); err != nil {
		return nil, fmt.Errorf("register hospital: %w", err)
	}

	s.metrics.IncRegistration(string(model.RoleHospital))
	s.logger.Info("hospital registered", "user_id", hospital.ID)
	return hospital, nil
}

func (s *Service) newAccount(email, name string) (model.Account, error) {
	email = model.NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" || !strings.Contains(email, "@") {
		return model.Account{}, core.ValidationError("email must be a valid email")
	}
	if name == "" {
		return model.Account{}, core.ValidationError("name is required")
	}

	return model.Account{
		ID:        ids.NewUserID(),
		Email:     email,
		Name:      name,
		CreatedAt: s.now().UTC(),
	}, nil
}

// insert checks the email and writes in one transaction so two concurrent
// registrations cannot both claim it.
func (s *Service) insert(ctx context.Context, u model.User) error {
	err := s.store.InTx(ctx, func(tx store.Store) error {
		_, err := tx.FindUserByEmail(ctx, u.Base().Email)
		switch {
		case err == nil:
			return ErrEmailExists
		case !errors.Is(err, core.ErrNotFound):
			return err
		}
		return tx.UpsertUser(ctx, u)
	})
	if errors.Is(err, core.ErrDuplicateKey) {
		return ErrEmailExists
	}
	return err
}

func (s *Service) Get(ctx context.Context, id string) (model.User, error) {
	return s.store.FindUserByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return s.store.FindUserByEmail(ctx, model.NormalizeEmail(email))
}

// GetDonor returns NotFound for hospitals as well as unknown ids.
func (s *Service) GetDonor(ctx context.Context, id string) (*model.Donor, error) {
	u, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d, ok := model.AsDonor(u)
	if !ok {
		return nil, fmt.Errorf("get donor: %w", core.ErrNotFound)
	}
	return d, nil
}

func (s *Service) UpdateDonor(
	ctx context.Context,
	id string,
	patch DonorPatch,
) (*model.Donor, error) {
	if err := checkLocation(patch.Location); err != nil {
		return nil, err
	}

	var updated *model.Donor
	err := s.store.InTx(ctx, func(tx store.Store) error {
		u, err := tx.FindUserByID(ctx, id)
		if err != nil {
			return err
		}
		d, ok := model.AsDonor(u)
		if !ok {
			return core.ErrNotFound
		}

		if err := applyDonorPatch(d, patch); err != nil {
			return err
		}

		updated = d
		return tx.UpsertUser(ctx, d)
	})
	if err != nil {
		return nil, fmt.Errorf("update donor: %w", err)
	}

	return updated, nil
}

func applyDonorPatch(d *model.Donor, p DonorPatch) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return core.ValidationError("name must not be empty")
		}
		d.Name = name
	}
	if p.BloodGroup != nil {
		group, err := model.ParseBloodGroup(*p.BloodGroup)
		if err != nil {
			return core.ValidationError("blood_group must be one of A+ A- B+ B- O+ O- AB+ AB-")
		}
		d.BloodGroup = group
	}
	if p.Phone != nil {
		d.Phone = normalizePhone(p.Phone)
	}
	if p.Available != nil {
		d.Available = *p.Available
	}
	if p.LocationHidden != nil {
		d.LocationHidden = *p.LocationHidden
	}
	if p.PhoneHidden != nil {
		d.PhoneHidden = *p.PhoneHidden
	}

	switch {
	case p.ClearLocation:
		d.Location = nil
	case p.Location != nil:
		loc := *p.Location
		d.Location = &loc
	}
	return nil
}

func (s *Service) UpdateHospital(
	ctx context.Context,
	id string,
	patch HospitalPatch,
) (*model.Hospital, error) {
	if err := checkLocation(patch.Location); err != nil {
		return nil, err
	}

	var updated *model.Hospital
	err := s.store.InTx(ctx, func(tx store.Store) error {
		u, err := tx.FindUserByID(ctx, id)
		if err != nil {
			return err
		}
		h, ok := model.AsHospital(u)
		if !ok {
			return core.ErrNotFound
		}

		if p := patch.Name; p != nil {
			name := strings.TrimSpace(*p)
			if name == "" {
				return core.ValidationError("name must not be empty")
			}
			h.Name = name
		}
		if p := patch.HospitalName; p != nil {
			name := strings.TrimSpace(*p)
			if name == "" {
				return core.ValidationError("hospital_name must not be empty")
			}
			h.HospitalName = name
		}
		if patch.Address != nil {
			h.Address = strings.TrimSpace(*patch.Address)
		}

		switch {
		case patch.ClearLocation:
			h.Location = nil
		case patch.Location != nil:
			loc := *patch.Location
			h.Location = &loc
		}

		updated = h
		return tx.UpsertUser(ctx, h)
	})
	if err != nil {
		return nil, fmt.Errorf("update hospital: %w", err)
	}

	return updated, nil
}

// Leaderboard ranks donors with at least one verified donation by count,
// breaking ties by name. A limit <= 0 returns everyone.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]*model.Donor, error) {
	donors, err := s.store.ListDonors(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	ranked := slices.DeleteFunc(donors, func(d *model.Donor) bool {
		return d.DonationCount <= 0
	})
	slices.SortStableFunc(ranked, func(a, b *model.Donor) int {
		if c := cmp.Compare(b.DonationCount, a.DonationCount); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func checkLocation(p *geo.Point) error {
	if p != nil && !p.Valid() {
		return core.ValidationError("location is out of range")
	}
	return nil
}

func normalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	p := strings.TrimSpace(*phone)
	if p == "" {
		return nil
	}
	return &p
}

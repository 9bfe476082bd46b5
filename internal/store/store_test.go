// AngelaMos | 2026
// store_test.go

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/carterperez-dev/bloodlink/internal/config"
	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/geo"
	"github.com/carterperez-dev/bloodlink/internal/model"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type backend interface {
	Store
	SessionStore
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// StoreSuite runs the same contract against every backend.
type StoreSuite struct {
	suite.Suite
	newBackend func(t *testing.T) (backend, func(func() time.Time))
	store      backend
	setClock   func(func() time.Time)
	ctx        context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store, s.setClock = s.newBackend(s.T())
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{
		newBackend: func(_ *testing.T) (backend, func(func() time.Time)) {
			m := NewMemory()
			return m, func(now func() time.Time) { m.now = now }
		},
	})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{
		newBackend: func(t *testing.T) (backend, func(func() time.Time)) {
			ctx := context.Background()
			db, err := core.NewDatabase(ctx, core.DriverSQLite, config.DatabaseConfig{
				URL: ":memory:",
			})
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			st := NewSQL(db.DB)
			require.NoError(t, st.Migrate(ctx))
			return st, func(now func() time.Time) { st.now = now }
		},
	})
}

func (s *StoreSuite) donor(id, email string) *model.Donor {
	phone := "555-0100"
	d := model.NewDonor(model.Account{
		ID:        id,
		Email:     email,
		Name:      "Donor " + id,
		CreatedAt: baseTime,
	}, model.OPos, &phone)
	d.Location = &geo.Point{Lat: 40.7128, Lng: -74.0060}
	return d
}

func (s *StoreSuite) hospital(id, email string) *model.Hospital {
	h := model.NewHospital(model.Account{
		ID:        id,
		Email:     email,
		Name:      "Hospital " + id,
		CreatedAt: baseTime.Add(time.Minute),
	}, "General "+id, "1 Main St")
	h.Location = &geo.Point{Lat: 40.73, Lng: -73.99}
	return h
}

func (s *StoreSuite) TestUserRoundTrip() {
	s.Run("finds donor by id and email", func() {
		d := s.donor("d1", "jane@example.com")
		s.Require().NoError(s.store.UpsertUser(s.ctx, d))

		byID, err := s.store.FindUserByID(s.ctx, "d1")
		s.Require().NoError(err)
		got, ok := model.AsDonor(byID)
		s.Require().True(ok)
		s.Equal(model.OPos, got.BloodGroup)
		s.Equal("555-0100", *got.Phone)
		s.True(got.Available)
		s.True(got.PhoneHidden)
		s.Require().NotNil(got.Location)
		s.InDelta(40.7128, got.Location.Lat, 1e-9)
		s.True(baseTime.Equal(got.CreatedAt))

		byEmail, err := s.store.FindUserByEmail(s.ctx, "JANE@example.com")
		s.Require().NoError(err)
		s.Equal("d1", byEmail.Base().ID)
	})

	s.Run("hospital keeps its own fields", func() {
		h := s.hospital("h1", "er@example.com")
		s.Require().NoError(s.store.UpsertUser(s.ctx, h))

		u, err := s.store.FindUserByID(s.ctx, "h1")
		s.Require().NoError(err)
		got, ok := model.AsHospital(u)
		s.Require().True(ok)
		s.Equal("General h1", got.HospitalName)
		s.Equal("1 Main St", got.Address)
	})

	s.Run("absent records are not found", func() {
		_, err := s.store.FindUserByID(s.ctx, "missing")
		s.ErrorIs(err, core.ErrNotFound)

		_, err = s.store.FindUserByEmail(s.ctx, "nobody@example.com")
		s.ErrorIs(err, core.ErrNotFound)
	})
}

func (s *StoreSuite) TestUpsertReplacesAndEnforcesEmail() {
	d := s.donor("d1", "jane@example.com")
	s.Require().NoError(s.store.UpsertUser(s.ctx, d))

	d.RecordVerifiedDonation(baseTime.Add(time.Hour))
	d.Email = "jane.doe@example.com"
	d.Location = nil
	s.Require().NoError(s.store.UpsertUser(s.ctx, d))

	u, err := s.store.FindUserByID(s.ctx, "d1")
	s.Require().NoError(err)
	got, _ := model.AsDonor(u)
	s.Equal(1, got.DonationCount)
	s.Equal(1, got.BadgeLevel)
	s.True(got.Verified)
	s.Nil(got.Location)
	s.Require().NotNil(got.LastDonation)

	_, err = s.store.FindUserByEmail(s.ctx, "jane@example.com")
	s.ErrorIs(err, core.ErrNotFound, "old email is released")

	other := s.donor("d2", "jane.doe@example.com")
	err = s.store.UpsertUser(s.ctx, other)
	s.ErrorIs(err, core.ErrDuplicateKey)

	users, err := s.store.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 1)
}

func (s *StoreSuite) TestListDonorsSkipsHospitals() {
	s.Require().NoError(s.store.UpsertUser(s.ctx, s.donor("d1", "a@example.com")))
	s.Require().NoError(s.store.UpsertUser(s.ctx, s.hospital("h1", "h@example.com")))
	s.Require().NoError(s.store.UpsertUser(s.ctx, s.donor("d2", "b@example.com")))

	donors, err := s.store.ListDonors(s.ctx)
	s.Require().NoError(err)
	s.Len(donors, 2)

	users, err := s.store.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 3)
}

func (s *StoreSuite) TestDonations() {
	s.Require().NoError(s.store.UpsertUser(s.ctx, s.donor("d1", "a@example.com")))
	s.Require().NoError(s.store.UpsertUser(s.ctx, s.donor("d2", "b@example.com")))
	s.Require().NoError(s.store.UpsertUser(s.ctx, s.hospital("h1", "h@example.com")))

	first := &model.Donation{
		ID: "don1", DonorID: "d1", HospitalID: "h1",
		DonorName: "Donor d1", HospitalName: "General h1",
		Status: model.StatusPending, CreatedAt: baseTime,
	}
	second := &model.Donation{
		ID: "don2", DonorID: "d2", HospitalID: "h1",
		DonorName: "Donor d2", HospitalName: "General h1",
		Status: model.StatusPending, CreatedAt: baseTime.Add(time.Hour),
	}
	s.Require().NoError(s.store.UpsertDonation(s.ctx, first))
	s.Require().NoError(s.store.UpsertDonation(s.ctx, second))

	all, err := s.store.ListDonations(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)

	byDonor, err := s.store.ListDonationsByDonor(s.ctx, "d1")
	s.Require().NoError(err)
	s.Require().Len(byDonor, 1)
	s.Equal("don1", byDonor[0].ID)

	byHospital, err := s.store.ListDonationsByHospital(s.ctx, "h1")
	s.Require().NoError(err)
	s.Len(byHospital, 2)

	s.True(first.MarkVerified(baseTime.Add(2 * time.Hour)))
	s.Require().NoError(s.store.UpsertDonation(s.ctx, first))

	got, err := s.store.FindDonationByID(s.ctx, "don1")
	s.Require().NoError(err)
	s.True(got.IsVerified())
	s.Require().NotNil(got.VerifiedAt)
	s.True(baseTime.Add(2 * time.Hour).Equal(*got.VerifiedAt))

	stale := second.Clone()
	stale.ID = "don1"
	s.Require().NoError(s.store.UpsertDonation(s.ctx, stale))
	got, err = s.store.FindDonationByID(s.ctx, "don1")
	s.Require().NoError(err)
	s.True(got.IsVerified(), "a verified donation never reverts to pending")

	_, err = s.store.FindDonationByID(s.ctx, "nope")
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *StoreSuite) TestInTx() {
	s.Run("commits on success", func() {
		err := s.store.InTx(s.ctx, func(tx Store) error {
			return tx.UpsertUser(s.ctx, s.donor("tx1", "tx1@example.com"))
		})
		s.Require().NoError(err)

		_, err = s.store.FindUserByID(s.ctx, "tx1")
		s.NoError(err)
	})

	s.Run("rolls back every write on error", func() {
		boom := errors.New("boom")
		err := s.store.InTx(s.ctx, func(tx Store) error {
			if err := tx.UpsertUser(s.ctx, s.donor("tx2", "tx2@example.com")); err != nil {
				return err
			}
			u, err := tx.FindUserByID(s.ctx, "tx2")
			if err != nil {
				return err
			}
			s.Equal("tx2", u.Base().ID, "writes are visible inside the tx")
			return boom
		})
		s.ErrorIs(err, boom)

		_, err = s.store.FindUserByID(s.ctx, "tx2")
		s.ErrorIs(err, core.ErrNotFound)
	})

	s.Run("nested calls join the outer tx", func() {
		boom := errors.New("boom")
		err := s.store.InTx(s.ctx, func(tx Store) error {
			if err := tx.InTx(s.ctx, func(inner Store) error {
				return inner.UpsertUser(s.ctx, s.donor("tx3", "tx3@example.com"))
			}); err != nil {
				return err
			}
			return boom
		})
		s.ErrorIs(err, boom)

		_, err = s.store.FindUserByID(s.ctx, "tx3")
		s.ErrorIs(err, core.ErrNotFound)
	})
}

func (s *StoreSuite) TestSessions() {
	s.Require().NoError(s.store.UpsertUser(s.ctx, s.donor("d1", "a@example.com")))

	now := baseTime
	s.setClock(func() time.Time { return now })

	sess := &model.Session{
		ID:        "sess-1",
		UserID:    "d1",
		Role:      model.RoleDonor,
		CreatedAt: baseTime,
		ExpiresAt: baseTime.Add(time.Hour),
	}
	s.Require().NoError(s.store.PutSession(s.ctx, sess))

	got, err := s.store.GetSession(s.ctx, "sess-1")
	s.Require().NoError(err)
	s.Equal("d1", got.UserID)
	s.Equal(model.RoleDonor, got.Role)

	now = baseTime.Add(time.Hour)
	_, err = s.store.GetSession(s.ctx, "sess-1")
	s.ErrorIs(err, core.ErrNotFound, "expired sessions read as absent")

	now = baseTime
	s.Require().NoError(s.store.DeleteSession(s.ctx, "sess-1"))
	_, err = s.store.GetSession(s.ctx, "sess-1")
	s.ErrorIs(err, core.ErrNotFound)

	s.NoError(s.store.DeleteSession(s.ctx, "never-existed"))
}

func (s *StoreSuite) TestPurgeExpiredSessions() {
	s.Require().NoError(s.store.UpsertUser(s.ctx, s.donor("d1", "a@example.com")))

	now := baseTime
	s.setClock(func() time.Time { return now })

	for i, ttl := range []time.Duration{time.Minute, time.Hour, 2 * time.Hour} {
		s.Require().NoError(s.store.PutSession(s.ctx, &model.Session{
			ID:        fmt.Sprintf("sess-%d", i),
			UserID:    "d1",
			Role:      model.RoleDonor,
			CreatedAt: baseTime,
			ExpiresAt: baseTime.Add(ttl),
		}))
	}

	n, err := s.store.PurgeExpiredSessions(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	now = baseTime.Add(time.Hour)
	n, err = s.store.PurgeExpiredSessions(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	now = baseTime
	_, err = s.store.GetSession(s.ctx, "sess-0")
	s.ErrorIs(err, core.ErrNotFound, "purged sessions stay gone")
	_, err = s.store.GetSession(s.ctx, "sess-2")
	s.NoError(err)
}

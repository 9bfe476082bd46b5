// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/geo"
	"github.com/carterperez-dev/bloodlink/internal/model"
	"github.com/carterperez-dev/bloodlink/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	svc := NewService(st, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time {
		return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	}
	return svc, st
}

func ptr[T any](v T) *T { return &v }

func registerDonor(t *testing.T, svc *Service, email, name, group string) *model.Donor {
	t.Helper()
	d, err := svc.RegisterDonor(context.Background(), RegisterDonorInput{
		Email: email, Name: name, BloodGroup: group,
	})
	require.NoError(t, err)
	return d
}

func TestRegisterDonorDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	d, err := svc.RegisterDonor(context.Background(), RegisterDonorInput{
		Email:      "  Jane@Example.com ",
		Name:       " Jane Doe ",
		BloodGroup: "o+",
		Phone:      ptr("555-0199"),
		Location:   &geo.Point{Lat: 40.7, Lng: -74},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "jane@example.com", d.Email)
	assert.Equal(t, "Jane Doe", d.Name)
	assert.Equal(t, model.OPos, d.BloodGroup)
	assert.True(t, d.Available)
	assert.True(t, d.PhoneHidden)
	assert.False(t, d.LocationHidden)
	assert.Zero(t, d.DonationCount)
	assert.Zero(t, d.BadgeLevel)
	assert.False(t, d.Verified)

	got, err := svc.GetByEmail(context.Background(), "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.Base().ID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	registerDonor(t, svc, "dup@example.com", "First", "A+")

	_, err := svc.RegisterHospital(ctx, RegisterHospitalInput{
		Email: "DUP@example.com", Name: "Second", HospitalName: "General",
	})
	require.ErrorIs(t, err, ErrEmailExists)
	assert.ErrorIs(t, err, core.ErrConflict)

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "exactly one record per email")
}

func TestConcurrentRegistrationKeepsOneRecord(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RegisterDonor(ctx, RegisterDonorInput{
				Email: "race@example.com", Name: "Racer", BloodGroup: "B-",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrEmailExists)
	}
	assert.Equal(t, 1, succeeded)

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]RegisterDonorInput{
		"unknown blood group": {Email: "a@example.com", Name: "A", BloodGroup: "C+"},
		"missing blood group": {Email: "a@example.com", Name: "A"},
		"missing name":        {Email: "a@example.com", Name: "  ", BloodGroup: "A+"},
		"bad email":           {Email: "nope", Name: "A", BloodGroup: "A+"},
		"location out of range": {
			Email: "a@example.com", Name: "A", BloodGroup: "A+",
			Location: &geo.Point{Lat: 120, Lng: 0},
		},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.RegisterDonor(ctx, in)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}

	_, err := svc.RegisterHospital(ctx, RegisterHospitalInput{
		Email: "h@example.com", Name: "H",
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestUpdateDonorPartial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d := registerDonor(t, svc, "p@example.com", "Pat", "A-")

	updated, err := svc.UpdateDonor(ctx, d.ID, DonorPatch{
		Available:   ptr(false),
		PhoneHidden: ptr(false),
		Phone:       ptr("555-0142"),
		Location:    &geo.Point{Lat: 51.5, Lng: -0.12},
	})
	require.NoError(t, err)
	assert.False(t, updated.Available)
	assert.False(t, updated.PhoneHidden)
	assert.Equal(t, "555-0142", *updated.Phone)
	assert.Equal(t, "Pat", updated.Name, "untouched fields survive")
	assert.Equal(t, model.ANeg, updated.BloodGroup)

	cleared, err := svc.UpdateDonor(ctx, d.ID, DonorPatch{
		ClearLocation: true,
		Phone:         ptr(""),
	})
	require.NoError(t, err)
	assert.Nil(t, cleared.Location)
	assert.Nil(t, cleared.Phone)

	_, err = svc.UpdateDonor(ctx, d.ID, DonorPatch{BloodGroup: ptr("Z")})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestUpdateWrongRoleIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	h, err := svc.RegisterHospital(ctx, RegisterHospitalInput{
		Email: "h@example.com", Name: "Admin", HospitalName: "General",
	})
	require.NoError(t, err)
	d := registerDonor(t, svc, "d@example.com", "Dee", "O-")

	_, err = svc.UpdateDonor(ctx, h.ID, DonorPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.UpdateHospital(ctx, d.ID, HospitalPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.UpdateHospital(ctx, "ghost", HospitalPatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	updated, err := svc.UpdateHospital(ctx, h.ID, HospitalPatch{
		Address:  ptr("12 Clinic Rd"),
		Location: &geo.Point{Lat: 1, Lng: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "12 Clinic Rd", updated.Address)
	assert.Equal(t, "General", updated.HospitalName)
	require.NotNil(t, updated.Location)
}

func TestLeaderboard(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	counts := map[string]int{"Zed": 3, "Amy": 3, "Bob": 7, "None": 0}
	for name, n := range counts {
		d := registerDonor(t, svc, name+"@example.com", name, "AB+")
		for range n {
			d.RecordVerifiedDonation(svc.now())
		}
		require.NoError(t, st.UpsertUser(ctx, d))
	}

	ranked, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)

	names := make([]string, 0, len(ranked))
	for _, d := range ranked {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Bob", "Amy", "Zed"}, names)

	top, err := svc.Leaderboard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Bob", top[0].Name)
}

func TestDonorDetailProjection(t *testing.T) {
	d := model.NewDonor(model.Account{ID: "d1", Name: "Dee"}, model.OPos, ptr("555-0100"))
	d.Location = &geo.Point{Lat: 1, Lng: 1}

	detail := ToDonorDetail(d)
	assert.Nil(t, detail.Phone, "phone hidden by default")
	assert.NotNil(t, detail.Location)

	d.PhoneHidden = false
	d.LocationHidden = true
	detail = ToDonorDetail(d)
	require.NotNil(t, detail.Phone)
	assert.Equal(t, "555-0100", *detail.Phone)
	assert.Nil(t, detail.Location)
}

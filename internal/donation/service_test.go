// AngelaMos | 2026
// service_test.go

package donation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/metrics"
	"github.com/carterperez-dev/bloodlink/internal/model"
	"github.com/carterperez-dev/bloodlink/internal/store"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type env struct {
	svc      *Service
	store    store.Store
	metrics  *metrics.Metrics
	clock    time.Time
	donor    *model.Donor
	hospital *model.Hospital
}

func newEnv(t *testing.T, st store.Store) *env {
	t.Helper()
	ctx := context.Background()

	e := &env{
		store:   st,
		metrics: metrics.New(prometheus.NewRegistry()),
		clock:   t0,
	}
	e.svc = NewService(st, e.metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.svc.now = func() time.Time {
		e.clock = e.clock.Add(time.Minute)
		return e.clock
	}

	e.donor = model.NewDonor(model.Account{
		ID: "donor-1", Email: "d@example.com", Name: "John Smith", CreatedAt: t0,
	}, model.OPos, nil)
	e.hospital = model.NewHospital(model.Account{
		ID: "hosp-1", Email: "h@example.com", Name: "Admin", CreatedAt: t0,
	}, "City General", "1 Main St")

	require.NoError(t, st.UpsertUser(ctx, e.donor))
	require.NoError(t, st.UpsertUser(ctx, e.hospital))
	return e
}

func (e *env) donorState(t *testing.T) *model.Donor {
	t.Helper()
	u, err := e.store.FindUserByID(context.Background(), e.donor.ID)
	require.NoError(t, err)
	d, ok := model.AsDonor(u)
	require.True(t, ok)
	return d
}

func TestCreateThenVerify(t *testing.T) {
	e := newEnv(t, store.NewMemory())
	ctx := context.Background()

	created, err := e.svc.Create(ctx, e.donor.ID, e.hospital.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Nil(t, created.VerifiedAt)
	assert.Equal(t, "John Smith", created.DonorName)
	assert.Equal(t, "City General", created.HospitalName)
	assert.Zero(t, e.donorState(t).DonationCount, "pending donations do not count")

	verified, err := e.svc.Verify(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusVerified, verified.Status)
	require.NotNil(t, verified.VerifiedAt)

	d := e.donorState(t)
	assert.Equal(t, 1, d.DonationCount)
	assert.Equal(t, 1, d.BadgeLevel)
	assert.True(t, d.Verified)
	require.NotNil(t, d.LastDonation)
	assert.True(t, d.LastDonation.Equal(*verified.VerifiedAt))

	assert.InDelta(t, 1, testutil.ToFloat64(e.metrics.DonationsCreated), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(e.metrics.DonationsVerified), 0)
}

func TestVerifyIsIdempotent(t *testing.T) {
	e := newEnv(t, store.NewMemory())
	ctx := context.Background()

	var last *model.Donation
	for range 5 {
		d, err := e.svc.Create(ctx, e.donor.ID, e.hospital.ID)
		require.NoError(t, err)
		_, err = e.svc.Verify(ctx, d.ID)
		require.NoError(t, err)
		last = d
	}
	require.Equal(t, 5, e.donorState(t).DonationCount)

	first, err := e.store.FindDonationByID(ctx, last.ID)
	require.NoError(t, err)

	again, err := e.svc.Verify(ctx, last.ID)
	require.NoError(t, err)
	assert.True(t, first.VerifiedAt.Equal(*again.VerifiedAt), "verified_at is set once")

	d := e.donorState(t)
	assert.Equal(t, 5, d.DonationCount)
	assert.Equal(t, 3, d.BadgeLevel)
	assert.InDelta(t, 5, testutil.ToFloat64(e.metrics.DonationsVerified), 0)
}

func TestFifthDonationReachesHero(t *testing.T) {
	e := newEnv(t, store.NewMemory())
	ctx := context.Background()

	for range 4 {
		e.donor.RecordVerifiedDonation(t0)
	}
	require.NoError(t, e.store.UpsertUser(ctx, e.donor))
	require.Equal(t, 2, e.donorState(t).BadgeLevel)

	d, err := e.svc.Create(ctx, e.donor.ID, e.hospital.ID)
	require.NoError(t, err)
	_, err = e.svc.Verify(ctx, d.ID)
	require.NoError(t, err)

	got := e.donorState(t)
	assert.Equal(t, 5, got.DonationCount)
	assert.Equal(t, 3, got.BadgeLevel)
	assert.Equal(t, "Hero", got.Badge().Name)
}

func TestCreateRequiresDonorAndHospital(t *testing.T) {
	e := newEnv(t, store.NewMemory())
	ctx := context.Background()

	_, err := e.svc.Create(ctx, "ghost", e.hospital.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = e.svc.Create(ctx, e.donor.ID, "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = e.svc.Create(ctx, e.hospital.ID, e.hospital.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "a hospital is not a donor")

	_, err = e.svc.Create(ctx, e.donor.ID, e.donor.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "a donor is not a hospital")

	all, err := e.store.ListDonations(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = e.svc.Verify(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestVerifyAsOtherHospitalForbidden(t *testing.T) {
	e := newEnv(t, store.NewMemory())
	ctx := context.Background()

	d, err := e.svc.Create(ctx, e.donor.ID, e.hospital.ID)
	require.NoError(t, err)

	_, err = e.svc.VerifyAsHospital(ctx, "hosp-2", d.ID)
	require.ErrorIs(t, err, core.ErrForbidden)
	assert.Zero(t, e.donorState(t).DonationCount)

	_, err = e.svc.VerifyAsHospital(ctx, e.hospital.ID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.donorState(t).DonationCount)
}

// failingStore breaks the donor write inside a transaction.
type failingStore struct {
	store.Store
}

var errWrite = errors.New("disk full")

func (f failingStore) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.InTx(ctx, func(tx store.Store) error {
		return fn(failingTx{tx})
	})
}

type failingTx struct {
	store.Store
}

func (failingTx) UpsertUser(context.Context, model.User) error {
	return errWrite
}

func TestVerifyRollsBackOnFailure(t *testing.T) {
	mem := store.NewMemory()
	e := newEnv(t, mem)
	ctx := context.Background()

	d, err := e.svc.Create(ctx, e.donor.ID, e.hospital.ID)
	require.NoError(t, err)

	e.svc.store = failingStore{mem}
	_, err = e.svc.Verify(ctx, d.ID)
	require.ErrorIs(t, err, errWrite)

	stored, err := mem.FindDonationByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Nil(t, stored.VerifiedAt)
	assert.Zero(t, e.donorState(t).DonationCount)
	assert.InDelta(t, 0, testutil.ToFloat64(e.metrics.DonationsVerified), 0)
}

func TestListsNewestFirst(t *testing.T) {
	e := newEnv(t, store.NewMemory())
	ctx := context.Background()

	first, err := e.svc.Create(ctx, e.donor.ID, e.hospital.ID)
	require.NoError(t, err)
	second, err := e.svc.Create(ctx, e.donor.ID, e.hospital.ID)
	require.NoError(t, err)
	third, err := e.svc.Create(ctx, e.donor.ID, e.hospital.ID)
	require.NoError(t, err)

	_, err = e.svc.Verify(ctx, second.ID)
	require.NoError(t, err)

	byDonor, err := e.svc.ListForDonor(ctx, e.donor.ID)
	require.NoError(t, err)
	require.Len(t, byDonor, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID},
		[]string{byDonor[0].ID, byDonor[1].ID, byDonor[2].ID})

	byHospital, err := e.svc.ListForHospital(ctx, e.hospital.ID)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 2, Verified: 1}, Tally(byHospital))

	pending, err := e.svc.ListPending(ctx, e.hospital.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, third.ID, pending[0].ID)
	assert.Equal(t, first.ID, pending[1].ID)

	stats, err := e.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 2, Verified: 1}, stats)

	none, err := e.svc.ListForDonor(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

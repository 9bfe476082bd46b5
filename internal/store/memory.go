// AngelaMos | 2026
// memory.go

package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/model"
)

// Memory keeps everything in process. Records are cloned on the way in
// and out so callers only change state through Upsert.
type Memory struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time
}

type memState struct {
	users         map[string]model.User
	userOrder     []string
	emails        map[string]string
	donations     map[string]*model.Donation
	donationOrder []string
	sessions      map[string]*model.Session
}

func NewMemory() *Memory {
	return &Memory{
		state: newMemState(),
		now:   time.Now,
	}
}

func newMemState() *memState {
	return &memState{
		users:     make(map[string]model.User),
		emails:    make(map[string]string),
		donations: make(map[string]*model.Donation),
		sessions:  make(map[string]*model.Session),
	}
}

// clone copies the maps; the record values are immutable once stored
// because every write replaces them with a fresh clone.
func (s *memState) clone() *memState {
	return &memState{
		users:         maps.Clone(s.users),
		userOrder:     slices.Clone(s.userOrder),
		emails:        maps.Clone(s.emails),
		donations:     maps.Clone(s.donations),
		donationOrder: slices.Clone(s.donationOrder),
		sessions:      maps.Clone(s.sessions),
	}
}

func (m *Memory) ListUsers(_ context.Context) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listUsers(), nil
}

func (m *Memory) ListDonors(_ context.Context) ([]*model.Donor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listDonors(), nil
}

func (m *Memory) FindUserByEmail(
	_ context.Context,
	email string,
) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.findUserByEmail(email)
}

func (m *Memory) FindUserByID(_ context.Context, id string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.findUserByID(id)
}

func (m *Memory) UpsertUser(_ context.Context, user model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.upsertUser(user)
}

func (m *Memory) ListDonations(_ context.Context) ([]*model.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listDonations(nil), nil
}

func (m *Memory) ListDonationsByDonor(
	_ context.Context,
	donorID string,
) ([]*model.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listDonations(func(d *model.Donation) bool {
		return d.DonorID == donorID
	}), nil
}

func (m *Memory) ListDonationsByHospital(
	_ context.Context,
	hospitalID string,
) ([]*model.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listDonations(func(d *model.Donation) bool {
		return d.HospitalID == hospitalID
	}), nil
}

func (m *Memory) FindDonationByID(
	_ context.Context,
	id string,
) (*model.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.findDonationByID(id)
}

func (m *Memory) UpsertDonation(_ context.Context, donation *model.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.upsertDonation(donation)
	return nil
}

// InTx holds the write lock for the whole of fn and swaps in the staged
// state only when fn succeeds.
func (m *Memory) InTx(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.state.clone()
	if err := fn(&memTx{state: staged}); err != nil {
		return err
	}

	m.state = staged
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.state.sessions[id]
	if !ok || sess.IsExpired(m.now()) {
		return nil, fmt.Errorf("get session: %w", core.ErrNotFound)
	}

	c := *sess
	return &c, nil
}

func (m *Memory) PutSession(_ context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *session
	m.state.sessions[session.ID] = &c
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.state.sessions, id)
	return nil
}

// PurgeExpiredSessions drops sessions past their expiry and returns how
// many were removed.
func (m *Memory) PurgeExpiredSessions(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int64
	for id, sess := range m.state.sessions {
		if sess.IsExpired(now) {
			delete(m.state.sessions, id)
			n++
		}
	}
	return n, nil
}

// memTx is the view handed to InTx callbacks. The caller already holds
// the write lock, so it touches the staged state directly.
type memTx struct {
	state *memState
}

func (t *memTx) ListUsers(_ context.Context) ([]model.User, error) {
	return t.state.listUsers(), nil
}

func (t *memTx) ListDonors(_ context.Context) ([]*model.Donor, error) {
	return t.state.listDonors(), nil
}

func (t *memTx) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	return t.state.findUserByEmail(email)
}

func (t *memTx) FindUserByID(_ context.Context, id string) (model.User, error) {
	return t.state.findUserByID(id)
}

func (t *memTx) UpsertUser(_ context.Context, user model.User) error {
	return t.state.upsertUser(user)
}

func (t *memTx) ListDonations(_ context.Context) ([]*model.Donation, error) {
	return t.state.listDonations(nil), nil
}

func (t *memTx) ListDonationsByDonor(
	_ context.Context,
	donorID string,
) ([]*model.Donation, error) {
	return t.state.listDonations(func(d *model.Donation) bool {
		return d.DonorID == donorID
	}), nil
}

func (t *memTx) ListDonationsByHospital(
	_ context.Context,
	hospitalID string,
) ([]*model.Donation, error) {
	return t.state.listDonations(func(d *model.Donation) bool {
		return d.HospitalID == hospitalID
	}), nil
}

func (t *memTx) FindDonationByID(_ context.Context, id string) (*model.Donation, error) {
	return t.state.findDonationByID(id)
}

func (t *memTx) UpsertDonation(_ context.Context, donation *model.Donation) error {
	t.state.upsertDonation(donation)
	return nil
}

func (t *memTx) InTx(_ context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (s *memState) listUsers() []model.User {
	out := make([]model.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, model.CloneUser(s.users[id]))
	}
	return out
}

func (s *memState) listDonors() []*model.Donor {
	out := make([]*model.Donor, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		if d, ok := model.AsDonor(s.users[id]); ok {
			out = append(out, d.Clone())
		}
	}
	return out
}

func (s *memState) findUserByEmail(email string) (model.User, error) {
	id, ok := s.emails[model.NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("find user by email: %w", core.ErrNotFound)
	}
	return model.CloneUser(s.users[id]), nil
}

func (s *memState) findUserByID(id string) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("find user: %w", core.ErrNotFound)
	}
	return model.CloneUser(u), nil
}

func (s *memState) upsertUser(user model.User) error {
	base := user.Base()
	email := model.NormalizeEmail(base.Email)

	if owner, taken := s.emails[email]; taken && owner != base.ID {
		return fmt.Errorf("upsert user: %w", core.ErrDuplicateKey)
	}

	if prev, exists := s.users[base.ID]; exists {
		delete(s.emails, model.NormalizeEmail(prev.Base().Email))
	} else {
		s.userOrder = append(s.userOrder, base.ID)
	}

	s.users[base.ID] = model.CloneUser(user)
	s.emails[email] = base.ID
	return nil
}

func (s *memState) listDonations(keep func(*model.Donation) bool) []*model.Donation {
	out := make([]*model.Donation, 0)
	for _, id := range s.donationOrder {
		d := s.donations[id]
		if keep == nil || keep(d) {
			out = append(out, d.Clone())
		}
	}
	return out
}

func (s *memState) findDonationByID(id string) (*model.Donation, error) {
	d, ok := s.donations[id]
	if !ok {
		return nil, fmt.Errorf("find donation: %w", core.ErrNotFound)
	}
	return d.Clone(), nil
}

// upsertDonation never moves a verified donation back to pending.
func (s *memState) upsertDonation(donation *model.Donation) {
	prev, exists := s.donations[donation.ID]
	if !exists {
		s.donationOrder = append(s.donationOrder, donation.ID)
	} else if prev.IsVerified() {
		return
	}
	s.donations[donation.ID] = donation.Clone()
}

var (
	_ Store        = (*Memory)(nil)
	_ Store        = (*memTx)(nil)
	_ SessionStore = (*Memory)(nil)
)

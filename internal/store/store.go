// AngelaMos | 2026
// store.go

// Package store persists users, donations and login sessions. Every backend
// returns core.ErrNotFound for absent records and core.ErrDuplicateKey when
// an upsert would reuse another user's email.
package store

import (
	"context"

	"github.com/carterperez-dev/bloodlink/internal/model"
)

type Store interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	ListDonors(ctx context.Context) ([]*model.Donor, error)
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	FindUserByID(ctx context.Context, id string) (model.User, error)
	// UpsertUser replaces the record with the same ID or inserts it.
	UpsertUser(ctx context.Context, user model.User) error

	ListDonations(ctx context.Context) ([]*model.Donation, error)
	ListDonationsByDonor(
		ctx context.Context,
		donorID string,
	) ([]*model.Donation, error)
	ListDonationsByHospital(
		ctx context.Context,
		hospitalID string,
	) ([]*model.Donation, error)
	FindDonationByID(ctx context.Context, id string) (*model.Donation, error)
	UpsertDonation(ctx context.Context, donation *model.Donation) error

	// InTx runs fn against a transactional view. Returning an error
	// discards every write made through that view.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// SessionStore replaces the single "current user" slot with one record
// per login. Expired sessions read as not found.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*model.Session, error)
	PutSession(ctx context.Context, session *model.Session) error
	DeleteSession(ctx context.Context, id string) error
}

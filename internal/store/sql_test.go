// AngelaMos | 2026
// sql_test.go

package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/model"
)

func newPostgresMock(t *testing.T) (*SQL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewSQL(sqlx.NewDb(db, core.DriverPgx)), mock
}

func TestPostgresUniqueViolationMapsToDuplicateKey(t *testing.T) {
	st, mock := newPostgresMock(t)

	mock.ExpectExec(`INSERT INTO users .* ON CONFLICT \(id\) DO UPDATE`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	d := model.NewDonor(model.Account{
		ID: "d1", Email: "jane@example.com", Name: "Jane", CreatedAt: baseTime,
	}, model.APos, nil)

	err := st.UpsertUser(context.Background(), d)
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueriesUseDollarPlaceholders(t *testing.T) {
	st, mock := newPostgresMock(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := st.FindUserByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListDonorsMapsRows(t *testing.T) {
	st, mock := newPostgresMock(t)

	cols := []string{
		"id", "email", "name", "role", "created_at", "blood_group", "phone",
		"available", "donation_count", "badge_level", "verified",
		"last_donation", "lat", "lng", "location_hidden", "phone_hidden",
		"hospital_name", "address",
	}
	rows := sqlmock.NewRows(cols).AddRow(
		"d1", "jane@example.com", "Jane", "donor", baseTime, "O+", nil,
		true, 5, 5, true, baseTime, 40.7128, -74.0060, false, true, "", "",
	)
	mock.ExpectQuery(`SELECT .* FROM users\s+WHERE role = \$1`).
		WithArgs("donor").
		WillReturnRows(rows)

	donors, err := st.ListDonors(context.Background())
	require.NoError(t, err)
	require.Len(t, donors, 1)

	d := donors[0]
	assert.Equal(t, model.OPos, d.BloodGroup)
	assert.Nil(t, d.Phone)
	assert.Equal(t, 5, d.DonationCount)
	require.NotNil(t, d.Location)
	assert.InDelta(t, -74.0060, d.Location.Lng, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInTxRollsBack(t *testing.T) {
	st, mock := newPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO donations`).
		WillReturnError(&pgconn.PgError{Code: "23503", Message: "fk violation"})
	mock.ExpectRollback()

	err := st.InTx(context.Background(), func(tx Store) error {
		return tx.UpsertDonation(context.Background(), &model.Donation{
			ID: "don1", DonorID: "d1", HospitalID: "h1",
			Status: model.StatusPending, CreatedAt: baseTime,
		})
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

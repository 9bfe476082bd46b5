// AngelaMos | 2026
// sql.go

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/geo"
	"github.com/carterperez-dev/bloodlink/internal/model"
)

// SQL backs the store with postgres (pgx) or sqlite. Queries are written
// with ? placeholders and rebound for the connection's driver.
type SQL struct {
	db  *sqlx.DB
	q   core.DBTX
	now func() time.Time
}

func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db, q: db, now: time.Now}
}

const userColumns = `id, email, name, role, created_at, blood_group, phone,
	available, donation_count, badge_level, verified, last_donation, lat, lng,
	location_hidden, phone_hidden, hospital_name, address`

const donationColumns = `id, donor_id, hospital_id, donor_name, hospital_name,
	status, created_at, verified_at`

type userRow struct {
	ID             string     `db:"id"`
	Email          string     `db:"email"`
	Name           string     `db:"name"`
	Role           string     `db:"role"`
	CreatedAt      time.Time  `db:"created_at"`
	BloodGroup     string     `db:"blood_group"`
	Phone          *string    `db:"phone"`
	Available      bool       `db:"available"`
	DonationCount  int        `db:"donation_count"`
	BadgeLevel     int        `db:"badge_level"`
	Verified       bool       `db:"verified"`
	LastDonation   *time.Time `db:"last_donation"`
	Lat            *float64   `db:"lat"`
	Lng            *float64   `db:"lng"`
	LocationHidden bool       `db:"location_hidden"`
	PhoneHidden    bool       `db:"phone_hidden"`
	HospitalName   string     `db:"hospital_name"`
	Address        string     `db:"address"`
}

func rowFromUser(u model.User) (userRow, error) {
	base := u.Base()
	row := userRow{
		ID:        base.ID,
		Email:     model.NormalizeEmail(base.Email),
		Name:      base.Name,
		Role:      string(u.Role()),
		CreatedAt: base.CreatedAt.UTC(),
	}

	var loc *geo.Point
	switch v := u.(type) {
	case *model.Donor:
		row.BloodGroup = string(v.BloodGroup)
		row.Phone = v.Phone
		row.Available = v.Available
		row.DonationCount = v.DonationCount
		row.BadgeLevel = v.BadgeLevel
		row.Verified = v.Verified
		if v.LastDonation != nil {
			t := v.LastDonation.UTC()
			row.LastDonation = &t
		}
		row.LocationHidden = v.LocationHidden
		row.PhoneHidden = v.PhoneHidden
		loc = v.Location
	case *model.Hospital:
		row.HospitalName = v.HospitalName
		row.Address = v.Address
		loc = v.Location
	default:
		return row, fmt.Errorf("unknown user variant %T: %w", u, core.ErrInvalidInput)
	}

	if loc != nil {
		lat, lng := loc.Lat, loc.Lng
		row.Lat, row.Lng = &lat, &lng
	}
	return row, nil
}

func (r userRow) toUser() (model.User, error) {
	account := model.Account{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
	}

	var loc *geo.Point
	if r.Lat != nil && r.Lng != nil {
		loc = &geo.Point{Lat: *r.Lat, Lng: *r.Lng}
	}

	switch model.Role(r.Role) {
	case model.RoleDonor:
		return &model.Donor{
			Account:        account,
			BloodGroup:     model.BloodGroup(r.BloodGroup),
			Phone:          r.Phone,
			Available:      r.Available,
			DonationCount:  r.DonationCount,
			BadgeLevel:     r.BadgeLevel,
			Verified:       r.Verified,
			LastDonation:   r.LastDonation,
			Location:       loc,
			LocationHidden: r.LocationHidden,
			PhoneHidden:    r.PhoneHidden,
		}, nil
	case model.RoleHospital:
		return &model.Hospital{
			Account:      account,
			HospitalName: r.HospitalName,
			Address:      r.Address,
			Location:     loc,
		}, nil
	default:
		return nil, fmt.Errorf("user %s has unknown role %q", r.ID, r.Role)
	}
}

type donationRow struct {
	ID           string     `db:"id"`
	DonorID      string     `db:"donor_id"`
	HospitalID   string     `db:"hospital_id"`
	DonorName    string     `db:"donor_name"`
	HospitalName string     `db:"hospital_name"`
	Status       string     `db:"status"`
	CreatedAt    time.Time  `db:"created_at"`
	VerifiedAt   *time.Time `db:"verified_at"`
}

func rowFromDonation(d *model.Donation) donationRow {
	row := donationRow{
		ID:           d.ID,
		DonorID:      d.DonorID,
		HospitalID:   d.HospitalID,
		DonorName:    d.DonorName,
		HospitalName: d.HospitalName,
		Status:       string(d.Status),
		CreatedAt:    d.CreatedAt.UTC(),
	}
	if d.VerifiedAt != nil {
		t := d.VerifiedAt.UTC()
		row.VerifiedAt = &t
	}
	return row
}

func (r donationRow) toDonation() *model.Donation {
	return &model.Donation{
		ID:           r.ID,
		DonorID:      r.DonorID,
		HospitalID:   r.HospitalID,
		DonorName:    r.DonorName,
		HospitalName: r.HospitalName,
		Status:       model.DonationStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		VerifiedAt:   r.VerifiedAt,
	}
}

func (s *SQL) ListUsers(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`

	var rows []userRow
	if err := s.q.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]model.User, 0, len(rows))
	for _, row := range rows {
		u, err := row.toUser()
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *SQL) ListDonors(ctx context.Context) ([]*model.Donor, error) {
	query := s.q.Rebind(`SELECT ` + userColumns + `
		FROM users
		WHERE role = ?
		ORDER BY created_at, id`)

	var rows []userRow
	if err := s.q.SelectContext(ctx, &rows, query, string(model.RoleDonor)); err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}

	donors := make([]*model.Donor, 0, len(rows))
	for _, row := range rows {
		u, err := row.toUser()
		if err != nil {
			return nil, fmt.Errorf("list donors: %w", err)
		}
		if d, ok := model.AsDonor(u); ok {
			donors = append(donors, d)
		}
	}
	return donors, nil
}

func (s *SQL) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.findUser(ctx, "find user by email", "email",
		model.NormalizeEmail(email))
}

func (s *SQL) FindUserByID(ctx context.Context, id string) (model.User, error) {
	return s.findUser(ctx, "find user", "id", id)
}

func (s *SQL) findUser(
	ctx context.Context,
	op, column, value string,
) (model.User, error) {
	query := s.q.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` +
		column + ` = ?` + s.forUpdate())

	var row userRow
	err := s.q.GetContext(ctx, &row, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return row.toUser()
}

func (s *SQL) UpsertUser(ctx context.Context, user model.User) error {
	row, err := rowFromUser(user)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (:id, :email, :name, :role, :created_at, :blood_group, :phone,
			:available, :donation_count, :badge_level, :verified,
			:last_donation, :lat, :lng, :location_hidden, :phone_hidden,
			:hospital_name, :address)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			blood_group = excluded.blood_group,
			phone = excluded.phone,
			available = excluded.available,
			donation_count = excluded.donation_count,
			badge_level = excluded.badge_level,
			verified = excluded.verified,
			last_donation = excluded.last_donation,
			lat = excluded.lat,
			lng = excluded.lng,
			location_hidden = excluded.location_hidden,
			phone_hidden = excluded.phone_hidden,
			hospital_name = excluded.hospital_name,
			address = excluded.address`

	if _, err := sqlx.NamedExecContext(ctx, s.q, query, row); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("upsert user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *SQL) ListDonations(ctx context.Context) ([]*model.Donation, error) {
	return s.listDonations(ctx, "list donations", "", "")
}

func (s *SQL) ListDonationsByDonor(
	ctx context.Context,
	donorID string,
) ([]*model.Donation, error) {
	return s.listDonations(ctx, "list donations by donor", "donor_id", donorID)
}

func (s *SQL) ListDonationsByHospital(
	ctx context.Context,
	hospitalID string,
) ([]*model.Donation, error) {
	return s.listDonations(ctx, "list donations by hospital", "hospital_id",
		hospitalID)
}

func (s *SQL) listDonations(
	ctx context.Context,
	op, column, value string,
) ([]*model.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations`
	var args []any
	if column != "" {
		query += ` WHERE ` + column + ` = ?`
		args = append(args, value)
	}
	query = s.q.Rebind(query + ` ORDER BY created_at, id`)

	var rows []donationRow
	if err := s.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]*model.Donation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDonation())
	}
	return out, nil
}

func (s *SQL) FindDonationByID(ctx context.Context, id string) (*model.Donation, error) {
	query := s.q.Rebind(`SELECT ` + donationColumns +
		` FROM donations WHERE id = ?` + s.forUpdate())

	var row donationRow
	err := s.q.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find donation: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find donation: %w", err)
	}

	return row.toDonation(), nil
}

func (s *SQL) UpsertDonation(ctx context.Context, donation *model.Donation) error {
	query := `
		INSERT INTO donations (` + donationColumns + `)
		VALUES (:id, :donor_id, :hospital_id, :donor_name, :hospital_name,
			:status, :created_at, :verified_at)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			verified_at = excluded.verified_at
		WHERE donations.status = 'pending'`

	if _, err := sqlx.NamedExecContext(ctx, s.q, query, rowFromDonation(donation)); err != nil {
		return fmt.Errorf("upsert donation: %w", err)
	}
	return nil
}

// InTx opens a database transaction unless this view already runs inside
// one, in which case fn joins it.
func (s *SQL) InTx(ctx context.Context, fn func(tx Store) error) error {
	if _, inTx := s.q.(*sqlx.Tx); inTx {
		return fn(s)
	}

	return core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&SQL{db: s.db, q: tx, now: s.now})
	})
}

// forUpdate row-locks single-record reads made inside a postgres
// transaction, so read-modify-write paths such as verification serialize on
// the rows they touch. SQLite runs on one connection and needs no lock.
func (s *SQL) forUpdate() string {
	if _, inTx := s.q.(*sqlx.Tx); inTx && s.db.DriverName() == core.DriverPgx {
		return ` FOR UPDATE`
	}
	return ""
}

type sessionRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (s *SQL) GetSession(ctx context.Context, id string) (*model.Session, error) {
	query := s.q.Rebind(`
		SELECT id, user_id, role, created_at, expires_at
		FROM sessions
		WHERE id = ?`)

	var row sessionRow
	err := s.q.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	sess := &model.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		Role:      model.Role(row.Role),
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}
	if sess.IsExpired(s.now()) {
		return nil, fmt.Errorf("get session: %w", core.ErrNotFound)
	}
	return sess, nil
}

func (s *SQL) PutSession(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, role, created_at, expires_at)
		VALUES (:id, :user_id, :role, :created_at, :expires_at)
		ON CONFLICT (id) DO UPDATE SET expires_at = excluded.expires_at`

	row := sessionRow{
		ID:        session.ID,
		UserID:    session.UserID,
		Role:      string(session.Role),
		CreatedAt: session.CreatedAt.UTC(),
		ExpiresAt: session.ExpiresAt.UTC(),
	}
	if _, err := sqlx.NamedExecContext(ctx, s.q, query, row); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *SQL) DeleteSession(ctx context.Context, id string) error {
	query := s.q.Rebind(`DELETE FROM sessions WHERE id = ?`)
	if _, err := s.q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes sessions past their expiry and returns how
// many were dropped.
func (s *SQL) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	query := s.q.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`)
	res, err := s.q.ExecContext(ctx, query, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

var (
	_ Store        = (*SQL)(nil)
	_ SessionStore = (*SQL)(nil)
)

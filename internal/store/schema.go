// AngelaMos | 2026
// schema.go

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/bloodlink/internal/core"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	email           TEXT NOT NULL UNIQUE,
	name            TEXT NOT NULL,
	role            TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	blood_group     TEXT NOT NULL DEFAULT '',
	phone           TEXT,
	available       BOOLEAN NOT NULL DEFAULT FALSE,
	donation_count  INTEGER NOT NULL DEFAULT 0,
	badge_level     INTEGER NOT NULL DEFAULT 0,
	verified        BOOLEAN NOT NULL DEFAULT FALSE,
	last_donation   TIMESTAMPTZ,
	lat             DOUBLE PRECISION,
	lng             DOUBLE PRECISION,
	location_hidden BOOLEAN NOT NULL DEFAULT FALSE,
	phone_hidden    BOOLEAN NOT NULL DEFAULT TRUE,
	hospital_name   TEXT NOT NULL DEFAULT '',
	address         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_users_role ON users (role);

CREATE TABLE IF NOT EXISTS donations (
	id            TEXT PRIMARY KEY,
	donor_id      TEXT NOT NULL REFERENCES users (id),
	hospital_id   TEXT NOT NULL REFERENCES users (id),
	donor_name    TEXT NOT NULL,
	hospital_name TEXT NOT NULL,
	status        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	verified_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_donations_donor ON donations (donor_id);
CREATE INDEX IF NOT EXISTS idx_donations_hospital ON donations (hospital_id);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users (id),
	role       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions (expires_at);
`

var sqliteTypes = strings.NewReplacer(
	"TIMESTAMPTZ", "TIMESTAMP",
	"DOUBLE PRECISION", "REAL",
)

func schemaFor(driver string) string {
	if driver == core.DriverSQLite {
		return sqliteTypes.Replace(postgresSchema)
	}
	return postgresSchema
}

// Migrate creates the tables when they do not exist. Statements run one
// at a time because the pgx stdlib driver rejects multi-statement Exec
// inside the extended protocol.
func (s *SQL) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaFor(s.db.DriverName()), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// AngelaMos | 2026
// ids.go

package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewDonationID returns a ULID so donations sort by creation time when
// compared as strings.
func NewDonationID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func NewUserID() string {
	return uuid.New().String()
}

func NewSessionID() string {
	return uuid.New().String()
}

// IsGenerated reports whether s has the shape of an id minted here.
func IsGenerated(s string) bool {
	if _, err := uuid.Parse(s); err == nil && len(s) == 36 {
		return true
	}
	_, err := ulid.ParseStrict(s)
	return err == nil
}

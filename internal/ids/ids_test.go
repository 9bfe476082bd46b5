// AngelaMos | 2026
// ids_test.go

package ids

import (
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDonationIDsAreMonotonic(t *testing.T) {
	prev := NewDonationID()
	for range 1000 {
		next := NewDonationID()
		require.Less(t, prev, next)
		prev = next
	}

	_, err := ulid.ParseStrict(prev)
	assert.NoError(t, err)
}

func TestUserAndSessionIDsAreUUIDs(t *testing.T) {
	_, err := uuid.Parse(NewUserID())
	assert.NoError(t, err)
	assert.NotEqual(t, NewSessionID(), NewSessionID())
}

func TestIsGenerated(t *testing.T) {
	assert.True(t, IsGenerated(NewUserID()))
	assert.True(t, IsGenerated(NewDonationID()))
	assert.False(t, IsGenerated("donor1"))
	assert.False(t, IsGenerated("search"))
	assert.False(t, IsGenerated(""))
}

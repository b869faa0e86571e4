package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRoundTripsThroughToken(t *testing.T) {
	key := Key{At: time.Date(2026, 2, 1, 10, 30, 0, 123456789, time.UTC), ID: uuid.New()}

	decoded, err := Decode(Encode(key))
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, key.At.Equal(decoded.At))
	assert.Equal(t, key.ID, decoded.ID)
}

func TestDecodeEmptyMeansFirstPage(t *testing.T) {
	key, err := Decode("  ")
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, token := range []string{"%%%", Encode(Key{})[:4], "bm90LWEta2V5"} {
		_, err := Decode(token)
		assert.Error(t, err, token)
	}
}

func TestPageKeepsLastSeenRowAsKey(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]Key, 4)
	for i := range rows {
		rows[i] = Key{At: base.Add(-time.Duration(i) * time.Hour), ID: uuid.New()}
	}
	identity := func(k Key) Key { return k }

	page, next := Page(rows, 3, identity)
	require.Len(t, page, 3)
	require.NotNil(t, next)
	assert.Equal(t, rows[2], *next)

	page, next = Page(rows[:2], 3, identity)
	assert.Len(t, page, 2)
	assert.Nil(t, next)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, DefaultLimit, Clamp(0))
	assert.Equal(t, MaxLimit, Clamp(MaxLimit+50))
	assert.Equal(t, 7, Clamp(7))
	assert.Equal(t, 8, FetchSize(7))
}

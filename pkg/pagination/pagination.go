package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Key positions a keyset page. Listings run newest first and break ties on
// ID, so a Key is the last row the caller has already seen.
type Key struct {
	At time.Time
	ID uuid.UUID
}

// Clamp applies DefaultLimit and MaxLimit.
func Clamp(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// FetchSize is the row count to request so Page can tell whether another
// page exists.
func FetchSize(limit int) int {
	return Clamp(limit) + 1
}

// Page trims rows fetched with FetchSize down to the page and returns the
// key of the last kept row when more rows remain.
func Page[T any](rows []T, limit int, key func(T) Key) ([]T, *Key) {
	size := Clamp(limit)
	if len(rows) <= size {
		return rows, nil
	}
	rows = rows[:size]
	last := key(rows[size-1])
	return rows, &last
}

// Encode renders a key as an opaque URL-safe token.
func Encode(k Key) string {
	raw := strconv.FormatInt(k.At.UTC().UnixNano(), 10) + ":" + k.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a token produced by Encode. An empty token means the first page.
func Decode(token string) (*Key, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Key{At: time.Unix(0, n).UTC(), ID: parsed}, nil
}

package util

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID generates a new ULID string, used for request ids.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}

// IsID reports whether s parses as a ULID.
func IsID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

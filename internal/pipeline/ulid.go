package pipeline

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// Run ids are monotonic within a millisecond so ids issued together still
// sort in submission order.
var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(rand.Reader, 0)
)

func generateULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// ValidRunID reports whether id is a well-formed run id.
func ValidRunID(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a monotonic ULID. IDs from one process sort in creation order.
func New() ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// NewTraceID tags one dispatched request in logs.
func NewTraceID() string {
	return New().String()
}

// NewSessionID names one proxy run in the frame journal.
func NewSessionID() string {
	return New().String()
}

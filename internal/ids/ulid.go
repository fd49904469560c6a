// Package ids issues the ULIDs used for filter ids, published events and
// notifications.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a ULID string that sorts after every id issued before it by
// this process.
func New() string {
	return At(time.Now())
}

// At returns a ULID carrying the timestamp t. Notifications use it to stamp
// their id with the match time.
func At(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

package ids

import (
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNewIsMonotonic(t *testing.T) {
	const total = 100
	issued := make([]string, total)
	for i := range issued {
		issued[i] = New()
	}
	for i := 1; i < total; i++ {
		if issued[i-1] >= issued[i] {
			t.Fatalf("expected increasing ids, %s >= %s", issued[i-1], issued[i])
		}
	}
}

func TestNewConcurrentUniqueness(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 25

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := New()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != goroutines*perGoroutine {
		t.Fatalf("expected %d unique ids, got %d", goroutines*perGoroutine, len(seen))
	}
}

func TestAtCarriesTimestamp(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	parsed, err := ulid.ParseStrict(At(at))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ulid.Time(parsed.Time()); !got.Equal(at) {
		t.Fatalf("expected %v, got %v", at, got)
	}
}

package overview

import (
	"sync"
	"time"
)

// LatestFrame holds the most recently encoded composite for the monitor
// server. Written once per cycle, read-only thereafter.
type LatestFrame struct {
	mu   sync.RWMutex
	data []byte
	at   time.Time
}

// Set stores the encoded frame and its capture instant.
func (l *LatestFrame) Set(data []byte, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = data
	l.at = at
}

// Latest returns the stored frame, its capture instant, and whether a frame
// has been stored yet.
func (l *LatestFrame) Latest() ([]byte, time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.data == nil {
		return nil, time.Time{}, false
	}
	out := make([]byte, len(l.data))
	copy(out, l.data)
	return out, l.at, true
}

// Package telemetry supplies link readings to the tracking controller.
//
// Transports push samples into a Latest as they arrive; the controller
// polls it once per tick without blocking.
package telemetry

import (
	"sync"
	"time"

	"github.com/w1xm/linktrack/signal"
)

// DefaultMaxAge is how long a sample stays current.
const DefaultMaxAge = 2 * time.Second

// Latest holds the newest sample from an asynchronous transport.
type Latest struct {
	// MaxAge after which a sample reads as lost.
	MaxAge time.Duration

	mu  sync.Mutex
	v   signal.Vector
	at  time.Time
	now func() time.Time
}

func NewLatest(maxAge time.Duration) *Latest {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Latest{MaxAge: maxAge, now: time.Now}
}

// Set records v as the newest sample. An empty v marks the link lost.
func (l *Latest) Set(v signal.Vector) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.v = v
	l.at = l.now()
}

// Poll returns the newest sample, or the empty vector once it is stale.
func (l *Latest) Poll() signal.Vector {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.at.IsZero() || l.now().Sub(l.at) > l.MaxAge {
		return signal.Lost
	}
	return l.v
}

// Age returns the time since the last sample, or -1 before the first one.
func (l *Latest) Age() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.at.IsZero() {
		return -1
	}
	return l.now().Sub(l.at)
}

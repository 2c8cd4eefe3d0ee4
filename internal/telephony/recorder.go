package telephony

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRecorder is a local audio-capture stand-in. It "captures" for as
// long as it runs; a capture stopped within MinCapture of starting is
// treated as empty, matching a real encoder that flushed no frames.
type MemoryRecorder struct {
	// MinCapture is the shortest capture considered non-empty.
	MinCapture time.Duration
}

func (r *MemoryRecorder) Start(ctx context.Context) (Capture, error) {
	min := r.MinCapture
	if min <= 0 {
		min = time.Second
	}
	return &memoryCapture{startedAt: time.Now(), min: min}, nil
}

type memoryCapture struct {
	mu        sync.Mutex
	startedAt time.Time
	min       time.Duration
	stopped   bool
	url       string
}

func (c *memoryCapture) Stop() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return c.url
	}
	c.stopped = true
	if time.Since(c.startedAt) >= c.min {
		c.url = "mem://recordings/" + uuid.NewString()
	}
	return c.url
}

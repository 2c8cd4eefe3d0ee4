package telephony

import (
	"context"
	"sync"
	"time"
)

// recordingSink collects bridge events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []string
	ends   []EndInfo
}

func (s *recordingSink) add(ev string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) Connected()          { s.add("connected") }
func (s *recordingSink) Busy()               { s.add("busy") }
func (s *recordingSink) NoAnswer()           { s.add("no_answer") }
func (s *recordingSink) BridgeError(string)  { s.add("bridge_error") }
func (s *recordingSink) RemoteHangup(e EndInfo) {
	s.mu.Lock()
	s.ends = append(s.ends, e)
	s.mu.Unlock()
	s.add("remote_hangup")
}
func (s *recordingSink) Dropped(e EndInfo) {
	s.mu.Lock()
	s.ends = append(s.ends, e)
	s.mu.Unlock()
	s.add("dropped")
}

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

// waitFor polls until cond returns true or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

var testCtx = context.Background()

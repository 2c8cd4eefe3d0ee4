package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"tutordesk/internal/directory"

	"github.com/redis/go-redis/v9"

	"tutordesk/pkg/utils"
)

var (
	// ErrSessionActive means the operator already has an attempt in flight.
	ErrSessionActive = errors.New("session: a call session is already active")
	// ErrNoSession means the operator has no current session.
	ErrNoSession = errors.New("session: no current session")
	// ErrCallingDisabled means the calling feature is off (configuration
	// error at startup, e.g. missing bridge credentials).
	ErrCallingDisabled = errors.New("session: calling is disabled")
)

// Locker serializes call attempts per operator across API nodes.
type Locker interface {
	Acquire(ctx context.Context, operatorID string) (bool, error)
	Release(ctx context.Context, operatorID string) error
}

// RedisLocker backs the per-operator cap with the shared redis slot
// scripts; the TTL bounds how long a crashed node can pin an operator.
type RedisLocker struct {
	Client *redis.Client
	TTL    time.Duration
}

func (l *RedisLocker) ttl() time.Duration {
	if l.TTL > 0 {
		return l.TTL
	}
	return 2 * time.Hour
}

func (l *RedisLocker) Acquire(ctx context.Context, operatorID string) (bool, error) {
	return utils.AcquireSlot(ctx, l.Client, "call_session:"+operatorID, 1, l.ttl())
}

func (l *RedisLocker) Release(ctx context.Context, operatorID string) error {
	return utils.ReleaseSlot(ctx, l.Client, "call_session:"+operatorID)
}

// NoopLocker is for single-node setups and tests.
type NoopLocker struct{}

func (NoopLocker) Acquire(ctx context.Context, operatorID string) (bool, error) { return true, nil }
func (NoopLocker) Release(ctx context.Context, operatorID string) error         { return nil }

// Manager owns at most one session per operator.
type Manager struct {
	wf     *Workflow
	locker Locker

	mu       sync.Mutex
	sessions map[string]*Session // by operator user id
}

// NewManager builds a manager; wf may be nil when the calling feature is
// disabled by configuration, in which case Start refuses every attempt.
func NewManager(wf *Workflow, locker Locker) *Manager {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &Manager{wf: wf, locker: locker, sessions: map[string]*Session{}}
}

// Start begins an attempt for operatorID. Refused while a previous session
// is still dialing, active, or finished-but-not-reset.
func (m *Manager) Start(ctx context.Context, operatorID, staffName string, student directory.Student) (*Session, error) {
	if m.wf == nil {
		return nil, ErrCallingDisabled
	}

	m.mu.Lock()
	if prev, ok := m.sessions[operatorID]; ok {
		if prev.State() != StateIdle {
			m.mu.Unlock()
			return nil, ErrSessionActive
		}
		// A session aborted back to idle (bridge error) still holds the
		// operator's slot; reclaim it before starting over.
		delete(m.sessions, operatorID)
		m.mu.Unlock()
		_ = m.locker.Release(ctx, operatorID)
	} else {
		m.mu.Unlock()
	}

	ok, err := m.locker.Acquire(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionActive
	}

	s, err := m.wf.Start(ctx, student, staffName)
	if err != nil {
		_ = m.locker.Release(ctx, operatorID)
		return nil, err
	}

	m.mu.Lock()
	m.sessions[operatorID] = s
	m.mu.Unlock()
	return s, nil
}

// Current returns the operator's session, if any.
func (m *Manager) Current(operatorID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[operatorID]
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

func (m *Manager) Cancel(ctx context.Context, operatorID string) error {
	s, err := m.Current(operatorID)
	if err != nil {
		return err
	}
	return s.Cancel(ctx)
}

func (m *Manager) Hangup(ctx context.Context, operatorID string) error {
	s, err := m.Current(operatorID)
	if err != nil {
		return err
	}
	return s.Hangup(ctx)
}

// Reset acknowledges a finished session, releases the operator's slot and
// makes room for the next attempt.
func (m *Manager) Reset(ctx context.Context, operatorID string) error {
	s, err := m.Current(operatorID)
	if err != nil {
		return err
	}
	if err := s.Reset(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, operatorID)
	m.mu.Unlock()

	return m.locker.Release(ctx, operatorID)
}

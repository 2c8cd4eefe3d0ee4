// Package session drives one outgoing call attempt from "operator presses
// call" to "outcome recorded".
//
// A session moves idle -> dialing -> active -> finished, with dialing able
// to finish directly (busy, no answer, cancel). Every attempt that reaches
// dialing produces exactly one history record; the duration tick is stopped
// before the record is composed, and the audio capture is released on every
// exit path.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tutordesk/internal/directory"
	"tutordesk/internal/history"
	"tutordesk/internal/telephony"
)

type State string

const (
	StateIdle     State = "idle"
	StateDialing  State = "dialing"
	StateActive   State = "active"
	StateFinished State = "finished"
)

var (
	// ErrCaptureUnavailable means the audio-capture resource could not be
	// acquired. Fatal for the attempt only; no history record is written
	// because no call was placed.
	ErrCaptureUnavailable = errors.New("session: audio capture unavailable")

	// ErrBadState means the requested operation does not apply to the
	// session's current state.
	ErrBadState = errors.New("session: operation not valid in current state")
)

// TickFactory starts a periodic tick calling fn every interval and returns
// a stop function. Injectable so tests can drive ticks by hand.
type TickFactory func(interval time.Duration, fn func()) (stop func())

func defaultTicker(interval time.Duration, fn func()) func() {
	t := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-t.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			t.Stop()
			close(done)
		})
	}
}

// Workflow holds the collaborators shared by all sessions.
type Workflow struct {
	Bridge   telephony.Bridge
	Recorder telephony.Recorder // nil disables audio capture
	History  *history.Service
	Log      *slog.Logger

	// CallerNumber is the organization's outgoing number.
	CallerNumber string
	// Record asks the bridge/recorder to capture audio.
	Record bool

	// Clock and Ticker are injectable for tests.
	Clock  func() time.Time
	Ticker TickFactory
}

func (w *Workflow) clock() time.Time {
	if w.Clock != nil {
		return w.Clock()
	}
	return time.Now()
}

func (w *Workflow) ticker() TickFactory {
	if w.Ticker != nil {
		return w.Ticker
	}
	return defaultTicker
}

func (w *Workflow) log() *slog.Logger {
	if w.Log != nil {
		return w.Log
	}
	return slog.Default()
}

// Session is one call attempt. All state transitions are serialized by mu:
// bridge callbacks, the duration tick and operator commands never observe
// a half-applied transition.
type Session struct {
	wf *Workflow

	mu sync.Mutex

	state     State
	student   directory.Student
	staffName string
	startedAt time.Time
	seconds   int

	call     telephony.ActiveCall
	capture  telephony.Capture
	stopTick func()

	// terminal outcome, valid once state == StateFinished
	outcome      history.CallStatus
	summary      string
	recordingURL string

	// lastErr surfaces attempt-level failures (capture, bridge errors)
	// that produced no record.
	lastErr string
}

// Start places a call for student. The capture resource, when recording is
// enabled, is acquired before dialing: if it cannot be acquired the attempt
// is aborted with ErrCaptureUnavailable and nothing is recorded.
func (w *Workflow) Start(ctx context.Context, student directory.Student, staffName string) (*Session, error) {
	if w.Bridge == nil {
		return nil, errors.New("session: no telephony bridge configured")
	}
	if w.History == nil {
		return nil, errors.New("session: no history store configured")
	}

	s := &Session{
		wf:        w,
		state:     StateIdle,
		student:   student,
		staffName: staffName,
	}

	var capture telephony.Capture
	if w.Record && w.Recorder != nil {
		c, err := w.Recorder.Start(ctx)
		if err != nil {
			w.log().Warn("audio capture unavailable", "err", err, "student", student.Name)
			return nil, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
		}
		capture = c
	}

	s.mu.Lock()
	s.state = StateDialing
	s.startedAt = w.clock().UTC()
	s.capture = capture
	s.mu.Unlock()

	call, err := w.Bridge.Place(ctx, telephony.PlaceRequest{
		CalleeNumber: student.Phone,
		CallerNumber: w.CallerNumber,
		Record:       w.Record,
	}, s)
	if err != nil {
		// The attempt never reached the provider; release the capture
		// and report with no history record.
		s.mu.Lock()
		s.releaseCaptureLocked()
		s.state = StateIdle
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.call = call
	s.mu.Unlock()

	w.log().Info("call attempt started", "student", student.Name, "staff", staffName)
	return s, nil
}

// --- bridge events (telephony.EventSink) ---

func (s *Session) Connected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDialing {
		return
	}
	s.state = StateActive
	s.stopTick = s.wf.ticker()(time.Second, s.tick)
}

func (s *Session) Busy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDialing {
		return
	}
	s.finishLocked(history.CallStatusFailedBusy, telephony.EndInfo{},
		fmt.Sprintf("%s's line is busy.", s.student.Name))
}

func (s *Session) NoAnswer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDialing {
		return
	}
	s.finishLocked(history.CallStatusFailedNoAnswer, telephony.EndInfo{},
		fmt.Sprintf("%s did not answer.", s.student.Name))
}

func (s *Session) BridgeError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDialing {
		return
	}
	// The bridge rejected the attempt outright: surface the provider
	// message, release resources and return to idle with no record.
	s.cancelTickLocked()
	s.releaseCaptureLocked()
	s.state = StateIdle
	s.lastErr = msg
	s.wf.log().Warn("bridge error", "msg", msg, "student", s.student.Name)
}

func (s *Session) RemoteHangup(end telephony.EndInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.finishLocked(history.CallStatusCompleted, end,
		fmt.Sprintf("Call ended by %s after %ds.", s.student.Name, s.seconds))
}

func (s *Session) Dropped(end telephony.EndInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.finishLocked(history.CallStatusFailedDropped, end,
		fmt.Sprintf("Connection dropped after %ds.", s.seconds))
}

// --- operator commands ---

// Cancel abandons an attempt that has not connected yet.
// A bridge resolution arriving after Cancel is ignored: the canceled
// outcome is already recorded.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDialing {
		s.mu.Unlock()
		return ErrBadState
	}
	call := s.call
	s.finishLocked(history.CallStatusCanceled, telephony.EndInfo{}, "Call canceled before connecting.")
	s.mu.Unlock()

	if call != nil {
		if err := call.Hangup(ctx); err != nil {
			s.wf.log().Warn("bridge hangup after cancel failed", "err", err)
		}
	}
	return nil
}

// Hangup ends a connected call from the operator side.
func (s *Session) Hangup(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return ErrBadState
	}
	call := s.call
	s.finishLocked(history.CallStatusCompleted, telephony.EndInfo{},
		fmt.Sprintf("Call completed after %ds.", s.seconds))
	s.mu.Unlock()

	if call != nil {
		if err := call.Hangup(ctx); err != nil {
			s.wf.log().Warn("bridge hangup failed", "err", err)
		}
	}
	return nil
}

// Reset clears a finished session back to idle. The only way a new attempt
// can begin.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFinished && s.state != StateIdle {
		return ErrBadState
	}
	s.state = StateIdle
	s.seconds = 0
	s.startedAt = time.Time{}
	s.outcome = ""
	s.summary = ""
	s.recordingURL = ""
	s.lastErr = ""
	s.call = nil
	return nil
}

// --- internals ---

func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.seconds++
}

// cancelTickLocked stops the duration tick. Must be the first action of
// every termination path so the recorded duration cannot advance after the
// terminal signal is observed.
func (s *Session) cancelTickLocked() {
	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
}

func (s *Session) releaseCaptureLocked() string {
	if s.capture == nil {
		return ""
	}
	url := s.capture.Stop()
	s.capture = nil
	return url
}

// finishLocked performs the single terminal transition: stop the tick,
// release the capture, append exactly one history record, land in finished.
// Callers must hold mu and have verified the source state.
func (s *Session) finishLocked(status history.CallStatus, end telephony.EndInfo, summary string) {
	s.cancelTickLocked()
	captureURL := s.releaseCaptureLocked()

	duration := s.seconds
	if !status.AllowsDuration() {
		duration = 0
	}

	recordingURL := captureURL
	if recordingURL == "" {
		recordingURL = end.RecordingURL
	}
	if !status.AllowsDuration() {
		// Attempts that never connected have no audio.
		recordingURL = ""
	}

	rec, err := s.wf.History.Append(context.Background(), history.AppendInput{
		StudentName:     s.student.Name,
		StaffName:       s.staffName,
		Status:          status,
		DurationSeconds: duration,
		RecordingURL:    recordingURL,
		StartedAt:       s.startedAt,
	})
	if err != nil {
		// The outcome still terminates the session; losing the record
		// silently is not acceptable, so log and surface it.
		s.wf.log().Error("history append failed", "err", err, "status", string(status))
		s.lastErr = "outcome could not be saved to history"
	} else {
		s.wf.log().Info("call finished",
			"student", s.student.Name,
			"status", string(rec.Status),
			"duration", rec.DurationSeconds,
			"recorded", rec.RecordingURL != "")
	}

	s.state = StateFinished
	s.outcome = status
	s.summary = summary
	s.recordingURL = recordingURL
}

// Snapshot is a read-only view of the session for the API layer.
type Snapshot struct {
	State        State              `json:"state"`
	StudentID    string             `json:"student_id,omitempty"`
	StudentName  string             `json:"student_name,omitempty"`
	Seconds      int                `json:"seconds"`
	Outcome      history.CallStatus `json:"outcome,omitempty"`
	Summary      string             `json:"summary,omitempty"`
	RecordingURL string             `json:"recording_url,omitempty"`
	Error        string             `json:"error,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:        s.state,
		Seconds:      s.seconds,
		Outcome:      s.outcome,
		Summary:      s.summary,
		RecordingURL: s.recordingURL,
		Error:        s.lastErr,
	}
	if s.state != StateIdle {
		snap.StudentID = s.student.ID
		snap.StudentName = s.student.Name
	}
	return snap
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

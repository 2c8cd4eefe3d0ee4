package telephony

import "context"

// Bridge is the provider-agnostic telephony contract used by the call
// session workflow.
//
// Rules:
// - No provider SDK or HTTP calls outside telephony adapters.
// - Place resolves asynchronously: the bridge delivers exactly one
//   resolution event (Connected, Busy, NoAnswer or BridgeError) to the
//   sink, and, after Connected, at most one termination event
//   (RemoteHangup or Dropped).
// - Event delivery is serialized; the bridge never invokes two sink
//   methods concurrently.
type Bridge interface {
	Name() string
	Place(ctx context.Context, req PlaceRequest, sink EventSink) (ActiveCall, error)
}

// PlaceRequest describes one outgoing bridged call attempt.
type PlaceRequest struct {
	// CalleeNumber and CallerNumber are E.164.
	CalleeNumber string
	CallerNumber string

	// Record asks the provider to record the call where supported.
	Record bool
}

// EventSink receives asynchronous call events from a bridge.
// Implemented by the session workflow; a late event after the session
// terminated locally (e.g. resolution arriving after cancel) must be
// tolerated and ignored by the implementation.
type EventSink interface {
	Connected()
	Busy()
	NoAnswer()
	BridgeError(msg string)

	RemoteHangup(end EndInfo)
	Dropped(end EndInfo)
}

// EndInfo carries provider-reported details of a finished call.
type EndInfo struct {
	// RecordingURL is the provider-side recording reference, if the
	// provider recorded the call. Opaque; passed through unmodified.
	RecordingURL string
}

// ActiveCall is the handle for one in-flight attempt.
type ActiveCall interface {
	// Hangup ends the call (or abandons the attempt while still ringing).
	// Idempotent; safe to call after the call already ended.
	Hangup(ctx context.Context) error
}

// Recorder acquires the local audio-capture resource for a session.
// A nil Recorder on the workflow means recording is unsupported.
type Recorder interface {
	Start(ctx context.Context) (Capture, error)
}

// Capture is a live audio capture.
// Stop releases the resource and returns the opaque reference to the
// captured audio, empty when nothing was captured. Stop is idempotent.
type Capture interface {
	Stop() (url string)
}

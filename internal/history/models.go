package history

import "time"

// CallRecord is one terminal call attempt outcome.
//
// StudentName and StaffName are snapshots, not references: a record stays
// readable after the student or staff member is deleted from the roster.
//
// Records are immutable once appended. The only mutation the store supports
// is a bulk clear.
type CallRecord struct {
	ID string `json:"id" db:"id"`

	StudentName string `json:"student_name" db:"student_name"`
	StaffName   string `json:"staff_name" db:"staff_name"`

	Status CallStatus `json:"status" db:"status"`

	// DurationSeconds is whole seconds of connected talk time.
	// Zero for any attempt that never connected.
	DurationSeconds int `json:"duration" db:"duration"`

	// RecordingURL is an opaque reference to captured audio; empty when
	// nothing was recorded.
	RecordingURL string `json:"recording_url,omitempty" db:"recording_url"`

	// StartedAt is the attempt start time, not the append time.
	StartedAt time.Time `json:"started_at" db:"started_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type CallStatus string

const (
	CallStatusCompleted      CallStatus = "completed"
	CallStatusFailedBusy     CallStatus = "failed_busy"
	CallStatusFailedNoAnswer CallStatus = "failed_no_answer"
	CallStatusFailedDropped  CallStatus = "failed_dropped"
	CallStatusCanceled       CallStatus = "canceled"
)

// ValidStatus reports whether s is in the closed status set.
func ValidStatus(s CallStatus) bool {
	switch s {
	case CallStatusCompleted, CallStatusFailedBusy, CallStatusFailedNoAnswer,
		CallStatusFailedDropped, CallStatusCanceled:
		return true
	default:
		return false
	}
}

// AllowsDuration reports whether s may carry a non-zero duration.
// Only attempts that actually connected accumulate talk time.
func (s CallStatus) AllowsDuration() bool {
	return s == CallStatusCompleted || s == CallStatusFailedDropped
}

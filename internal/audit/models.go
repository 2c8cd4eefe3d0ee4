package audit

import "time"

// Event is an immutable, append-only audit record for admin-sensitive
// actions: roster edits, staff account changes, history wipes.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor capture is best-effort; never block the underlying action on an
//   audit failure.

type Event struct {
	ID string `json:"id" db:"id"`

	// Action is the business category of the record.
	Action Action `json:"action" db:"action"`

	// ActorUserID is the authenticated staff member causing the event.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorName   string `json:"actor_name,omitempty" db:"actor_name"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// Target identifies the affected record, when the action has one.
	TargetID   string `json:"target_id,omitempty" db:"target_id"`
	TargetName string `json:"target_name,omitempty" db:"target_name"`

	// Detail is a short human-readable description for internal ops.
	Detail string `json:"detail,omitempty" db:"detail"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Action string

const (
	ActionStudentCreate Action = "student_create"
	ActionStudentUpdate Action = "student_update"
	ActionStudentDelete Action = "student_delete"
	ActionStaffCreate   Action = "staff_create"
	ActionStaffUpdate   Action = "staff_update"
	ActionStaffDelete   Action = "staff_delete"
	ActionHistoryClear  Action = "history_clear"
)

package directory

import "time"

// Student is a roster entry the operator can call.
//
// Phone is stored normalized to E.164; raw operator input is rejected if it
// cannot be normalized into a dialable number.
type Student struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Phone string `json:"phone" db:"phone"`

	Parent string `json:"parent,omitempty" db:"parent"`
	Email  string `json:"email,omitempty" db:"email"`
	Notes  string `json:"notes,omitempty" db:"notes"`

	AddedBy string    `json:"added_by" db:"added_by"`
	AddedAt time.Time `json:"added_at" db:"added_at"`

	UpdatedBy string     `json:"updated_by,omitempty" db:"updated_by"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Staff is a teacher/admin account that can sign in.
//
// Deleting a staff record never cascades into call history: records keep a
// denormalized name snapshot taken at call time.
type Staff struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Role  string `json:"role" db:"role"`

	// PasswordHash is an argon2id encoded hash; never serialized.
	PasswordHash string `json:"-" db:"password_hash"`

	AddedAt time.Time `json:"added_at" db:"added_at"`
}

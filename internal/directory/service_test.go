package directory

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService() *Service {
	svc := NewService(NewMemoryRepo(), "US")
	svc.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return svc
}

func TestCreateStudent_NormalizesPhone(t *testing.T) {
	svc := newTestService()

	st, err := svc.CreateStudent(context.Background(), CreateStudentInput{
		Name:  "Omar",
		Phone: "(212) 555-0199",
	}, "Ms. Amina")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if st.Phone != "+12125550199" {
		t.Fatalf("expected E.164 phone, got %q", st.Phone)
	}
	if st.AddedBy != "Ms. Amina" || st.AddedAt.IsZero() {
		t.Fatalf("audit fields not set: %+v", st)
	}
	if st.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestCreateStudent_RejectsBadInput(t *testing.T) {
	svc := newTestService()

	cases := []struct {
		name string
		in   CreateStudentInput
		want error
	}{
		{"empty name", CreateStudentInput{Name: " ", Phone: "2125550199"}, ErrInvalidArgument},
		{"empty phone", CreateStudentInput{Name: "Omar", Phone: ""}, ErrInvalidPhone},
		{"short phone", CreateStudentInput{Name: "Omar", Phone: "12345"}, ErrInvalidPhone},
		{"letters", CreateStudentInput{Name: "Omar", Phone: "call-me"}, ErrInvalidPhone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateStudent(context.Background(), tc.in, "x"); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUpdateStudent_PartialUpdateSetsAuditFields(t *testing.T) {
	svc := newTestService()
	st, err := svc.CreateStudent(context.Background(), CreateStudentInput{Name: "Omar", Phone: "2125550199"}, "a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	notes := "prefers evening calls"
	got, err := svc.UpdateStudent(context.Background(), st.ID, UpdateStudentInput{Notes: &notes}, "Mr. Noor")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Notes != notes {
		t.Fatalf("notes not updated: %+v", got)
	}
	if got.Phone != st.Phone || got.Name != st.Name {
		t.Fatalf("unrelated fields changed: %+v", got)
	}
	if got.UpdatedBy != "Mr. Noor" || got.UpdatedAt == nil {
		t.Fatalf("update audit fields not set: %+v", got)
	}
}

func TestUpdateStudent_UnknownID(t *testing.T) {
	svc := newTestService()
	name := "x"
	if _, err := svc.UpdateStudent(context.Background(), "missing", UpdateStudentInput{Name: &name}, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateStaff_AndAuthenticate(t *testing.T) {
	svc := newTestService()

	st, err := svc.CreateStaff(context.Background(), CreateStaffInput{
		Name:     "Ms. Amina",
		Email:    "Amina@Example.org",
		Role:     "admin",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if st.Email != "amina@example.org" {
		t.Fatalf("expected lowercased email, got %q", st.Email)
	}
	if st.PasswordHash == "" || st.PasswordHash == "correct horse" {
		t.Fatalf("expected hashed password")
	}

	got, err := svc.Authenticate(context.Background(), "amina@example.org", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != st.ID {
		t.Fatalf("unexpected staff: %+v", got)
	}

	if _, err := svc.Authenticate(context.Background(), "amina@example.org", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@example.org", "correct horse"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials for unknown email, got %v", err)
	}
}

func TestCreateStaff_Validation(t *testing.T) {
	svc := newTestService()

	if _, err := svc.CreateStaff(context.Background(), CreateStaffInput{Name: "x", Email: "x@y.z", Role: "boss", Password: "12345678"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown role, got %v", err)
	}
	if _, err := svc.CreateStaff(context.Background(), CreateStaffInput{Name: "x", Email: "x@y.z", Role: "operator", Password: "short"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for short password, got %v", err)
	}

	if _, err := svc.CreateStaff(context.Background(), CreateStaffInput{Name: "x", Email: "x@y.z", Role: "operator", Password: "12345678"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateStaff(context.Background(), CreateStaffInput{Name: "y", Email: "X@Y.Z", Role: "operator", Password: "12345678"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestDeleteStaff_DoesNotTouchStudents(t *testing.T) {
	svc := newTestService()
	st, _ := svc.CreateStudent(context.Background(), CreateStudentInput{Name: "Omar", Phone: "2125550199"}, "a")
	staff, _ := svc.CreateStaff(context.Background(), CreateStaffInput{Name: "T", Email: "t@e.org", Role: "operator", Password: "12345678"})

	if err := svc.DeleteStaff(context.Background(), staff.ID); err != nil {
		t.Fatalf("delete staff: %v", err)
	}
	if _, err := svc.GetStudent(context.Background(), st.ID); err != nil {
		t.Fatalf("student should survive staff deletion: %v", err)
	}
}

func TestUpdateStaff_RotatesPasswordAndRole(t *testing.T) {
	svc := newTestService()
	staff, err := svc.CreateStaff(context.Background(), CreateStaffInput{Name: "T", Email: "t@e.org", Role: "operator", Password: "old password"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newRole := "admin"
	newPass := "new password"
	updated, err := svc.UpdateStaff(context.Background(), staff.ID, UpdateStaffInput{Role: &newRole, Password: &newPass})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Role != "admin" {
		t.Fatalf("expected role change, got %q", updated.Role)
	}

	if _, err := svc.Authenticate(context.Background(), "t@e.org", "old password"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "t@e.org", "new password"); err != nil {
		t.Fatalf("new password must work: %v", err)
	}

	badRole := "boss"
	if _, err := svc.UpdateStaff(context.Background(), staff.ID, UpdateStaffInput{Role: &badRole}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown role, got %v", err)
	}
}

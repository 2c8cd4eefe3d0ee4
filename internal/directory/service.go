package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"tutordesk/internal/rbac"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("directory: not found")
	ErrInvalidArgument = errors.New("directory: invalid argument")
	ErrEmailTaken      = errors.New("directory: email already in use")
	ErrBadCredentials  = errors.New("directory: bad credentials")
)

// Repository is the persistence contract for roster data.
type Repository interface {
	CreateStudent(ctx context.Context, s Student) error
	UpdateStudent(ctx context.Context, s Student) error
	DeleteStudent(ctx context.Context, id string) error
	GetStudent(ctx context.Context, id string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)

	CreateStaff(ctx context.Context, s Staff) error
	UpdateStaff(ctx context.Context, s Staff) error
	DeleteStaff(ctx context.Context, id string) error
	GetStaff(ctx context.Context, id string) (Staff, error)
	GetStaffByEmail(ctx context.Context, email string) (Staff, error)
	ListStaff(ctx context.Context) ([]Staff, error)
}

// Service owns roster rules: phone normalization, audit fields, credentials.
type Service struct {
	repo          Repository
	defaultRegion string
	clock         func() time.Time
}

func NewService(repo Repository, defaultRegion string) *Service {
	return &Service{repo: repo, defaultRegion: defaultRegion, clock: time.Now}
}

type CreateStudentInput struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Parent string `json:"parent,omitempty"`
	Email  string `json:"email,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

func (s *Service) CreateStudent(ctx context.Context, in CreateStudentInput, actorName string) (Student, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Student{}, ErrInvalidArgument
	}
	phone, err := NormalizePhone(in.Phone, s.defaultRegion)
	if err != nil {
		return Student{}, err
	}

	st := Student{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(in.Name),
		Phone:   phone,
		Parent:  strings.TrimSpace(in.Parent),
		Email:   strings.TrimSpace(in.Email),
		Notes:   in.Notes,
		AddedBy: actorName,
		AddedAt: s.clock().UTC(),
	}
	if err := s.repo.CreateStudent(ctx, st); err != nil {
		return Student{}, err
	}
	return st, nil
}

type UpdateStudentInput struct {
	Name   *string `json:"name,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Parent *string `json:"parent,omitempty"`
	Email  *string `json:"email,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

func (s *Service) UpdateStudent(ctx context.Context, id string, in UpdateStudentInput, actorName string) (Student, error) {
	if id == "" {
		return Student{}, ErrInvalidArgument
	}
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return Student{}, ErrInvalidArgument
		}
		st.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		phone, err := NormalizePhone(*in.Phone, s.defaultRegion)
		if err != nil {
			return Student{}, err
		}
		st.Phone = phone
	}
	if in.Parent != nil {
		st.Parent = strings.TrimSpace(*in.Parent)
	}
	if in.Email != nil {
		st.Email = strings.TrimSpace(*in.Email)
	}
	if in.Notes != nil {
		st.Notes = *in.Notes
	}

	now := s.clock().UTC()
	st.UpdatedBy = actorName
	st.UpdatedAt = &now

	if err := s.repo.UpdateStudent(ctx, st); err != nil {
		return Student{}, err
	}
	return st, nil
}

func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidArgument
	}
	return s.repo.DeleteStudent(ctx, id)
}

func (s *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	if id == "" {
		return Student{}, ErrInvalidArgument
	}
	return s.repo.GetStudent(ctx, id)
}

func (s *Service) ListStudents(ctx context.Context) ([]Student, error) {
	return s.repo.ListStudents(ctx)
}

type CreateStaffInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (s *Service) CreateStaff(ctx context.Context, in CreateStaffInput) (Staff, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		return Staff{}, ErrInvalidArgument
	}
	if !rbac.Valid(in.Role) {
		return Staff{}, ErrInvalidArgument
	}
	if len(in.Password) < 8 {
		return Staff{}, ErrInvalidArgument
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.repo.GetStaffByEmail(ctx, email); err == nil {
		return Staff{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Staff{}, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return Staff{}, err
	}

	st := Staff{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Role:         in.Role,
		PasswordHash: hash,
		AddedAt:      s.clock().UTC(),
	}
	if err := s.repo.CreateStaff(ctx, st); err != nil {
		return Staff{}, err
	}
	return st, nil
}

type UpdateStaffInput struct {
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
}

// UpdateStaff edits name, role or password. Email is the login identity
// and is not editable.
func (s *Service) UpdateStaff(ctx context.Context, id string, in UpdateStaffInput) (Staff, error) {
	if id == "" {
		return Staff{}, ErrInvalidArgument
	}
	st, err := s.repo.GetStaff(ctx, id)
	if err != nil {
		return Staff{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Staff{}, ErrInvalidArgument
		}
		st.Name = name
	}
	if in.Role != nil {
		if !rbac.Valid(*in.Role) {
			return Staff{}, ErrInvalidArgument
		}
		st.Role = *in.Role
	}
	if in.Password != nil {
		if len(*in.Password) < 8 {
			return Staff{}, ErrInvalidArgument
		}
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return Staff{}, err
		}
		st.PasswordHash = hash
	}

	if err := s.repo.UpdateStaff(ctx, st); err != nil {
		return Staff{}, err
	}
	return st, nil
}

func (s *Service) DeleteStaff(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidArgument
	}
	return s.repo.DeleteStaff(ctx, id)
}

func (s *Service) GetStaff(ctx context.Context, id string) (Staff, error) {
	if id == "" {
		return Staff{}, ErrInvalidArgument
	}
	return s.repo.GetStaff(ctx, id)
}

func (s *Service) ListStaff(ctx context.Context) ([]Staff, error) {
	return s.repo.ListStaff(ctx)
}

// Authenticate verifies staff credentials for login.
// Failures are collapsed into ErrBadCredentials so callers cannot
// distinguish unknown emails from wrong passwords.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Staff, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Staff{}, ErrBadCredentials
	}

	st, err := s.repo.GetStaffByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Staff{}, ErrBadCredentials
		}
		return Staff{}, err
	}

	ok, err := CheckPassword(password, st.PasswordHash)
	if err != nil || !ok {
		return Staff{}, ErrBadCredentials
	}
	return st, nil
}

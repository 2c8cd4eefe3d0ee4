package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRecord = errors.New("history: invalid record")
	ErrInvalidFilter = errors.New("history: invalid filter")
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	From        time.Time
	To          time.Time
	Status      CallStatus
	StudentName string
}

// Repository is the persistence contract for call history.
//
// It MUST stay append-only: no per-record update or delete is provided.
// Clear is the single bulk mutation the product exposes.
type Repository interface {
	Append(ctx context.Context, rec CallRecord) error
	List(ctx context.Context, f Filter) ([]CallRecord, error)
	Clear(ctx context.Context) (int, error)
}

// Service enforces record invariants before anything reaches storage.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// AppendInput is everything the call workflow knows at termination time.
type AppendInput struct {
	StudentName     string
	StaffName       string
	Status          CallStatus
	DurationSeconds int
	RecordingURL    string
	StartedAt       time.Time
}

// Append validates and persists one terminal record.
// Duration is only meaningful for attempts that connected; any other
// status with a non-zero duration is a caller bug and is rejected.
func (s *Service) Append(ctx context.Context, in AppendInput) (CallRecord, error) {
	if strings.TrimSpace(in.StudentName) == "" || strings.TrimSpace(in.StaffName) == "" {
		return CallRecord{}, ErrInvalidRecord
	}
	if !ValidStatus(in.Status) {
		return CallRecord{}, ErrInvalidRecord
	}
	if in.DurationSeconds < 0 {
		return CallRecord{}, ErrInvalidRecord
	}
	if in.DurationSeconds != 0 && !in.Status.AllowsDuration() {
		return CallRecord{}, ErrInvalidRecord
	}
	if in.StartedAt.IsZero() {
		return CallRecord{}, ErrInvalidRecord
	}

	rec := CallRecord{
		ID:              uuid.NewString(),
		StudentName:     in.StudentName,
		StaffName:       in.StaffName,
		Status:          in.Status,
		DurationSeconds: in.DurationSeconds,
		RecordingURL:    in.RecordingURL,
		StartedAt:       in.StartedAt.UTC(),
		CreatedAt:       s.clock().UTC(),
	}
	if err := s.repo.Append(ctx, rec); err != nil {
		return CallRecord{}, err
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]CallRecord, error) {
	if !f.From.IsZero() && !f.To.IsZero() && !f.To.After(f.From) {
		return nil, ErrInvalidFilter
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, ErrInvalidFilter
	}
	return s.repo.List(ctx, f)
}

// Clear wipes the whole history. Admin-only at the HTTP layer.
func (s *Service) Clear(ctx context.Context) (int, error) {
	return s.repo.Clear(ctx)
}

// Summary aggregates call outcomes for the operator dashboard.
type Summary struct {
	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	BusyCalls      int `json:"busy_calls"`
	NoAnswerCalls  int `json:"no_answer_calls"`
	DroppedCalls   int `json:"dropped_calls"`
	CanceledCalls  int `json:"canceled_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	RecordedCalls int `json:"recorded_calls"`
}

// Summarize computes aggregate metrics over the filtered records.
func (s *Service) Summarize(ctx context.Context, f Filter) (Summary, error) {
	rows, err := s.List(ctx, f)
	if err != nil {
		return Summary{}, err
	}

	var out Summary
	connected := 0
	for _, rec := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += rec.DurationSeconds
		if rec.RecordingURL != "" {
			out.RecordedCalls++
		}
		switch rec.Status {
		case CallStatusCompleted:
			out.CompletedCalls++
			connected++
		case CallStatusFailedBusy:
			out.BusyCalls++
		case CallStatusFailedNoAnswer:
			out.NoAnswerCalls++
		case CallStatusFailedDropped:
			out.DroppedCalls++
			connected++
		case CallStatusCanceled:
			out.CanceledCalls++
		}
	}
	if connected > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / connected
	}
	return out, nil
}

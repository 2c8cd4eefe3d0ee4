package history

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testService() *Service {
	svc := NewService(NewMemoryRepo())
	svc.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return svc
}

func TestAppend_RejectsDurationOnNonConnectedStatus(t *testing.T) {
	svc := testService()
	now := time.Unix(1700000000, 0).UTC()

	cases := []struct {
		name string
		in   AppendInput
		ok   bool
	}{
		{"completed with duration", AppendInput{StudentName: "Omar", StaffName: "T", Status: CallStatusCompleted, DurationSeconds: 45, StartedAt: now}, true},
		{"dropped with duration", AppendInput{StudentName: "Omar", StaffName: "T", Status: CallStatusFailedDropped, DurationSeconds: 10, StartedAt: now}, true},
		{"busy zero duration", AppendInput{StudentName: "Omar", StaffName: "T", Status: CallStatusFailedBusy, StartedAt: now}, true},
		{"busy with duration", AppendInput{StudentName: "Omar", StaffName: "T", Status: CallStatusFailedBusy, DurationSeconds: 3, StartedAt: now}, false},
		{"canceled with duration", AppendInput{StudentName: "Omar", StaffName: "T", Status: CallStatusCanceled, DurationSeconds: 1, StartedAt: now}, false},
		{"no answer with duration", AppendInput{StudentName: "Omar", StaffName: "T", Status: CallStatusFailedNoAnswer, DurationSeconds: 2, StartedAt: now}, false},
		{"negative duration", AppendInput{StudentName: "Omar", StaffName: "T", Status: CallStatusCompleted, DurationSeconds: -1, StartedAt: now}, false},
		{"unknown status", AppendInput{StudentName: "Omar", StaffName: "T", Status: "ringing", StartedAt: now}, false},
		{"missing student", AppendInput{StaffName: "T", Status: CallStatusCompleted, StartedAt: now}, false},
		{"zero start", AppendInput{StudentName: "Omar", StaffName: "T", Status: CallStatusCompleted}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Append(context.Background(), tc.in)
			if tc.ok && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestList_Filters(t *testing.T) {
	svc := testService()
	base := time.Unix(1700000000, 0).UTC()

	seed := []AppendInput{
		{StudentName: "Omar", StaffName: "T", Status: CallStatusCompleted, DurationSeconds: 45, StartedAt: base},
		{StudentName: "Lina", StaffName: "T", Status: CallStatusFailedBusy, StartedAt: base.Add(time.Hour)},
		{StudentName: "Omar", StaffName: "T", Status: CallStatusCanceled, StartedAt: base.Add(2 * time.Hour)},
	}
	for _, in := range seed {
		if _, err := svc.Append(context.Background(), in); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := svc.List(context.Background(), Filter{StudentName: "omar"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for Omar, got %d", len(got))
	}

	got, err = svc.List(context.Background(), Filter{Status: CallStatusFailedBusy})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].StudentName != "Lina" {
		t.Fatalf("unexpected busy records: %+v", got)
	}

	got, err = svc.List(context.Background(), Filter{From: base.Add(30 * time.Minute), To: base.Add(90 * time.Minute)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].StudentName != "Lina" {
		t.Fatalf("unexpected windowed records: %+v", got)
	}

	if _, err := svc.List(context.Background(), Filter{From: base, To: base.Add(-time.Hour)}); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter for inverted window, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	svc := testService()
	base := time.Unix(1700000000, 0).UTC()

	seed := []AppendInput{
		{StudentName: "Omar", StaffName: "T", Status: CallStatusCompleted, DurationSeconds: 40, RecordingURL: "rec://1", StartedAt: base},
		{StudentName: "Omar", StaffName: "T", Status: CallStatusCompleted, DurationSeconds: 20, StartedAt: base},
		{StudentName: "Lina", StaffName: "T", Status: CallStatusFailedDropped, DurationSeconds: 30, StartedAt: base},
		{StudentName: "Lina", StaffName: "T", Status: CallStatusFailedBusy, StartedAt: base},
		{StudentName: "Lina", StaffName: "T", Status: CallStatusCanceled, StartedAt: base},
	}
	for _, in := range seed {
		if _, err := svc.Append(context.Background(), in); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	sum, err := svc.Summarize(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.TotalCalls != 5 || sum.CompletedCalls != 2 || sum.DroppedCalls != 1 || sum.BusyCalls != 1 || sum.CanceledCalls != 1 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if sum.TotalDurationSeconds != 90 {
		t.Fatalf("expected 90s total, got %d", sum.TotalDurationSeconds)
	}
	// average over connected calls only (2 completed + 1 dropped)
	if sum.AverageDurationSeconds != 30 {
		t.Fatalf("expected 30s average, got %d", sum.AverageDurationSeconds)
	}
	if sum.RecordedCalls != 1 {
		t.Fatalf("expected 1 recorded call, got %d", sum.RecordedCalls)
	}
}

func TestClear(t *testing.T) {
	svc := testService()
	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 3; i++ {
		if _, err := svc.Append(context.Background(), AppendInput{StudentName: "O", StaffName: "T", Status: CallStatusCanceled, StartedAt: base}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err := svc.Clear(context.Background())
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 cleared, got %d", n)
	}
	rows, err := svc.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty history, got %d", len(rows))
	}
}

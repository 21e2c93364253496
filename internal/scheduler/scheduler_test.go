package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/codr1/courtsync/internal/calsync"
)

type fakeRunner struct {
	mu      sync.Mutex
	windows []calsync.Window
	err     error
	sawDL   bool
}

func (f *fakeRunner) Run(ctx context.Context, window calsync.Window) (calsync.RunReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, window)
	_, f.sawDL = ctx.Deadline()
	return calsync.RunReport{Window: window}, f.err
}

func TestRunReconcile(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "success"},
		{name: "guard held", err: calsync.ErrRunInProgress},
		{name: "selection failure", err: errors.New("database locked"), wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{err: tc.err}
			_, err := runReconcile(runner, calsync.WindowToday, time.Second, zerolog.Nop())
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if len(runner.windows) != 1 || runner.windows[0] != calsync.WindowToday {
				t.Fatalf("windows = %v", runner.windows)
			}
			if !runner.sawDL {
				t.Fatalf("run context has no deadline")
			}
		})
	}
}

func TestRegisterReconcileJobs(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = Stop() })

	if err := RegisterReconcileJobs(nil, ReconcileSchedule{}); err == nil {
		t.Fatalf("expected error without runner")
	}
	if err := RegisterReconcileJobs(&fakeRunner{}, ReconcileSchedule{TodayCron: "not a cron", MonthCron: "0 3 * * *"}); err == nil {
		t.Fatalf("expected error for invalid cron")
	}

	before, err := Jobs()
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if err := RegisterReconcileJobs(&fakeRunner{}, ReconcileSchedule{TodayCron: "*/5 * * * *", MonthCron: "0 3 * * *"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	after, err := Jobs()
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if len(after)-len(before) != 2 {
		t.Fatalf("registered %d jobs, want 2", len(after)-len(before))
	}
	names := map[string]bool{}
	for _, job := range after {
		names[job.Name()] = true
	}
	if !names["calendar_sync_today"] || !names["calendar_sync_month"] {
		t.Fatalf("job names = %v", names)
	}
}

func TestAddJobValidation(t *testing.T) {
	var s *Service
	if _, err := s.AddJob("x", "* * * * *", func() {}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("nil service: %v", err)
	}
	if err := Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := AddJob(" ", "* * * * *", func() {}); !errors.Is(err, ErrEmptyJobName) {
		t.Fatalf("empty name: %v", err)
	}
	if _, err := AddJob("x", "", func() {}); !errors.Is(err, ErrEmptyCronExpr) {
		t.Fatalf("empty cron: %v", err)
	}
}

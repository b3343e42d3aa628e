package recurring

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/tidyops/taskchain/internal/config"
	"github.com/tidyops/taskchain/internal/graph"
	"github.com/tidyops/taskchain/internal/logger"
)

type createCall struct {
	listID string
	req    graph.CreateTaskRequest
}

type fakeCreator struct {
	calls   []createCall
	failFor map[string]error
}

func (f *fakeCreator) CreateTask(ctx context.Context, listID string, req graph.CreateTaskRequest) (*graph.TodoTask, error) {
	if err := f.failFor[req.Title]; err != nil {
		return nil, err
	}
	f.calls = append(f.calls, createCall{listID: listID, req: req})
	return &graph.TodoTask{ID: "created", Title: req.Title}, nil
}

func intPtr(v int) *int { return &v }

func newGenerator(api taskCreator, now time.Time) *Generator {
	g := NewGenerator(api, "HOME", logger.New(logger.Config{Level: slog.LevelError}))
	g.now = func() time.Time { return now }
	return g
}

func TestRunCreatesJobTasks(t *testing.T) {
	api := &fakeCreator{}
	now := time.Date(2026, 8, 3, 5, 0, 12, 0, time.UTC) // a Monday

	job := config.RecurringJob{
		Name:     "monday",
		Schedule: "0 5 * * 1",
		Tasks: []config.RecurringTask{
			{Title: "Wash: Blue Monday", Category: "[00] System", DueHour: intPtr(5)},
			{Title: "Vacuum: through and dust", Category: "[00] System", DueHour: intPtr(5), ReminderHour: intPtr(9)},
		},
	}

	newGenerator(api, now).Run(context.Background(), job)

	if len(api.calls) != 2 {
		t.Fatalf("expected 2 create calls, got %d", len(api.calls))
	}

	first := api.calls[0]
	if first.listID != "HOME" {
		t.Errorf("expected the default list, got %q", first.listID)
	}
	if first.req.DueDateTime == nil || first.req.DueDateTime.DateTime != "2026-08-03T05:00:00.0000000" {
		t.Errorf("unexpected due: %+v", first.req.DueDateTime)
	}
	if first.req.ReminderDateTime != nil || first.req.IsReminderOn {
		t.Errorf("expected no reminder on the first task: %+v", first.req)
	}

	second := api.calls[1]
	if second.req.ReminderDateTime == nil || second.req.ReminderDateTime.DateTime != "2026-08-03T09:00:00.0000000" {
		t.Errorf("unexpected reminder: %+v", second.req.ReminderDateTime)
	}
	if !second.req.IsReminderOn {
		t.Error("expected isReminderOn for a task with a reminder")
	}
}

func TestRunListOverride(t *testing.T) {
	api := &fakeCreator{}
	job := config.RecurringJob{
		Name:     "errands",
		Schedule: "0 5 * * *",
		ListID:   "OTHER",
		Tasks:    []config.RecurringTask{{Title: "Buy: Milk", Category: "[02] Home"}},
	}

	newGenerator(api, time.Now()).Run(context.Background(), job)

	if len(api.calls) != 1 || api.calls[0].listID != "OTHER" {
		t.Fatalf("expected creation in the overridden list, got %+v", api.calls)
	}
	if api.calls[0].req.DueDateTime != nil {
		t.Errorf("expected no due date without due_hour, got %+v", api.calls[0].req.DueDateTime)
	}
}

func TestRunBiweeklyOffWeekSkipped(t *testing.T) {
	api := &fakeCreator{}
	job := config.RecurringJob{
		Name:     "friday",
		Schedule: "0 5 * * 5",
		Tasks: []config.RecurringTask{
			{Title: "Wash: Bath Towels", Category: "[00] System", DueHour: intPtr(5), EverySecondWeekFrom: "2026-02-27"},
			{Title: "Wash: Bedding", Category: "[00] System", DueHour: intPtr(5), EverySecondWeekFrom: "2026-03-06"},
		},
	}

	// 2026-03-06 is one week past the towels anchor and day zero of the
	// bedding series: only bedding fires.
	now := time.Date(2026, 3, 6, 5, 0, 0, 0, time.UTC)
	newGenerator(api, now).Run(context.Background(), job)

	if len(api.calls) != 1 {
		t.Fatalf("expected 1 create call, got %d", len(api.calls))
	}
	if api.calls[0].req.Title != "Wash: Bedding" {
		t.Errorf("expected only the in-phase series, got %q", api.calls[0].req.Title)
	}
}

func TestRunFailureDoesNotAbortJob(t *testing.T) {
	api := &fakeCreator{failFor: map[string]error{"Shower": errors.New("status 503")}}
	job := config.RecurringJob{
		Name:     "morning",
		Schedule: "0 5 * * *",
		Tasks: []config.RecurringTask{
			{Title: "Take: Morning pill", Category: "[01] Self"},
			{Title: "Shower", Category: "[01] Self"},
			{Title: "Train: Place", Category: "[05] Family"},
		},
	}

	newGenerator(api, time.Now()).Run(context.Background(), job)

	if len(api.calls) != 2 {
		t.Fatalf("expected the remaining tasks to be created, got %d calls", len(api.calls))
	}
}

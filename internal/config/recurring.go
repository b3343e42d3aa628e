package config

import (
	"errors"
	"fmt"
	"time"
)

// RecurringConfig contains the scheduled task-creation jobs. Jobs live in
// the config file rather than in code so the set can change without a
// redeployment.
type RecurringConfig struct {
	Jobs []RecurringJob `yaml:"jobs"`
}

// RecurringJob is one cron-scheduled batch of tasks to create.
type RecurringJob struct {
	// Name identifies the job in logs.
	Name string `yaml:"name"`

	// Schedule is a standard 5-field cron expression, evaluated in UTC.
	Schedule string `yaml:"schedule"`

	// ListID overrides the default task list for this job.
	ListID string `yaml:"list_id"`

	Tasks []RecurringTask `yaml:"tasks"`
}

// RecurringTask describes a single task a job creates on each firing.
type RecurringTask struct {
	Title    string `yaml:"title"`
	Category string `yaml:"category"`

	// DueHour/DueMinute set the due time to today (UTC) at that time.
	// Nil DueHour means no due date.
	DueHour   *int `yaml:"due_hour"`
	DueMinute int  `yaml:"due_minute"`

	// ReminderHour sets a reminder for today (UTC) at that hour.
	ReminderHour *int `yaml:"reminder_hour"`

	// EverySecondWeekFrom anchors an alternating biweekly series at a date
	// (YYYY-MM-DD). The task is only created on firings an even number of
	// weeks after the anchor. Each series keeps its own anchor; two series
	// sharing a weekday do not share phase.
	EverySecondWeekFrom string `yaml:"every_second_week_from"`
}

// Validate performs validation of a RecurringConfig value:
// - Checks that every job has a name, a schedule, and at least one task
// - Checks for duplicate job names
// - Checks that task titles are present and biweekly anchors parse
func (cfg *RecurringConfig) Validate() error {
	if len(cfg.Jobs) == 0 {
		return errors.New("no jobs specified in recurring configuration")
	}

	names := make(map[string]struct{}, len(cfg.Jobs))

	for _, job := range cfg.Jobs {
		if job.Name == "" {
			return errors.New("recurring job with empty name")
		}
		if _, ok := names[job.Name]; ok {
			return fmt.Errorf("duplicate recurring job name: %q", job.Name)
		}
		names[job.Name] = struct{}{}

		if job.Schedule == "" {
			return fmt.Errorf("recurring job %q has no schedule", job.Name)
		}
		if len(job.Tasks) == 0 {
			return fmt.Errorf("recurring job %q has no tasks", job.Name)
		}

		for _, task := range job.Tasks {
			if task.Title == "" {
				return fmt.Errorf("recurring job %q has a task with an empty title", job.Name)
			}
			if task.DueHour != nil && (*task.DueHour < 0 || *task.DueHour > 23) {
				return fmt.Errorf("recurring task %q: due_hour out of range", task.Title)
			}
			if task.DueMinute < 0 || task.DueMinute > 59 {
				return fmt.Errorf("recurring task %q: due_minute out of range", task.Title)
			}
			if task.ReminderHour != nil && (*task.ReminderHour < 0 || *task.ReminderHour > 23) {
				return fmt.Errorf("recurring task %q: reminder_hour out of range", task.Title)
			}
			if task.EverySecondWeekFrom != "" {
				if _, err := task.Anchor(); err != nil {
					return fmt.Errorf("recurring task %q: bad anchor date: %w", task.Title, err)
				}
			}
		}
	}

	return nil
}

// Anchor parses the biweekly series anchor date as midnight UTC.
func (t *RecurringTask) Anchor() (time.Time, error) {
	return time.Parse("2006-01-02", t.EverySecondWeekFrom)
}

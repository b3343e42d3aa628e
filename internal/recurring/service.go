package recurring

import (
	"context"
	"log/slog"
	"time"

	"github.com/tidyops/taskchain/internal/config"
	"github.com/tidyops/taskchain/internal/graph"
	"github.com/tidyops/taskchain/internal/logger"
	"github.com/tidyops/taskchain/internal/metrics"
)

// taskCreator is the slice of the graph client the generator needs.
type taskCreator interface {
	CreateTask(ctx context.Context, listID string, task graph.CreateTaskRequest) (*graph.TodoTask, error)
}

// Generator creates the configured task sets when their schedules fire.
// There is no idempotence check here: the scheduler fires each job at most
// once per period, and that is the whole guarantee.
type Generator struct {
	api           taskCreator
	defaultListID string
	logger        *logger.Logger
	now           func() time.Time
}

// NewGenerator creates a recurring task generator. defaultListID receives
// tasks of jobs that don't name their own list.
func NewGenerator(api taskCreator, defaultListID string, logger *logger.Logger) *Generator {
	return &Generator{
		api:           api,
		defaultListID: defaultListID,
		logger:        logger.WithComponent("recurring-generator"),
		now:           time.Now,
	}
}

// Run executes one firing of a job: every task in the job is created,
// except biweekly tasks whose series is in its off week. Failures are
// logged per task and never abort the rest of the job.
func (g *Generator) Run(ctx context.Context, job config.RecurringJob) {
	ctx = logger.WithJob(ctx, job.Name)
	log := g.logger.WithContext(ctx)

	log.Info("recurring job fired", slog.Int("tasks", len(job.Tasks)))

	listID := job.ListID
	if listID == "" {
		listID = g.defaultListID
	}

	now := g.now().UTC()
	today := TodayAt(now, 0, 0)

	for _, task := range job.Tasks {
		if task.EverySecondWeekFrom != "" {
			anchor, err := task.Anchor()
			if err != nil {
				log.Error("bad biweekly anchor, skipping task",
					slog.String("title", task.Title),
					slog.String("anchor", task.EverySecondWeekFrom))
				continue
			}
			if !ShouldFireBiweekly(today, anchor) {
				log.Info("biweekly series in off week, skipping",
					slog.String("title", task.Title))
				continue
			}
		}

		req := graph.CreateTaskRequest{
			Title:      task.Title,
			Categories: []string{task.Category},
		}
		if task.DueHour != nil {
			req.DueDateTime = graph.NewUTCDateTime(TodayAt(now, *task.DueHour, task.DueMinute))
		}
		if task.ReminderHour != nil {
			req.ReminderDateTime = graph.NewUTCDateTime(TodayAt(now, *task.ReminderHour, 0))
			req.IsReminderOn = true
		}

		if _, err := g.api.CreateTask(ctx, listID, req); err != nil {
			log.Error("failed to create recurring task",
				slog.String("title", task.Title),
				slog.String("error", err.Error()))
			continue
		}

		log.Info("recurring task created", slog.String("title", task.Title))
		metrics.RecurringTasksCreatedTotal.Inc()
	}
}

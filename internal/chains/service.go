package chains

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/tidyops/taskchain/internal/errors"
	"github.com/tidyops/taskchain/internal/graph"
	"github.com/tidyops/taskchain/internal/logger"
	"github.com/tidyops/taskchain/internal/metrics"
)

// listResourcePattern extracts the list identifier from a notification's
// resource locator, e.g. "users/u1/todo/lists('AAMk...')/tasks".
var listResourcePattern = regexp.MustCompile(`lists\('([^']+)'\)`)

// graphAPI is the slice of the graph client the dispatcher needs.
type graphAPI interface {
	ListTaskLists(ctx context.Context) ([]graph.TaskList, error)
	ListTasks(ctx context.Context, listID string) ([]graph.TodoTask, error)
	ListCompletedTasks(ctx context.Context, listID string) ([]graph.TodoTask, error)
	CreateTask(ctx context.Context, listID string, task graph.CreateTaskRequest) (*graph.TodoTask, error)
}

// ruleLoader loads the chain-rule document.
type ruleLoader interface {
	Load(ctx context.Context) ([]ChainRule, error)
}

// Dispatcher turns task-completion notifications into successor tasks.
//
// Idempotence relies on a read-before-write existence check against the
// remote store. Two near-simultaneous deliveries can both pass the check
// before either creates the successor; the remote store offers no
// idempotency key, so the race is accepted rather than solved.
type Dispatcher struct {
	api    graphAPI
	rules  ruleLoader
	logger *logger.Logger
	now    func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(api graphAPI, rules ruleLoader, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{
		api:    api,
		rules:  rules,
		logger: logger.WithComponent("chain-dispatcher"),
		now:    time.Now,
	}
}

// Handle processes one notification batch. Every notification, completed
// task, and rule application is isolated: a failure in one is recorded and
// the rest of the batch proceeds.
func (d *Dispatcher) Handle(ctx context.Context, notifications []Notification) Result {
	log := d.logger.WithContext(ctx)

	var result Result

	rules, err := d.rules.Load(ctx)
	if err != nil {
		log.Error("failed to load chain rules", slog.String("error", err.Error()))
		metrics.OperationFailuresTotal.WithLabelValues(string(errors.KindOf(err))).Inc()
		result.fail("", "", err)
		return result
	}

	for _, notification := range notifications {
		metrics.NotificationsTotal.Inc()
		d.handleNotification(ctx, notification, rules, &result)
	}

	log.Info("notification batch processed",
		slog.Int("notifications", len(notifications)),
		slog.Int("created", result.Created),
		slog.Int("skipped_existing", result.Skipped),
		slog.Int("failures", len(result.Failures)))

	return result
}

func (d *Dispatcher) handleNotification(ctx context.Context, notification Notification, rules []ChainRule, result *Result) {
	log := d.logger.WithContext(ctx)

	listID, err := ParseListResource(notification.Resource)
	if err != nil {
		log.Warn("skipping notification with unparsable resource",
			slog.String("resource", notification.Resource))
		metrics.OperationFailuresTotal.WithLabelValues(string(errors.KindMalformed)).Inc()
		result.fail(notification.Resource, "", err)
		return
	}

	completed, err := d.api.ListCompletedTasks(ctx, listID)
	if err != nil {
		log.Error("failed to list completed tasks",
			slog.String("list_id", listID),
			slog.String("error", err.Error()))
		metrics.OperationFailuresTotal.WithLabelValues(string(errors.KindOf(err))).Inc()
		result.fail(notification.Resource, "", err)
		return
	}

	for _, task := range completed {
		rule := matchRule(rules, task.Title)
		if rule == nil {
			continue
		}

		log.Info("chain rule matched",
			slog.String("trigger", rule.TriggerTask),
			slog.String("creates", rule.CreatesTask))

		if err := d.applyRule(ctx, rule, result); err != nil {
			log.Error("failed to apply chain rule",
				slog.String("rule", rule.TriggerTask),
				slog.String("error", err.Error()))
			metrics.OperationFailuresTotal.WithLabelValues(string(errors.KindOf(err))).Inc()
			result.fail(notification.Resource, rule.TriggerTask, err)
		}
	}
}

// applyRule resolves the target list, checks for an existing successor, and
// creates the successor task if absent.
func (d *Dispatcher) applyRule(ctx context.Context, rule *ChainRule, result *Result) error {
	const op = "chains.Dispatcher.applyRule"
	log := d.logger.WithContext(ctx)

	listID, err := d.resolveList(ctx, rule.List)
	if err != nil {
		return err
	}

	existing, err := d.api.ListTasks(ctx, listID)
	if err != nil {
		return err
	}

	for _, task := range existing {
		if task.Title == rule.CreatesTask {
			log.Info("successor already exists, skipping",
				slog.String("title", rule.CreatesTask),
				slog.String("list", rule.List))
			metrics.SuccessorsSkippedTotal.Inc()
			result.Skipped++
			return nil
		}
	}

	req := graph.CreateTaskRequest{
		Title:      rule.CreatesTask,
		Categories: []string{rule.Category},
	}

	if rule.DueTime != "" {
		due, err := d.dueToday(rule.DueTime)
		if err != nil {
			return errors.E(op, errors.KindMalformed,
				fmt.Errorf("bad due_time %q: %w", rule.DueTime, err))
		}
		req.DueDateTime = graph.NewUTCDateTime(due)
	}

	if _, err := d.api.CreateTask(ctx, listID, req); err != nil {
		return err
	}

	log.Info("successor task created",
		slog.String("title", rule.CreatesTask),
		slog.String("list", rule.List))
	metrics.SuccessorsCreatedTotal.Inc()
	result.Created++
	return nil
}

// resolveList maps a list display name to its identifier.
func (d *Dispatcher) resolveList(ctx context.Context, name string) (string, error) {
	const op = "chains.Dispatcher.resolveList"

	lists, err := d.api.ListTaskLists(ctx)
	if err != nil {
		return "", err
	}

	for _, list := range lists {
		if list.DisplayName == name {
			return list.ID, nil
		}
	}

	return "", errors.E(op, errors.KindNotFound,
		fmt.Errorf("list not found: %q", name))
}

// dueToday combines an "HH:MM" clock time with today's date, UTC, as of
// invocation time. The trigger task's actual completion timestamp is
// deliberately ignored.
func (d *Dispatcher) dueToday(clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}

	now := d.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, time.UTC), nil
}

// matchRule returns the first rule in document order whose trigger equals
// title exactly, or nil when nothing matches.
func matchRule(rules []ChainRule, title string) *ChainRule {
	for i := range rules {
		if rules[i].TriggerTask == title {
			return &rules[i]
		}
	}
	return nil
}

// ParseListResource extracts the list identifier from a notification
// resource locator.
func ParseListResource(resource string) (string, error) {
	const op = "chains.ParseListResource"

	match := listResourcePattern.FindStringSubmatch(resource)
	if match == nil {
		return "", errors.E(op, errors.KindMalformed,
			fmt.Errorf("no list identifier in resource %q", resource))
	}
	return match[1], nil
}

package subscriptions

import (
	"context"
	"log/slog"
	"time"

	"github.com/tidyops/taskchain/internal/errors"
	"github.com/tidyops/taskchain/internal/graph"
	"github.com/tidyops/taskchain/internal/logger"
	"github.com/tidyops/taskchain/internal/metrics"
)

// subscriptionAPI is the slice of the graph client the renewer needs.
type subscriptionAPI interface {
	ListSubscriptions(ctx context.Context) ([]graph.Subscription, error)
	RenewSubscription(ctx context.Context, subscriptionID string, newExpiry time.Time) error
}

// Result summarizes one renewal run.
type Result struct {
	Renewed  int
	Current  int
	Failures int
}

// Renewer extends webhook subscriptions before they lapse. The remote
// platform caps subscription lifetimes at roughly 70.5 hours; the renewer
// runs daily and extends anything expiring within the lookahead window, so
// every subscription is touched at least once before it expires even when
// a firing is missed or delayed.
type Renewer struct {
	api       subscriptionAPI
	lookahead time.Duration
	extension time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewRenewer creates a renewer. lookahead is how close to expiry a
// subscription must be to get renewed; extension is the new lifetime
// granted from now, and must stay under the platform cap.
func NewRenewer(api subscriptionAPI, lookahead, extension time.Duration, logger *logger.Logger) *Renewer {
	return &Renewer{
		api:       api,
		lookahead: lookahead,
		extension: extension,
		logger:    logger.WithComponent("subscription-renewer"),
		now:       time.Now,
	}
}

// RenewExpiring lists all subscriptions and extends those expiring within
// the lookahead window. Malformed expiries and failed renewals are logged
// and skipped; they never abort the rest of the batch.
func (r *Renewer) RenewExpiring(ctx context.Context) Result {
	log := r.logger.WithContext(ctx)

	var result Result

	subs, err := r.api.ListSubscriptions(ctx)
	if err != nil {
		log.Error("failed to list subscriptions", slog.String("error", err.Error()))
		metrics.OperationFailuresTotal.WithLabelValues(string(errors.KindOf(err))).Inc()
		result.Failures++
		return result
	}

	log.Info("subscriptions fetched", slog.Int("count", len(subs)))

	now := r.now().UTC()
	threshold := now.Add(r.lookahead)
	newExpiry := now.Add(r.extension)

	for _, sub := range subs {
		expiry, err := time.Parse(time.RFC3339, sub.ExpirationDateTime)
		if err != nil {
			log.Warn("could not parse subscription expiry, skipping",
				slog.String("subscription_id", sub.ID),
				slog.String("expiry", sub.ExpirationDateTime))
			metrics.OperationFailuresTotal.WithLabelValues(string(errors.KindMalformed)).Inc()
			result.Failures++
			continue
		}

		if expiry.After(threshold) {
			log.Info("subscription is current",
				slog.String("subscription_id", sub.ID),
				slog.Time("expires", expiry))
			result.Current++
			continue
		}

		log.Info("renewing subscription",
			slog.String("subscription_id", sub.ID),
			slog.String("resource", sub.Resource),
			slog.Time("expires", expiry))

		if err := r.api.RenewSubscription(ctx, sub.ID, newExpiry); err != nil {
			log.Error("failed to renew subscription",
				slog.String("subscription_id", sub.ID),
				slog.String("error", err.Error()))
			metrics.OperationFailuresTotal.WithLabelValues(string(errors.KindOf(err))).Inc()
			result.Failures++
			continue
		}

		log.Info("subscription renewed",
			slog.String("subscription_id", sub.ID),
			slog.Time("new_expiry", newExpiry))
		metrics.SubscriptionsRenewedTotal.Inc()
		result.Renewed++
	}

	return result
}

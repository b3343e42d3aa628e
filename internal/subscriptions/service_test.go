package subscriptions

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/tidyops/taskchain/internal/graph"
	"github.com/tidyops/taskchain/internal/logger"
)

type renewCall struct {
	id     string
	expiry time.Time
}

type fakeSubscriptionAPI struct {
	subs    []graph.Subscription
	listErr error

	renewCalls []renewCall
	renewErr   map[string]error
}

func (f *fakeSubscriptionAPI) ListSubscriptions(ctx context.Context) ([]graph.Subscription, error) {
	return f.subs, f.listErr
}

func (f *fakeSubscriptionAPI) RenewSubscription(ctx context.Context, id string, newExpiry time.Time) error {
	if err := f.renewErr[id]; err != nil {
		return err
	}
	f.renewCalls = append(f.renewCalls, renewCall{id: id, expiry: newExpiry})
	return nil
}

func newRenewer(api subscriptionAPI, now time.Time) *Renewer {
	r := NewRenewer(api, 48*time.Hour, 4200*time.Minute,
		logger.New(logger.Config{Level: slog.LevelError}))
	r.now = func() time.Time { return now }
	return r
}

func TestRenewExpiringWithinWindow(t *testing.T) {
	now := time.Date(2026, 8, 29, 7, 0, 0, 0, time.UTC)
	api := &fakeSubscriptionAPI{
		subs: []graph.Subscription{
			{ID: "s1", Resource: "lists('L0')", ExpirationDateTime: now.Add(12 * time.Hour).Format(time.RFC3339)},
			{ID: "s2", Resource: "lists('L1')", ExpirationDateTime: now.Add(60 * time.Hour).Format(time.RFC3339)},
		},
	}

	result := newRenewer(api, now).RenewExpiring(context.Background())

	if result.Renewed != 1 || result.Current != 1 || result.Failures != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(api.renewCalls) != 1 || api.renewCalls[0].id != "s1" {
		t.Fatalf("expected only s1 renewed, got %+v", api.renewCalls)
	}

	wantExpiry := now.Add(4200 * time.Minute)
	if !api.renewCalls[0].expiry.Equal(wantExpiry) {
		t.Errorf("expected new expiry %v, got %v", wantExpiry, api.renewCalls[0].expiry)
	}
}

func TestRenewExpiryAtThresholdIsRenewed(t *testing.T) {
	now := time.Date(2026, 8, 29, 7, 0, 0, 0, time.UTC)
	api := &fakeSubscriptionAPI{
		subs: []graph.Subscription{
			{ID: "s1", ExpirationDateTime: now.Add(48 * time.Hour).Format(time.RFC3339)},
		},
	}

	result := newRenewer(api, now).RenewExpiring(context.Background())

	if result.Renewed != 1 {
		t.Fatalf("expected a subscription expiring exactly at the threshold to be renewed, got %+v", result)
	}
}

func TestRenewMalformedExpirySkipped(t *testing.T) {
	now := time.Date(2026, 8, 29, 7, 0, 0, 0, time.UTC)
	api := &fakeSubscriptionAPI{
		subs: []graph.Subscription{
			{ID: "s1", ExpirationDateTime: "not-a-timestamp"},
			{ID: "s2", ExpirationDateTime: now.Add(time.Hour).Format(time.RFC3339)},
		},
	}

	result := newRenewer(api, now).RenewExpiring(context.Background())

	if result.Failures != 1 {
		t.Errorf("expected 1 failure for the malformed expiry, got %d", result.Failures)
	}
	if result.Renewed != 1 || len(api.renewCalls) != 1 || api.renewCalls[0].id != "s2" {
		t.Fatalf("expected the rest of the batch to proceed, got %+v", api.renewCalls)
	}
}

func TestRenewFractionalSecondsExpiry(t *testing.T) {
	now := time.Date(2026, 8, 29, 7, 0, 0, 0, time.UTC)
	api := &fakeSubscriptionAPI{
		subs: []graph.Subscription{
			{ID: "s1", ExpirationDateTime: "2026-08-29T19:00:00.0000000Z"},
		},
	}

	result := newRenewer(api, now).RenewExpiring(context.Background())

	if result.Renewed != 1 {
		t.Fatalf("expected a fractional-seconds expiry to parse and renew, got %+v", result)
	}
}

func TestRenewFailureDoesNotAbortBatch(t *testing.T) {
	now := time.Date(2026, 8, 29, 7, 0, 0, 0, time.UTC)
	api := &fakeSubscriptionAPI{
		subs: []graph.Subscription{
			{ID: "s1", ExpirationDateTime: now.Add(time.Hour).Format(time.RFC3339)},
			{ID: "s2", ExpirationDateTime: now.Add(2 * time.Hour).Format(time.RFC3339)},
		},
		renewErr: map[string]error{"s1": errors.New("status 502")},
	}

	result := newRenewer(api, now).RenewExpiring(context.Background())

	if result.Failures != 1 || result.Renewed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(api.renewCalls) != 1 || api.renewCalls[0].id != "s2" {
		t.Fatalf("expected s2 still renewed, got %+v", api.renewCalls)
	}
}

func TestRenewListFailure(t *testing.T) {
	api := &fakeSubscriptionAPI{listErr: errors.New("status 500")}

	result := newRenewer(api, time.Now()).RenewExpiring(context.Background())

	if result.Failures != 1 || result.Renewed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

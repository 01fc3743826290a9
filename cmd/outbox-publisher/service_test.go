package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type fakePinger struct {
	err   error
	calls int
}

func (p *fakePinger) Ping(context.Context) error {
	p.calls++
	return p.err
}

type scriptedDispatcher struct {
	batches []dispatchResult
	calls   int
	cancel  context.CancelFunc
}

type dispatchResult struct {
	stats notifications.BatchStats
	err   error
}

func (d *scriptedDispatcher) DispatchBatch(context.Context) (notifications.BatchStats, error) {
	d.calls++
	if d.calls > len(d.batches) {
		d.cancel()
		return notifications.BatchStats{}, nil
	}
	res := d.batches[d.calls-1]
	return res.stats, res.err
}

func newTestService(t *testing.T, db, redis pinger, dispatcher batchDispatcher) (*Service, *[]time.Duration) {
	t.Helper()
	cfg := &config.Config{Outbox: config.OutboxConfig{PollIntervalMS: 100}}
	svc, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         db,
		Redis:      redis,
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	var sleeps []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return svc, &sleeps
}

func TestRunDrainsBusyQueueWithoutSleeping(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher := &scriptedDispatcher{
		cancel: cancel,
		batches: []dispatchResult{
			{stats: notifications.BatchStats{Fetched: 50, Delivered: 50}},
			{stats: notifications.BatchStats{Fetched: 3, Delivered: 2, Failed: 1}},
		},
	}
	svc, sleeps := newTestService(t, &fakePinger{}, &fakePinger{}, dispatcher)

	err := svc.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if dispatcher.calls != 3 {
		t.Fatalf("expected 3 dispatch calls, got %d", dispatcher.calls)
	}
	// Only the empty third batch waits.
	if len(*sleeps) != 1 {
		t.Fatalf("expected a single idle sleep, got %d", len(*sleeps))
	}
}

func TestRunBacksOffAfterBatchError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher := &scriptedDispatcher{
		cancel: cancel,
		batches: []dispatchResult{
			{err: errors.New("fetch failed")},
			{err: errors.New("fetch failed")},
		},
	}
	svc, sleeps := newTestService(t, &fakePinger{}, nil, dispatcher)

	_ = svc.Run(ctx)
	if len(*sleeps) < 2 {
		t.Fatalf("expected backoff sleeps, got %v", *sleeps)
	}
	first, second := (*sleeps)[0], (*sleeps)[1]
	if first < 200*time.Millisecond {
		t.Fatalf("first backoff should double the poll interval, got %v", first)
	}
	if second < 400*time.Millisecond {
		t.Fatalf("second backoff should double again, got %v", second)
	}
}

func TestRunFailsWhenDatabaseUnavailable(t *testing.T) {
	db := &fakePinger{err: errors.New("connection refused")}
	dispatcher := &scriptedDispatcher{cancel: func() {}}
	svc, _ := newTestService(t, db, nil, dispatcher)

	if err := svc.Run(context.Background()); err == nil {
		t.Fatalf("expected readiness error")
	}
	if dispatcher.calls != 0 {
		t.Fatalf("dispatcher should not run before readiness passes")
	}
}

func TestNextBackoffCapsAtMax(t *testing.T) {
	got := nextBackoff(8*time.Second, time.Second, maxBackoff)
	if got != maxBackoff {
		t.Fatalf("expected cap %v, got %v", maxBackoff, got)
	}
	if got := nextBackoff(0, time.Second, maxBackoff); got != 2*time.Second {
		t.Fatalf("expected zero backoff to start from base, got %v", got)
	}
}

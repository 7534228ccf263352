package importer

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"luxemarket_api/internal/suppliers"
)

// RateGate bounds how hard one import job hits a supplier: a semaphore caps
// in-flight calls and a fixed delay separates pages. The page delay exists
// for aggregate supplier quotas and is independent of per-call retry backoff.
type RateGate struct {
	sem       *semaphore.Weighted
	pageDelay time.Duration
}

func NewRateGate(capacity int, pageDelay time.Duration) *RateGate {
	if capacity <= 0 {
		capacity = 1
	}
	return &RateGate{
		sem:       semaphore.NewWeighted(int64(capacity)),
		pageDelay: pageDelay,
	}
}

func (g *RateGate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

func (g *RateGate) Release() {
	g.sem.Release(1)
}

func (g *RateGate) PageDelay(ctx context.Context) error {
	return suppliers.SleepWithContext(ctx, g.pageDelay)
}

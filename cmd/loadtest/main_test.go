package main

import (
	"context"
	"testing"

	"github.com/erain9/limitbook/pkg/core"
	"github.com/erain9/limitbook/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	svc := service.NewOrderService("LOADTEST", core.NewOrderBook())

	stats, err := run(context.Background(), svc, options{
		workers:   4,
		perWorker: 250,
		midPrice:  1000,
		spread:    5,
		maxQty:    10,
		cancelPct: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), stats.latency.TotalCount())
	assert.Zero(t, stats.errors)
	assert.Positive(t, stats.fills)

	q := svc.BestBidAsk()
	if q.BestBid != core.NoPrice && q.BestAsk != core.NoPrice {
		assert.Less(t, q.BestBid, q.BestAsk)
	}
}

func TestRun_InvalidOptions(t *testing.T) {
	svc := service.NewOrderService("LOADTEST", core.NewOrderBook())
	_, err := run(context.Background(), svc, options{workers: 1, perWorker: 1, midPrice: 5, spread: 10, maxQty: 1})
	assert.Error(t, err)
}

func TestRun_RateLimitedStopsOnCancel(t *testing.T) {
	svc := service.NewOrderService("LOADTEST", core.NewOrderBook())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := run(ctx, svc, options{workers: 2, perWorker: 100, rps: 1, midPrice: 100, spread: 2, maxQty: 1})
	require.NoError(t, err)
	assert.Less(t, stats.latency.TotalCount(), int64(200))
}

// Command loadtest drives a synthetic order flow through an in-process
// OrderService and reports submit latency percentiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/erain9/limitbook/pkg/core"
	"github.com/erain9/limitbook/pkg/logging"
	"github.com/erain9/limitbook/pkg/service"
	"golang.org/x/time/rate"
)

type options struct {
	workers   int
	perWorker int
	rps       int
	midPrice  int
	spread    int
	maxQty    int
	cancelPct int
}

func main() {
	opts := options{}
	flag.IntVar(&opts.workers, "workers", 16, "Concurrent order producers")
	flag.IntVar(&opts.perWorker, "orders", 10000, "Orders per worker")
	flag.IntVar(&opts.rps, "rps", 0, "Total submit rate limit, 0 for unlimited")
	flag.IntVar(&opts.midPrice, "mid", 10000, "Mid price in ticks")
	flag.IntVar(&opts.spread, "spread", 20, "Half width of the price band in ticks")
	flag.IntVar(&opts.maxQty, "max_qty", 50, "Maximum order quantity")
	flag.IntVar(&opts.cancelPct, "cancel_pct", 10, "Percent of resting remainders canceled")
	logLevel := flag.String("log_level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	logger := logging.Setup(logging.ConfigFor(*logLevel, "pretty"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	svc := service.NewOrderService("LOADTEST", core.NewOrderBook(core.WithLevelCapacity(4*opts.spread)))

	stats, err := run(ctx, svc, opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("Load test failed")
	}

	logger.Info().
		Int64("orders", stats.latency.TotalCount()).
		Int("fills", stats.fills).
		Int("canceled", stats.canceled).
		Int("errors", stats.errors).
		Int("resting", svc.Len()).
		Dur("elapsed", stats.elapsed).
		Float64("orders_per_sec", float64(stats.latency.TotalCount())/stats.elapsed.Seconds()).
		Msg("Load test completed")

	fmt.Printf("submit latency (us): p50=%d p90=%d p99=%d p99.9=%d max=%d mean=%.1f\n",
		stats.latency.ValueAtQuantile(50),
		stats.latency.ValueAtQuantile(90),
		stats.latency.ValueAtQuantile(99),
		stats.latency.ValueAtQuantile(99.9),
		stats.latency.Max(),
		stats.latency.Mean(),
	)

	if stats.errors > 0 {
		os.Exit(1)
	}
}

type result struct {
	latency  *hdrhistogram.Histogram
	fills    int
	canceled int
	errors   int
	elapsed  time.Duration
}

func newHistogram() *hdrhistogram.Histogram {
	// 1us .. 10s at three significant figures
	return hdrhistogram.New(1, 10_000_000, 3)
}

func run(ctx context.Context, svc *service.OrderService, opts options) (*result, error) {
	if opts.workers <= 0 || opts.perWorker <= 0 || opts.maxQty <= 0 || opts.spread <= 0 || opts.midPrice <= opts.spread {
		return nil, fmt.Errorf("invalid options %+v", opts)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.rps), opts.workers)
	}

	total := &result{latency: newHistogram()}
	var mu sync.Mutex
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < opts.workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			local := &result{latency: newHistogram()}
			rng := rand.New(rand.NewSource(int64(worker) + 1))

			for i := 0; i < opts.perWorker; i++ {
				if err := limiter.Wait(ctx); err != nil {
					break
				}

				side := core.Side(rng.Intn(2))
				price := core.Price(opts.midPrice - opts.spread + rng.Intn(2*opts.spread+1))
				qty := core.Quantity(1 + rng.Intn(opts.maxQty))

				began := time.Now()
				res, err := svc.Submit(ctx, side, price, qty)
				_ = local.latency.RecordValue(time.Since(began).Microseconds())
				if err != nil {
					local.errors++
					continue
				}
				local.fills += len(res.Fills)

				if res.Rested && rng.Intn(100) < opts.cancelPct {
					if svc.Cancel(ctx, res.RestingID) == core.Canceled {
						local.canceled++
					}
				}
			}

			mu.Lock()
			total.latency.Merge(local.latency)
			total.fills += local.fills
			total.canceled += local.canceled
			total.errors += local.errors
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	total.elapsed = time.Since(start)

	return total, nil
}

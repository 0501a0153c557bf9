// Command lobd runs a single-instrument order book driven by line commands
// on stdin. Reports go to Kafka and quotes to Redis when configured.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/erain9/limitbook/config"
	"github.com/erain9/limitbook/pkg/core"
	"github.com/erain9/limitbook/pkg/db/queue"
	"github.com/erain9/limitbook/pkg/logging"
	"github.com/erain9/limitbook/pkg/marketdata/redis"
	"github.com/erain9/limitbook/pkg/messaging"
	"github.com/erain9/limitbook/pkg/messaging/kafka"
	"github.com/erain9/limitbook/pkg/otel"
	"github.com/erain9/limitbook/pkg/service"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	logCfg := logging.ConfigFor(cfg.Log.Level, cfg.Log.Format)
	logCfg.Output = os.Stderr
	logger := logging.Setup(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanup, err := otel.Init(otel.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "lobd",
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Endpoint:       cfg.Telemetry.Endpoint,
		RuntimeMetrics: cfg.Telemetry.RuntimeMetrics,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize OpenTelemetry")
	}
	defer cleanup()

	svc, err := newService(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build order service")
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close order service")
		}
	}()

	if cfg.Kafka.Enabled && cfg.Kafka.Tail {
		consumer := kafka.SetupConsumer(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer consumer.Close()
	}

	logger.Info().
		Str("instrument", cfg.Book.Instrument).
		Bool("kafka", cfg.Kafka.Enabled).
		Bool("redis", cfg.Redis.Enabled).
		Msg("Order book ready")

	sh := newShell(svc, os.Stdout)
	printUsage(os.Stdout)
	if err := sh.run(ctx, os.Stdin); err != nil {
		logger.Error().Err(err).Msg("Input error")
	}
}

func newService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*service.OrderService, error) {
	var ids core.IDSource = core.NewSequentialIDs(0)
	if cfg.Book.IDSource == config.IDSourceRandom {
		ids = core.NewRandomIDs()
	}

	book := core.NewOrderBook(
		core.WithIDSource(ids),
		core.WithLevelCapacity(cfg.Book.LevelCapacity),
		core.WithLogger(logger.With().Str("component", "book").Logger()),
	)

	opts := []service.Option{service.WithLogger(logger)}

	if cfg.Kafka.Enabled {
		sender, err := newSender(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithMessageSender(sender))
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Addr, err)
		}
		zapLogger, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			service.WithPublisher(redis.NewQuotePublisher(client, cfg.Redis.Prefix, zapLogger)),
			service.WithQuoteDepth(cfg.Redis.Depth),
		)
	}

	return service.NewOrderService(cfg.Book.Instrument, book, opts...), nil
}

func newSender(cfg *config.Config) (messaging.MessageSender, error) {
	if cfg.Kafka.Client == config.KafkaClientSarama {
		return queue.NewQueueMessageSender(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}
	return kafka.NewKafkaMessageSender(cfg.Kafka.Brokers, cfg.Kafka.Topic), nil
}

// Package testutil holds helpers for tests that talk to live Redis or Kafka.
// Every helper skips the calling test when the dependency cannot be reached.
package testutil

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

const probeTimeout = 2 * time.Second

// ProbeTopic is read from to check that a Kafka broker answers fetches
const ProbeTopic = "limitbook-test"

// RedisAddr returns LIMITBOOK_TEST_REDIS or the local default
func RedisAddr() string {
	if addr := os.Getenv("LIMITBOOK_TEST_REDIS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// KafkaAddr returns LIMITBOOK_TEST_KAFKA or the local default
func KafkaAddr() string {
	if addr := os.Getenv("LIMITBOOK_TEST_KAFKA"); addr != "" {
		return addr
	}
	return "localhost:9092"
}

// SkipIfRedisUnavailable skips the test unless Redis answers PING at redisAddr
func SkipIfRedisUnavailable(t testing.TB, redisAddr string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping test: Redis not available at %s - %v", redisAddr, err)
	}
}

// SkipIfKafkaUnavailable skips the test unless a broker at kafkaAddr accepts
// connections and answers a fetch
func SkipIfKafkaUnavailable(t testing.TB, kafkaAddr string) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", kafkaAddr, probeTimeout)
	if err != nil {
		t.Skipf("Skipping test: Kafka not available at %s - %v", kafkaAddr, err)
		return
	}
	_ = conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{kafkaAddr},
		Topic:       ProbeTopic,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})
	defer reader.Close()

	// no message is expected, only an answer
	_, err = reader.FetchMessage(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, io.EOF) {
		t.Skipf("Skipping test: Kafka at %s is not responding correctly - %v", kafkaAddr, err)
	}
}

// SkipIfDependenciesUnavailable skips the test if either Redis or Kafka is unavailable
func SkipIfDependenciesUnavailable(t testing.TB, redisAddr, kafkaAddr string) {
	t.Helper()
	SkipIfRedisUnavailable(t, redisAddr)
	SkipIfKafkaUnavailable(t, kafkaAddr)
}

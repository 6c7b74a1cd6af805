// Package publish fans computed PnL data out to Redis for external
// dashboards and downstream consumers: per-account snapshot streams plus a
// latest-cumulative key with pubsub notification.
package publish

import (
	"context"
	"fmt"
	"log"
	"time"

	"risk-monitorv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Per-account snapshot streams keep roughly a week of 15s-cycle history.
	snapshotStreamMaxLen = 40000
	latestTTL            = 30 * time.Minute
)

// WriterConfig configures the Redis publisher.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes PnL snapshots and cumulative views to Redis.
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[publish] connected to %s", cfg.Addr)
	return &Writer{client: client}, nil
}

// PublishSnapshot appends one PnL history row to the account's stream, sets
// the latest-value key, and notifies pubsub subscribers in a single
// pipeline roundtrip.
func (w *Writer) PublishSnapshot(ctx context.Context, snap model.PnlSnapshot) {
	jsonData := string(snap.JSON())

	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: "pnl:snapshots:" + snap.AccountID,
		MaxLen: snapshotStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Set(ctx, "pnl:latest:"+snap.AccountID, jsonData, latestTTL)
	pipe.Publish(ctx, "pub:pnl:"+snap.AccountID, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[publish] snapshot pipeline error for %s: %v", snap.AccountID, err)
	}
}

// PublishCumulative stores the latest cumulative view and notifies pubsub
// subscribers.
func (w *Writer) PublishCumulative(ctx context.Context, view *model.CumulativeView) {
	jsonData := string(view.JSON())

	pipe := w.client.Pipeline()
	pipe.Set(ctx, "cumulative:latest", jsonData, latestTTL)
	pipe.Publish(ctx, "pub:cumulative", jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[publish] cumulative pipeline error: %v", err)
	}
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}

// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list session event records are pushed onto.
const DefaultQueueName = "bang_session_events"

// SessionEventRecord holds the minimal info the historian persists per mutation.
type SessionEventRecord struct {
	SessionID uuid.UUID              `json:"session_id"`
	Index     int                    `json:"index"`
	ActorID   uuid.UUID              `json:"actor_id"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp int64                  `json:"timestamp"`
}

// Connect builds a client for addr and verifies it with a PING.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Publisher pushes session event records onto a Redis list. Pushes happen on
// their own goroutine so recording never waits on the network.
type Publisher struct {
	rdb     *redis.Client
	queue   string
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewPublisher returns a Publisher writing to queue (DefaultQueueName if empty).
func NewPublisher(rdb *redis.Client, queue string, logger logrus.FieldLogger) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{
		rdb:     rdb,
		queue:   queue,
		timeout: 2 * time.Second,
		log:     logger,
	}
}

// Record publishes rec asynchronously, logging failures.
func (p *Publisher) Record(rec SessionEventRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Publish(ctx, rec); err != nil {
			p.log.WithError(err).Warnf("Error publishing session event %d (%s).", rec.Index, rec.EventType)
		}
	}()
}

// Publish serializes rec and RPUSHes it onto the queue.
func (p *Publisher) Publish(ctx context.Context, rec SessionEventRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal SessionEventRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// Pop blocks up to timeout for the next record on the queue. ok is false when
// the wait timed out with nothing queued.
func Pop(ctx context.Context, rdb *redis.Client, queue string, timeout time.Duration) (rec SessionEventRecord, ok bool, err error) {
	res, err := rdb.BLPop(ctx, timeout, queue).Result()
	if err == redis.Nil {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	if len(res) < 2 {
		return rec, false, nil
	}
	// res[0] is the queue name and res[1] the payload.
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return rec, false, fmt.Errorf("invalid session event record: %w", err)
	}
	return rec, true, nil
}

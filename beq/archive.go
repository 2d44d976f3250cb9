package beq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dexray/beq-node/metrics"
)

const (
	archiveQueueLen        = 256
	archiveWorkers         = 2
	archiveMaxElapsedRetry = 10 * time.Second
)

// ArchiveBackend persists a finished receipt. Implementations must be safe
// for concurrent use.
type ArchiveBackend interface {
	ArchiveReceipt(ctx context.Context, receipt *DecisionReceipt) error
}

// ArchiveQueue ships receipts to the backends off the request path.
// Enqueue never blocks: when the queue is full the receipt is dropped and
// counted, because archival must never gate a response.
type ArchiveQueue struct {
	log      *zap.Logger
	backends []ArchiveBackend
	queue    chan *DecisionReceipt
}

func NewArchiveQueue(log *zap.Logger, backends ...ArchiveBackend) *ArchiveQueue {
	return &ArchiveQueue{
		log:      log,
		backends: backends,
		queue:    make(chan *DecisionReceipt, archiveQueueLen),
	}
}

// Start launches the worker pool. The returned WaitGroup completes once the
// context is cancelled and all in-flight receipts are processed.
func (q *ArchiveQueue) Start(ctx context.Context) *sync.WaitGroup {
	wg := &sync.WaitGroup{}
	for i := 0; i < archiveWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					q.drain()
					return
				case receipt := <-q.queue:
					q.process(ctx, receipt)
				}
			}
		}()
	}
	return wg
}

func (q *ArchiveQueue) Enqueue(receipt *DecisionReceipt) {
	select {
	case q.queue <- receipt:
	default:
		metrics.IncArchiveDropped()
		q.log.Warn("Archive queue full, dropping receipt", zap.String("receipt", receipt.ID))
	}
}

func (q *ArchiveQueue) process(ctx context.Context, receipt *DecisionReceipt) {
	for _, backend := range q.backends {
		policy := backoff.WithContext(newArchiveBackoff(), ctx)
		err := backoff.Retry(func() error {
			callCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			return backend.ArchiveReceipt(callCtx, receipt)
		}, policy)
		if err != nil {
			metrics.IncArchiveFailure()
			q.log.Error("Failed to archive receipt", zap.Error(err), zap.String("receipt", receipt.ID))
		}
	}
}

// drain gives queued receipts one last best-effort write on shutdown.
func (q *ArchiveQueue) drain() {
	for {
		select {
		case receipt := <-q.queue:
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			for _, backend := range q.backends {
				if err := backend.ArchiveReceipt(ctx, receipt); err != nil {
					q.log.Warn("Failed to archive receipt on shutdown", zap.Error(err), zap.String("receipt", receipt.ID))
				}
			}
			cancel()
		default:
			return
		}
	}
}

func newArchiveBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = archiveMaxElapsedRetry
	return b
}

// RedisArchiveBackend publishes receipts to a pub/sub channel for live
// consumers and stores them under a TTL key for short-term lookups.
type RedisArchiveBackend struct {
	client     *redis.Client
	pubChannel string
	keyPrefix  string
	expire     time.Duration
}

func NewRedisArchiveBackend(client *redis.Client, pubChannel, keyPrefix string, expire time.Duration) *RedisArchiveBackend {
	return &RedisArchiveBackend{
		client:     client,
		pubChannel: pubChannel,
		keyPrefix:  keyPrefix,
		expire:     expire,
	}
}

func (b *RedisArchiveBackend) ArchiveReceipt(ctx context.Context, receipt *DecisionReceipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	if err := b.client.Set(ctx, b.keyPrefix+receipt.ID, data, b.expire).Err(); err != nil {
		return err
	}
	return b.client.Publish(ctx, b.pubChannel, data).Err()
}

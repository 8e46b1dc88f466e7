package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	"vouch/internal/platform/metrics"
)

const defaultBatchSize = 100

// kafkaProducer is the slice of the franz-go client the worker needs.
type kafkaProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// webhookQueue is the slice of the redis client the worker needs.
type webhookQueue interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Worker drains unpublished outbox entries on a fixed period. Billing entries
// go to the Kafka billing topic keyed by aggregate, webhook entries onto a
// Redis delivery list. Publishing is at-least-once: an entry is marked
// published only after its channel accepts it, so a crash in between replays
// the entry.
type Worker struct {
	store    Store
	producer kafkaProducer
	queue    webhookQueue
	topic    string
	queueKey string
	period   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type WorkerOption func(*Worker)

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

func WithWorkerMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

func NewWorker(store Store, producer kafkaProducer, queue webhookQueue, topic, queueKey string, period time.Duration, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:    store,
		producer: producer,
		queue:    queue,
		topic:    topic,
		queueKey: queueKey,
		period:   period,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logError(ctx, "outbox drain failed", err)
			}
		}
	}
}

// Drain publishes one batch of unpublished entries. A single failing entry
// stops the batch so ordering per aggregate is preserved on retry.
func (w *Worker) Drain(ctx context.Context) error {
	entries, err := w.store.ListUnpublished(ctx, defaultBatchSize)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := w.publish(ctx, entry); err != nil {
			return err
		}
		if err := w.store.MarkPublished(ctx, entry.ID, time.Now()); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) publish(ctx context.Context, entry Entry) error {
	switch entry.Kind {
	case KindBilling:
		record := &kgo.Record{
			Topic: w.topic,
			Key:   []byte(entry.AggregateID),
			Value: []byte(entry.Payload),
		}
		if err := w.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
			return err
		}
		if w.metrics != nil {
			w.metrics.BillingEvents.Inc()
		}
	case KindWebhook:
		if err := w.queue.LPush(ctx, w.queueKey, []byte(entry.Payload)).Err(); err != nil {
			return err
		}
		if w.metrics != nil {
			w.metrics.WebhooksEnqueued.Inc()
		}
	default:
		w.logError(ctx, "unknown outbox kind, skipping", nil, slog.String("kind", string(entry.Kind)))
	}
	return nil
}

func (w *Worker) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if w.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	w.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

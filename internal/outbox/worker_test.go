package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type stubProducer struct {
	records []*kgo.Record
	err     error
}

func (p *stubProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	if p.err != nil {
		return kgo.ProduceResults{{Err: p.err}}
	}
	p.records = append(p.records, rs...)
	return nil
}

type stubQueue struct {
	pushed [][]byte
	err    error
}

func (q *stubQueue) LPush(_ context.Context, _ string, values ...interface{}) *redis.IntCmd {
	if q.err != nil {
		return redis.NewIntResult(0, q.err)
	}
	for _, v := range values {
		q.pushed = append(q.pushed, v.([]byte))
	}
	return redis.NewIntResult(int64(len(q.pushed)), nil)
}

func newTestWorker(store Store, producer kafkaProducer, queue webhookQueue) *Worker {
	return NewWorker(store, producer, queue, "billing.events", "webhook:deliveries", time.Second)
}

func TestDrainRoutesByKind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	producer := &stubProducer{}
	queue := &stubQueue{}

	billing, err := NewEntry(KindBilling, "wf-1", BillingEvent{WorkflowID: "wf-1", Product: "kyc"}, time.Now())
	require.NoError(t, err)
	webhook, err := NewEntry(KindWebhook, "wf-1", WebhookTask{WorkflowID: "wf-1", Status: "pass"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(ctx, billing))
	require.NoError(t, store.Enqueue(ctx, webhook))

	w := newTestWorker(store, producer, queue)
	require.NoError(t, w.Drain(ctx))

	require.Len(t, producer.records, 1)
	require.Equal(t, "billing.events", producer.records[0].Topic)
	require.Equal(t, []byte("wf-1"), producer.records[0].Key)
	require.Len(t, queue.pushed, 1)

	pending, err := store.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestDrainLeavesEntryPendingOnPublishFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	producer := &stubProducer{err: errors.New("broker unavailable")}

	billing, err := NewEntry(KindBilling, "wf-2", BillingEvent{WorkflowID: "wf-2"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(ctx, billing))

	w := newTestWorker(store, producer, &stubQueue{})
	require.Error(t, w.Drain(ctx))

	pending, err := store.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "a failed publish must not mark the entry published")
}

func TestDrainPreservesEnqueueOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	producer := &stubProducer{}
	queue := &stubQueue{}

	now := time.Now()
	for i, wf := range []string{"a", "b", "c"} {
		e, err := NewEntry(KindBilling, wf, BillingEvent{WorkflowID: wf}, now.Add(time.Duration(i)*time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, store.Enqueue(ctx, e))
	}

	w := newTestWorker(store, producer, queue)
	require.NoError(t, w.Drain(ctx))

	require.Len(t, producer.records, 3)
	require.Equal(t, []byte("a"), producer.records[0].Key)
	require.Equal(t, []byte("c"), producer.records[2].Key)
}

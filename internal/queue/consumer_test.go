package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/wastepay/payment-service/internal/models"
	"github.com/wastepay/payment-service/internal/repository"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type fakeWriter struct {
	mu   sync.Mutex
	dead []kafka.Message
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dead = append(w.dead, msgs...)
	return nil
}

type fakeWalletCreator struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeWalletCreator) CreateWallet(ctx context.Context, ownerID string) (models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ownerID)
	if f.err != nil {
		return models.Wallet{}, f.err
	}
	return models.Wallet{ID: "w-" + ownerID, OwnerID: ownerID, Status: models.WalletActive}, nil
}

type fakeRefunder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeRefunder) RefundAdvance(ctx context.Context, ownerID string, amount int64, collectionID string) (repository.AdjustResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, collectionID)
	if f.err != nil {
		return repository.AdjustResult{}, f.err
	}
	return repository.AdjustResult{Applied: true}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConsumer(topic string, r *fakeReader, w *fakeWriter, h Handler) *Consumer {
	return &Consumer{
		topic:   topic,
		r:       r,
		dlq:     w,
		handler: h,
		guard:   NewDedupGuard(nil, 0),
		log:     discardLogger(),
	}
}

func TestRun_UserCreated_AcksOnSuccess(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Value: []byte(`{"userId":"U1"}`)},
	}}
	w := &fakeWriter{}
	svc := &fakeWalletCreator{}

	c := newTestConsumer(TopicUserCreated, r, w, NewUserCreatedHandler(svc))
	require.NoError(t, c.Run(context.Background()))

	require.Equal(t, []string{"U1"}, svc.calls)
	require.Len(t, r.committed, 1)
	require.Empty(t, w.dead)
	require.True(t, r.closed)
}

func TestRun_RedeliveredUserCreated_IsHarmless(t *testing.T) {
	// at-least-once: the same event twice; wallet creation is idempotent,
	// both deliveries ack, none dead-letter
	r := &fakeReader{msgs: []kafka.Message{
		{Value: []byte(`{"userId":"U1"}`)},
		{Value: []byte(`{"userId":"U1"}`)},
	}}
	w := &fakeWriter{}
	svc := &fakeWalletCreator{}

	c := newTestConsumer(TopicUserCreated, r, w, NewUserCreatedHandler(svc))
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, r.committed, 2)
	require.Empty(t, w.dead)
}

func TestRun_HandlerErrorDeadLettersWithoutRequeue(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Value: []byte(`{"userId":"U1"}`)},
	}}
	w := &fakeWriter{}
	svc := &fakeWalletCreator{err: errors.New("db down")}

	c := newTestConsumer(TopicUserCreated, r, w, NewUserCreatedHandler(svc))
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, w.dead, 1)
	require.Len(t, r.committed, 1, "poison messages are still committed, never requeued")

	var reason string
	for _, h := range w.dead[0].Headers {
		if h.Key == "x-dead-letter-reason" {
			reason = string(h.Value)
		}
	}
	require.Contains(t, reason, "db down")
}

func TestRun_MalformedPayloadDeadLetters(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Value: []byte(`not json`)},
		{Value: []byte(`{}`)}, // decodes but has no userId
	}}
	w := &fakeWriter{}
	svc := &fakeWalletCreator{}

	c := newTestConsumer(TopicUserCreated, r, w, NewUserCreatedHandler(svc))
	require.NoError(t, c.Run(context.Background()))

	require.Empty(t, svc.calls, "handler never runs for undecodable events")
	require.Len(t, w.dead, 2)
	require.Len(t, r.committed, 2)
}

func TestRun_CollectionCancelled_Refunds(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Value: []byte(`{"userId":"U1","collectionId":"col-7","amount":250}`)},
	}}
	w := &fakeWriter{}
	svc := &fakeRefunder{}

	c := newTestConsumer(TopicCollectionCancelled, r, w, NewCollectionCancelledHandler(svc))
	require.NoError(t, c.Run(context.Background()))

	require.Equal(t, []string{"col-7"}, svc.calls)
	require.Len(t, r.committed, 1)
	require.Empty(t, w.dead)
}

func TestRun_RefundFailureDeadLetters(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Value: []byte(`{"userId":"U1","collectionId":"col-7","amount":250}`)},
	}}
	w := &fakeWriter{}
	svc := &fakeRefunder{err: errors.New("wallet update failed")}

	c := newTestConsumer(TopicCollectionCancelled, r, w, NewCollectionCancelledHandler(svc))
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, w.dead, 1)
	require.Len(t, r.committed, 1)
}

func TestDedupGuard_NilSafe(t *testing.T) {
	g := NewDedupGuard(nil, 0)
	require.False(t, g.Seen(context.Background(), "t", "id"))
	require.NoError(t, g.Mark(context.Background(), "t", "id"))
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/wastepay/payment-service/internal/metrics"
	"github.com/wastepay/payment-service/internal/models"
	"github.com/wastepay/payment-service/internal/repository"
)

const (
	TopicUserCreated         = "user-created"
	TopicCollectionCancelled = "collection-cancelled-payment"

	dlqSuffix = ".dlq"
)

// WalletCreator and AdvanceRefunder are the two service calls the consumer
// drives. Both are idempotent, which is what makes at-least-once delivery
// safe even when the dedup guard is unavailable.
type WalletCreator interface {
	CreateWallet(ctx context.Context, ownerID string) (models.Wallet, error)
}

type AdvanceRefunder interface {
	RefundAdvance(ctx context.Context, ownerID string, amount int64, collectionID string) (repository.AdjustResult, error)
}

// Handler processes one topic's messages. DecodeID extracts the event's
// de-duplication id without side effects; Handle applies the event.
type Handler interface {
	DecodeID(value []byte) (string, error)
	Handle(ctx context.Context, value []byte) error
}

// reader is the slice of kafka.Reader the consumer uses; narrowed for tests.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// writer is the dead-letter publisher.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer runs one topic: fetch, dedup check, handle, then ack (offset
// commit) or nack with no requeue (publish to <topic>.dlq, then commit).
// Messages on one topic are processed sequentially so commits stay ordered;
// ordering across wallets is irrelevant and same-wallet mutations are
// serialized by the repository, not by the broker.
type Consumer struct {
	topic   string
	r       reader
	dlq     writer
	handler Handler
	guard   *DedupGuard
	log     *slog.Logger
}

func NewConsumer(brokers []string, group, topic string, handler Handler, guard *DedupGuard, log *slog.Logger) *Consumer {
	return &Consumer{
		topic: topic,
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: group,
			Topic:   topic,
		}),
		dlq: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic + dlqSuffix,
			Balancer: &kafka.LeastBytes{},
		},
		handler: handler,
		guard:   guard,
		log:     log,
	}
}

// Run consumes until ctx is cancelled. Handler failures never crash the
// loop; every fetched message resolves to ack or dead-letter.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.r.Close()

	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("fetch from %s: %w", c.topic, err)
		}

		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	eventID, err := c.handler.DecodeID(msg.Value)
	if err != nil {
		c.log.Error("undecodable message, dead-lettering", "topic", c.topic, "err", err)
		c.deadLetter(ctx, msg, err)
		metrics.MessagesDeadLettered.WithLabelValues(c.topic).Inc()
		c.commit(ctx, msg)
		return
	}

	if c.guard.Seen(ctx, c.topic, eventID) {
		c.log.Info("duplicate delivery skipped", "topic", c.topic, "event_id", eventID)
		metrics.MessagesConsumed.WithLabelValues(c.topic).Inc()
		c.commit(ctx, msg)
		return
	}

	if err := c.handler.Handle(ctx, msg.Value); err != nil {
		c.log.Error("handler failed, dead-lettering",
			"topic", c.topic, "event_id", eventID, "err", err)
		c.deadLetter(ctx, msg, err)
		metrics.MessagesDeadLettered.WithLabelValues(c.topic).Inc()
	} else {
		if markErr := c.guard.Mark(ctx, c.topic, eventID); markErr != nil {
			c.log.Warn("dedup mark failed", "topic", c.topic, "event_id", eventID, "err", markErr)
		}
		metrics.MessagesConsumed.WithLabelValues(c.topic).Inc()
	}

	// Commit either way: a poison message must not loop forever.
	c.commit(ctx, msg)
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.r.CommitMessages(ctx, msg); err != nil {
		c.log.Error("commit failed", "topic", c.topic, "err", err)
	}
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	dead := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers, kafka.Header{
			Key:   "x-dead-letter-reason",
			Value: []byte(cause.Error()),
		}),
	}
	if err := c.dlq.WriteMessages(ctx, dead); err != nil {
		c.log.Error("dead-letter publish failed", "topic", c.topic, "err", err)
	}
}

// userCreatedHandler creates wallets for new platform users.
type userCreatedHandler struct{ svc WalletCreator }

func NewUserCreatedHandler(svc WalletCreator) Handler { return &userCreatedHandler{svc: svc} }

func (h *userCreatedHandler) DecodeID(value []byte) (string, error) {
	var evt models.UserCreatedEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return "", fmt.Errorf("decode user-created event: %w", err)
	}
	if evt.UserID == "" {
		return "", errors.New("user-created event missing userId")
	}
	return evt.UserID, nil
}

func (h *userCreatedHandler) Handle(ctx context.Context, value []byte) error {
	var evt models.UserCreatedEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return err
	}
	if _, err := h.svc.CreateWallet(ctx, evt.UserID); err != nil {
		return fmt.Errorf("create wallet for %s: %w", evt.UserID, err)
	}
	return nil
}

// collectionCancelledHandler refunds the advance of a cancelled collection.
type collectionCancelledHandler struct{ svc AdvanceRefunder }

func NewCollectionCancelledHandler(svc AdvanceRefunder) Handler {
	return &collectionCancelledHandler{svc: svc}
}

func (h *collectionCancelledHandler) DecodeID(value []byte) (string, error) {
	var evt models.CollectionCancelledEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return "", fmt.Errorf("decode collection-cancelled event: %w", err)
	}
	if evt.UserID == "" || evt.CollectionID == "" {
		return "", errors.New("collection-cancelled event missing ids")
	}
	return evt.CollectionID, nil
}

func (h *collectionCancelledHandler) Handle(ctx context.Context, value []byte) error {
	var evt models.CollectionCancelledEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return err
	}
	if _, err := h.svc.RefundAdvance(ctx, evt.UserID, evt.Amount, evt.CollectionID); err != nil {
		return fmt.Errorf("refund collection %s: %w", evt.CollectionID, err)
	}
	return nil
}

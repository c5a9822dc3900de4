// Package notify publishes enrichment exception events to Kafka so
// downstream case-management tooling can react without polling the queue.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/finlake/enrich/internal/models"
)

// DefaultTopic is where exception events are published.
const DefaultTopic = "enrichment.exceptions"

// ExceptionEvent is the wire form of a published exception.
type ExceptionEvent struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	StatementID   string `json:"statement_id"`
	SourceType    string `json:"source_type"`
	ExceptionType string `json:"exception_type"`
	Details       string `json:"details"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Priority      string `json:"priority"`
	AssignedTo    string `json:"assigned_to"`
	DueDate       string `json:"due_date"`
	ExceptionDate string `json:"exception_date"`
}

// KafkaPublisher writes exception events to a Kafka topic. Publishing is
// best-effort; the caller logs and continues on error.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewKafkaPublisher creates a publisher for a comma-separated broker list.
func NewKafkaPublisher(brokers, topic string, log *zap.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if log == nil {
		log = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		Compression:  kafka.Snappy,
		WriteTimeout: 5 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer, log: log}
}

// PublishException sends one exception event, keyed by transaction ID so
// all exceptions of a transaction land in the same partition.
func (p *KafkaPublisher) PublishException(ctx context.Context, rec models.ExceptionRecord) error {
	event := ExceptionEvent{
		ID:            rec.ID,
		TransactionID: rec.TransactionID,
		StatementID:   rec.StatementID,
		SourceType:    string(rec.Source),
		ExceptionType: rec.Type,
		Details:       rec.Details,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		Priority:      string(rec.Priority),
		AssignedTo:    rec.AssignedTo,
		DueDate:       rec.DueDate.UTC().Format(models.DateLayout),
		ExceptionDate: rec.ExceptionDate.UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode exception event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.TransactionID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("failed to publish exception event: %w", err)
	}

	p.log.Debug("exception event published",
		zap.String("transaction_id", rec.TransactionID),
		zap.String("exception_type", rec.Type))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

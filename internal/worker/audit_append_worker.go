package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"portfolio-agent/internal/model"
	"portfolio-agent/internal/platform/logger"
	"portfolio-agent/internal/platform/rabbitmq"
)

// AuditAppender persists a single audit entry.
type AuditAppender interface {
	Append(ctx context.Context, entry model.AuditEntry) error
}

// AuditAppendWorker drains the audit queue into the configured audit store.
type AuditAppendWorker struct {
	conn      *amqp.Connection
	appender  AuditAppender
	queueName string
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAuditAppendWorker(conn *amqp.Connection, appender AuditAppender, queueName string, log *logger.Logger) *AuditAppendWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &AuditAppendWorker{
		conn:      conn,
		appender:  appender,
		queueName: queueName,
		log:       log,
	}
}

func (w *AuditAppendWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		return err
	}
	// One unacked delivery at a time keeps appends to a day file sequential.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("audit queue closed", "queue", w.queueName)
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *AuditAppendWorker) handle(ctx context.Context, d amqp.Delivery) {
	entry, err := DecodeAuditEntry(d.Body)
	if err != nil {
		w.log.Warn("worker decode audit entry failed", "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := w.appender.Append(ctx, entry); err != nil {
		w.log.Error("worker append audit entry failed", "error", err, "redelivered", d.Redelivered)
		// Requeue once; a second failure drops the message.
		_ = d.Nack(false, !d.Redelivered)
		return
	}

	_ = d.Ack(false)
}

func (w *AuditAppendWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// DecodeAuditEntry parses a queued message body.
func DecodeAuditEntry(body []byte) (model.AuditEntry, error) {
	var entry model.AuditEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return model.AuditEntry{}, fmt.Errorf("decode audit entry: %w", err)
	}
	if entry.Question == "" && entry.Answer == "" {
		return model.AuditEntry{}, fmt.Errorf("decode audit entry: empty question and answer")
	}
	return entry, nil
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"postboard/internal/model"
	"postboard/internal/platform/rabbitmq"
)

type TokenToucher interface {
	TouchLastUsed(ctx context.Context, id uint, at time.Time) error
}

// TokenUsageWorker consumes token usage events and records last_used_at.
type TokenUsageWorker struct {
	conn      *amqp.Connection
	tokens    TokenToucher
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTokenUsageWorker(conn *amqp.Connection, tokens TokenToucher, queueName string) *TokenUsageWorker {
	return &TokenUsageWorker{
		conn:      conn,
		tokens:    tokens,
		queueName: queueName,
	}
}

func (w *TokenUsageWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
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
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

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
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					log.Printf("token usage worker: %v", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *TokenUsageWorker) handle(ctx context.Context, body []byte) error {
	var usage model.TokenUsage
	if err := json.Unmarshal(body, &usage); err != nil {
		return fmt.Errorf("decode usage failed: %w", err)
	}
	if usage.TokenID == 0 || usage.UsedAt.IsZero() {
		return fmt.Errorf("malformed usage event %q", body)
	}
	// A revoked token simply matches no row.
	if err := w.tokens.TouchLastUsed(ctx, usage.TokenID, usage.UsedAt); err != nil {
		return err
	}
	return nil
}

func (w *TokenUsageWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/tenantrestore/internal/core"
	amqp "github.com/rabbitmq/amqp091-go"
)

// confirmTimeout bounds the wait for a broker ACK.
const confirmTimeout = 10 * time.Second

// ErrBrokerClosed is returned when the connection or channel has gone away.
var ErrBrokerClosed = errors.New("broker connection is closed")

// AMQPPublisher publishes import events to a RabbitMQ topic exchange with
// publisher confirms enabled.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger

	mu        sync.Mutex // amqp channels are not safe for concurrent publishing
	healthy   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

var _ core.Notifier = (*AMQPPublisher)(nil)

// NewAMQPPublisher connects to url and declares a durable topic exchange.
func NewAMQPPublisher(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open broker channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	p := &AMQPPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
		done:     make(chan struct{}),
	}
	p.healthy.Store(true)

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chanClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		select {
		case err := <-connClosed:
			p.healthy.Store(false)
			logger.Warn("broker connection closed", "error", err)
		case err := <-chanClosed:
			p.healthy.Store(false)
			logger.Warn("broker channel closed", "error", err)
		case <-p.done:
		}
	}()

	logger.Info("connected to event broker", "exchange", exchange)
	return p, nil
}

// ImportCompleted publishes the completion event for res and waits for the
// broker to confirm it.
func (p *AMQPPublisher) ImportCompleted(ctx context.Context, res *core.ImportResult) error {
	if !p.healthy.Load() {
		return ErrBrokerClosed
	}

	event := NewImportCompleted(res, time.Now())
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.mu.Lock()
	deferred, err := p.channel.PublishWithDeferredConfirmWithContext(ctx,
		p.exchange,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			Headers:      amqp.Table{"run_id": event.RunID},
			MessageId:    event.RunID,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.FinishedAt,
			Body:         body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKey, err)
	}

	timer := time.NewTimer(confirmTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-deferred.Done():
		if !deferred.Acked() {
			return fmt.Errorf("broker rejected event for run %s", event.RunID)
		}
		p.logger.Debug("import event published", "run_id", event.RunID, "routing_key", RoutingKey)
		return nil
	case <-timer.C:
		return fmt.Errorf("publisher confirm timeout for run %s", event.RunID)
	}
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		p.healthy.Store(false)
		if cerr := p.channel.Close(); cerr != nil && !errors.Is(cerr, amqp.ErrClosed) {
			err = cerr
		}
		if cerr := p.conn.Close(); cerr != nil && !errors.Is(cerr, amqp.ErrClosed) && err == nil {
			err = cerr
		}
	})
	return err
}

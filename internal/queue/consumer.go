package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/localmarket/internal/model"
)

// Invalidator is implemented by *cache.Invalidator.
type Invalidator interface {
	Apply(ctx context.Context, ch model.EntityChange) (int, error)
}

// Consumer drains the invalidation queue.  Run reconnects with capped
// exponential backoff until its context ends, so a broker outage only
// delays invalidation; cached entries still expire by TTL meanwhile.
type Consumer struct {
	URL        string
	Exchange   string
	Queue      string
	Prefetch   int
	MaxBackoff time.Duration

	inv Invalidator
	log zerolog.Logger
}

func NewConsumer(url, exchange, queue string, inv Invalidator, log zerolog.Logger) *Consumer {
	return &Consumer{
		URL:        url,
		Exchange:   exchange,
		Queue:      queue,
		Prefetch:   50,
		MaxBackoff: 30 * time.Second,
		inv:        inv,
		log:        log.With().Str("component", "invalidation-consumer").Logger(),
	}
}

// Run blocks until ctx is done and then returns nil.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err == nil {
			backoff = time.Second
			err = c.consume(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("broker connection lost")

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		if backoff *= 2; backoff > c.MaxBackoff {
			backoff = c.MaxBackoff
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.Prefetch, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("set QoS failed")
	}
	if err := declareExchange(ch, c.Exchange); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(c.Queue, "#", c.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info().Str("queue", c.Queue).Str("exchange", c.Exchange).Msg("consuming entity changes")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.log.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("drop entity change")
				_ = d.Nack(false, false) // a malformed event never becomes valid
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	ch, err := decodeChange(body)
	if err != nil {
		return err
	}
	removed, err := c.inv.Apply(c.log.WithContext(ctx), ch)
	if err != nil {
		return err
	}
	c.log.Debug().
		Str("entity", ch.Entity).
		Str("id", ch.ID).
		Str("action", ch.Action).
		Int("removed", removed).
		Msg("entity change applied")
	return nil
}

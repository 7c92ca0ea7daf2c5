// Package queue carries catalog entity-change events over RabbitMQ.  The
// catalog publishes one event per write to a topic exchange; this service
// drains a durable queue bound to it and invalidates the derived caches.
package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/localmarket/internal/model"
)

// Change actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// RoutingKey is "<entity>.<action>", e.g. "delivery_zone.updated".
func RoutingKey(ch model.EntityChange) string {
	action := strings.ToLower(ch.Action)
	if action == "" {
		action = ActionUpdated
	}
	return ch.Entity + "." + action
}

// declareExchange declares the durable topic exchange both sides use.
func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare %s: %w", exchange, err)
	}
	return nil
}

// decodeChange parses a message body.  Entity is required; the id may be
// empty for entities whose invalidation does not depend on it.
func decodeChange(body []byte) (model.EntityChange, error) {
	var ch model.EntityChange
	if err := json.Unmarshal(body, &ch); err != nil {
		return ch, fmt.Errorf("unmarshal: %w", err)
	}
	ch.Entity = strings.ToLower(strings.TrimSpace(ch.Entity))
	ch.ID = strings.TrimSpace(ch.ID)
	if ch.Entity == "" {
		return ch, fmt.Errorf("event without entity")
	}
	return ch, nil
}

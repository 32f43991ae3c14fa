// Package events publishes account lifecycle notifications to the
// message broker for downstream consumers (mailers, analytics).
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shoplite/apiserver/internal/mq"
	"github.com/shoplite/apiserver/types"
)

// ChannelUserEvents is the broker channel account events publish to.
const ChannelUserEvents = "user-events"

// Event types carried in the payload and in the message attributes.
const (
	TypeUserRegistered  = "user.registered"
	TypePasswordChanged = "user.password_changed"
)

// Event is the JSON payload delivered to subscribers.
type Event struct {
	Type       string    `json:"event"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits account events. A nil *Publisher drops every event,
// so deployments without a broker need no special casing.
type Publisher struct {
	broker mq.Broker
	logger *slog.Logger
}

// NewPublisher wraps broker for account event publishing. A nil broker
// yields a nil Publisher.
func NewPublisher(broker mq.Broker, logger *slog.Logger) *Publisher {
	if broker == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{broker: broker, logger: logger}
}

// UserRegistered announces a completed signup.
func (p *Publisher) UserRegistered(ctx context.Context, user types.User) {
	p.publish(ctx, TypeUserRegistered, user)
}

// PasswordChanged announces a credential rotation.
func (p *Publisher) PasswordChanged(ctx context.Context, user types.User) {
	p.publish(ctx, TypePasswordChanged, user)
}

// publish marshals and sends the event. Failures are logged and
// swallowed; the request that triggered the event must not fail on a
// broker hiccup.
func (p *Publisher) publish(ctx context.Context, eventType string, user types.User) {
	if p == nil {
		return
	}

	payload, err := json.Marshal(Event{
		Type:       eventType,
		UserID:     user.ID,
		Email:      user.Email,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Warn("failed to encode account event", "event", eventType, "err", err)
		return
	}

	attrs := map[string]string{"type": eventType}
	if _, err := p.broker.Publish(ctx, ChannelUserEvents, payload, attrs); err != nil {
		p.logger.Warn("failed to publish account event",
			"event", eventType,
			"user_id", user.ID,
			"err", err,
		)
	}
}

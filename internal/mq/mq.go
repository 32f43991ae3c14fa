// Package mq provides broker-agnostic messaging for account events.
// RabbitMQ and Google Cloud Pub/Sub backends are selected by config.
package mq

import (
	"context"
	"fmt"
	"strings"

	"github.com/shoplite/apiserver/config"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Body       []byte
	Attributes map[string]string
}

// Handler processes a delivered message. Returning an error nacks the
// message so the broker redelivers it.
type Handler func(ctx context.Context, msg Message) error

// Broker defines the messaging operations the app relies on.
type Broker interface {
	// Publish sends a message to the named channel and returns the
	// broker-assigned or generated message id.
	Publish(ctx context.Context, channel string, body []byte, attrs map[string]string) (string, error)

	// Subscribe consumes the named channel until ctx is done.
	Subscribe(ctx context.Context, channel string, handler Handler) error

	Close() error
}

// Connect selects and connects the configured broker. An empty backend
// name returns a nil Broker: messaging stays disabled and publishers
// must treat nil as a no-op sink.
func Connect(ctx context.Context, cfg config.MQConfig) (Broker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		return NewRabbitBroker(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubBroker(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

package mq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplite/apiserver/config"
)

func TestConnectDisabledBackend(t *testing.T) {
	for _, backend := range []string{"", "  "} {
		broker, err := Connect(context.Background(), config.MQConfig{Backend: backend})
		require.NoError(t, err)
		assert.Nil(t, broker)
	}
}

func TestConnectUnknownBackend(t *testing.T) {
	_, err := Connect(context.Background(), config.MQConfig{Backend: "kafka"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mq backend")
}

func TestNewRabbitBrokerRequiresURL(t *testing.T) {
	_, err := NewRabbitBroker(config.RabbitMQConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rabbitmq url is required")
}

func TestNewPubSubBrokerRequiresProject(t *testing.T) {
	_, err := NewPubSubBroker(context.Background(), config.PubSubConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pubsub project id is required")
}

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

type Publisher struct {
	*conn
}

func NewPublisher(o Options, logger *slog.Logger) *Publisher {
	return &Publisher{conn: newConn(o, logger)}
}

// Connect waits for the initial connection, honouring ctx and Disconnect.
func (p *Publisher) Connect(ctx context.Context) error {
	return p.connect(ctx)
}

// PublishJSON marshals v and publishes it with QoS 1.
func (p *Publisher) PublishJSON(topic string, v any) error {
	if !p.IsConnected() {
		return errNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	token := p.client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		p.logger.Error("failed to publish", "topic", topic, "error", err)
		return fmt.Errorf("publish: %w", err)
	}

	p.logger.Debug("published message", "topic", topic, "size", len(data))
	return nil
}

// Disconnect closes the connection. After it, Connect returns an error.
func (p *Publisher) Disconnect() {
	p.stop(nil)
	p.logger.Info("mqtt publisher disconnected")
}

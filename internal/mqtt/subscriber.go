package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MessageHandler processes one message. A returned error is logged; the
// message is not redelivered.
type MessageHandler func(ctx context.Context, topic string, payload []byte) error

// MessageSubscriber is what feature modules attach their handlers to.
type MessageSubscriber interface {
	SetMessageHandler(handler MessageHandler)
}

type Subscriber struct {
	*conn
	topic   string
	handler MessageHandler

	// handlerTimeout bounds each handler call.
	handlerTimeout time.Duration

	// The session is clean, so every new connection needs its own SUBSCRIBE.
	subMu           sync.Mutex
	subscribedEpoch uint64
	subscribeFn     func() error
}

func NewSubscriber(o Options, topic string, logger *slog.Logger) *Subscriber {
	s := &Subscriber{
		conn:           newConn(o, logger),
		topic:          topic,
		handlerTimeout: 30 * time.Second,
	}
	s.subscribeFn = s.subscribe
	s.onConnect = func() {
		if err := s.ensureSubscribed(); err != nil {
			s.logger.Error("mqtt resubscribe failed", "topic", s.topic, "error", err)
		}
	}
	return s
}

func (s *Subscriber) SetMessageHandler(handler MessageHandler) {
	s.handler = handler
}

// Connect establishes the connection and subscribes to the configured topic.
func (s *Subscriber) Connect(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return err
	}
	if err := s.ensureSubscribed(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// ensureSubscribed subscribes at most once per established connection.
func (s *Subscriber) ensureSubscribed() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	epoch := s.currentEpoch()
	if epoch != 0 && epoch == s.subscribedEpoch {
		return nil
	}
	if err := s.subscribeFn(); err != nil {
		return err
	}
	s.subscribedEpoch = epoch
	return nil
}

func (s *Subscriber) subscribe() error {
	if !s.IsConnected() {
		return errNotConnected
	}

	const qos = byte(1)
	token := s.client.Subscribe(s.topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}

	s.logger.Info("subscribed to mqtt topic", "topic", s.topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	if s.handler == nil {
		s.logger.Warn("no mqtt handler registered, dropping message", "topic", topic)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.handlerTimeout)
	defer cancel()

	if err := s.handler(ctx, topic, payload); err != nil {
		s.logger.Error("message handler failed", "topic", topic, "error", err)
		return
	}
	s.logger.Debug("processed mqtt message", "topic", topic)
}

// Disconnect unsubscribes and closes the connection. Safe to call twice.
func (s *Subscriber) Disconnect() {
	s.stop(func() {
		s.client.Unsubscribe(s.topic).WaitTimeout(2 * time.Second)
	})
	s.logger.Info("mqtt subscriber disconnected")
}

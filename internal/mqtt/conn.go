package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	errStopped      = errors.New("mqtt client stopped")
	errNotConnected = errors.New("mqtt client not connected")
)

// Options is the broker connection shared by the subscriber and publisher.
type Options struct {
	Broker   string
	Port     int
	ClientID string
}

// conn holds the connection state common to Subscriber and Publisher.
type conn struct {
	client    mqtt.Client
	opts      Options
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	// epoch counts established connections, including automatic reconnects.
	epoch uint64
	// onConnect runs after every established connection.
	onConnect func()

	stopCh   chan struct{}
	stopOnce sync.Once
}

func newConn(o Options, logger *slog.Logger) *conn {
	if logger == nil {
		logger = slog.Default()
	}
	c := &conn{opts: o, logger: logger, stopCh: make(chan struct{})}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", o.Broker, o.Port))
	opts.SetClientID(o.ClientID)

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// paho runs this in its own goroutine, so onConnect may block on tokens.
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

func (c *conn) handleConnect() {
	c.mu.Lock()
	c.connected = true
	c.epoch++
	hook := c.onConnect
	c.mu.Unlock()

	c.logger.Info("mqtt connected", "broker", c.opts.Broker, "port", c.opts.Port, "client_id", c.opts.ClientID)
	if hook != nil {
		hook()
	}
}

func (c *conn) currentEpoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// connect waits for the initial connection while honouring ctx and stop.
// When ctx ends first the client keeps retrying in the background and
// onConnect fires once the broker answers.
func (c *conn) connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return errStopped
	default:
	}

	if c.IsConnected() {
		return nil
	}

	// With ConnectRetry the token may not complete until the broker answers.
	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.client.Disconnect(0)
			return errStopped
		default:
		}
	}
}

// IsConnected returns whether the client is connected.
func (c *conn) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// stop is idempotent. before runs only while still connected.
func (c *conn) stop(before func()) {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if before != nil && c.IsConnected() {
		before()
	}
	if c.client != nil {
		c.client.Disconnect(250)
	}
	c.setConnected(false)
}

func (c *conn) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	topicRoot = "skylink"

	publishTimeout = 5 * time.Second
)

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrStopped      = errors.New("mqtt client stopped")
)

// Config holds the broker connection settings
type Config struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"clientId"`
	Node     string `yaml:"node"`
}

// LinkHealth is the retained state of the radio link as seen from the ground
type LinkHealth struct {
	Node     string    `json:"node"`
	LastSeen time.Time `json:"last_seen,omitzero"`
	Frames   uint64    `json:"frames"`
	Rejected uint64    `json:"rejected"`
	Lost     uint64    `json:"lost"`
	Healthy  bool      `json:"healthy"`
}

// Client republishes ground station traffic to an MQTT broker and accepts
// operator commands from it
type Client struct {
	client    mqtt.Client
	cfg       Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once

	onCommand func(name string)
}

// TelemetryTopic is where decoded telemetry payloads are published
func TelemetryTopic(node string) string {
	return topic(node, "telemetry")
}

// HealthTopic carries the retained link health
func HealthTopic(node string) string {
	return topic(node, "health")
}

// CommandTopic is where operator commands are accepted, one command name
// per message
func CommandTopic(node string) string {
	return topic(node, "command")
}

func topic(node, leaf string) string {
	return strings.Join([]string{topicRoot, node, leaf}, "/")
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	c := &Client{
		cfg:    cfg,
		logger: logger.With(slog.String("task", "mqtt")),
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		c.logger.Info("mqtt connected", slog.String("broker", cfg.Broker), slog.Int("port", cfg.Port))

		// subscriptions do not survive a clean session reconnect
		if err := c.subscribe(); err != nil {
			c.logger.Warn("command subscription failed", slog.Any("error", err))
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		c.logger.Warn("mqtt connection lost", slog.Any("error", err))
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// OnCommand registers the handler for operator commands. It must be called
// before Connect.
func (c *Client) OnCommand(handler func(name string)) {
	c.onCommand = handler
}

// Connect waits for the initial connection to the broker, honoring ctx and
// Disconnect
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	if c.IsConnected() {
		return nil
	}

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
			return ErrStopped
		default:
		}
	}
}

// PublishTelemetry publishes a decoded telemetry payload as is
func (c *Client) PublishTelemetry(payload []byte) error {
	return c.publish(TelemetryTopic(c.cfg.Node), false, payload)
}

// PublishHealth publishes the link health as a retained message
func (c *Client) PublishHealth(health LinkHealth) error {
	health.Node = c.cfg.Node

	data, err := json.Marshal(health)
	if err != nil {
		return fmt.Errorf("marshal health: %w", err)
	}

	return c.publish(HealthTopic(c.cfg.Node), true, data)
}

func (c *Client) publish(topic string, retained bool, data []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, 1, retained, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	c.logger.Debug("published", slog.String("topic", topic), slog.Int("size", len(data)))
	return nil
}

func (c *Client) subscribe() error {
	if c.onCommand == nil {
		return nil
	}

	topic := CommandTopic(c.cfg.Node)
	token := c.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		c.handleCommand(msg.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	c.logger.Info("subscribed to mqtt topic", slog.String("topic", topic))
	return nil
}

func (c *Client) handleCommand(payload []byte) {
	name := strings.TrimSpace(string(payload))
	if name == "" {
		c.logger.Warn("empty command message")
		return
	}
	c.onCommand(name)
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the connection. Safe to call more
// than once.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

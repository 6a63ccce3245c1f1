package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTT defaults
const (
	DefaultTopicPrefix    = "autotranslator"
	DefaultConnectTimeout = 5 * time.Second
	DefaultPublishTimeout = 2 * time.Second
)

// MQTTConfig configures the broker relay.
type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// Topic returns the topic a signal is published on: <prefix>/signal/<name>.
func Topic(prefix, signal string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return strings.TrimSuffix(prefix, "/") + "/signal/" + signal
}

// MQTTRelay republishes signals to an MQTT broker with an empty payload,
// so devices other than this host can refresh their overlays.
type MQTTRelay struct {
	cfg       MQTTConfig
	client    paho.Client
	published atomic.Uint64
	failed    atomic.Uint64
}

// NewMQTTRelay creates an unconnected relay.
func NewMQTTRelay(cfg MQTTConfig) *MQTTRelay {
	if cfg.ClientID == "" {
		cfg.ClientID = "autotranslator-" + uuid.NewString()[:8]
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	return &MQTTRelay{cfg: cfg}
}

// Connect dials the broker and disconnects when ctx ends.
func (r *MQTTRelay) Connect(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(r.cfg.BrokerURL).
		SetClientID(r.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetMaxReconnectInterval(30 * time.Second)

	if r.cfg.Username != "" {
		opts.SetUsername(r.cfg.Username)
		opts.SetPassword(r.cfg.Password)
	}
	opts.SetOnConnectHandler(func(paho.Client) {
		slog.Info("mqtt connected", "broker", r.cfg.BrokerURL, "client_id", r.cfg.ClientID)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		slog.Warn("mqtt connection lost", "error", err)
	})

	r.client = paho.NewClient(opts)
	token := r.client.Connect()
	if !token.WaitTimeout(DefaultConnectTimeout) {
		return fmt.Errorf("mqtt connect to %s: timeout", r.cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect to %s: %w", r.cfg.BrokerURL, err)
	}

	go func() {
		<-ctx.Done()
		r.Close()
	}()
	return nil
}

// Notify implements Notifier.
func (r *MQTTRelay) Notify(_ context.Context, signal string) error {
	if r.client == nil || !r.client.IsConnected() {
		r.failed.Add(1)
		return fmt.Errorf("mqtt relay not connected")
	}
	token := r.client.Publish(Topic(r.cfg.TopicPrefix, signal), r.cfg.QoS, false, []byte{})
	if !token.WaitTimeout(DefaultPublishTimeout) {
		r.failed.Add(1)
		return fmt.Errorf("mqtt publish %s: timeout", signal)
	}
	if err := token.Error(); err != nil {
		r.failed.Add(1)
		return fmt.Errorf("mqtt publish %s: %w", signal, err)
	}
	r.published.Add(1)
	return nil
}

// Stats returns published and failed counts.
func (r *MQTTRelay) Stats() (published, failed uint64) {
	return r.published.Load(), r.failed.Load()
}

// Close disconnects from the broker.
func (r *MQTTRelay) Close() {
	if r.client != nil && r.client.IsConnected() {
		r.client.Disconnect(250)
	}
}

package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/samirrijal/geopin/internal/core/domain"
)

// DefaultTopic is where devices publish their fixes.
const DefaultTopic = "geopin/position"

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// PositionListener implements ports.PositionProvider by waiting for the
// next fix on an MQTT topic. Devices should publish with the retain flag so
// a request is answered with the last known fix straight away.
type PositionListener struct {
	client paho.Client
	topic  string

	// mu serializes requests; each one owns the topic subscription.
	mu sync.Mutex
}

// Connect connects to the broker.
func Connect(opts Options) (*PositionListener, error) {
	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetKeepAlive(60 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt connection lost", "broker", opts.Broker, "error", err)
		})

	client := paho.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, err)
	}
	return NewPositionListener(client, opts.Topic), nil
}

// NewPositionListener wraps a connected client.
func NewPositionListener(client paho.Client, topic string) *PositionListener {
	if topic == "" {
		topic = DefaultTopic
	}
	return &PositionListener{client: client, topic: topic}
}

// CurrentPosition subscribes, takes the first message and unsubscribes.
func (l *PositionListener) CurrentPosition(ctx context.Context) (domain.PositionFix, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := make(chan []byte, 1)
	token := l.client.Subscribe(l.topic, 1, func(_ paho.Client, m paho.Message) {
		select {
		case msgs <- m.Payload():
		default:
		}
	})
	if err := waitToken(ctx, token); err != nil {
		return domain.PositionFix{}, fmt.Errorf("%w: mqtt subscribe %s: %w", domain.ErrPositionUnavailable, l.topic, err)
	}
	defer l.client.Unsubscribe(l.topic)

	select {
	case payload := <-msgs:
		return domain.ParsePositionFix(payload)
	case <-ctx.Done():
		return domain.PositionFix{}, fmt.Errorf("%w: waiting on %s: %w", domain.ErrPositionUnavailable, l.topic, ctx.Err())
	}
}

// Close disconnects from the broker.
func (l *PositionListener) Close() {
	l.client.Disconnect(250)
}

func waitToken(ctx context.Context, t paho.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	StreamName = "asset-events"

	SubjectProjectDeleted = "projects.deleted"
	SubjectUserDeleted    = "users.deleted"
)

var StreamSubjects = []string{"assets.*", "projects.*", "users.*"}

var (
	ErrNotConnected = errors.New("jetstream not initialized")
	// ErrMalformedEvent marks a payload that will never succeed; it is
	// terminated instead of redelivered.
	ErrMalformedEvent = errors.New("malformed event")
)

// EventBus publishes and consumes durable events over NATS JetStream.
type EventBus struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	log *zap.Logger
}

// ConnectEventBus connects, reconnecting forever, and makes sure the stream
// exists.
func ConnectEventBus(url, name string, log *zap.Logger) (*EventBus, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("nats")

	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("connection closed")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	b := &EventBus{nc: nc, js: js, log: log}
	if err := b.ensureStream(); err != nil {
		log.Warn("failed to ensure stream", zap.String("stream", StreamName), zap.Error(err))
	}
	log.Info("connected and JetStream initialized")
	return b, nil
}

func (b *EventBus) ensureStream() error {
	if _, err := b.js.StreamInfo(StreamName); err == nil {
		return nil
	}
	_, err := b.js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: StreamSubjects,
		Storage:  nats.FileStorage,
		MaxAge:   30 * 24 * time.Hour,
	})
	return err
}

// Publish stores payload as JSON on subject with a unique message id.
func (b *EventBus) Publish(subject string, payload interface{}) error {
	if b == nil || b.js == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := b.js.Publish(subject, data, nats.MsgId(uuid.NewString())); err != nil {
		b.log.Warn("publish failed", zap.String("subject", subject), zap.Error(err))
		return err
	}
	return nil
}

// Subscribe creates a durable manual-ack consumer. handler must Ack or Nak.
func (b *EventBus) Subscribe(subject, durable string, handler nats.MsgHandler) (*nats.Subscription, error) {
	if b == nil || b.js == nil {
		return nil, ErrNotConnected
	}
	sub, err := b.js.Subscribe(subject, handler, nats.Durable(durable), nats.ManualAck())
	if err != nil {
		return nil, err
	}
	b.log.Info("subscribed", zap.String("subject", subject), zap.String("durable", durable))
	return sub, nil
}

func (b *EventBus) Connected() bool {
	return b != nil && b.nc != nil && b.nc.IsConnected()
}

// Close drains subscriptions and closes the connection.
func (b *EventBus) Close() {
	if b == nil || b.nc == nil {
		return
	}
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
	}
}

package nats

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// EventHandler processes one event payload.
type EventHandler interface {
	Handle(ctx context.Context, data []byte) error
}

type Subscriber interface {
	Subscribe(subject, durable string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// Client binds event handlers to durable JetStream consumers.
type Client struct {
	bus     Subscriber
	service string
	timeout time.Duration
	log     *zap.Logger
	subs    []*nats.Subscription
}

func NewClient(bus Subscriber, service string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{bus: bus, service: service, timeout: 2 * time.Minute, log: log.Named("nats")}
}

// SubscribeAll loads all routes once during startup
func (c *Client) SubscribeAll(routes map[string]EventHandler) error {
	for subject, handler := range routes {
		durable := DurableName(c.service, subject)
		sub, err := c.bus.Subscribe(subject, durable, c.dispatch(subject, handler))
		if err != nil {
			return err
		}
		c.subs = append(c.subs, sub)
		c.log.Info("subscribed", zap.String("subject", subject), zap.String("durable", durable))
	}
	return nil
}

// Unsubscribe drops interest without deleting the durable consumers.
func (c *Client) Unsubscribe() {
	for _, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			c.log.Warn("drain subscription failed", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}
	c.subs = nil
}

// DurableName derives a consumer name; JetStream forbids dots in it.
func DurableName(service, subject string) string {
	return service + "-" + strings.ReplaceAll(subject, ".", "-")
}

func (c *Client) dispatch(subject string, handler EventHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		settle(msg, handler.Handle(ctx, msg.Data), c.log.With(zap.String("subject", subject)))
	}
}

type acker interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

// settle acks on success, terminates malformed events and naks everything
// else for redelivery.
func settle(msg acker, err error, log *zap.Logger) {
	var ackErr error
	switch {
	case err == nil:
		ackErr = msg.Ack()
	case errors.Is(err, services.ErrMalformedEvent):
		log.Warn("dropping malformed event", zap.Error(err))
		ackErr = msg.Term()
	default:
		log.Error("event handling failed, will retry", zap.Error(err))
		ackErr = msg.Nak()
	}
	if ackErr != nil {
		log.Warn("failed to settle message", zap.Error(ackErr))
	}
}

package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"ballotbox/contexts/election-operations/election-engine/ports"

	"github.com/nats-io/nats.go"
)

// NATSBus carries change events over an external NATS broker so independent
// processes (API, worker, extra result screens) share one event stream.
// Subjects are the event types; queue groups give per-consumer-group
// delivery.
type NATSBus struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewNATSBus(url string, logger *slog.Logger) (*NATSBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("ballotbox"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	return &NATSBus{
		conn:   conn,
		logger: logger,
	}, nil
}

func (n *NATSBus) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(topic, payload); err != nil {
		return err
	}
	if n.logger != nil {
		n.logger.Debug("event published",
			"event", "nats_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
		)
	}
	return nil
}

func (n *NATSBus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	sub, err := n.conn.QueueSubscribe(topic, consumerGroup, func(msg *nats.Msg) {
		var event ports.EventEnvelope
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			if n.logger != nil {
				n.logger.Error("event decode failed",
					"event", "nats_decode_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"error", err.Error(),
				)
			}
			return
		}
		if err := handler(ctx, event); err != nil && n.logger != nil {
			n.logger.Error("subscriber handler failed",
				"event", "nats_consume_failed",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", consumerGroup,
				"event_id", event.EventID,
				"error", err.Error(),
			)
		}
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

func (n *NATSBus) Close() {
	n.conn.Close()
}

var _ ports.EventPublisher = (*NATSBus)(nil)
var _ ports.EventSubscriber = (*NATSBus)(nil)

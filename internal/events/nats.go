package events

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
)

// NATSPublisher publishes order events to a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

func (p *NATSPublisher) PublishOrderFinalized(ctx context.Context, event OrderFinalized) error {
	const op = "events.NATSPublisher.PublishOrderFinalized"

	payload, err := json.Marshal(event)
	if err != nil {
		return &domain.Error{Code: domain.EINTERNAL, Message: "failed to encode order event", Op: op, Err: err}
	}
	if err := p.conn.Publish(SubjectOrderFinalized, payload); err != nil {
		return &domain.Error{Code: domain.EINTERNAL, Message: "failed to publish order event", Op: op, Err: err}
	}
	return nil
}

// Subscribe registers handler for finalized-order events. Decode failures are
// dropped; the handler owns its own error handling.
func Subscribe(conn *nats.Conn, handler func(OrderFinalized)) (*nats.Subscription, error) {
	return conn.Subscribe(SubjectOrderFinalized, func(msg *nats.Msg) {
		var event OrderFinalized
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		handler(event)
	})
}

// Package live fans out "something changed" notifications to open browser streams.
package live

import (
	"context"
	"log/slog"
	"time"
)

const (
	TypeUserCreated = "user:created"
	TypeUserUpdated = "user:updated"
	TypeUserDeleted = "user:deleted"
	TypePINSet      = "user:pin_set"
	TypePINReset    = "user:pin_reset"
	TypePasswordSet = "user:password_reset"
)

// Event carries no payload beyond the entity id; clients refetch what they need.
type Event struct {
	Type     string    `json:"type"`
	EntityID string    `json:"entityId"`
	At       time.Time `json:"at"`
}

type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe delivers events until ctx is done or cancel is called.
	Subscribe(ctx context.Context) (events <-chan Event, cancel func(), err error)
}

// Publisher is the best-effort front for a Broker: failures are logged, never returned.
type Publisher struct {
	broker Broker
	log    *slog.Logger
	now    func() time.Time
}

func NewPublisher(broker Broker, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{broker: broker, log: log, now: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, typ, entityID string) {
	if p == nil || p.broker == nil {
		return
	}

	ev := Event{Type: typ, EntityID: entityID, At: p.now().UTC()}
	if err := p.broker.Publish(ctx, ev); err != nil {
		p.log.WarnContext(ctx, "live.publish failed", "type", typ, "entity_id", entityID, "err", err)
	}
}

package notify

import (
	"context"

	"reviewdeck/internal/ports"
)

// Multi publishes to every backing publisher in order. Used to drive the
// in-process hub (websocket listeners) and NATS from one call site.
type Multi struct {
	publishers []ports.Publisher
}

var _ ports.Publisher = (*Multi)(nil)

func NewMulti(publishers ...ports.Publisher) *Multi {
	return &Multi{publishers: publishers}
}

func (m *Multi) Publish(ctx context.Context, channel string, event string, payload any) {
	for _, p := range m.publishers {
		p.Publish(ctx, channel, event, payload)
	}
}

package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"reviewdeck/internal/bootstrap/logging"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/ports"
)

// NATSPublisher mirrors review channel events onto NATS subjects
// ("reviewdeck.<channel>.<event>") so out-of-process consumers can follow
// review lifecycles. Publish failures are logged and swallowed; delivery is
// best-effort by contract.
type NATSPublisher struct {
	conn *nats.Conn
}

var _ ports.Publisher = (*NATSPublisher)(nil)

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("reviewdeck"))
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, channel string, event string, payload any) {
	body, err := json.Marshal(Event{Channel: channel, Event: event, Payload: payload})
	if err != nil {
		logging.Warn(ctx, "drop unencodable notification",
			slog.String("channel", channel),
			slog.String("event", event),
			slog.Any("err", errs.Loggable(err)),
		)
		return
	}

	subject := "reviewdeck." + channel + "." + event
	if err := p.conn.Publish(subject, body); err != nil {
		logging.Warn(ctx, "nats publish failed",
			slog.String("subject", subject),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}

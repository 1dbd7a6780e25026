package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const natsSubject = "safespot.notifications"

type natsPublisher interface {
	Publish(subj string, data []byte) error
}

// NATSDispatcher publishes notifications as JSON on core NATS.
type NATSDispatcher struct {
	pub natsPublisher
}

func NewNATSDispatcher(pub natsPublisher) *NATSDispatcher {
	return &NATSDispatcher{pub: pub}
}

func ConnectNATS(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("safespot-alerts"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

func (d *NATSDispatcher) Name() string { return "nats" }

// Send publishes on core NATS. Publish only buffers and never blocks on the
// server, so ctx is checked once up front.
func (d *NATSDispatcher) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := d.pub.Publish(natsSubject, data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

package natsx

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// Subjects other backend modules (notifications, audit) subscribe to.
const (
	SubjectMessageCreated  = "chat.message.created"
	SubjectPresenceChanged = "chat.presence.changed"
)

type Config struct {
	Servers []string
	Name    string
}

// Producer is a thin JSON publisher over a core NATS connection. A nil
// Producer is valid and publishes nothing, so the gateway can run without a
// broker in dev.
type Producer struct {
	nc *nats.Conn
}

func Connect(cfg Config) (*Producer, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no nats servers configured")
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "nats connect")
	}
	return &Producer{nc: nc}, nil
}

func (p *Producer) Publish(subject string, v any) error {
	if p == nil || p.nc == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	return errors.Wrapf(p.nc.Publish(subject, data), "publish %s", subject)
}

func (p *Producer) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}

package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamConfig configures the NATS JetStream connection
type JetStreamConfig struct {
	URL     string // e.g. nats://localhost:4222
	Stream  string // stream name, created if missing
	Subject string // subject events are published to
	Name    string // connection name shown by the NATS server
}

// Connect opens a NATS connection and a JetStream context
func Connect(cfg JetStreamConfig) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warningf("disconnected from nats: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("reconnected to nats at %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}
	return nc, js, nil
}

// EnsureStream creates the stream or updates it to include the subject
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg JetStreamConfig) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "sKV measurement events",
		Subjects:    []string{cfg.Subject},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.Stream, err)
	}
	return stream, nil
}

// --------------------------------------------------------------------------
// Publisher
// --------------------------------------------------------------------------

// JetStreamPublisher publishes serialized events to a JetStream subject
type JetStreamPublisher struct {
	nc         *nats.Conn
	js         jetstream.JetStream
	subject    string
	serializer serializer.IEventSerializer
}

var _ IPublisher = (*JetStreamPublisher)(nil)

// NewJetStreamPublisher connects to NATS and makes sure the stream exists
func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig, s serializer.IEventSerializer) (*JetStreamPublisher, error) {
	nc, js, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := EnsureStream(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, err
	}

	log.Infof("publishing events to %s (stream %s, format %s)", cfg.Subject, cfg.Stream, s.Name())
	return &JetStreamPublisher{
		nc:         nc,
		js:         js,
		subject:    cfg.Subject,
		serializer: s,
	}, nil
}

func (p *JetStreamPublisher) Publish(ctx context.Context, event store.MeasurementEvent) error {
	data, err := p.serializer.Serialize(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event %s: %w", event.Key, err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set(FormatHeader, p.serializer.Name())
	// the stream drops a retried publish of the same write
	msg.Header.Set(nats.MsgIdHdr, fmt.Sprintf("%s@%d", event.Key, event.ObservedAt.UnixNano()))

	if _, err := p.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Key, err)
	}
	return nil
}

func (p *JetStreamPublisher) Close() error {
	return p.nc.Drain()
}

package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/VictoriaMetrics/metrics"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultRedeliveryDelay is the delay before a nak'ed message is redelivered
const DefaultRedeliveryDelay = 2 * time.Second

var (
	consumedAcked     = metrics.NewCounter(`skv_relay_messages_total{result="ack"}`)
	consumedRequeued  = metrics.NewCounter(`skv_relay_messages_total{result="requeue"}`)
	consumedDiscarded = metrics.NewCounter(`skv_relay_messages_total{result="discard"}`)
)

// Action is the outcome of handling a single message
type Action int

const (
	ActionAck     Action = iota // written to the sink
	ActionRequeue               // transient failure, redeliver later
	ActionDiscard               // permanent failure, never redeliver
)

func (a Action) String() string {
	switch a {
	case ActionAck:
		return "ack"
	case ActionRequeue:
		return "requeue"
	default:
		return "discard"
	}
}

// message is the part of jetstream.Msg the consumer needs
type message interface {
	Data() []byte
	Headers() nats.Header
	Ack() error
	NakWithDelay(delay time.Duration) error
	Term() error
}

// ConsumerConfig configures a Consumer
type ConsumerConfig struct {
	JetStreamConfig
	Durable         string                      // durable consumer name
	Fallback        serializer.IEventSerializer // used for messages without format header
	RedeliveryDelay time.Duration
	WriteTimeout    time.Duration
}

// Consumer pulls events from JetStream and writes them to a sink.
// A message is acked only after the sink wrote it, transient sink errors lead to
// a redelivery and undecodable messages or permanent sink errors are discarded.
// At most one message is in flight at any time.
type Consumer struct {
	cfg  ConsumerConfig
	sink ISink
}

// NewConsumer creates a consumer. Call Run to start it.
func NewConsumer(cfg ConsumerConfig, sink ISink) *Consumer {
	if cfg.RedeliveryDelay <= 0 {
		cfg.RedeliveryDelay = DefaultRedeliveryDelay
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultPublishTimeout
	}
	if cfg.Fallback == nil {
		cfg.Fallback = serializer.NewJSONSerializer()
	}
	return &Consumer{cfg: cfg, sink: sink}
}

// decode deserializes a message using the format named in its header
func (c *Consumer) decode(msg message) (store.MeasurementEvent, error) {
	s := c.cfg.Fallback
	if h := msg.Headers(); h != nil {
		if name := h.Get(FormatHeader); name != "" {
			var err error
			if s, err = serializer.ByName(name); err != nil {
				return store.MeasurementEvent{}, err
			}
		}
	}

	var event store.MeasurementEvent
	if err := s.Deserialize(msg.Data(), &event); err != nil {
		return store.MeasurementEvent{}, err
	}
	if event.Key == "" {
		return store.MeasurementEvent{}, fmt.Errorf("event without key")
	}
	return event, nil
}

// handle processes a single message and acknowledges it according to the outcome
func (c *Consumer) handle(ctx context.Context, msg message) Action {
	event, err := c.decode(msg)
	if err != nil {
		log.Errorf("discarding undecodable message: %v", err)
		c.settle(msg, ActionDiscard)
		return ActionDiscard
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	err = c.sink.Write(writeCtx, event)
	cancel()

	action := ActionAck
	switch {
	case err == nil:
		log.Debugf("stored %s = %v", event.Key, event.Value)
	case IsPermanent(err):
		log.Errorf("discarding %s: %v", event.Key, err)
		action = ActionDiscard
	default:
		log.Warningf("requeueing %s: %v", event.Key, err)
		action = ActionRequeue
	}
	c.settle(msg, action)
	return action
}

// settle acknowledges a message
func (c *Consumer) settle(msg message, action Action) {
	var err error
	switch action {
	case ActionAck:
		consumedAcked.Inc()
		err = msg.Ack()
	case ActionRequeue:
		consumedRequeued.Inc()
		err = msg.NakWithDelay(c.cfg.RedeliveryDelay)
	case ActionDiscard:
		consumedDiscarded.Inc()
		err = msg.Term()
	}
	if err != nil {
		log.Warningf("failed to %s message: %v", action, err)
	}
}

// Run connects to NATS and consumes until ctx is done
func (c *Consumer) Run(ctx context.Context) error {
	nc, js, err := Connect(c.cfg.JetStreamConfig)
	if err != nil {
		return err
	}
	defer nc.Close()

	stream, err := EnsureStream(ctx, js, c.cfg.JetStreamConfig)
	if err != nil {
		return err
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       c.cfg.Durable,
		Description:   "sKV relay",
		FilterSubject: c.cfg.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxAckPending: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", c.cfg.Durable, err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer cc.Stop()

	log.Infof("consuming %s from stream %s as %s", c.cfg.Subject, c.cfg.Stream, c.cfg.Durable)
	<-ctx.Done()
	log.Infof("consumer stopped")
	return nil
}

// Package broker moves measurement events from the store to a message broker
// and from the broker to a durable sink.
//
// Key Components:
//
//   - Dispatcher: Implements store.IEventPublisher. Publish pushes the event onto
//     a lock-free MPSC queue (see lib/util) and never blocks the writer. A single
//     goroutine drains the queue into an IPublisher with a per message timeout
//     and a small number of retries. Events that still fail are logged and
//     counted. Close drains the queue before closing the publisher.
//
//   - JetStreamPublisher: Publishes serialized events to a NATS JetStream
//     subject. The stream is created on start if it does not exist. The
//     serializer name travels in the Skv-Format header.
//
//   - LogPublisher: Writes events to the log, for setups without a broker.
//
//   - Consumer: Pulls events from a durable JetStream consumer with explicit
//     acks and at most one message in flight. A message is acked after the sink
//     wrote it, requeued (nak with delay) on transient sink errors and
//     terminated on undecodable payloads or errors marked with Permanent.
//
// Delivery is at least once: a crash between the sink write and the ack
// redelivers the message, sinks must tolerate duplicates.
package broker

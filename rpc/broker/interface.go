package broker

import (
	"context"
	"errors"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("broker")

// FormatHeader is the message header carrying the serializer name
const FormatHeader = "Skv-Format"

// ErrClosed is returned when publishing to a closed dispatcher
var ErrClosed = errors.New("dispatcher closed")

// IPublisher delivers a single event to a message broker
type IPublisher interface {
	// Publish sends the event, blocking at most until ctx is done
	Publish(ctx context.Context, event store.MeasurementEvent) error
	// Close releases the broker connection
	Close() error
}

// ISink durably records events pulled from the broker
type ISink interface {
	// Write records the event. Errors wrapped with Permanent are not retried.
	Write(ctx context.Context, event store.MeasurementEvent) error
}

// --------------------------------------------------------------------------
// Permanent errors
// --------------------------------------------------------------------------

// permanentError marks an error that will not go away on retry
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as permanent: the message is discarded instead of redelivered
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or an error it wraps) was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

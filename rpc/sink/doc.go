// Package sink writes measurement events into a time series database.
//
// InfluxSink stores every event as a point of the measurement "energy" with the
// sensor id as tag "sensor" and the reading as field "value". The point time is
// parsed from the timestamp part of the key and written with second precision.
//
// Errors are classified for the broker consumer: events with an unparsable key
// and requests rejected by InfluxDB with a 4xx status (except 429) are marked
// broker.Permanent and discarded, all other errors lead to a redelivery.
package sink

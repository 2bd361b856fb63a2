package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IMeasurementStore is the interface of a replicated measurement store.
// Write operations return only an error (nil on success), read operations return
// the requested data along with an error. All returned errors are of type *Error.
type IMeasurementStore interface {
	// StoreMeasurement writes a value to every alive node responsible for the key.
	StoreMeasurement(key string, value float64) (err error)
	// RetrieveMeasurement returns the value held by the first alive responsible node.
	RetrieveMeasurement(key string) (result RetrieveResult, err error)
	// MeasurementExists returns true if at least one alive responsible node holds the key.
	MeasurementExists(key string) (exists bool, err error)
	// DeleteMeasurement removes the key from all alive responsible nodes.
	DeleteMeasurement(key string) (err error)
	// FailNode marks a node as dead. The node keeps its data.
	FailNode(nodeID int) (err error)
	// RecoverNode marks a node as alive again.
	RecoverNode(nodeID int) (err error)
	// StorageStatus returns the status of every node ordered by id.
	StorageStatus() (status []NodeStatus)
	// SetReplicationStrategy changes the replication strategy for all subsequent operations.
	SetReplicationStrategy(strategy string, factor int) (err error)
	// ResponsibleNodes returns the nodes responsible for a key under the partitioned strategy.
	ResponsibleNodes(key string) (nodes []NodeStatus, err error)
	// AllMeasurements returns every measurement held by an alive node.
	AllMeasurements() (measurements map[string]float64)
	// SensorMeasurements returns the measurements of a single sensor sorted by key.
	SensorMeasurements(sensorID string) (measurements []Measurement)
	// RecentMeasurements returns the most recent writes, newest first.
	RecentMeasurements() (recent []RecentMeasurement)
	// NodeContents returns the table of a single node regardless of its state.
	NodeContents(nodeID int) (contents NodeContents, err error)
	// Config returns a snapshot of the replication configuration.
	Config() (config ReplicationConfig)
}

// IEventPublisher receives every successfully stored measurement.
// Implementations must not block the caller for long, errors are logged by the
// caller and never fail the write.
type IEventPublisher interface {
	Publish(event MeasurementEvent) error
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Strategy names a replication strategy
type Strategy string

const (
	StrategyFull        Strategy = "full"
	StrategyPartitioned Strategy = "partitioned"
)

// ReplicationConfig is a snapshot of the replication configuration
type ReplicationConfig struct {
	Strategy          Strategy `json:"strategy"`
	ReplicationFactor int      `json:"replication_factor"`
	Nodes             int      `json:"nodes"`
	VirtualNodes      int      `json:"virtual_nodes"`
}

// Measurement is a single key/value pair
type Measurement struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// RetrieveResult is the result of a successful read
type RetrieveResult struct {
	Key     string  `json:"key"`
	Value   float64 `json:"value"`
	NodeID  int     `json:"node_id"`
	Message string  `json:"message"`
}

// RecentMeasurement is an entry of the recent writes log
type RecentMeasurement struct {
	Key        string    `json:"key"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

// NodeStatus describes a single storage node
type NodeStatus struct {
	NodeID   int  `json:"node_id"`
	Alive    bool `json:"alive"`
	Port     int  `json:"port"`
	KeyCount int  `json:"key_count"`
}

// NodeContents is a dump of a single node
type NodeContents struct {
	NodeStatus
	Measurements []Measurement `json:"measurements"`
}

// MeasurementEvent is handed to the event publisher after every successful write
type MeasurementEvent struct {
	Key        string    `json:"key"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

// SensorID returns the sensor part of the event key
func (e MeasurementEvent) SensorID() string {
	sensorID, _ := SplitKey(e.Key)
	return sensorID
}

// Timestamp returns the timestamp part of the event key
func (e MeasurementEvent) Timestamp() string {
	_, ts := SplitKey(e.Key)
	return ts
}

// --------------------------------------------------------------------------
// Keys
// --------------------------------------------------------------------------

// KeySeparator separates the sensor id from the timestamp in a measurement key
const KeySeparator = ":"

// JoinKey builds a measurement key from a sensor id and a timestamp
func JoinKey(sensorID, timestamp string) string {
	return sensorID + KeySeparator + timestamp
}

// SplitKey splits a measurement key at the first separator.
// The timestamp may itself contain the separator. A key without separator is
// returned as sensor id with an empty timestamp.
func SplitKey(key string) (sensorID, timestamp string) {
	sensorID, timestamp, _ = strings.Cut(key, KeySeparator)
	return sensorID, timestamp
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code RetCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// CodeOf returns the code of the first *Error in the chain of err.
// It returns RetCSuccess for nil and RetCInternalError for foreign errors.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Code
	}
	return RetCInternalError
}

// IsCode reports whether err carries the given code
func IsCode(err error, code RetCode) bool {
	return err != nil && CodeOf(err) == code
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess            RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                     // 1: Operation failed due to an internal error.
	RetCInvalidInput                      // 2: Missing or malformed input.
	RetCInvalidConfig                     // 3: Bad replication strategy or factor.
	RetCInvalidRange                      // 4: Bad hour range of a threshold.
	RetCInvalidWeekday                    // 5: Unknown weekday name.
	RetCNodeNotFound                      // 6: Node id out of range.
	RetCNotFound                          // 7: Measurement (or other entity) absent.
	RetCNoAvailableReplica                // 8: Every responsible node is dead.
	RetCNotApplicable                     // 9: Operation not meaningful under the active strategy.
	RetCUnauthorized                      // 10: Missing or wrong credentials.
)

var retCodeNames = map[RetCode]string{
	RetCSuccess:            "Success",
	RetCInternalError:      "InternalError",
	RetCInvalidInput:       "InvalidInput",
	RetCInvalidConfig:      "InvalidConfig",
	RetCInvalidRange:       "InvalidRange",
	RetCInvalidWeekday:     "InvalidWeekday",
	RetCNodeNotFound:       "NodeNotFound",
	RetCNotFound:           "NotFound",
	RetCNoAvailableReplica: "NoAvailableReplica",
	RetCNotApplicable:      "NotApplicable",
	RetCUnauthorized:       "Unauthorized",
}

// String returns the name of the code
func (c RetCode) String() string {
	if name, ok := retCodeNames[c]; ok {
		return name
	}
	return "Unknown"
}

// ParseRetCode returns the code with the given name.
// Unknown names map to RetCInternalError.
func ParseRetCode(name string) RetCode {
	for code, n := range retCodeNames {
		if n == name {
			return code
		}
	}
	return RetCInternalError
}

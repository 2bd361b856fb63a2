package stats

import (
	"context"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/util"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("stats")

// ISource provides the measurements of a sensor
type ISource interface {
	SensorMeasurements(sensorID string) []store.Measurement
}

// Service computes per sensor statistics and caches them for a TTL
type Service struct {
	source ISource
	means  *Cache[float64]
	stds   *Cache[float64]
}

// NewService creates a statistics service on top of source
func NewService(source ISource, ttl time.Duration) *Service {
	return &Service{
		source: source,
		means:  NewCache[float64](ttl),
		stds:   NewCache[float64](ttl),
	}
}

// values returns the measurement values of a sensor or a NotFound error
func (s *Service) values(sensorID string) ([]float64, error) {
	if sensorID == "" {
		return nil, store.NewError(store.RetCInvalidInput, "sensor id must not be empty")
	}
	measurements := s.source.SensorMeasurements(sensorID)
	if len(measurements) == 0 {
		return nil, store.Errorf(store.RetCNotFound, "no measurements for sensor %q", sensorID)
	}
	values := make([]float64, len(measurements))
	for i, m := range measurements {
		values[i] = m.Value
	}
	return values, nil
}

// Mean returns the mean of all measurements of a sensor
func (s *Service) Mean(sensorID string) (mean float64, cached bool, err error) {
	return s.means.GetOrCompute(sensorID, func() (float64, error) {
		values, err := s.values(sensorID)
		if err != nil {
			return 0, err
		}
		return util.NewStats(values).Mean, nil
	})
}

// Std returns the sample standard deviation of all measurements of a sensor.
// At least two measurements are required.
func (s *Service) Std(sensorID string) (std float64, cached bool, err error) {
	return s.stds.GetOrCompute(sensorID, func() (float64, error) {
		values, err := s.values(sensorID)
		if err != nil {
			return 0, err
		}
		if len(values) < 2 {
			return 0, store.Errorf(store.RetCInvalidInput,
				"standard deviation of sensor %q needs at least two measurements, got %d", sensorID, len(values))
		}
		return util.NewStats(values).StdDeviation, nil
	})
}

// Summary returns uncached statistics over all measurements of a sensor
func (s *Service) Summary(sensorID string) (util.Stats, error) {
	values, err := s.values(sensorID)
	if err != nil {
		return util.Stats{}, err
	}
	return util.NewStats(values), nil
}

// TTL returns the validity window of cached values
func (s *Service) TTL() time.Duration { return s.means.TTL() }

// Run evicts expired cache entries every interval until ctx is done
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	go s.stds.Run(ctx, interval)
	s.means.Run(ctx, interval)
}

// Package metrics is a thin façade for emitting counters and timers into a
// Prometheus registerer.
//
// Metrics are created on first use from a name and key/value tag pairs, so
// callers never declare collectors up front. Repeated calls with the same name
// reuse the collector that is already registered. The registerer must be safe
// for concurrent use; Service only adds the common application label.
package metrics

import (
	"errors"
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"time"
)

// ApplicationLabel is the common label attached to every metric
const ApplicationLabel = "application"

// ErrOddTags is returned when tags are not given as key/value pairs
var ErrOddTags = errors.New("tags must be key/value pairs")

// Service emits counters and timers into a Prometheus registerer
type Service struct {
	registerer   prometheus.Registerer
	commonLabels prometheus.Labels
}

// Sample is an in-flight timing measurement
type Sample struct {
	start time.Time
}

// New creates a Service. A non-empty applicationName is added to every metric
// as the "application" label; an explicit "application" tag overrides it.
func New(registerer prometheus.Registerer, applicationName string) *Service {
	s := &Service{registerer: registerer, commonLabels: prometheus.Labels{}}
	if applicationName != "" {
		s.commonLabels[ApplicationLabel] = applicationName
	}
	return s
}

// IncrementCounter adds one to the named counter
func (s *Service) IncrementCounter(name string, tags ...string) error {
	labels, err := tagLabels(s.commonLabels, tags)
	if err != nil {
		return err
	}

	vec, err := s.counter(name, labels)
	if err != nil {
		return err
	}
	vec.With(labels).Inc()
	return nil
}

// StartTimer starts a timing sample
func (s *Service) StartTimer() *Sample {
	return &Sample{start: time.Now()}
}

// StopTimer records the time elapsed since sample started against the named timer
func (s *Service) StopTimer(sample *Sample, name string, tags ...string) error {
	if sample == nil {
		return fmt.Errorf("timer %s: nil sample", name)
	}
	return s.observe(name, time.Since(sample.start), tags)
}

// RecordTimer is an alias of StopTimer
func (s *Service) RecordTimer(sample *Sample, name string, tags ...string) error {
	return s.StopTimer(sample, name, tags...)
}

// RecordExecutionTime records a duration measured by the caller, expressed as
// value units of unit (e.g. 250, time.Millisecond).
func (s *Service) RecordExecutionTime(name string, value int64, unit time.Duration, tags ...string) error {
	return s.observe(name, time.Duration(value)*unit, tags)
}

func (s *Service) observe(name string, d time.Duration, tags []string) error {
	labels, err := tagLabels(s.commonLabels, tags)
	if err != nil {
		return err
	}

	vec, err := s.timer(name, labels)
	if err != nil {
		return err
	}
	vec.With(labels).Observe(d.Seconds())
	return nil
}

func (s *Service) counter(name string, labels prometheus.Labels) (*prometheus.CounterVec, error) {
	fqName := CounterName(name)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: fqName,
		Help: fmt.Sprintf("Counter %s.", name),
	}, labelNames(labels))

	if err := s.registerer.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to register counter %s: %w", fqName, err)
	}
	return vec, nil
}

func (s *Service) timer(name string, labels prometheus.Labels) (*prometheus.HistogramVec, error) {
	fqName := TimerName(name)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    fqName,
		Help:    fmt.Sprintf("Timer %s.", name),
		Buckets: prometheus.DefBuckets,
	}, labelNames(labels))

	if err := s.registerer.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to register timer %s: %w", fqName, err)
	}
	return vec, nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultApplicationName    = "unknown-service"
	DefaultTimeout            = 3 * time.Second
	DefaultManagementBasePath = "/actuator"
	DefaultMetricsEndpoint    = "/prometheus"
	DefaultHealthEndpoint     = "/health"
)

// Target names, in registration order.
const (
	TargetGrafana    = "grafana"
	TargetDatahog    = "datahog"
	TargetPrometheus = "prometheus"
)

// ErrUnknownTarget is returned when a target name is not one of the known backends.
var ErrUnknownTarget = errors.New("unknown registration target")

// Config holds the monitoring registration configuration
type Config struct {
	Enabled         bool
	ApplicationName string

	// Feature toggles. The registrar does not read them.
	EnablePrometheus bool
	EnableHealth     bool
	EnableMetrics    bool

	// Optional override for the advertised host
	ServiceHost string

	Registration RegistrationSettings
}

// RegistrationSettings describes how and where the service registers itself
type RegistrationSettings struct {
	Timeout            time.Duration
	ManagementBasePath string
	MetricsEndpoint    string
	HealthEndpoint     string

	Grafana    TargetConfig
	Datahog    TargetConfig
	Prometheus TargetConfig
}

// TargetConfig holds the settings of a single monitoring backend
type TargetConfig struct {
	Enabled  bool
	URL      string
	Metadata *Metadata
}

// NamedTarget pairs a target with its backend name
type NamedTarget struct {
	Name   string
	Target *TargetConfig
}

// Default returns a Config populated with the library defaults
func Default() *Config {
	return &Config{
		Enabled:          true,
		ApplicationName:  DefaultApplicationName,
		EnablePrometheus: true,
		EnableHealth:     true,
		EnableMetrics:    true,
		Registration: RegistrationSettings{
			Timeout:            DefaultTimeout,
			ManagementBasePath: DefaultManagementBasePath,
			MetricsEndpoint:    DefaultMetricsEndpoint,
			HealthEndpoint:     DefaultHealthEndpoint,
			Grafana:            TargetConfig{Metadata: NewMetadata()},
			Datahog:            TargetConfig{Metadata: NewMetadata()},
			Prometheus:         TargetConfig{Metadata: NewMetadata()},
		},
	}
}

// Active reports whether the target should receive a registration
func (t TargetConfig) Active() bool {
	return t.Enabled && strings.TrimSpace(t.URL) != ""
}

// Targets returns the configured targets in registration order
func (r *RegistrationSettings) Targets() []NamedTarget {
	return []NamedTarget{
		{Name: TargetGrafana, Target: &r.Grafana},
		{Name: TargetDatahog, Target: &r.Datahog},
		{Name: TargetPrometheus, Target: &r.Prometheus},
	}
}

// Target looks up a target by its backend name
func (r *RegistrationSettings) Target(name string) (*TargetConfig, error) {
	for _, t := range r.Targets() {
		if t.Name == name {
			return t.Target, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
}

// EffectiveTimeout returns the configured timeout, or DefaultTimeout when it is not positive
func (r RegistrationSettings) EffectiveTimeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

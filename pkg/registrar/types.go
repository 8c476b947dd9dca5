package registrar

import (
	"context"
	"go.lumeweb.com/monitoring-registrar/pkg/config"
)

// Outcome of a single registration attempt, used as a metric tag
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

// Poster delivers a registration payload to a target URL.
// An error means the payload never reached the target.
type Poster interface {
	Post(ctx context.Context, url string, payload any) error
}

// PosterFunc adapts a function to the Poster interface
type PosterFunc func(ctx context.Context, url string, payload any) error

func (f PosterFunc) Post(ctx context.Context, url string, payload any) error {
	return f(ctx, url, payload)
}

// Payload is the self-description sent to each monitoring target
type Payload struct {
	Target          string           `json:"target"`
	ServiceName     string           `json:"serviceName"`
	ApplicationName string           `json:"applicationName"`
	Environment     string           `json:"environment"`
	ServiceURL      string           `json:"serviceUrl"`
	ManagementURL   string           `json:"managementUrl"`
	HealthURL       string           `json:"healthUrl"`
	MetricsURL      string           `json:"metricsUrl"`
	Metadata        *config.Metadata `json:"metadata"`
	Timestamp       string           `json:"timestamp"`
}

// Endpoints contains the addresses computed once per registration round
type Endpoints struct {
	Scheme         string
	Host           string
	ServicePort    int
	ManagementPort int
	Environment    string
	ServiceURL     string
	ManagementURL  string
	HealthURL      string
	MetricsURL     string
}

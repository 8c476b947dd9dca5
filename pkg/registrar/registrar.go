package registrar

import (
	"context"
	"fmt"
	"github.com/sirupsen/logrus"
	"go.lumeweb.com/monitoring-registrar/pkg/config"
	"go.lumeweb.com/monitoring-registrar/pkg/environment"
	"go.lumeweb.com/monitoring-registrar/pkg/logger"
	"go.lumeweb.com/monitoring-registrar/pkg/metrics"
	"go.lumeweb.com/monitoring-registrar/pkg/util"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Registrar announces the running service to the configured monitoring targets
type Registrar struct {
	cfg          *config.Config
	env          environment.Environment
	poster       Poster
	log          logrus.FieldLogger
	metrics      *metrics.Service
	resolveLocal func(ctx context.Context) (string, error)
	now          func() time.Time

	registered atomic.Bool
}

// Option configures a Registrar
type Option func(*Registrar)

// WithLogger replaces the global logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Registrar) {
		r.log = log
	}
}

// WithMetrics records attempt counters and durations through svc
func WithMetrics(svc *metrics.Service) Option {
	return func(r *Registrar) {
		r.metrics = svc
	}
}

// WithHostResolver replaces the local address lookup used when no host is configured
func WithHostResolver(resolve func(ctx context.Context) (string, error)) Option {
	return func(r *Registrar) {
		r.resolveLocal = resolve
	}
}

// WithClock replaces time.Now for payload timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Registrar) {
		r.now = now
	}
}

// New creates a Registrar. cfg must not be modified afterwards.
func New(cfg *config.Config, env environment.Environment, poster Poster, opts ...Option) *Registrar {
	r := &Registrar{
		cfg:          cfg,
		env:          env,
		poster:       poster,
		log:          logger.Component("registrar"),
		resolveLocal: util.LocalAddress,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registered reports whether a registration round has been started
func (r *Registrar) Registered() bool {
	return r.registered.Load()
}

// RegisterOnStartup registers the service with every active target. Only the
// first call per Registrar does any work. Failures are logged, never returned.
func (r *Registrar) RegisterOnStartup(ctx context.Context) {
	if !r.cfg.Enabled {
		r.log.Debug("Monitoring registration disabled via configuration")
		return
	}

	if !r.registered.CompareAndSwap(false, true) {
		return
	}

	endpoints := r.ResolveEndpoints(ctx)
	r.log.WithFields(logrus.Fields{
		"service_url":    endpoints.ServiceURL,
		"management_url": endpoints.ManagementURL,
		"health_url":     endpoints.HealthURL,
		"metrics_url":    endpoints.MetricsURL,
		"environment":    endpoints.Environment,
	}).Infof("Service [%s] ready", r.cfg.ApplicationName)

	var wg sync.WaitGroup
	for _, nt := range r.cfg.Registration.Targets() {
		if !nt.Target.Active() {
			continue
		}

		payload := r.buildPayload(nt.Name, nt.Target, endpoints)
		wg.Add(1)
		go func(name, url string) {
			defer wg.Done()
			r.registerTarget(ctx, name, url, payload)
		}(nt.Name, nt.Target.URL)
	}
	wg.Wait()
}

func (r *Registrar) registerTarget(ctx context.Context, name, url string, payload *Payload) {
	log := r.log.WithFields(logrus.Fields{"target": name, "url": url})
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("Registration with %s panicked: %v", name, rec)
		}
	}()

	start := time.Now()
	err := r.poster.Post(ctx, url, payload)
	r.record(name, err, time.Since(start))

	if err != nil {
		log.Warnf("Failed to register service [%s] with %s at %s: %v", r.cfg.ApplicationName, name, url, err)
		return
	}
	log.Infof("Registered service [%s] with %s via %s", r.cfg.ApplicationName, name, url)
}

func (r *Registrar) record(target string, err error, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}

	outcome := OutcomeDelivered
	if err != nil {
		outcome = OutcomeFailed
	}
	if err := r.metrics.IncrementCounter(attemptsMetric, "target", target, "outcome", string(outcome)); err != nil {
		r.log.Debugf("Unable to record registration attempt: %v", err)
	}
	if err := r.metrics.RecordExecutionTime(durationMetric, int64(elapsed), time.Nanosecond, "target", target); err != nil {
		r.log.Debugf("Unable to record registration duration: %v", err)
	}
}

// buildPayload copies the target metadata so later changes to the
// configuration do not leak into the payload.
func (r *Registrar) buildPayload(name string, target *config.TargetConfig, e Endpoints) *Payload {
	return &Payload{
		Target:          name,
		ServiceName:     r.cfg.ApplicationName,
		ApplicationName: r.cfg.ApplicationName,
		Environment:     e.Environment,
		ServiceURL:      e.ServiceURL,
		ManagementURL:   e.ManagementURL,
		HealthURL:       e.HealthURL,
		MetricsURL:      e.MetricsURL,
		Metadata:        target.Metadata.Clone(),
		Timestamp:       r.now().UTC().Format(time.RFC3339Nano),
	}
}

// ResolveEndpoints computes the scheme, host, ports and URLs advertised to targets
func (r *Registrar) ResolveEndpoints(ctx context.Context) Endpoints {
	e := Endpoints{
		Scheme:      r.scheme(),
		Host:        r.resolveHost(ctx),
		Environment: r.environmentName(),
	}
	e.ServicePort = r.servicePort()
	e.ManagementPort = r.managementPort(e.ServicePort)
	e.ServiceURL = baseURL(e.Scheme, e.Host, e.ServicePort)
	e.ManagementURL = baseURL(e.Scheme, e.Host, e.ManagementPort)
	e.HealthURL = e.ManagementURL + r.cfg.Registration.HealthPath()
	e.MetricsURL = e.ManagementURL + r.cfg.Registration.MetricsPath()
	return e
}

func (r *Registrar) scheme() string {
	if strings.EqualFold(r.env.Property(environment.SSLEnabled), "true") {
		return schemeHTTPS
	}
	return schemeHTTP
}

func (r *Registrar) resolveHost(ctx context.Context) string {
	if host := util.FirstNonEmpty(r.cfg.ServiceHost, r.env.Property(environment.Hostname)); host != "" {
		return host
	}

	if r.resolveLocal != nil {
		addr, err := r.resolveLocal(ctx)
		if err == nil && strings.TrimSpace(addr) != "" {
			return addr
		}
		r.log.Debugf("Unable to resolve local host address, defaulting to %s: %v", defaultHost, err)
	}
	return defaultHost
}

func (r *Registrar) servicePort() int {
	value := util.FirstNonEmpty(
		r.env.Property(environment.LocalServerPort),
		r.env.Property(environment.ServerPort),
	)
	return r.parsePort(value, defaultServicePort)
}

func (r *Registrar) managementPort(servicePort int) int {
	value := util.FirstNonEmpty(
		r.env.Property(environment.LocalManagementPort),
		r.env.Property(environment.ManagementServerPort),
	)
	return r.parsePort(value, servicePort)
}

func (r *Registrar) parsePort(value string, fallback int) int {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		r.log.Debugf("Unable to parse port [%s], falling back to %d", value, fallback)
		return fallback
	}
	return port
}

func (r *Registrar) environmentName() string {
	profiles := r.env.ActiveProfiles()
	if len(profiles) == 0 {
		return defaultEnvironment
	}
	return strings.Join(profiles, ",")
}

// baseURL renders scheme://host[:port]; the port is left out when it is not positive.
func baseURL(scheme, host string, port int) string {
	if port <= 0 {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

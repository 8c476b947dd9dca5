package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"go.lumeweb.com/monitoring-registrar/pkg/build"
	"go.lumeweb.com/monitoring-registrar/pkg/environment"
	"go.lumeweb.com/monitoring-registrar/pkg/logger"
	"go.lumeweb.com/monitoring-registrar/pkg/management"
	"go.lumeweb.com/monitoring-registrar/pkg/metrics"
	"go.lumeweb.com/monitoring-registrar/pkg/registrar"
	"go.lumeweb.com/monitoring-registrar/pkg/util"
	"golang.org/x/time/rate"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

const (
	shutdownTimeout = 10 * time.Second
	checkTimeout    = time.Second
)

func main() {
	logger.Log.Infof("Starting monitoring-registrar\n%s", build.GetVersionInfo())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(run).Run(ctx, os.Args); err != nil {
		logger.Log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	// Set log level
	logger.SetLevel(cmd.String("loglevel"))

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsSvc := metrics.New(registry, cfg.ApplicationName)

	// Setup management endpoints
	handler := management.NewHandler(management.Config{
		Registration:     cfg.Registration,
		Gatherer:         registry,
		EnableHealth:     cfg.EnableHealth,
		EnablePrometheus: cfg.EnablePrometheus,
	})
	if limit := cmd.Int("management-rate-limit"); limit > 0 {
		handler = management.WithRateLimit(handler, rate.NewLimiter(rate.Limit(limit), int(cmd.Int("management-rate-burst"))))
	}
	password := cmd.String("management-password")
	handler = management.WithBasicAuth(handler, password)

	props := environmentProperties(cmd)
	managementPort := props[environment.ManagementServerPort]
	if managementPort == "" {
		managementPort = props[environment.ServerPort]
	}
	if managementPort == "" {
		managementPort = "8080"
	}

	listener, err := net.Listen("tcp", net.JoinHostPort("", managementPort))
	if err != nil {
		return fmt.Errorf("failed to listen on management port %s: %w", managementPort, err)
	}
	boundPort := listener.Addr().(*net.TCPAddr).Port
	props[environment.LocalManagementPort] = strconv.Itoa(boundPort)

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start HTTP server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("HTTP server error: %v", err)
		}
	}()

	if cfg.EnableHealth && cfg.Registration.HealthPath() != "" {
		healthURL := fmt.Sprintf("http://127.0.0.1:%d%s", boundPort, cfg.Registration.HealthPath())
		if err := util.WaitReady(ctx, healthCheck(healthURL, password), util.ReadinessRetry, 0); err != nil {
			return fmt.Errorf("management endpoint did not become ready: %w", err)
		}
	}

	env := environment.New(props, environment.WithProfiles(util.SplitList(cmd.String("profiles"))...))
	poster := registrar.NewHTTPPoster(cfg.Registration.EffectiveTimeout())
	reg := registrar.New(cfg, env, poster, registrar.WithMetrics(metricsSvc))

	// Application ready: announce the service
	reg.RegisterOnStartup(ctx)

	// Wait for context cancellation
	<-ctx.Done()

	// Create shutdown context
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("shutdown error: %w", err)
		}
		logger.Log.Warn("Shutdown timed out")
	}

	return nil
}

func healthCheck(url, password string) func() error {
	client := &http.Client{Timeout: checkTimeout}
	return func() error {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if password != "" {
			req.SetBasicAuth("monitor", password)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("health check request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
		}
		return nil
	}
}

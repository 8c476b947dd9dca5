package main

import (
	"encoding/json"
	"fmt"
	"github.com/urfave/cli/v3"
	"go.lumeweb.com/monitoring-registrar/pkg/config"
	"go.lumeweb.com/monitoring-registrar/pkg/environment"
	"strconv"
	"strings"
)

func newCommand(action cli.ActionFunc) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to an HCL configuration file",
			Sources: cli.EnvVars("MONITORING_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "loglevel",
			Usage:   "Log level (debug, info, warning, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    "enabled",
			Usage:   "Enable monitoring registration",
			Value:   true,
			Sources: cli.EnvVars("MONITORING_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "application-name",
			Usage:   "Name the service registers under",
			Value:   config.DefaultApplicationName,
			Sources: cli.EnvVars("MONITORING_APPLICATION_NAME"),
		},
		&cli.StringFlag{
			Name:    "service-host",
			Usage:   "Host advertised to monitoring targets",
			Sources: cli.EnvVars("MONITORING_SERVICE_HOST"),
		},
		&cli.BoolFlag{
			Name:    "enable-prometheus",
			Usage:   "Serve the Prometheus endpoint",
			Value:   true,
			Sources: cli.EnvVars("MONITORING_ENABLE_PROMETHEUS"),
		},
		&cli.BoolFlag{
			Name:    "enable-health",
			Usage:   "Serve the health endpoint",
			Value:   true,
			Sources: cli.EnvVars("MONITORING_ENABLE_HEALTH"),
		},
		&cli.BoolFlag{
			Name:    "enable-metrics",
			Usage:   "Enable application metrics",
			Value:   true,
			Sources: cli.EnvVars("MONITORING_ENABLE_METRICS"),
		},
		&cli.DurationFlag{
			Name:    "registration-timeout",
			Usage:   "Connect and read timeout for registration calls",
			Value:   config.DefaultTimeout,
			Sources: cli.EnvVars("MONITORING_REGISTRATION_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:    "management-base-path",
			Usage:   "Base path of the management endpoints",
			Value:   config.DefaultManagementBasePath,
			Sources: cli.EnvVars("MONITORING_REGISTRATION_MANAGEMENT_BASE_PATH"),
		},
		&cli.StringFlag{
			Name:    "metrics-endpoint",
			Usage:   "Metrics endpoint below the management base path",
			Value:   config.DefaultMetricsEndpoint,
			Sources: cli.EnvVars("MONITORING_REGISTRATION_METRICS_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:    "health-endpoint",
			Usage:   "Health endpoint below the management base path",
			Value:   config.DefaultHealthEndpoint,
			Sources: cli.EnvVars("MONITORING_REGISTRATION_HEALTH_ENDPOINT"),
		},
		&cli.IntFlag{
			Name:    "server-port",
			Usage:   "Port of the service",
			Sources: cli.EnvVars("SERVER_PORT"),
		},
		&cli.IntFlag{
			Name:    "management-port",
			Usage:   "Port of the management endpoints (defaults to the server port)",
			Sources: cli.EnvVars("MANAGEMENT_SERVER_PORT"),
		},
		&cli.BoolFlag{
			Name:    "ssl-enabled",
			Usage:   "Advertise https URLs",
			Sources: cli.EnvVars("SERVER_SSL_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "profiles",
			Usage:   "Comma-separated active profiles",
			Sources: cli.EnvVars("ACTIVE_PROFILES"),
		},
		&cli.StringFlag{
			Name:    "management-password",
			Usage:   "Password for management endpoint basic auth",
			Sources: cli.EnvVars("MANAGEMENT_PASSWORD"),
		},
		&cli.IntFlag{
			Name:    "management-rate-limit",
			Usage:   "Requests per second allowed on the management endpoints (0 disables)",
			Sources: cli.EnvVars("MANAGEMENT_RATE_LIMIT"),
		},
		&cli.IntFlag{
			Name:    "management-rate-burst",
			Usage:   "Burst size for the management rate limit",
			Value:   10,
			Sources: cli.EnvVars("MANAGEMENT_RATE_BURST"),
		},
	}

	for _, name := range []string{config.TargetGrafana, config.TargetDatahog, config.TargetPrometheus} {
		flags = append(flags, targetFlags(name)...)
	}

	return &cli.Command{
		Name:   "monitoring-registrar",
		Usage:  "Registers a service with its monitoring backends on startup",
		Flags:  flags,
		Action: action,
	}
}

func targetFlags(name string) []cli.Flag {
	env := "MONITORING_REGISTRATION_" + strings.ToUpper(name)
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    name + "-enabled",
			Usage:   fmt.Sprintf("Register with %s", name),
			Sources: cli.EnvVars(env + "_ENABLED"),
		},
		&cli.StringFlag{
			Name:    name + "-url",
			Usage:   fmt.Sprintf("Registration URL of %s", name),
			Sources: cli.EnvVars(env + "_URL"),
		},
		&cli.StringFlag{
			Name:    name + "-metadata",
			Usage:   fmt.Sprintf("JSON object of metadata sent to %s", name),
			Sources: cli.EnvVars(env + "_METADATA"),
		},
	}
}

// loadConfig builds the configuration from defaults, the optional config
// file and any explicitly set flags, in that order.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()

	if path := cmd.String("config"); path != "" {
		loaded, err := config.LoadFile(path, cfg)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.IsSet("enabled") {
		cfg.Enabled = cmd.Bool("enabled")
	}
	if cmd.IsSet("application-name") {
		cfg.ApplicationName = cmd.String("application-name")
	}
	if cmd.IsSet("service-host") {
		cfg.ServiceHost = cmd.String("service-host")
	}
	if cmd.IsSet("enable-prometheus") {
		cfg.EnablePrometheus = cmd.Bool("enable-prometheus")
	}
	if cmd.IsSet("enable-health") {
		cfg.EnableHealth = cmd.Bool("enable-health")
	}
	if cmd.IsSet("enable-metrics") {
		cfg.EnableMetrics = cmd.Bool("enable-metrics")
	}

	reg := &cfg.Registration
	if cmd.IsSet("registration-timeout") {
		reg.Timeout = cmd.Duration("registration-timeout")
	}
	if cmd.IsSet("management-base-path") {
		reg.ManagementBasePath = cmd.String("management-base-path")
	}
	if cmd.IsSet("metrics-endpoint") {
		reg.MetricsEndpoint = cmd.String("metrics-endpoint")
	}
	if cmd.IsSet("health-endpoint") {
		reg.HealthEndpoint = cmd.String("health-endpoint")
	}

	for _, nt := range reg.Targets() {
		if cmd.IsSet(nt.Name + "-enabled") {
			nt.Target.Enabled = cmd.Bool(nt.Name + "-enabled")
		}
		if cmd.IsSet(nt.Name + "-url") {
			nt.Target.URL = cmd.String(nt.Name + "-url")
		}
		if raw := cmd.String(nt.Name + "-metadata"); raw != "" {
			md := config.NewMetadata()
			if err := json.Unmarshal([]byte(raw), md); err != nil {
				return nil, fmt.Errorf("failed to parse %s metadata: %w", nt.Name, err)
			}
			nt.Target.Metadata = md
		}
	}

	return cfg, nil
}

// environmentProperties collects the runtime properties given on the command line
func environmentProperties(cmd *cli.Command) map[string]string {
	props := make(map[string]string)
	if cmd.IsSet("server-port") {
		props[environment.ServerPort] = strconv.FormatInt(int64(cmd.Int("server-port")), 10)
	}
	if cmd.IsSet("management-port") {
		props[environment.ManagementServerPort] = strconv.FormatInt(int64(cmd.Int("management-port")), 10)
	}
	if cmd.IsSet("ssl-enabled") {
		props[environment.SSLEnabled] = strconv.FormatBool(cmd.Bool("ssl-enabled"))
	}
	return props
}

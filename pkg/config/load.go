package config

import (
	"fmt"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"sort"
	"time"
)

// hclFile is the top-level structure of a configuration file for decoding.
// Optional attributes are pointers so that absent values leave the base untouched.
type hclFile struct {
	Monitoring *hclMonitoring `hcl:"monitoring,block"`
}

type hclMonitoring struct {
	Enabled          *bool            `hcl:"enabled,optional"`
	ApplicationName  *string          `hcl:"application_name,optional"`
	EnablePrometheus *bool            `hcl:"enable_prometheus,optional"`
	EnableHealth     *bool            `hcl:"enable_health,optional"`
	EnableMetrics    *bool            `hcl:"enable_metrics,optional"`
	ServiceHost      *string          `hcl:"service_host,optional"`
	Registration     *hclRegistration `hcl:"registration,block"`
}

type hclRegistration struct {
	Timeout            *string      `hcl:"timeout,optional"`
	ManagementBasePath *string      `hcl:"management_base_path,optional"`
	MetricsEndpoint    *string      `hcl:"metrics_endpoint,optional"`
	HealthEndpoint     *string      `hcl:"health_endpoint,optional"`
	Targets            []*hclTarget `hcl:"target,block"`
}

type hclTarget struct {
	Name     string       `hcl:"name,label"`
	Enabled  *bool        `hcl:"enabled,optional"`
	URL      *string      `hcl:"url,optional"`
	Metadata *hclMetadata `hcl:"metadata,block"`
}

type hclMetadata struct {
	Body hcl.Body `hcl:",remain"`
}

// LoadFile reads an HCL configuration file and applies it on top of base.
// A nil base starts from Default(). base itself is not modified.
func LoadFile(path string, base *Config) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	return decode(path, file.Body, base)
}

// Parse is LoadFile for in-memory sources. filename is only used in diagnostics.
func Parse(src []byte, filename string, base *Config) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, diags)
	}
	return decode(filename, file.Body, base)
}

func decode(filename string, body hcl.Body, base *Config) (*Config, error) {
	var parsed hclFile
	if diags := gohcl.DecodeBody(body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config file %s: %w", filename, diags)
	}

	cfg := Default()
	if base != nil {
		cfg = base.Clone()
	}
	if parsed.Monitoring == nil {
		return cfg, nil
	}

	if err := parsed.Monitoring.apply(cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return cfg, nil
}

func (m *hclMonitoring) apply(cfg *Config) error {
	setBool(&cfg.Enabled, m.Enabled)
	setString(&cfg.ApplicationName, m.ApplicationName)
	setBool(&cfg.EnablePrometheus, m.EnablePrometheus)
	setBool(&cfg.EnableHealth, m.EnableHealth)
	setBool(&cfg.EnableMetrics, m.EnableMetrics)
	setString(&cfg.ServiceHost, m.ServiceHost)

	if m.Registration == nil {
		return nil
	}
	return m.Registration.apply(&cfg.Registration)
}

func (r *hclRegistration) apply(reg *RegistrationSettings) error {
	if r.Timeout != nil {
		timeout, err := time.ParseDuration(*r.Timeout)
		if err != nil {
			return fmt.Errorf("registration timeout: %w", err)
		}
		reg.Timeout = timeout
	}
	setString(&reg.ManagementBasePath, r.ManagementBasePath)
	setString(&reg.MetricsEndpoint, r.MetricsEndpoint)
	setString(&reg.HealthEndpoint, r.HealthEndpoint)

	for _, t := range r.Targets {
		target, err := reg.Target(t.Name)
		if err != nil {
			return err
		}
		setBool(&target.Enabled, t.Enabled)
		setString(&target.URL, t.URL)
		if t.Metadata != nil {
			md, err := decodeMetadata(t.Metadata.Body)
			if err != nil {
				return fmt.Errorf("target %s metadata: %w", t.Name, err)
			}
			target.Metadata = md
		}
	}
	return nil
}

// decodeMetadata reads every attribute of body as a string, in source order.
func decodeMetadata(body hcl.Body) (*Metadata, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	md := NewMetadata()
	for _, attr := range ordered {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", attr.Name, err)
		}
		if str.IsNull() || !str.IsKnown() {
			return nil, fmt.Errorf("%s: value must be a known string", attr.Name)
		}
		md.Set(attr.Name, str.AsString())
	}
	return md, nil
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Clone returns a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	for _, t := range clone.Registration.Targets() {
		t.Target.Metadata = t.Target.Metadata.Clone()
	}
	return &clone
}

package config

import "strings"

// NormalizeBasePath trims p, ensures a leading slash and drops one trailing slash.
// A blank path normalizes to "".
func NormalizeBasePath(p string) string {
	normalized := NormalizeEndpointPath(p)
	return strings.TrimSuffix(normalized, "/")
}

// NormalizeEndpointPath trims p and ensures a leading slash.
// A blank path normalizes to "".
func NormalizeEndpointPath(p string) string {
	normalized := strings.TrimSpace(p)
	if normalized == "" {
		return ""
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	return normalized
}

// EndpointPath joins the management base path and endpoint into a URL path.
// A blank base path falls back to DefaultManagementBasePath before normalization.
func (r RegistrationSettings) EndpointPath(endpoint string) string {
	base := r.ManagementBasePath
	if strings.TrimSpace(base) == "" {
		base = DefaultManagementBasePath
	}
	return NormalizeBasePath(base) + NormalizeEndpointPath(endpoint)
}

// HealthPath returns the path of the health endpoint
func (r RegistrationSettings) HealthPath() string {
	return r.EndpointPath(r.HealthEndpoint)
}

// MetricsPath returns the path of the metrics endpoint
func (r RegistrationSettings) MetricsPath() string {
	return r.EndpointPath(r.MetricsEndpoint)
}

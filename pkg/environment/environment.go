// Package environment exposes the runtime properties and active profiles the
// registrar reads when it describes the running service.
package environment

import (
	"os"
	"strings"
)

// Well-known property keys
const (
	SSLEnabled           = "server.ssl.enabled"
	LocalServerPort      = "local.server.port"
	ServerPort           = "server.port"
	LocalManagementPort  = "local.management.port"
	ManagementServerPort = "management.server.port"
	Hostname             = "HOSTNAME"
)

// Environment resolves runtime properties and the active profiles
type Environment interface {
	// Property returns the value of key, or "" when it is not set.
	Property(key string) string
	ActiveProfiles() []string
}

// LookupFunc looks up a process environment variable
type LookupFunc func(key string) (string, bool)

// Static is an Environment backed by explicit properties with a fallback to
// the process environment.
type Static struct {
	properties map[string]string
	profiles   []string
	lookup     LookupFunc
}

// Option configures a Static environment
type Option func(*Static)

// WithLookup replaces os.LookupEnv as the fallback source
func WithLookup(lookup LookupFunc) Option {
	return func(s *Static) {
		s.lookup = lookup
	}
}

// WithProfiles sets the active profiles. Blank entries are dropped.
func WithProfiles(profiles ...string) Option {
	return func(s *Static) {
		s.profiles = s.profiles[:0]
		for _, p := range profiles {
			if p = strings.TrimSpace(p); p != "" {
				s.profiles = append(s.profiles, p)
			}
		}
	}
}

// New creates a Static environment. properties is copied.
func New(properties map[string]string, opts ...Option) *Static {
	s := &Static{
		properties: make(map[string]string, len(properties)),
		lookup:     os.LookupEnv,
	}
	for k, v := range properties {
		s.properties[k] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Property checks the explicit properties, then the process environment
// under the exact key, then under its relaxed form (server.port -> SERVER_PORT).
func (s *Static) Property(key string) string {
	if v, ok := s.properties[key]; ok {
		return v
	}
	if s.lookup == nil {
		return ""
	}
	if v, ok := s.lookup(key); ok {
		return v
	}
	if v, ok := s.lookup(RelaxedKey(key)); ok {
		return v
	}
	return ""
}

func (s *Static) ActiveProfiles() []string {
	return append([]string(nil), s.profiles...)
}

// RelaxedKey converts a dotted property key to its environment variable form
func RelaxedKey(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

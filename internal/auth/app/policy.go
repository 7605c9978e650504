package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GatePolicy is the optional YAML override for the gate:
//
//	public_paths:
//	  - /v1/auth/login
//	  - /static/*
//	rate_limit:
//	  window: 60s
//	  max_requests: 5
type GatePolicy struct {
	PublicPaths []string `yaml:"public_paths"`
	RateLimit   struct {
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`
	} `yaml:"rate_limit"`
}

// LoadGatePolicy reads and parses the policy at path.
func LoadGatePolicy(path string) (GatePolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GatePolicy{}, fmt.Errorf("read gate policy: %w", err)
	}

	var p GatePolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return GatePolicy{}, fmt.Errorf("parse gate policy %s: %w", path, err)
	}
	if p.RateLimit.Window != "" {
		if _, ok := parseDuration(p.RateLimit.Window); !ok {
			return GatePolicy{}, fmt.Errorf("parse gate policy %s: invalid rate_limit.window %q", path, p.RateLimit.Window)
		}
	}
	return p, nil
}

// Apply overlays the fields the policy sets onto cfg.
func (p GatePolicy) Apply(cfg *Config) {
	if len(p.PublicPaths) > 0 {
		cfg.PublicPaths = p.PublicPaths
	}
	if d, ok := parseDuration(p.RateLimit.Window); ok {
		cfg.RateLimitWindow = d
	}
	if p.RateLimit.MaxRequests > 0 {
		cfg.RateLimitMaxRequests = p.RateLimit.MaxRequests
	}
}

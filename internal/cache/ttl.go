package cache

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Resource endpoints served by the dashboard API.
const (
	EndpointStandings = "standings"
	EndpointPlayers   = "players"
	EndpointFixtures  = "fixtures"
	EndpointTeams     = "teams"
	EndpointOverview  = "overview"
)

// DefaultTTL applies to endpoints missing from the table.
const DefaultTTL = 5 * time.Minute

// TTLConfig maps endpoint names to how long their entries stay valid.
type TTLConfig struct {
	Default   time.Duration            `yaml:"default"`
	Endpoints map[string]time.Duration `yaml:"endpoints"`
}

// DefaultTTLConfig returns the built-in table.
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		Default: DefaultTTL,
		Endpoints: map[string]time.Duration{
			EndpointStandings: 5 * time.Minute,
			EndpointPlayers:   10 * time.Minute,
			EndpointFixtures:  15 * time.Minute,
			EndpointTeams:     time.Hour,
			EndpointOverview:  5 * time.Minute,
		},
	}
}

// For returns the TTL for endpoint, falling back to Default.
func (c TTLConfig) For(endpoint string) time.Duration {
	if ttl, ok := c.Endpoints[endpoint]; ok && ttl > 0 {
		return ttl
	}
	if c.Default > 0 {
		return c.Default
	}
	return DefaultTTL
}

// Merge returns c with every value set in o applied on top.
func (c TTLConfig) Merge(o TTLConfig) TTLConfig {
	out := TTLConfig{
		Default:   c.Default,
		Endpoints: make(map[string]time.Duration, len(c.Endpoints)+len(o.Endpoints)),
	}
	for k, v := range c.Endpoints {
		out.Endpoints[k] = v
	}
	if o.Default > 0 {
		out.Default = o.Default
	}
	for k, v := range o.Endpoints {
		out.Endpoints[k] = v
	}
	return out
}

// Validate rejects non-positive durations.
func (c TTLConfig) Validate() error {
	if c.Default < 0 {
		return fmt.Errorf("default ttl must be positive, got %s", c.Default)
	}
	for endpoint, ttl := range c.Endpoints {
		if ttl <= 0 {
			return fmt.Errorf("ttl for %q must be positive, got %s", endpoint, ttl)
		}
	}
	return nil
}

// LoadTTLFile reads a YAML override file and merges it over the defaults.
// An empty path returns the defaults.
func LoadTTLFile(path string) (TTLConfig, error) {
	base := DefaultTTLConfig()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return TTLConfig{}, fmt.Errorf("read ttl file: %w", err)
	}

	var override TTLConfig
	if err := yaml.Unmarshal(data, &override); err != nil {
		return TTLConfig{}, fmt.Errorf("unmarshal ttl yaml: %w", err)
	}
	if err := override.Validate(); err != nil {
		return TTLConfig{}, fmt.Errorf("invalid ttl file %s: %w", path, err)
	}

	return base.Merge(override), nil
}

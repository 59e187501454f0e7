package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"securyflex/verification-service/internal/certificate"
	"securyflex/verification-service/internal/gps"
)

// Policy holds the decision thresholds. They are product policy, so they
// live in a file rather than in code.
type Policy struct {
	// WarningWindow is how long before expiration a certificate counts as expiring soon.
	WarningWindow time.Duration `yaml:"warning_window"`
	// GPS holds the accuracy bands used by the check-in classifier.
	GPS gps.Thresholds `yaml:"gps"`
	// DefaultSiteRadiusMeters applies to job sites without their own radius.
	DefaultSiteRadiusMeters float64 `yaml:"default_site_radius_meters"`
	// SampleTTL is how long the previous GPS sample of a guard is remembered.
	SampleTTL time.Duration `yaml:"sample_ttl"`
}

// DefaultPolicy returns the policy used when no POLICY_FILE is configured.
func DefaultPolicy() *Policy {
	return &Policy{
		WarningWindow:           certificate.DefaultWarningWindow,
		GPS:                     gps.DefaultThresholds(),
		DefaultSiteRadiusMeters: 100,
		SampleTTL:               10 * time.Minute,
	}
}

// Validate checks that the policy is usable.
func (p *Policy) Validate() error {
	if p.WarningWindow < 0 {
		return fmt.Errorf("warning_window must not be negative")
	}
	if err := p.GPS.Validate(); err != nil {
		return err
	}
	if p.DefaultSiteRadiusMeters <= 0 {
		return fmt.Errorf("default_site_radius_meters must be positive")
	}
	if p.SampleTTL <= 0 {
		return fmt.Errorf("sample_ttl must be positive")
	}
	return nil
}

// LoadPolicy reads a YAML policy file. Keys missing from the file keep
// their default values.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}
	return p, nil
}

// Package config owns the engine configuration. There is no global mutable
// settings object: callers take a snapshot from the Store and pass it into
// each evaluation; changes surface through subscriptions.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pageguard/internal/alert"
	"github.com/ppiankov/pageguard/internal/rules"
	"github.com/ppiankov/pageguard/internal/scoring"
)

// Config holds all recognized options.
type Config struct {
	BlockOnHighRisk bool `yaml:"block_on_high_risk"`

	// External reputation checks are opt-in: they cost privacy.
	EnableExternalReputationChecks bool `yaml:"enable_external_reputation_checks"`

	RequireSecretForTrust bool `yaml:"require_secret_for_trust"`

	LogRetentionCount int `yaml:"log_retention_count"`

	TrustedSubjects   []string `yaml:"trusted_subjects"`
	BlockedCategories []string `yaml:"blocked_categories"`

	// Schedules block additional categories during daily time windows,
	// e.g. gambling content after bedtime.
	Schedules []Schedule `yaml:"schedules"`

	ScoreThresholds scoring.Thresholds `yaml:"score_thresholds"`
	Penalties       scoring.Penalties  `yaml:"penalties"`

	OracleURL      string        `yaml:"oracle_url"`
	OracleTimeout  time.Duration `yaml:"oracle_timeout"`
	OracleCacheTTL time.Duration `yaml:"oracle_cache_ttl"`

	RuleTables rules.Paths `yaml:"rule_tables"`

	Alerts []alert.Config `yaml:"alerts"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BlockOnHighRisk:                true,
		EnableExternalReputationChecks: false,
		RequireSecretForTrust:          true,
		LogRetentionCount:              900,
		ScoreThresholds:                scoring.DefaultThresholds(),
		Penalties:                      scoring.DefaultPenalties(),
		OracleTimeout:                  3 * time.Second,
		OracleCacheTTL:                 10 * time.Minute,
	}
}

// Load reads configuration from a YAML file. Empty path or a missing file
// returns defaults; invalid YAML or an invalid configuration is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read: %w", err)
	}
	// Defaults first, YAML overwrites only specified fields.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot operate with.
func (c *Config) Validate() error {
	if err := c.ScoreThresholds.Validate(); err != nil {
		return err
	}
	if c.LogRetentionCount <= 0 {
		return fmt.Errorf("config: log_retention_count must be positive")
	}
	if c.Penalties.NoHTTPS < 0 || c.Penalties.CrossOrigin < 0 || c.Penalties.Untrusted < 0 {
		return fmt.Errorf("config: penalties must be non-negative")
	}
	for i, s := range c.Schedules {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("config: schedule %d: %w", i, err)
		}
	}
	return nil
}

// IsTrusted reports whether host is covered by the trusted-subjects list,
// by exact match or domain suffix.
func (c *Config) IsTrusted(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return false
	}
	for _, t := range c.TrustedSubjects {
		tl := strings.ToLower(strings.TrimSpace(t))
		if tl == "" {
			continue
		}
		if h == tl || strings.HasSuffix(h, "."+tl) {
			return true
		}
	}
	return false
}

// IsCategoryBlocked reports whether a content category is on the user's
// blocked list.
func (c *Config) IsCategoryBlocked(category string) bool {
	for _, b := range c.BlockedCategories {
		if strings.EqualFold(b, category) {
			return true
		}
	}
	return false
}

// IsCategoryBlockedAt extends IsCategoryBlocked with schedule windows: a
// category is also blocked while any schedule listing it covers now.
func (c *Config) IsCategoryBlockedAt(category string, now time.Time) bool {
	if c.IsCategoryBlocked(category) {
		return true
	}
	for _, s := range c.Schedules {
		if !s.Covers(now) {
			continue
		}
		for _, b := range s.Categories {
			if strings.EqualFold(b, category) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy, so holders of a snapshot never observe edits.
func (c *Config) Clone() *Config {
	out := *c
	out.TrustedSubjects = append([]string(nil), c.TrustedSubjects...)
	out.BlockedCategories = append([]string(nil), c.BlockedCategories...)
	out.Schedules = append([]Schedule(nil), c.Schedules...)
	out.Alerts = append([]alert.Config(nil), c.Alerts...)
	return &out
}

package config

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Rules are the tunable business parameters of the admission decision
type Rules struct {
	MaxUtilization          float64 `yaml:"maxUtilization" validate:"gte=0.5,lte=0.95"`
	SafetyBufferMinutes     int     `yaml:"safetyBufferMinutes" validate:"gte=15,lte=60"`
	VIPReservePercent       float64 `yaml:"vipReservePercent" validate:"gte=0.05,lte=0.20"`
	CongestionAlpha         float64 `yaml:"congestionAlpha" validate:"gte=0.5,lte=2.0"`
	DecisionCacheTTLSeconds int     `yaml:"decisionCacheTtlSeconds" validate:"gte=10,lte=300"`

	CutoffHour int    `yaml:"cutoffHour" validate:"gte=0,lte=23"`
	Timezone   string `yaml:"timezone" validate:"required"`

	// IncludePackingBonus adds the per-item packing time to the order
	// workload. Off by default.
	IncludePackingBonus bool `yaml:"includePackingBonus"`

	location *time.Location
}

// DefaultRules returns the production defaults
func DefaultRules() Rules {
	return Rules{
		MaxUtilization:          0.85,
		SafetyBufferMinutes:     30,
		VIPReservePercent:       0.10,
		CongestionAlpha:         1.2,
		DecisionCacheTTLSeconds: 60,
		CutoffHour:              16,
		Timezone:                "Local",
		location:                time.Local,
	}
}

var rulesValidator = validator.New()

// Validate checks every rule against its allowed range and resolves the
// configured time zone.
func (r *Rules) Validate() error {
	if err := rulesValidator.Struct(r); err != nil {
		return fmt.Errorf("invalid cutoff rules: %w", err)
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return fmt.Errorf("invalid cutoff rules: timezone %q: %w", r.Timezone, err)
	}
	r.location = loc
	return nil
}

// Location is the time zone the daily cutoff hour is expressed in
func (r Rules) Location() *time.Location {
	if r.location == nil {
		return time.Local
	}
	return r.location
}

// MaxUtilizationDecimal returns MaxUtilization as an exact decimal
func (r Rules) MaxUtilizationDecimal() decimal.Decimal {
	return decimal.NewFromFloat(r.MaxUtilization)
}

// VIPReserveDecimal returns VIPReservePercent as an exact decimal
func (r Rules) VIPReserveDecimal() decimal.Decimal {
	return decimal.NewFromFloat(r.VIPReservePercent)
}

// CongestionAlphaDecimal returns CongestionAlpha as an exact decimal
func (r Rules) CongestionAlphaDecimal() decimal.Decimal {
	return decimal.NewFromFloat(r.CongestionAlpha)
}

// CacheTTL is the lifetime of a cached decision
func (r Rules) CacheTTL() time.Duration {
	return time.Duration(r.DecisionCacheTTLSeconds) * time.Second
}

// LoadRules builds rules from defaults, an optional YAML file and CUTOFF_*
// environment overrides, in that order.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &rules); err != nil {
			return Rules{}, fmt.Errorf("failed to parse rules file %s: %w", path, err)
		}
	}

	rules.MaxUtilization = getEnvFloat("CUTOFF_MAX_UTILIZATION", rules.MaxUtilization)
	rules.SafetyBufferMinutes = getEnvInt("CUTOFF_SAFETY_BUFFER_MINUTES", rules.SafetyBufferMinutes)
	rules.VIPReservePercent = getEnvFloat("CUTOFF_VIP_RESERVE_PERCENT", rules.VIPReservePercent)
	rules.CongestionAlpha = getEnvFloat("CUTOFF_CONGESTION_ALPHA", rules.CongestionAlpha)
	rules.DecisionCacheTTLSeconds = getEnvInt("CUTOFF_DECISION_CACHE_TTL_SECONDS", rules.DecisionCacheTTLSeconds)
	rules.CutoffHour = getEnvInt("CUTOFF_HOUR", rules.CutoffHour)
	rules.Timezone = getEnv("CUTOFF_TIMEZONE", rules.Timezone)
	rules.IncludePackingBonus = getEnvBool("CUTOFF_INCLUDE_PACKING_BONUS", rules.IncludePackingBonus)

	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// RuleStore holds the active rules. Readers always observe a complete,
// validated snapshot.
type RuleStore struct {
	current atomic.Pointer[Rules]
	path    string
}

// NewRuleStore creates a store seeded with rules. Reload re-reads path.
func NewRuleStore(rules Rules, path string) *RuleStore {
	s := &RuleStore{path: path}
	s.current.Store(&rules)
	return s
}

// Rules returns the current snapshot
func (s *RuleStore) Rules() Rules {
	return *s.current.Load()
}

// Set replaces the active rules after validating them
func (s *RuleStore) Set(rules Rules) error {
	if err := rules.Validate(); err != nil {
		return err
	}
	s.current.Store(&rules)
	return nil
}

// Reload re-reads the rules file and environment. On error the previous
// rules stay active.
func (s *RuleStore) Reload() (Rules, error) {
	rules, err := LoadRules(s.path)
	if err != nil {
		return s.Rules(), err
	}
	s.current.Store(&rules)
	return rules, nil
}

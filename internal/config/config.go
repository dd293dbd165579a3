package config

import (
	"time"

	"github.com/spf13/viper"
)

// Relevance controls the politically-relevant donation flag. The thresholds
// and keyword lists are a configuration surface rather than hardcoded
// policy; the defaults match the reference dataset.
type Relevance struct {
	OccupationKeywords []string
	EmployerKeywords   []string
	MinAmount          float64
}

// Pairing controls Phase 1 and the Phase 2 admission filter.
type Pairing struct {
	ProximityWindow time.Duration
	ConfidenceFloor float64
	TopN            int
}

// Gateway configures the remote data service client.
type Gateway struct {
	BaseURL  string
	APIKey   string
	PageSize int
	MaxRows  int
}

// Reasoner configures the generative reasoning service client.
type Reasoner struct {
	Provider          string
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
}

// Cache configures the process-local result cache.
type Cache struct {
	SessionTTL  time.Duration
	DonationTTL time.Duration
	Capacity    int
}

// Config is the full application configuration.
type Config struct {
	DatabasePath string
	Gateway      Gateway
	Reasoner     Reasoner
	Cache        Cache
	Pairing      Pairing
	Relevance    Relevance
}

// DefaultRelevance returns the built-in relevance policy.
func DefaultRelevance() Relevance {
	return Relevance{
		MinAmount: 1000,
		OccupationKeywords: []string{
			"lobbyist", "consultant", "government", "affairs",
			"attorney", "lawyer", "realtor", "developer",
		},
		EmployerKeywords: []string{"pac", "committee"},
	}
}

// DefaultPairing returns the built-in pairing policy.
func DefaultPairing() Pairing {
	return Pairing{
		ConfidenceFloor: 0.5,
		TopN:            20,
		ProximityWindow: 90 * 24 * time.Hour,
	}
}

// Load reads the full configuration from viper, applying defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath: ExpandPath(viper.GetString("database.path")),
		Gateway: Gateway{
			BaseURL:  viper.GetString("gateway.url"),
			APIKey:   viper.GetString("gateway.api_key"),
			PageSize: viper.GetInt("gateway.page_size"),
			MaxRows:  viper.GetInt("gateway.max_rows"),
		},
		Reasoner: Reasoner{
			Provider:          viper.GetString("reasoner.provider"),
			APIKey:            viper.GetString("reasoner.api_key"),
			Model:             viper.GetString("reasoner.model"),
			Timeout:           viper.GetDuration("reasoner.timeout"),
			RequestsPerMinute: viper.GetInt("reasoner.requests_per_minute"),
		},
		Cache: Cache{
			Capacity:    viper.GetInt("cache.capacity"),
			SessionTTL:  viper.GetDuration("cache.session_ttl"),
			DonationTTL: viper.GetDuration("cache.donation_ttl"),
		},
		Pairing:   DefaultPairing(),
		Relevance: DefaultRelevance(),
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = ExpandPath("~/.local/share/moneytrail/moneytrail.db")
	}
	if cfg.Gateway.PageSize <= 0 {
		cfg.Gateway.PageSize = 1000
	}
	if cfg.Gateway.MaxRows <= 0 {
		cfg.Gateway.MaxRows = 50000
	}
	if cfg.Reasoner.Provider == "" {
		cfg.Reasoner.Provider = "anthropic"
	}
	if cfg.Reasoner.Timeout <= 0 {
		cfg.Reasoner.Timeout = 30 * time.Second
	}
	if cfg.Cache.Capacity <= 0 {
		cfg.Cache.Capacity = 100
	}
	if cfg.Cache.SessionTTL <= 0 {
		cfg.Cache.SessionTTL = 30 * time.Minute
	}
	if cfg.Cache.DonationTTL <= 0 {
		cfg.Cache.DonationTTL = 5 * time.Minute
	}

	if v := viper.GetFloat64("pairing.confidence_floor"); v > 0 {
		cfg.Pairing.ConfidenceFloor = v
	}
	if v := viper.GetInt("pairing.top_n"); v > 0 {
		cfg.Pairing.TopN = v
	}
	if v := viper.GetFloat64("relevance.min_amount"); v > 0 {
		cfg.Relevance.MinAmount = v
	}
	if v := viper.GetStringSlice("relevance.occupation_keywords"); len(v) > 0 {
		cfg.Relevance.OccupationKeywords = v
	}
	if v := viper.GetStringSlice("relevance.employer_keywords"); len(v) > 0 {
		cfg.Relevance.EmployerKeywords = v
	}

	return cfg, nil
}

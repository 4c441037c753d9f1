package store

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"trade-dashboard/internal/types"
)

type Config struct {
	DefaultMode string `yaml:"default_mode"`

	Feed struct {
		Host                string `yaml:"host"`
		Port                int    `yaml:"port"`
		ProtocolVersion     int    `yaml:"protocol_version"`
		HeartbeatSeconds    int    `yaml:"heartbeat_seconds"`
		ReconnectMinSeconds int    `yaml:"reconnect_min_seconds"`
		ReconnectMaxSeconds int    `yaml:"reconnect_max_seconds"`
	} `yaml:"feed"`

	Accounts struct {
		Live []string `yaml:"live"`
		Sim  []string `yaml:"sim"`
	} `yaml:"accounts"`

	Trading struct {
		CommissionPerContract float64            `yaml:"commission_per_contract"`
		DefaultPointValue     float64            `yaml:"default_point_value"`
		PointValues           map[string]float64 `yaml:"point_values"`
	} `yaml:"trading"`

	Persistence struct {
		JournalPath string `yaml:"journal_path"`
		SessionDir  string `yaml:"session_dir"`
	} `yaml:"persistence"`

	API struct {
		Listen string `yaml:"listen"`
	} `yaml:"api"`

	ShutdownWaitSeconds int `yaml:"shutdown_wait_seconds"`
}

func (c *Config) Validate() error {
	mode := types.Mode(c.DefaultMode)
	if !mode.Valid() {
		return fmt.Errorf("invalid default_mode '%s': must be SIM, LIVE, or DEBUG", c.DefaultMode)
	}
	if c.Feed.Host == "" {
		return fmt.Errorf("feed.host cannot be empty")
	}
	if c.Feed.Port <= 0 || c.Feed.Port > 65535 {
		return fmt.Errorf("feed.port must be between 1-65535, got %d", c.Feed.Port)
	}
	if c.Trading.CommissionPerContract < 0 {
		return fmt.Errorf("trading.commission_per_contract cannot be negative, got %.2f", c.Trading.CommissionPerContract)
	}
	if c.Trading.DefaultPointValue <= 0 {
		return fmt.Errorf("trading.default_point_value must be positive, got %.2f", c.Trading.DefaultPointValue)
	}
	return nil
}

// AccountMode resolves a trade-account id to its owning mode. Explicit lists
// win; otherwise account names starting with "sim" are treated as SIM and
// everything else as LIVE. DEBUG is never inferred from an account.
func (c *Config) AccountMode(account string) types.Mode {
	for _, a := range c.Accounts.Live {
		if a == account {
			return types.ModeLive
		}
	}
	for _, a := range c.Accounts.Sim {
		if a == account {
			return types.ModeSim
		}
	}
	if strings.HasPrefix(strings.ToLower(account), "sim") {
		return types.ModeSim
	}
	return types.ModeLive
}

// PointValue returns the per-point currency value for a symbol.
func (c *Config) PointValue(symbol string) float64 {
	if v, ok := c.Trading.PointValues[symbol]; ok {
		return v
	}
	return c.Trading.DefaultPointValue
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.DefaultMode == "" {
		c.DefaultMode = string(types.ModeSim)
	}
	if c.Feed.ProtocolVersion == 0 {
		c.Feed.ProtocolVersion = 8
	}
	if c.Feed.HeartbeatSeconds == 0 {
		c.Feed.HeartbeatSeconds = 10
	}
	if c.Feed.ReconnectMinSeconds == 0 {
		c.Feed.ReconnectMinSeconds = 1
	}
	if c.Feed.ReconnectMaxSeconds == 0 {
		c.Feed.ReconnectMaxSeconds = 30
	}
	if c.Trading.DefaultPointValue == 0 {
		c.Trading.DefaultPointValue = 1.0
	}
	if c.Persistence.JournalPath == "" {
		c.Persistence.JournalPath = "data/trades.db"
	}
	if c.Persistence.SessionDir == "" {
		c.Persistence.SessionDir = "data/sessions"
	}
	if c.API.Listen == "" {
		c.API.Listen = "127.0.0.1:8787"
	}
	if c.ShutdownWaitSeconds == 0 {
		c.ShutdownWaitSeconds = 5
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

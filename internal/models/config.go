package models

import (
	"time"

	"github.com/c2h5oh/datasize"
)

// Config represents the main configuration
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Storage StorageConfig `mapstructure:"storage"`
	Sources []HostsSource `mapstructure:"sources"`
}

// HTTPConfig contains HTTP client settings used for hosts subscriptions
type HTTPConfig struct {
	ConnectTimeout time.Duration     `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration     `mapstructure:"read_timeout"`
	UserAgent      string            `mapstructure:"user_agent"`
	MaxSize        datasize.ByteSize `mapstructure:"max_size"`
	Parallel       int               `mapstructure:"parallel"`
}

// EngineConfig contains the initial state of the filtering engine
type EngineConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	UseDefaults bool     `mapstructure:"use_defaults"`
	CustomRules []string `mapstructure:"custom_rules"`
}

// StorageConfig contains persistence settings
type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

// HostsSource represents a single hosts subscription configuration
type HostsSource struct {
	Name    string `mapstructure:"name"`
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// EnabledSources returns only enabled hosts subscriptions
func (c *Config) EnabledSources() []HostsSource {
	var enabled []HostsSource
	for _, s := range c.Sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

// Package util provides configuration and logging for fleetprobe.
package util

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds all recognized options with documented defaults. Probe
// parameters are validated before any probing starts; invalid values are a
// configuration error, never a probe outcome.
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Interface binding for ICMP and LINK_QUALITY (empty = default route).
	Interface string `mapstructure:"interface"`

	// Worker pool bound. Probing tools and local interfaces are finite
	// shared resources; unbounded fan-out degrades the measurements.
	Concurrency int `mapstructure:"concurrency"`

	ICMPCount   int           `mapstructure:"icmp_count"`
	ICMPTimeout time.Duration `mapstructure:"icmp_timeout"`

	ARPEnabled bool          `mapstructure:"arp_enabled"`
	ARPTimeout time.Duration `mapstructure:"arp_timeout"`

	TCPPorts   []int         `mapstructure:"tcp_ports"`
	TCPTimeout time.Duration `mapstructure:"tcp_timeout"`

	DNSEnabled bool          `mapstructure:"dns_enabled"`
	DNSTimeout time.Duration `mapstructure:"dns_timeout"`

	TLSEnabled    bool          `mapstructure:"tls_enabled"`
	TLSPort       int           `mapstructure:"tls_port"`
	TLSServerName string        `mapstructure:"tls_server_name"`
	TLSTimeout    time.Duration `mapstructure:"tls_timeout"`

	LinkEnabled bool          `mapstructure:"link_enabled"`
	LinkTimeout time.Duration `mapstructure:"link_timeout"`

	// Report sink selection.
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",

		Concurrency: 4,

		ICMPCount:   5,
		ICMPTimeout: 2 * time.Second,

		ARPEnabled: true,
		ARPTimeout: 2 * time.Second,

		TCPPorts:   []int{80, 443},
		TCPTimeout: 3 * time.Second,

		DNSEnabled: true,
		DNSTimeout: 3 * time.Second,

		TLSEnabled: true,
		TLSPort:    443,
		TLSTimeout: 5 * time.Second,

		LinkEnabled: true,
		LinkTimeout: 2 * time.Second,

		Format: "text",
	}
}

// LoadConfig loads configuration from an optional YAML file and the
// environment, layered over the defaults. It uses the global viper so
// flag bindings from the CLI take effect.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("fleetprobe")
	viper.AutomaticEnv()

	// Set defaults in viper
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("concurrency", cfg.Concurrency)
	viper.SetDefault("icmp_count", cfg.ICMPCount)
	viper.SetDefault("icmp_timeout", cfg.ICMPTimeout)
	viper.SetDefault("arp_enabled", cfg.ARPEnabled)
	viper.SetDefault("arp_timeout", cfg.ARPTimeout)
	viper.SetDefault("tcp_ports", cfg.TCPPorts)
	viper.SetDefault("tcp_timeout", cfg.TCPTimeout)
	viper.SetDefault("dns_enabled", cfg.DNSEnabled)
	viper.SetDefault("dns_timeout", cfg.DNSTimeout)
	viper.SetDefault("tls_enabled", cfg.TLSEnabled)
	viper.SetDefault("tls_port", cfg.TLSPort)
	viper.SetDefault("tls_timeout", cfg.TLSTimeout)
	viper.SetDefault("link_enabled", cfg.LinkEnabled)
	viper.SetDefault("link_timeout", cfg.LinkTimeout)
	viper.SetDefault("format", cfg.Format)

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config")
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("$HOME/.fleetprobe")
		viper.AddConfigPath(".")
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrap(err, "failed to read config")
			}
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the probe parameter invariants: timeout > 0, attempt
// count >= 1.
func (c *Config) Validate() error {
	if c.ICMPCount < 1 {
		return errors.New("icmp_count must be >= 1")
	}
	for name, d := range map[string]time.Duration{
		"icmp_timeout": c.ICMPTimeout,
		"arp_timeout":  c.ARPTimeout,
		"tcp_timeout":  c.TCPTimeout,
		"dns_timeout":  c.DNSTimeout,
		"tls_timeout":  c.TLSTimeout,
		"link_timeout": c.LinkTimeout,
	} {
		if d <= 0 {
			return errors.Errorf("%s must be > 0", name)
		}
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be >= 1")
	}
	for _, p := range c.TCPPorts {
		if p < 1 || p > 65535 {
			return errors.Errorf("invalid tcp port %d", p)
		}
	}
	return nil
}

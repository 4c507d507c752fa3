// Package config centralises the engine's tunables (search budget, worker
// count, PUCT exploration constant, Dirichlet noise, broker endpoint) so
// that every component reads from one loaded, validated structure instead of
// scattering flags across packages.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds every option listed in the specification's external
// interfaces section.
type Config struct {
	MaxIters         int     `mapstructure:"max_iters"`
	Threads          int     `mapstructure:"threads"`
	DirichletNoise   bool    `mapstructure:"dirichlet_noise"`
	PUCTConst        float32 `mapstructure:"puct_c"`
	HistoryDepth     int     `mapstructure:"history_depth"`
	TauSwitchPly     int     `mapstructure:"tau_switch_ply"`
	DirichletAlpha   float64 `mapstructure:"dirichlet_alpha"`
	DirichletEpsilon float64 `mapstructure:"dirichlet_epsilon"`

	BrokerNetwork string        `mapstructure:"broker_network"` // "tcp" or "unix"
	BrokerAddress string        `mapstructure:"broker_address"`
	BatchWait     time.Duration `mapstructure:"batch_wait"`
}

// Default returns the specification's default configuration.
func Default() Config {
	return Config{
		MaxIters:         900,
		Threads:          6,
		DirichletNoise:   true,
		PUCTConst:        10,
		HistoryDepth:     8,
		TauSwitchPly:     30,
		DirichletAlpha:   0.03,
		DirichletEpsilon: 0.25,
		BrokerNetwork:    "tcp",
		BrokerAddress:    "localhost:9999",
		BatchWait:        time.Millisecond,
	}
}

// Load reads configuration from an optional file (YAML/JSON/TOML,
// auto-detected by viper from its extension) and from ENGINE_*
// environment variables, falling back to Default() for anything unset.
// An empty path skips the file and loads only defaults plus environment
// overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ENGINE")
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("max_iters", def.MaxIters)
	v.SetDefault("threads", def.Threads)
	v.SetDefault("dirichlet_noise", def.DirichletNoise)
	v.SetDefault("puct_c", def.PUCTConst)
	v.SetDefault("history_depth", def.HistoryDepth)
	v.SetDefault("tau_switch_ply", def.TauSwitchPly)
	v.SetDefault("dirichlet_alpha", def.DirichletAlpha)
	v.SetDefault("dirichlet_epsilon", def.DirichletEpsilon)
	v.SetDefault("broker_network", def.BrokerNetwork)
	v.SetDefault("broker_address", def.BrokerAddress)
	v.SetDefault("batch_wait", def.BatchWait)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsValid reports whether cfg can drive a search.
func (c Config) IsValid() bool {
	return c.MaxIters > 0 &&
		c.Threads > 0 &&
		c.HistoryDepth >= 0 &&
		c.TauSwitchPly > 0
}

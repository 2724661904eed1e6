// Package config provides the per-network deployment configuration: endpoints,
// gas parameters and compiler settings.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g.
// MPEDEPLOY_NETWORKS_ROPSTEN_GAS_PRICE.
const EnvPrefix = "MPEDEPLOY"

// DefaultEnvFile is read when no env file is given explicitly.
const DefaultEnvFile = ".env"

// ProviderWallet signs locally with the operator key and sends through the
// profile URL.
const ProviderWallet = "wallet"

// ErrUnknownNetwork is returned when no network entry has the requested name.
var ErrUnknownNetwork = errors.New("config: unknown network")

// Config holds all configuration for a deployment run.
type Config struct {
	Networks       map[string]Network `mapstructure:"networks" yaml:"networks" json:"networks" validate:"required,dive"`
	Solc           SolcConfig         `mapstructure:"solc" yaml:"solc" json:"solc"`
	ArtifactDir    string             `mapstructure:"artifact_dir" yaml:"artifact_dir" json:"artifact_dir" validate:"required"`
	DeploymentsDir string             `mapstructure:"deployments_dir" yaml:"deployments_dir" json:"deployments_dir" validate:"required"`
}

// Network holds the connection and gas settings for one target chain.
type Network struct {
	Host      string `mapstructure:"host" yaml:"host,omitempty" json:"host,omitempty"`
	Port      int    `mapstructure:"port" yaml:"port,omitempty" json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	URL       string `mapstructure:"url" yaml:"url,omitempty" json:"url,omitempty" validate:"omitempty,url"`
	Provider  string `mapstructure:"provider" yaml:"provider,omitempty" json:"provider,omitempty" validate:"omitempty,oneof=wallet"`
	Gas       uint64 `mapstructure:"gas" yaml:"gas" json:"gas" validate:"required,gt=0"`
	GasPrice  string `mapstructure:"gas_price" yaml:"gas_price" json:"gas_price" validate:"required"`
	NetworkID string `mapstructure:"network_id" yaml:"network_id" json:"network_id" validate:"required"`
}

// SolcConfig mirrors the compiler section of the build configuration.
type SolcConfig struct {
	Optimizer OptimizerConfig `mapstructure:"optimizer" yaml:"optimizer" json:"optimizer"`
}

// OptimizerConfig is the solc optimizer setting the artifacts are expected
// to have been built with.
type OptimizerConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Runs    int  `mapstructure:"runs" yaml:"runs" json:"runs" validate:"min=0"`
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config path. Empty means search for mpedeploy.yaml
	// in the working directory and ./config.
	File string
}

// Load reads configuration from the optional file and environment variables.
func Load(opts Options) (*Config, error) {
	v := viper.New()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("mpedeploy")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults reproduces the stock network file: a local development node
// and three public networks signed through the wallet provider.
func setDefaults(v *viper.Viper) {
	v.SetDefault("artifact_dir", "build/contracts")
	v.SetDefault("deployments_dir", "build/deployments")

	stock := map[string]Network{
		"development": {Host: "127.0.0.1", Port: 8545, NetworkID: "*"},
		"ropsten":     {Provider: ProviderWallet, NetworkID: "3"},
		"rinkeby":     {Provider: ProviderWallet, NetworkID: "4"},
		"mainnet":     {Provider: ProviderWallet, NetworkID: "1"},
	}
	// Every key is registered, even when empty, so that AutomaticEnv can
	// override it: viper only consults the environment for keys it knows.
	for name, n := range stock {
		prefix := "networks." + name + "."
		v.SetDefault(prefix+"host", n.Host)
		v.SetDefault(prefix+"port", n.Port)
		v.SetDefault(prefix+"url", "")
		v.SetDefault(prefix+"provider", n.Provider)
		v.SetDefault(prefix+"network_id", n.NetworkID)
		v.SetDefault(prefix+"gas", 4700000)
		v.SetDefault(prefix+"gas_price", "25 gwei")
	}

	v.SetDefault("solc.optimizer.enabled", true)
	v.SetDefault("solc.optimizer.runs", 200)
}

// Validate checks struct constraints and that every gas price parses.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for name, n := range c.Networks {
		if _, err := n.GasPriceWei(); err != nil {
			return fmt.Errorf("invalid config: networks.%s.gas_price: %w", name, err)
		}
		if n.Provider == "" && n.URL == "" && n.Host == "" {
			return fmt.Errorf("invalid config: networks.%s needs host, url or provider", name)
		}
	}
	return nil
}

// Network returns the entry for name.
func (c *Config) Network(name string) (Network, error) {
	n, ok := c.Networks[strings.ToLower(name)]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownNetwork, name, strings.Join(c.NetworkNames(), ", "))
	}
	return n, nil
}

// NetworkNames returns the configured network names in sorted order.
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GasPriceWei parses the configured gas price.
func (n Network) GasPriceWei() (*big.Int, error) {
	return ParseWei(n.GasPrice)
}

// Endpoint picks the RPC URL: an explicit url first, then the profile URL
// (the wallet signer's endpoint), then http://host:port.
func (n Network) Endpoint(profileURL string) string {
	if n.URL != "" {
		return n.URL
	}
	if profileURL != "" {
		return profileURL
	}
	if n.Host != "" {
		port := n.Port
		if port == 0 {
			port = 8545
		}
		return fmt.Sprintf("http://%s:%d", n.Host, port)
	}
	return ""
}

// LoadEnvFile loads KEY=value pairs into the process environment without
// overriding variables that are already set. A missing default file is not
// an error; a missing explicit file is.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

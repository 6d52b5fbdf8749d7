package rainbow

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config contains everything needed to build, fill and query a table.
type Config struct {
	// Chain length.
	Iterations uint32 `yaml:"iterations" mapstructure:"iterations"`

	// Path of the table file. The suffix selects compression.
	TablePath string `yaml:"table_path" mapstructure:"table_path"`

	// Whether fills run on a worker pool.
	Parallel bool `yaml:"parallel" mapstructure:"parallel"`

	// Size of the worker pool, zero means one per CPU.
	Workers int `yaml:"workers" mapstructure:"workers"`

	// Recompute every chain when loading a table.
	VerifyOnLoad bool `yaml:"verify_on_load" mapstructure:"verify_on_load"`

	Hash      DriverConfig `yaml:"hash" mapstructure:"hash"`
	Reduction DriverConfig `yaml:"reduction" mapstructure:"reduction"`
}

func (c *Config) check() error {
	if c.Iterations == 0 {
		return configErrorf("iterations", "missing or invalid iterations")
	}
	if c.Workers < 0 {
		return configErrorf("workers", "must not be negative")
	}
	if len(c.Hash.Name) == 0 {
		return configErrorf("hash.name", "missing hash driver name")
	}
	if len(c.Reduction.Name) == 0 {
		return configErrorf("reduction.name", "missing reduction driver name")
	}
	return nil
}

// FillOptions derives fill options from the configuration.
func (c *Config) FillOptions() FillOptions {
	return FillOptions{Parallel: c.Parallel, Workers: c.Workers}
}

// Build resolves the configured drivers and returns an empty table.
func (c *Config) Build() (*Table, error) {
	if err := c.check(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	h, err := HashOracleFromConfig(c.Hash)
	if err != nil {
		return nil, fmt.Errorf("unable to create hash oracle: %w", err)
	}
	r, err := ReductionPolicyFromConfig(c.Reduction)
	if err != nil {
		return nil, fmt.Errorf("unable to create reduction policy: %w", err)
	}
	engine, err := NewChainEngine(c.Iterations, h, r)
	if err != nil {
		return nil, err
	}
	return NewTable(engine), nil
}

// DefaultConfig mirrors the setup the table format was designed around:
// SHA3-224 truncated to three bytes and six lowercase letters.
func DefaultConfig() Config {
	return Config{
		Iterations: 1000,
		TablePath:  "rainbow.table",
		Parallel:   true,
		Hash: DriverConfig{
			Name:    "sha3-224",
			Options: map[string]interface{}{"truncate": 3},
		},
		Reduction: DriverConfig{
			Name:    "ordinal",
			Options: map[string]interface{}{"length": 6, "alphabet": "abcdefghijklmnopqrstuvwxyz"},
		},
	}
}

// LoadConfig reads the configuration from path (if not empty), the
// environment (RAINBOW_ITERATIONS, RAINBOW_HASH_NAME, ...) and any flags in
// fs whose names match configuration keys, in increasing priority.
func LoadConfig(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("iterations", def.Iterations)
	v.SetDefault("table_path", def.TablePath)
	v.SetDefault("parallel", def.Parallel)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("verify_on_load", def.VerifyOnLoad)
	v.SetDefault("hash.name", def.Hash.Name)
	v.SetDefault("reduction.name", def.Reduction.Name)

	v.SetEnvPrefix("RAINBOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config: %w", err)
		}
	}

	if fs != nil {
		for _, key := range []string{"iterations", "table_path", "parallel", "workers", "verify_on_load"} {
			if f := fs.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("unable to bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to unmarshal: %w", err)
	}
	// Default options only make sense for the default drivers.
	if config.Hash.Name == def.Hash.Name && config.Hash.Options == nil {
		config.Hash.Options = def.Hash.Options
	}
	if config.Reduction.Name == def.Reduction.Name && config.Reduction.Options == nil {
		config.Reduction.Options = def.Reduction.Options
	}
	if err := config.check(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Norgate-AV/kiln/internal/codes"
)

// Default configuration values
const (
	DefaultGoPath         = "go"
	DefaultFetchTimeout   = 5 * time.Minute
	DefaultCompileTimeout = 10 * time.Minute
	DefaultForce          = false
	DefaultVerbose        = false
	DefaultDir            = "."
)

// Holds the configuration options for kiln
type Config struct {
	// Go toolchain used to compile build scripts
	GoPath string

	// Bound on a single dependency fetch
	FetchTimeout time.Duration

	// Bound on a single build script compile
	CompileTimeout time.Duration

	// Treat every dependency as stale
	Force bool

	// Enable verbose output
	Verbose bool

	// Project root
	Dir string
}

func Load() (*Config, error) {
	cfg := &Config{
		GoPath:         viper.GetString("go"),
		FetchTimeout:   viper.GetDuration("fetch_timeout"),
		CompileTimeout: viper.GetDuration("compile_timeout"),
		Force:          viper.GetBool("force"),
		Verbose:        viper.GetBool("verbose"),
		Dir:            viper.GetString("dir"),
	}

	if cfg.GoPath == "" {
		cfg.GoPath = DefaultGoPath
	}

	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.FetchTimeout <= 0 {
		return codes.Errorf(codes.ErrConfig, "", "invalid fetch_timeout: %s", c.FetchTimeout)
	}

	if c.CompileTimeout <= 0 {
		return codes.Errorf(codes.ErrConfig, "", "invalid compile_timeout: %s", c.CompileTimeout)
	}

	abs, err := filepath.Abs(c.Dir)
	if err != nil {
		return codes.New(codes.ErrConfig, "", fmt.Errorf("invalid project directory: %w", err))
	}

	c.Dir = abs

	return nil
}

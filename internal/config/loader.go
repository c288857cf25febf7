package config

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from various sources
type Loader struct {
	// userConfigDir locates the global config directory
	userConfigDir func() (string, error)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{userConfigDir: os.UserConfigDir}
}

// LoadForProject loads configuration for a command working on a project.
// Later sources win: defaults, global config, local config, flags.
func (l *Loader) LoadForProject(cmd *cobra.Command) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig(projectDir(cmd))
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("go", DefaultGoPath)
	viper.SetDefault("fetch_timeout", DefaultFetchTimeout)
	viper.SetDefault("compile_timeout", DefaultCompileTimeout)
	viper.SetDefault("force", DefaultForce)
	viper.SetDefault("verbose", DefaultVerbose)
	viper.SetDefault("dir", DefaultDir)
}

// loadGlobalConfig loads global configuration from the user config directory
func (l *Loader) loadGlobalConfig() {
	base, err := l.userConfigDir()
	if err != nil || base == "" {
		return
	}

	path := FindGlobalConfig(filepath.Join(base, "kiln"))
	if path == "" {
		return
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		log.WithError(err).WithField("path", path).Warn("ignoring unreadable global config")
	}
}

// loadLocalConfig merges local configuration found from dir upwards
func (l *Loader) loadLocalConfig(dir string) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return // silently ignore, Load() will handle validation
	}

	path := FindLocalConfig(abs)
	if path == "" {
		return
	}

	viper.SetConfigFile(path)
	if err := viper.MergeInConfig(); err != nil {
		log.WithError(err).WithField("path", path).Warn("ignoring unreadable local config")
	}
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	for _, name := range []string{"verbose", "force", "dir"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = viper.BindPFlag(name, f)
		}
	}
}

func projectDir(cmd *cobra.Command) string {
	if dir, err := cmd.Flags().GetString("dir"); err == nil && dir != "" {
		return dir
	}

	return DefaultDir
}

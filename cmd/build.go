package cmd

import (
	"context"
	"os"
	"time"

	"github.com/caarlos0/log"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/kiln/internal/compiler"
	"github.com/Norgate-AV/kiln/internal/config"
	"github.com/Norgate-AV/kiln/internal/fetch"
	"github.com/Norgate-AV/kiln/internal/plugin"
	"github.com/Norgate-AV/kiln/internal/resolver"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the project",
	Long: `Fetch and rebuild the project's changed dependencies, then compile and
run its build script.`,
	Args:         cobra.NoArgs,
	RunE:         runBuild,
	SilenceUsage: true,
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForProject(cmd)
	if err != nil {
		return err
	}

	_, err = build(commandContext(cmd), cfg)
	return err
}

// build runs a single pass over the project in cfg.Dir
func build(ctx context.Context, cfg *config.Config) (*resolver.Result, error) {
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	start := time.Now()
	pass := resolver.NewPass()

	res, err := newResolver(cfg).Resolve(ctx, cfg.Dir, pass)
	if err != nil {
		return nil, err
	}

	log.WithField("package", res.Name).
		WithField("rebuilt", len(pass.Built())).
		WithField("took", time.Since(start).Round(time.Millisecond)).
		Info("build succeeded")

	return res, nil
}

// newFetcher shows clone progress on stderr in verbose mode
func newFetcher(cfg *config.Config) *fetch.Materializer {
	fetcher := fetch.NewMaterializer(cfg.FetchTimeout)
	if cfg.Verbose {
		fetcher.Progress = os.Stderr
	}

	return fetcher
}

var newResolver = func(cfg *config.Config) *resolver.Resolver {
	toolchain := compiler.NewCommandBuilder(cfg.GoPath, cfg.CompileTimeout)
	toolchain.Verbose = cfg.Verbose

	return resolver.New(
		newFetcher(cfg),
		toolchain,
		plugin.NewExecutor(plugin.GoLoader{}),
		resolver.Options{Force: cfg.Force},
	)
}

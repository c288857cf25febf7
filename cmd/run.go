package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/caarlos0/log"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/kiln/internal/codes"
	"github.com/Norgate-AV/kiln/internal/config"
	"github.com/Norgate-AV/kiln/internal/manifest"
	"github.com/Norgate-AV/kiln/internal/project"
)

var runCmd = &cobra.Command{
	Use:   "run <target>",
	Short: "Build the project and run a target",
	Long: `Build the project, then run the command declared for target in the
manifest's [run] table. Without a declared command, build/<target> is run.`,
	Args:         cobra.ExactArgs(1),
	RunE:         runRun,
	SilenceUsage: true,
}

// Commander interface for testing
type Commander interface {
	Run() error
}

var execCommand = func(ctx context.Context, name string, args ...string) Commander {
	return exec.CommandContext(ctx, name, args...)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForProject(cmd)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if _, err := build(ctx, cfg); err != nil {
		return err
	}

	return runTarget(ctx, cfg, args[0])
}

func runTarget(ctx context.Context, cfg *config.Config, target string) error {
	layout, err := project.NewLayout(cfg.Dir)
	if err != nil {
		return err
	}

	m, err := manifest.Read(layout.Manifest())
	if err != nil {
		return err
	}

	argv, err := targetCommand(layout, m, target)
	if err != nil {
		return err
	}

	log.WithField("target", target).Debugf("running %s", strings.Join(argv, " "))

	c := execCommand(ctx, argv[0], argv[1:]...)
	if cmd, ok := c.(*exec.Cmd); ok {
		cmd.Dir = layout.Root
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with code %d", target, exitErr.ExitCode())
		}

		return fmt.Errorf("failed to run %s: %w", target, err)
	}

	return nil
}

// targetCommand returns the argument vector for target. Relative program
// paths are resolved against the project root.
func targetCommand(layout project.Layout, m *manifest.Manifest, target string) ([]string, error) {
	line, ok := m.Run[target]
	if !ok {
		return []string{filepath.Join(layout.BuildDir(), target)}, nil
	}

	argv, err := shellquote.Split(line)
	if err != nil {
		return nil, codes.Errorf(codes.ErrConfig, m.Package.Name, "invalid run command for %s: %w", target, err)
	}

	if len(argv) == 0 {
		return nil, codes.Errorf(codes.ErrConfig, m.Package.Name, "empty run command for %s", target)
	}

	if strings.ContainsRune(argv[0], '/') && !filepath.IsAbs(argv[0]) {
		argv[0] = filepath.Join(layout.Root, argv[0])
	}

	return argv, nil
}

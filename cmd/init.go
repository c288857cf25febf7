package cmd

import (
	"fmt"
	"path/filepath"
	"runtime/debug"

	"github.com/caarlos0/log"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/Norgate-AV/kiln/internal/config"
	"github.com/Norgate-AV/kiln/internal/project"
	"github.com/Norgate-AV/kiln/internal/version"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new project",
	Long: `Scaffold a manifest, an empty lock file, a starter build script and the
go.mod it is compiled with.`,
	Args:         cobra.NoArgs,
	RunE:         runInit,
	SilenceUsage: true,
}

func init() {
	initCmd.Flags().String("name", "", "Package name (defaults to the directory name)")
	initCmd.Flags().String("kiln-source", "", "Local kiln checkout the build script's module is pointed at")
}

// readBuildInfo is replaced in tests
var readBuildInfo = debug.ReadBuildInfo

// kilnVersion is the release of kiln build scripts should require: the
// version stamped at link time, else the one go install recorded
func kilnVersion() string {
	if semver.IsValid(version.Version) {
		return version.Version
	}

	if info, ok := readBuildInfo(); ok && semver.IsValid(info.Main.Version) {
		return info.Main.Version
	}

	return ""
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForProject(cmd)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = filepath.Base(cfg.Dir)
	}

	source, _ := cmd.Flags().GetString("kiln-source")

	opts, err := initOptions(name, source)
	if err != nil {
		return err
	}

	created, err := project.Init(appFs, cfg.Dir, opts)
	if err != nil {
		return err
	}

	for _, path := range created {
		log.WithField("file", path).Debug("created")
	}

	log.WithField("package", name).Info("project created")

	return nil
}

func initOptions(name, source string) (project.InitOptions, error) {
	opts := project.InitOptions{Name: name, KilnVersion: kilnVersion()}

	if source != "" {
		abs, err := filepath.Abs(source)
		if err != nil {
			return opts, fmt.Errorf("failed to resolve %s: %w", source, err)
		}

		opts.KilnSource = abs
	}

	if opts.KilnVersion == "" && opts.KilnSource == "" {
		log.WithField("version", version.Version).Warn("not a kiln release, pass --kiln-source so the build script can resolve kiln")
	}

	return opts, nil
}

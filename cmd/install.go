package cmd

import (
	"strings"

	"github.com/caarlos0/log"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/kiln/internal/codes"
	"github.com/Norgate-AV/kiln/internal/config"
	"github.com/Norgate-AV/kiln/internal/manifest"
	"github.com/Norgate-AV/kiln/internal/project"
)

var installCmd = &cobra.Command{
	Use:   "install <source>",
	Short: "Add a dependency to the lock file",
	Long: `Add a dependency to kiln.lock. The source is a git URL or a local
directory. Installing a name that is already locked updates its entry.`,
	Args:         cobra.ExactArgs(1),
	RunE:         runInstall,
	SilenceUsage: true,
}

type installOptions struct {
	Name    string
	Version string
	Target  string
	NoBuild bool
}

func init() {
	installCmd.Flags().String("name", "", "Dependency name (defaults to the last element of the source)")
	installCmd.Flags().String("version", "latest", "Tag, branch or latest")
	installCmd.Flags().String("target", string(manifest.Main), "Where the dependency is linked: main or build")
	installCmd.Flags().Bool("no-build", false, "Include only, never build or link")
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForProject(cmd)
	if err != nil {
		return err
	}

	var opts installOptions
	opts.Name, _ = cmd.Flags().GetString("name")
	opts.Version, _ = cmd.Flags().GetString("version")
	opts.Target, _ = cmd.Flags().GetString("target")
	opts.NoBuild, _ = cmd.Flags().GetBool("no-build")

	dep, err := install(cfg.Dir, args[0], opts)
	if err != nil {
		return err
	}

	log.WithField("package", dep.Name).
		WithField("version", dep.Version).
		WithField("target", dep.Target).
		Info("added to " + project.LockFile)

	return nil
}

// install records source in the lock file of the project at dir
func install(dir, source string, opts installOptions) (manifest.Dependency, error) {
	layout, err := project.NewLayout(dir)
	if err != nil {
		return manifest.Dependency{}, err
	}

	if _, err := manifest.Read(layout.Manifest()); err != nil {
		return manifest.Dependency{}, err
	}

	target, err := manifest.ParseTarget(opts.Target)
	if err != nil {
		return manifest.Dependency{}, codes.New(codes.ErrConfig, opts.Name, err)
	}

	name := opts.Name
	if name == "" {
		name = NameFromSource(source)
	}

	dep := manifest.Dependency{
		Name:    name,
		Source:  source,
		Version: opts.Version,
		Target:  target,
		NoBuild: opts.NoBuild,
	}

	if err := dep.Validate(); err != nil {
		return manifest.Dependency{}, err
	}

	lock, err := manifest.ReadLock(layout.Lock())
	if err != nil {
		return manifest.Dependency{}, err
	}

	lock.Upsert(dep)

	if err := manifest.WriteLock(layout.Lock(), lock); err != nil {
		return manifest.Dependency{}, err
	}

	return dep, nil
}

// NameFromSource derives a dependency name from the last path element of a
// URL or directory, without a .git suffix
func NameFromSource(source string) string {
	s := strings.TrimRight(strings.TrimSpace(source), "/\\")

	if i := strings.LastIndexAny(s, "/\\:"); i >= 0 {
		s = s[i+1:]
	}

	return strings.TrimSuffix(s, ".git")
}

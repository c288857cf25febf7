package cmd

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/kiln/internal/config"
	"github.com/Norgate-AV/kiln/internal/project"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove build output",
	Long: `Remove the project's build directory, including materialized
dependencies and the cache ledger. The next build starts from scratch.`,
	Args:         cobra.NoArgs,
	RunE:         runClean,
	SilenceUsage: true,
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForProject(cmd)
	if err != nil {
		return err
	}

	layout, err := project.NewLayout(cfg.Dir)
	if err != nil {
		return err
	}

	freed, err := clean(appFs, layout)
	if err != nil {
		return err
	}

	log.WithField("dir", layout.BuildDir()).
		WithField("freed", humanize.Bytes(uint64(freed))).
		Info("cleaned")

	return nil
}

// clean removes the build directory and returns the bytes it held
func clean(fsys afero.Fs, layout project.Layout) (int64, error) {
	size, err := dirSize(fsys, layout.BuildDir())
	if err != nil {
		return 0, err
	}

	if err := fsys.RemoveAll(layout.BuildDir()); err != nil {
		return 0, err
	}

	return size, nil
}

func dirSize(fsys afero.Fs, root string) (int64, error) {
	var size int64

	err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.Mode().IsRegular() {
			size += info.Size()
		}

		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}

	return size, nil
}

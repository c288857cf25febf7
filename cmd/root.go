package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/caarlos0/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/kiln/internal/codes"
	"github.com/Norgate-AV/kiln/internal/version"
)

// appFs is the filesystem commands that only touch files go through
var appFs = afero.NewOsFs()

var rootCmd = &cobra.Command{
	Use:   "kiln",
	Short: "Native build orchestrator",
	Long: `Build native projects whose dependencies and build logic are themselves
native packages. Dependencies are fetched, rebuilt when their sources change
and linked into the project through its Go build script.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		code := codes.ExitCode(err)
		log.WithError(err).Error(codes.GetErrorMessage(code))
		stop()
		os.Exit(code)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolP("force", "f", false, "Rebuild every dependency")
	rootCmd.PersistentFlags().StringP("dir", "C", ".", "Project directory")
	rootCmd.AddCommand(buildCmd, runCmd, installCmd, cleanCmd, initCmd)
}

// commandContext returns the command's context, or a background context for
// commands executed without one
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kelda/licensor/cli/genkey"
	"github.com/kelda/licensor/cli/inspect"
	"github.com/kelda/licensor/cli/keys"
	"github.com/kelda/licensor/cli/sign"
	"github.com/kelda/licensor/cli/validate"
	"github.com/kelda/licensor/pkg/errors"
	"github.com/kelda/licensor/pkg/version"
)

func main() {
	var verbose bool
	rootCmd := &cobra.Command{
		Use:   "licensor",
		Short: "CLI for signing licenses",

		// Errors are printed by HandleFatalError.
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(
		genkey.New(),
		inspect.New(),
		keys.New(),
		sign.New(),
		validate.New(),
		&cobra.Command{
			Use:   "version",
			Short: "Prints the licensor version",
			Args:  cobra.NoArgs,
			Run: func(_ *cobra.Command, _ []string) {
				fmt.Println(version.String())
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		errors.HandleFatalError(err)
	}
}

package inspect

import (
	"fmt"
	"io"
	"os"

	"github.com/buger/goterm"
	"github.com/spf13/cobra"

	"github.com/kelda/licensor/cli/util"
	"github.com/kelda/licensor/pkg/license"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [LICENSE_KEY]",
		Short: "Prints the contents of a license without validating it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return run(os.Stdin, os.Stdout, os.Stderr, args)
		},
	}
}

func run(stdin io.Reader, out, stderr io.Writer, args []string) error {
	licenseKey, err := util.ReadLicenseKey(args, stdin, stderr)
	if err != nil {
		return err
	}

	// The signature isn't checked, so any keys will do.
	eval, err := license.NewEvaluator(license.NewKeyStore(), []byte(licenseKey), "")
	if err != nil {
		return err
	}

	inspected, err := eval.InspectString()
	if err != nil {
		return err
	}

	fmt.Fprintln(stderr, goterm.Color("The signature was not checked. Use `licensor validate` to validate the license.",
		goterm.YELLOW))
	fmt.Fprintln(out, inspected)
	return nil
}

package keys

import (
	"fmt"
	"io"
	"os"

	"github.com/lithammer/dedent"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kelda/licensor/cli/util"
	"github.com/kelda/licensor/pkg/license"
)

var fs = afero.NewOsFs()

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the keys that licenses are verified with",
	}
	cmd.AddCommand(newExportCommand(), newListCommand())
	return cmd
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [PUBLIC_KEY_FILE...]",
		Short: "Prints public keys as a JSON Web Key Set",
		Long: dedent.Dedent(`
		Prints the given public keys as a JSON Web Key Set (JWKS), so that they
		can be shipped to verifiers that don't read PEM files.

		If no files are given, the keys built into licensor are exported.`),
		RunE: func(_ *cobra.Command, args []string) error {
			return runExport(os.Stdout, args)
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists the IDs of the keys built into licensor",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			runList(os.Stdout, license.DefaultKeyStore())
		},
	}
}

func runExport(out io.Writer, paths []string) error {
	ks := license.DefaultKeyStore()
	if len(paths) != 0 {
		keys, err := util.ReadPublicKeys(fs, paths)
		if err != nil {
			return err
		}
		ks = license.NewKeyStore(keys...)
	}

	jwks, err := ks.JWKS()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(jwks))
	return nil
}

func runList(out io.Writer, keys license.KeyProvider) {
	for i, key := range keys.TrustedKeys() {
		fmt.Fprintf(out, "%d\t%s\t%d bits\n", i, key.ID, key.Key.N.BitLen())
	}
}

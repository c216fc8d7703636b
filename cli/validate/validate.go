package validate

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/buger/goterm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kelda/licensor/cli/util"
	"github.com/kelda/licensor/pkg/cfgdir"
	"github.com/kelda/licensor/pkg/errors"
	"github.com/kelda/licensor/pkg/license"
	"github.com/kelda/licensor/pkg/strs"
)

var fs = afero.NewOsFs()

type params struct {
	domain        string
	trustedKeys   []string
	noBuiltinKeys bool
}

func New() *cobra.Command {
	var p params
	cmd := &cobra.Command{
		Use:   "validate [LICENSE_KEY]",
		Short: "Validates a license - reads from stdin if no argument is provided",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := cfgdir.ParseConfig()
			if err != nil {
				return errors.WithContext("parse config", err)
			}

			if !cmd.Flags().Changed("domain") {
				p.domain = config.Domain
			}
			p.trustedKeys = strs.Unique(p.trustedKeys, config.TrustedKeys)
			return run(os.Stdin, os.Stdout, os.Stderr, args, p)
		},
	}
	cmd.Flags().StringVar(&p.domain, "domain", "", "domain to evaluate the license against")
	cmd.Flags().StringSliceVar(&p.trustedKeys, "trusted-key", nil,
		"additional public key files to trust (may be repeated)")
	cmd.Flags().BoolVar(&p.noBuiltinKeys, "no-builtin-keys", false,
		"only trust the keys passed with --trusted-key")
	return cmd
}

func run(stdin io.Reader, out, stderr io.Writer, args []string, p params) error {
	licenseKey, err := util.ReadLicenseKey(args, stdin, stderr)
	if err != nil {
		return err
	}

	keys, err := getKeyStore(p)
	if err != nil {
		return err
	}
	log.WithField("keys", keys.Len()).Debug("Loaded trusted keys")

	signed, err := license.Deserialize([]byte(licenseKey))
	if err != nil {
		return err
	}

	signer, err := license.Verify(keys, signed, p.domain, time.Now())
	if err != nil {
		return err
	}

	eval, err := license.NewEvaluator(keys, []byte(licenseKey), p.domain)
	if err != nil {
		return err
	}

	inspected, err := eval.InspectString()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, goterm.Color("License is valid", goterm.GREEN))
	fmt.Fprintf(out, "Signed by key %s\n", signer.ID)
	fmt.Fprintln(out, inspected)
	fmt.Fprintf(out, "Enabled features: %s\n", strings.Join(enabledFeatures(eval), ", "))
	return nil
}

func getKeyStore(p params) (*license.KeyStore, error) {
	extra, err := util.ReadPublicKeys(fs, p.trustedKeys)
	if err != nil {
		return nil, err
	}

	if p.noBuiltinKeys {
		if len(extra) == 0 {
			return nil, errors.NewFriendlyError("--no-builtin-keys requires at least one --trusted-key.")
		}
		return license.NewKeyStore(extra...), nil
	}
	return license.DefaultKeyStore().With(extra...), nil
}

func enabledFeatures(eval *license.Evaluator) (enabled []string) {
	for _, feature := range license.Features {
		if eval.Enabled(feature) {
			enabled = append(enabled, feature.String())
		}
	}
	return enabled
}

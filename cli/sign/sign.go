package sign

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lithammer/dedent"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kelda/licensor/cli/util"
	"github.com/kelda/licensor/pkg/cfgdir"
	"github.com/kelda/licensor/pkg/errors"
	"github.com/kelda/licensor/pkg/license"
)

var fs = afero.NewOsFs()

// maxValidFor keeps expiry dates within the years that license keys can
// represent.
const maxValidFor = 100 * 365

// now is overridden in tests.
var now = time.Now

type params struct {
	domain   string
	id       string
	level    string
	seats    int
	keyPath  string
	validFor int
}

func New() *cobra.Command {
	var p params
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Signs a license",
		Long: dedent.Dedent(`
		Signs a license and prints the license key.

		Seats and domain restrictions are optional: --seats 0 allows any number
		of seats, and an empty --domain allows any domain.`),
		Example: "  licensor sign --domain example.com --id 1234 --level enterprise --seats 50 -k private_key.pem",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := cfgdir.ParseConfig()
			if err != nil {
				return errors.WithContext("parse config", err)
			}

			if !cmd.Flags().Changed("domain") {
				p.domain = config.Domain
			}
			p.keyPath = util.FirstNonEmpty(p.keyPath, config.PrivateKeyPath)
			return run(os.Stdout, p)
		},
	}
	cmd.Flags().StringVar(&p.domain, "domain", "", "domain for which the license is valid")
	cmd.Flags().StringVar(&p.id, "id", "", "ID of the license")
	cmd.Flags().StringVar(&p.level, "level", "", "license level, must be one of team, enterprise")
	cmd.Flags().IntVar(&p.seats, "seats", 5, "number of seats the license is valid for")
	cmd.Flags().StringVarP(&p.keyPath, "key", "k", "", "path to the private key to sign the license with")
	cmd.Flags().IntVar(&p.validFor, "valid-for", 365, "days the license is valid for")
	return cmd
}

func run(out io.Writer, p params) error {
	if p.id == "" {
		return errors.NewFriendlyError("Please specify --id.")
	}
	if p.keyPath == "" {
		return errors.NewFriendlyError("Please specify the private key with -k.")
	}
	if p.seats < 0 {
		return errors.NewFriendlyError("--seats can't be negative.")
	}
	if p.validFor <= 0 {
		return errors.NewFriendlyError("--valid-for must be at least one day.")
	}
	if p.validFor > maxValidFor {
		return errors.NewFriendlyError("--valid-for can't be more than %d days.", maxValidFor)
	}

	level, err := license.ParseLevel(p.level)
	if err != nil {
		return err
	}

	key, err := util.ReadPrivateKey(fs, p.keyPath)
	if err != nil {
		return err
	}

	if p.domain == "" {
		log.Warn("Signing a license that is valid for any domain")
	}

	seats := p.seats
	signed, err := license.Sign(license.License{
		ID:         p.id,
		Level:      level,
		Domain:     p.domain,
		ValidUntil: now().UTC().Add(time.Duration(p.validFor) * 24 * time.Hour),
		Seats:      &seats,
	}, key)
	if err != nil {
		return err
	}

	serialized, err := signed.Serialize()
	if err != nil {
		return err
	}

	log.WithField("id", p.id).WithField("key", license.KeyID(&key.PublicKey)).Debug("Signed license")
	fmt.Fprintln(out, serialized)
	return nil
}

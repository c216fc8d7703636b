package genkey

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

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

// Overridden in tests.
var (
	parseConfig = cfgdir.ParseConfig
	saveConfig  = func(config cfgdir.Config) error { return config.Save() }
)

type params struct {
	privateKeyPath string
	publicKeyPath  string
	bits           int
	force          bool
	saveConfig     bool
}

func New() *cobra.Command {
	var p params
	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generates a public/private key for signing licenses",
		Long: dedent.Dedent(`
		Generates an RSA key pair for signing licenses.

		The private key is used by "licensor sign" and must be kept secret. The
		public key is what products embed to verify licenses.`),
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			config, err := parseConfig()
			if err != nil {
				return errors.WithContext("parse config", err)
			}

			p.privateKeyPath = util.FirstNonEmpty(p.privateKeyPath, config.PrivateKeyPath, "private_key.pem")
			p.publicKeyPath = util.FirstNonEmpty(p.publicKeyPath, config.PublicKeyPath, "public_key.pem")
			return run(os.Stdout, p)
		},
	}
	cmd.Flags().StringVar(&p.privateKeyPath, "private-key", "", "path to write the private key to")
	cmd.Flags().StringVar(&p.publicKeyPath, "public-key", "", "path to write the public key to")
	cmd.Flags().IntVar(&p.bits, "bits", license.DefaultKeyBits, "size of the RSA key")
	cmd.Flags().BoolVar(&p.force, "force", false, "overwrite existing key files")
	cmd.Flags().BoolVar(&p.saveConfig, "save-config", false,
		"record the key paths in the licensor config so that later commands use them")
	return cmd
}

func run(out io.Writer, p params) error {
	if p.bits < license.DefaultKeyBits {
		return errors.NewFriendlyError("Keys must be at least %d bits.", license.DefaultKeyBits)
	}

	var err error
	p.privateKeyPath, err = cfgdir.ExpandPath(p.privateKeyPath)
	if err != nil {
		return errors.WithContext("expand private key path", err)
	}
	p.publicKeyPath, err = cfgdir.ExpandPath(p.publicKeyPath)
	if err != nil {
		return errors.WithContext("expand public key path", err)
	}

	if !p.force {
		for _, path := range []string{p.privateKeyPath, p.publicKeyPath} {
			exists, err := afero.Exists(fs, path)
			if err != nil {
				return errors.WithContext("stat "+path, err)
			}
			if exists {
				return errors.NewFriendlyError("%s already exists. Use --force to overwrite it.", path)
			}
		}
	}

	key, err := license.GenerateKey(p.bits)
	if err != nil {
		return err
	}

	if err := afero.WriteFile(fs, p.privateKeyPath, license.EncodePrivateKeyPEM(key), 0600); err != nil {
		return errors.WithContext("write private key", err)
	}
	if err := afero.WriteFile(fs, p.publicKeyPath, license.EncodePublicKeyPEM(&key.PublicKey), 0644); err != nil {
		return errors.WithContext("write public key", err)
	}

	log.WithField("key", license.KeyID(&key.PublicKey)).Debug("Generated key")
	fmt.Fprintf(out, "Wrote private key to '%s' and public key to '%s'\n", p.privateKeyPath, p.publicKeyPath)

	if p.saveConfig {
		if err := saveKeyPaths(p.privateKeyPath, p.publicKeyPath); err != nil {
			return errors.WithContext("save config", err)
		}
		fmt.Fprintf(out, "Saved the key paths to %s\n", cfgdir.Expand(cfgdir.ConfigFile))
	}
	return nil
}

// saveKeyPaths records the absolute key paths in the config, keeping the
// other settings.
func saveKeyPaths(privateKeyPath, publicKeyPath string) error {
	config, err := parseConfig()
	if err != nil {
		return err
	}

	config.PrivateKeyPath, err = filepath.Abs(privateKeyPath)
	if err != nil {
		return err
	}
	config.PublicKeyPath, err = filepath.Abs(publicKeyPath)
	if err != nil {
		return err
	}
	return saveConfig(config)
}

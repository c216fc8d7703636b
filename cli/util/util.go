package util

import (
	"crypto/rsa"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/kelda/licensor/pkg/cfgdir"
	"github.com/kelda/licensor/pkg/errors"
	"github.com/kelda/licensor/pkg/license"
)

// StdinIsTerminal is overridden in tests.
var StdinIsTerminal = func() bool {
	return terminal.IsTerminal(int(os.Stdin.Fd()))
}

// ReadLicenseKey returns the license key passed as an argument, or reads it
// from stdin if there are no arguments.
func ReadLicenseKey(args []string, stdin io.Reader, stderr io.Writer) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(args[0]), nil
	}

	if StdinIsTerminal() {
		fmt.Fprintln(stderr, "Reading the license key from stdin. Press Ctrl-D when done.")
	}

	keyBytes, err := ioutil.ReadAll(stdin)
	if err != nil {
		return "", errors.WithContext("read stdin", err)
	}

	key := strings.TrimSpace(string(keyBytes))
	if key == "" {
		return "", errors.NewFriendlyError("No license key provided.")
	}
	return key, nil
}

// ReadPrivateKey reads a PEM encoded private key.
func ReadPrivateKey(fs afero.Fs, path string) (*rsa.PrivateKey, error) {
	path, err := cfgdir.ExpandPath(path)
	if err != nil {
		return nil, errors.WithContext("expand path", err)
	}

	keyBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.NewFriendlyError("Failed to read private key %s: %s", path, err)
	}

	key, err := license.ParsePrivateKeyPEM(keyBytes)
	if err != nil {
		return nil, errors.WithContext(fmt.Sprintf("parse %s", path), err)
	}
	return key, nil
}

// ReadPublicKeys reads every PEM encoded public key in the given files.
func ReadPublicKeys(fs afero.Fs, paths []string) ([]*rsa.PublicKey, error) {
	var keys []*rsa.PublicKey
	for _, path := range paths {
		path, err := cfgdir.ExpandPath(path)
		if err != nil {
			return nil, errors.WithContext("expand path", err)
		}

		keyBytes, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, errors.NewFriendlyError("Failed to read public key %s: %s", path, err)
		}

		ks, err := license.LoadKeyStore(keyBytes)
		if err != nil {
			return nil, errors.WithContext(fmt.Sprintf("parse %s", path), err)
		}
		for _, trusted := range ks.TrustedKeys() {
			log.WithField("path", path).WithField("key", trusted.ID).Debug("Loaded public key")
			keys = append(keys, trusted.Key)
		}
	}
	return keys, nil
}

// FirstNonEmpty returns the first argument that isn't empty.
func FirstNonEmpty(strs ...string) string {
	for _, str := range strs {
		if str != "" {
			return str
		}
	}
	return ""
}

package cfgdir

import (
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/kelda/licensor/pkg/errors"
)

// ConfigFile is the name of the config file within the config directory.
const ConfigFile = "config.yaml"

// DirEnv overrides the config directory.
const DirEnv = "LICENSOR_CONFIG_DIR"

var (
	fs  = afero.NewOsFs()
	dir string
)

func init() {
	if envDir := os.Getenv(DirEnv); envDir != "" {
		dir = envDir
		return
	}

	var err error
	dir, err = homedir.Expand("~/.licensor")
	if err != nil {
		log.WithError(err).Fatal("can't find home directory")
	}
}

// Config holds the defaults for the licensor CLI. Every field is optional.
type Config struct {
	// PrivateKeyPath is the key that `licensor sign` uses if -k isn't set.
	PrivateKeyPath string `json:"privateKeyPath,omitempty"`

	// PublicKeyPath is where `licensor genkey` writes the public key.
	PublicKeyPath string `json:"publicKeyPath,omitempty"`

	// TrustedKeys are PEM files that `licensor validate` trusts in addition
	// to the built-in keys.
	TrustedKeys []string `json:"trustedKeys,omitempty"`

	// Domain is the default domain for `licensor sign` and `licensor
	// validate`.
	Domain string `json:"domain,omitempty"`
}

func Create() error {
	return fs.MkdirAll(dir, 0700)
}

func Expand(filename string) string {
	return filepath.Join(dir, filename)
}

// ExpandPath expands a leading ~ in the given path.
func ExpandPath(path string) (string, error) {
	return homedir.Expand(path)
}

// ParseConfig reads the config file. A missing file results in an empty
// Config.
func ParseConfig() (Config, error) {
	path := Expand(ConfigFile)
	configBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, errors.WithContext("read config", err)
	}

	var config Config
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return Config{}, errors.NewFriendlyError(
			"Failed to parse %s: %s", path, err)
	}

	config.PrivateKeyPath, err = ExpandPath(config.PrivateKeyPath)
	if err != nil {
		return Config{}, errors.WithContext("expand privateKeyPath", err)
	}
	config.PublicKeyPath, err = ExpandPath(config.PublicKeyPath)
	if err != nil {
		return Config{}, errors.WithContext("expand publicKeyPath", err)
	}
	for i, trusted := range config.TrustedKeys {
		config.TrustedKeys[i], err = ExpandPath(trusted)
		if err != nil {
			return Config{}, errors.WithContext("expand trustedKeys", err)
		}
	}
	return config, nil
}

// Save writes the config file, creating the config directory if necessary.
func (config Config) Save() error {
	if err := Create(); err != nil {
		return errors.WithContext("create config dir", err)
	}

	configBytes, err := yaml.Marshal(config)
	if err != nil {
		return errors.WithContext("marshal config", err)
	}
	return afero.WriteFile(fs, Expand(ConfigFile), configBytes, 0600)
}

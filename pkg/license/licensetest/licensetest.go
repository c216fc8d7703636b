// Package licensetest contains helpers for tests that need signed licenses.
// Every test builds its own KeyStore, so tests never trust production keys
// and never share trust with each other.
package licensetest

import (
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kelda/licensor/pkg/license"
)

const (
	Domain = "foobar.com"
	ID     = "730d5134-768c-4a05-b7cd-ecf3757cada9"
)

var (
	sharedKey     *rsa.PrivateKey
	sharedKeyErr  error
	sharedKeyOnce sync.Once
)

// Key returns a signing key that is shared by the tests in a package, since
// generating RSA keys is slow.
func Key(t testing.TB) *rsa.PrivateKey {
	t.Helper()

	sharedKeyOnce.Do(func() {
		sharedKey, sharedKeyErr = license.GenerateKey(license.DefaultKeyBits)
	})
	require.NoError(t, sharedKeyErr)
	return sharedKey
}

// NewKey returns a signing key that isn't shared with any other test.
func NewKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()

	key, err := license.GenerateKey(license.DefaultKeyBits)
	require.NoError(t, err)
	return key
}

// KeyStore returns a store that trusts the public halves of the given keys.
func KeyStore(keys ...*rsa.PrivateKey) *license.KeyStore {
	var public []*rsa.PublicKey
	for _, key := range keys {
		public = append(public, &key.PublicKey)
	}
	return license.NewKeyStore(public...)
}

// License returns a Team license for Domain that's valid for the next six
// hours. Callers adjust the fields they care about.
func License() license.License {
	return license.License{
		ID:         ID,
		Level:      license.LevelTeam,
		Domain:     Domain,
		ValidUntil: time.Now().Add(6 * time.Hour),
	}
}

// Seats returns a pointer to n.
func Seats(n int) *int {
	return &n
}

// Sign signs the license and returns the license key.
func Sign(t testing.TB, key *rsa.PrivateKey, l license.License) string {
	t.Helper()

	signed, err := license.Sign(l, key)
	require.NoError(t, err)

	serialized, err := signed.Serialize()
	require.NoError(t, err)
	return serialized
}

// Evaluator signs the license with Key and returns an Evaluator that
// validates it against Domain, trusting only Key.
func Evaluator(t testing.TB, l license.License) *license.Evaluator {
	t.Helper()

	key := Key(t)
	eval, err := license.NewEvaluator(KeyStore(key), []byte(Sign(t, key, l)), Domain)
	require.NoError(t, err)
	return eval
}

package license

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"embed"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"io/fs"
	"path"
	"sync"

	log "github.com/sirupsen/logrus"
	jose "gopkg.in/square/go-jose.v2"

	"github.com/kelda/licensor/pkg/errors"
	"github.com/kelda/licensor/pkg/hash"
)

// The PEM tags name the PKCS#8 convention, but the block contents are PKCS#1.
// Licenses and keys have already been issued in this format, so it's kept as
// is.
const (
	privateKeyPEMType = "PRIVATE KEY"
	publicKeyPEMType  = "PUBLIC KEY"
)

// DefaultKeyBits is the size of keys created by the licensor CLI.
const DefaultKeyBits = 2048

//go:embed keys/*.pem
var embeddedKeys embed.FS

// TrustedKey is a public key that licenses may be signed with.
type TrustedKey struct {
	// ID is the RFC 7638 thumbprint of the key.
	ID  string
	Key *rsa.PublicKey
}

// KeyProvider supplies the keys that signatures are checked against. Keys are
// tried in the returned order.
type KeyProvider interface {
	TrustedKeys() []TrustedKey
}

// KeyStore is an immutable, ordered set of trusted keys. It is safe for
// concurrent use.
type KeyStore struct {
	keys []TrustedKey
}

// NewKeyStore returns a store that trusts the given keys, in order. nil keys
// are ignored.
func NewKeyStore(keys ...*rsa.PublicKey) *KeyStore {
	ks := &KeyStore{}
	for _, key := range keys {
		if key == nil {
			continue
		}
		ks.keys = append(ks.keys, TrustedKey{ID: KeyID(key), Key: key})
	}
	return ks
}

// LoadKeyStore returns a store that trusts every PUBLIC KEY block in the
// given PEM documents.
func LoadKeyStore(pemDocs ...[]byte) (*KeyStore, error) {
	var keys []*rsa.PublicKey
	for _, doc := range pemDocs {
		docKeys, err := parsePublicKeys(doc)
		if err != nil {
			return nil, err
		}
		keys = append(keys, docKeys...)
	}
	return NewKeyStore(keys...), nil
}

// TrustedKeys returns the keys in the store. The returned slice may be
// modified by the caller.
func (ks *KeyStore) TrustedKeys() []TrustedKey {
	if ks == nil {
		return nil
	}
	return append([]TrustedKey(nil), ks.keys...)
}

// Len returns the number of keys in the store.
func (ks *KeyStore) Len() int {
	if ks == nil {
		return 0
	}
	return len(ks.keys)
}

// With returns a new store that trusts the keys of ks followed by the given
// keys. ks is not modified.
func (ks *KeyStore) With(keys ...*rsa.PublicKey) *KeyStore {
	extra := NewKeyStore(keys...)
	return &KeyStore{keys: append(ks.TrustedKeys(), extra.keys...)}
}

// JWKS returns the store as a JSON Web Key Set.
func (ks *KeyStore) JWKS() ([]byte, error) {
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{}}
	for _, key := range ks.TrustedKeys() {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       key.Key,
			KeyID:     key.ID,
			Algorithm: string(jose.RS256),
			Use:       "sig",
		})
	}

	b, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, errors.WithContext("marshal jwks", err)
	}
	return b, nil
}

// KeyStoreFromJWKS parses a JSON Web Key Set created by KeyStore.JWKS. Every
// key in the set must be an RSA public key.
func KeyStoreFromJWKS(b []byte) (*KeyStore, error) {
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(b, &set); err != nil {
		return nil, &KeyFormatError{Msg: "parse jwks", Err: err}
	}

	var keys []*rsa.PublicKey
	for i, jwk := range set.Keys {
		key, ok := jwk.Key.(*rsa.PublicKey)
		if !ok {
			return nil, &KeyFormatError{Msg: "jwks key " + jwk.KeyID + " is not an RSA public key"}
		}
		if jwk.KeyID != "" && jwk.KeyID != KeyID(key) {
			log.WithField("index", i).WithField("kid", jwk.KeyID).
				Debug("JWKS key ID doesn't match its thumbprint, using the thumbprint")
		}
		keys = append(keys, key)
	}
	return NewKeyStore(keys...), nil
}

var (
	defaultKeyStore     *KeyStore
	defaultKeyStoreOnce sync.Once
)

// DefaultKeyStore returns the store of keys that are built into the binary.
// It is loaded on first use, and panics if the built-in key material is
// invalid.
func DefaultKeyStore() *KeyStore {
	defaultKeyStoreOnce.Do(func() {
		ks, err := loadEmbeddedKeys(embeddedKeys, "keys")
		if err != nil {
			panic(errors.WithContext("load built-in license keys", err))
		}
		defaultKeyStore = ks
	})
	return defaultKeyStore
}

func loadEmbeddedKeys(fsys fs.FS, dir string) (*KeyStore, error) {
	// ReadDir sorts by filename, which gives the store its order.
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var docs [][]byte
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".pem" {
			continue
		}

		doc, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.WithContext("read "+entry.Name(), err)
		}
		docs = append(docs, doc)
	}
	return LoadKeyStore(docs...)
}

// KeyID returns the base64url encoded RFC 7638 SHA-256 thumbprint of the key.
func KeyID(key *rsa.PublicKey) string {
	thumbprint, err := (&jose.JSONWebKey{Key: key}).Thumbprint(crypto.SHA256)
	if err != nil {
		// Only happens for keys that can't be represented as a JWK.
		return hash.Fingerprint(x509.MarshalPKCS1PublicKey(key))
	}
	return base64.RawURLEncoding.EncodeToString(thumbprint)
}

// GenerateKey creates a new RSA key pair for signing licenses.
func GenerateKey(bits int) (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, errors.WithContext("generate rsa key", err)
	}
	return key, nil
}

// EncodePrivateKeyPEM encodes the key in the licensor's PEM format.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  privateKeyPEMType,
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

// EncodePublicKeyPEM encodes the key in the licensor's PEM format.
func EncodePublicKeyPEM(key *rsa.PublicKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  publicKeyPEMType,
		Bytes: x509.MarshalPKCS1PublicKey(key),
	})
}

// ParsePrivateKeyPEM parses the first PEM block in b, which must be a
// PRIVATE KEY block with PKCS#1 contents.
func ParsePrivateKeyPEM(b []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, &KeyFormatError{Msg: "no PEM block found"}
	}
	if block.Type != privateKeyPEMType {
		return nil, &KeyFormatError{Msg: "unknown PEM block type " + block.Type}
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, &KeyFormatError{Msg: "parse PKCS#1 private key", Err: err}
	}
	return key, nil
}

// ParsePublicKeyPEM parses the first PEM block in b, which must be a
// PUBLIC KEY block with PKCS#1 contents.
func ParsePublicKeyPEM(b []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, &KeyFormatError{Msg: "no PEM block found"}
	}
	return parsePublicKeyBlock(block)
}

func parsePublicKeys(b []byte) (keys []*rsa.PublicKey, err error) {
	for {
		var block *pem.Block
		block, b = pem.Decode(b)
		if block == nil {
			break
		}

		key, err := parsePublicKeyBlock(block)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if len(keys) == 0 {
		return nil, &KeyFormatError{Msg: "no PEM block found"}
	}
	return keys, nil
}

func parsePublicKeyBlock(block *pem.Block) (*rsa.PublicKey, error) {
	if block.Type != publicKeyPEMType {
		return nil, &KeyFormatError{Msg: "unknown PEM block type " + block.Type}
	}

	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, &KeyFormatError{Msg: "parse PKCS#1 public key", Err: err}
	}
	return key, nil
}

package license

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"strconv"
	"time"

	"github.com/kelda/licensor/pkg/errors"
	"github.com/kelda/licensor/pkg/hash"
)

// Sign signs the license with the issuer's private key so that it can be
// used with an Evaluator. It uses crypto/rand as the source of randomness.
func Sign(l License, key *rsa.PrivateKey) (SignedLicense, error) {
	return SignWithRand(l, key, rand.Reader)
}

// SignWithRand is Sign with an explicit source of randomness. The
// randomness is used to blind the private key operation.
func SignWithRand(l License, key *rsa.PrivateKey, random io.Reader) (SignedLicense, error) {
	if key == nil {
		return SignedLicense{}, &SigningError{errors.New("no private key")}
	}
	if err := key.Validate(); err != nil {
		return SignedLicense{}, &SigningError{errors.WithContext("invalid private key", err)}
	}
	if random == nil {
		return SignedLicense{}, &SigningError{errors.New("no source of randomness")}
	}

	if err := checkSignable(l); err != nil {
		return SignedLicense{}, err
	}

	l = l.copy()
	if l.SchemaVersion == "" {
		l.SchemaVersion = SchemaVersion
	}

	canonical, err := l.CanonicalBytes()
	if err != nil {
		return SignedLicense{}, err
	}

	signature, err := rsa.SignPKCS1v15(random, key, crypto.SHA256, hash.SHA256(canonical))
	if err != nil {
		return SignedLicense{}, &SigningError{err}
	}

	return SignedLicense{
		License:   l,
		Signature: signature,
	}, nil
}

// checkSignable rejects licenses whose keys couldn't be deserialized, or that
// would never grant any seats.
func checkSignable(l License) error {
	if year := l.ValidUntil.UTC().Year(); year < 0 || year > 9999 {
		return &ParameterError{
			Name:  "valid_until",
			Value: l.ValidUntil.UTC().Format(time.RFC3339),
			Msg:   "the year must be between 0 and 9999",
		}
	}

	if l.Seats != nil && *l.Seats < 0 {
		return &ParameterError{
			Name:  "seats",
			Value: strconv.Itoa(*l.Seats),
			Msg:   "must not be negative",
		}
	}
	return nil
}

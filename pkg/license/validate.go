package license

import (
	"crypto"
	"crypto/rsa"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kelda/licensor/pkg/errors"
	"github.com/kelda/licensor/pkg/hash"
)

// Verify checks that the license was signed by one of the trusted keys, that
// it was issued for the given domain, and that it hasn't expired at now. The
// checks run in that order, and the first failure is returned as a
// *VerificationError. On success, the key that produced the signature is
// returned.
func Verify(keys KeyProvider, signed SignedLicense, domain string, now time.Time) (TrustedKey, error) {
	canonical, err := signed.License.CanonicalBytes()
	if err != nil {
		return TrustedKey{}, errors.WithContext("remarshal license", err)
	}
	digest := hash.SHA256(canonical)

	matched, ok := findSigner(keys, digest, signed.Signature)
	if !ok {
		return TrustedKey{}, &VerificationError{Reason: SignatureMismatch}
	}

	if signed.License.Domain != domain {
		return matched, &VerificationError{
			Reason:          DomainMismatch,
			LicenseDomain:   signed.License.Domain,
			RequestedDomain: domain,
		}
	}

	if signed.License.ValidUntil.Before(now) {
		return matched, &VerificationError{
			Reason:     Expired,
			ValidUntil: signed.License.ValidUntil,
		}
	}

	return matched, nil
}

func findSigner(keys KeyProvider, digest, signature []byte) (TrustedKey, bool) {
	if keys == nil {
		return TrustedKey{}, false
	}

	for _, key := range keys.TrustedKeys() {
		if key.Key == nil {
			continue
		}
		if rsa.VerifyPKCS1v15(key.Key, crypto.SHA256, digest, signature) == nil {
			log.WithField("key", key.ID).Debug("Found license signer")
			return key, true
		}
	}
	return TrustedKey{}, false
}

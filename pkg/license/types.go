// Package license signs licenses and evaluates the entitlements of signed
// licenses offline, against a fixed set of trusted public keys.
package license

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/Masterminds/semver"

	"github.com/kelda/licensor/pkg/errors"
)

// SchemaVersion is the version written into every license signed by this
// package.
const SchemaVersion = "1.0.0"

// supportedSchemas are the schema versions that Deserialize accepts.
var supportedSchemas = mustConstraint("^1.0.0")

type License struct {
	ID     string
	Level  Level
	Domain string // An empty domain was issued without a domain restriction.

	ValidUntil time.Time

	// A nil or zero value indicates no seat limit.
	Seats *int

	// SchemaVersion is filled in by Sign if it's empty.
	SchemaVersion string
}

type SignedLicense struct {
	License License `json:"license"`
	// Signature is the RSA PKCS#1 v1.5 signature of the SHA-256 digest of
	// License.CanonicalBytes.
	Signature []byte `json:"signature"`
}

// licenseJSON is the wire representation of a License. The field order is
// part of the signed format and must not change.
type licenseJSON struct {
	ID            string `json:"id"`
	Level         Level  `json:"level"`
	Domain        string `json:"domain"`
	ValidUntil    string `json:"valid_until"`
	Seats         *int   `json:"seats,omitempty"`
	SchemaVersion string `json:"schema_version"`
}

// CanonicalBytes returns the exact byte sequence that is signed for the
// license.
func (l License) CanonicalBytes() ([]byte, error) {
	if !l.Level.valid() {
		return nil, &ParameterError{Name: "license level", Value: string(l.Level)}
	}

	schema := l.SchemaVersion
	if schema == "" {
		schema = SchemaVersion
	}

	return json.Marshal(licenseJSON{
		ID:            l.ID,
		Level:         l.Level,
		Domain:        l.Domain,
		ValidUntil:    l.ValidUntil.UTC().Format(time.RFC3339Nano),
		Seats:         l.Seats,
		SchemaVersion: schema,
	})
}

func (l License) MarshalJSON() ([]byte, error) {
	return l.CanonicalBytes()
}

func (l *License) UnmarshalJSON(b []byte) error {
	var raw licenseJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	if raw.Level == "" {
		return errors.New("missing license level")
	}

	validUntil, err := time.Parse(time.RFC3339Nano, raw.ValidUntil)
	if err != nil {
		return errors.WithContext("parse valid_until", err)
	}

	if raw.SchemaVersion == "" {
		return errors.New("missing schema_version")
	}
	version, err := semver.NewVersion(raw.SchemaVersion)
	if err != nil {
		return errors.WithContext("parse schema_version", err)
	}
	if !supportedSchemas.Check(version) {
		return errors.New("unsupported schema_version %s", raw.SchemaVersion)
	}

	*l = License{
		ID:            raw.ID,
		Level:         raw.Level,
		Domain:        raw.Domain,
		ValidUntil:    validUntil.UTC(),
		Seats:         raw.Seats,
		SchemaVersion: raw.SchemaVersion,
	}
	return nil
}

// copy returns a copy of the license that doesn't share the Seats pointer.
func (l License) copy() License {
	if l.Seats != nil {
		seats := *l.Seats
		l.Seats = &seats
	}
	return l
}

// Serialize returns the license key for the signed license.
func (sl SignedLicense) Serialize() (string, error) {
	signedLicenseJSON, err := json.Marshal(sl)
	if err != nil {
		return "", errors.WithContext("marshal signed license", err)
	}
	return base64.StdEncoding.EncodeToString(signedLicenseJSON), nil
}

// Deserialize parses a license key created by Serialize. It does not verify
// the signature.
func Deserialize(key []byte) (SignedLicense, error) {
	decoded, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(key)))
	if err != nil {
		return SignedLicense{}, &DecodeError{errors.WithContext("decode base64", err)}
	}

	var raw struct {
		License   *License `json:"license"`
		Signature []byte   `json:"signature"`
	}
	if err := json.Unmarshal(decoded, &raw); err != nil {
		return SignedLicense{}, &DecodeError{errors.WithContext("unmarshal signed license", err)}
	}

	if raw.License == nil {
		return SignedLicense{}, &DecodeError{errors.New("missing license")}
	}

	return SignedLicense{
		License:   *raw.License,
		Signature: raw.Signature,
	}, nil
}

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

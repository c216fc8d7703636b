package license

import (
	"encoding/json"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kelda/licensor/pkg/errors"
)

// DefaultLicense is used when no license key is provided. It's never
// verified.
var DefaultLicense = License{
	ID:            "default-license",
	Level:         LevelTeam,
	Domain:        "",
	ValidUntil:    time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC),
	Seats:         nil,
	SchemaVersion: SchemaVersion,
}

// Evaluator determines what a license allows for. It is immutable, and safe
// for concurrent use. Every query validates the license again, so changes to
// the clock or to the trusted keys are picked up without creating a new
// Evaluator.
type Evaluator struct {
	license License

	// signed is nil for the default license.
	signed *SignedLicense
	// domain is the domain that signed is validated against.
	domain string
	keys   KeyProvider

	now func() time.Time
}

// NewDefaultEvaluator returns an Evaluator for the default license.
func NewDefaultEvaluator() *Evaluator {
	return &Evaluator{
		license: DefaultLicense.copy(),
		now:     time.Now,
	}
}

// NewEvaluator returns an Evaluator for the given license key, which will be
// validated against domain using keys. It only fails if the key can't be
// decoded. Invalid licenses are reported by Validate.
func NewEvaluator(keys KeyProvider, key []byte, domain string) (*Evaluator, error) {
	signed, err := Deserialize(key)
	if err != nil {
		return nil, err
	}

	return &Evaluator{
		license: signed.License.copy(),
		signed:  &signed,
		domain:  domain,
		keys:    keys,
		now:     time.Now,
	}, nil
}

// FromLicenseKey is NewEvaluator, except that an empty key results in the
// default license.
func FromLicenseKey(keys KeyProvider, key, domain string) (*Evaluator, error) {
	if strings.TrimSpace(key) == "" {
		return NewDefaultEvaluator(), nil
	}
	return NewEvaluator(keys, []byte(key), domain)
}

// IsDefault returns whether the evaluator uses the default license.
func (e *Evaluator) IsDefault() bool {
	return e.signed == nil
}

// Validate returns nil if the license is valid, and a *VerificationError
// explaining why otherwise. The default license is always valid.
func (e *Evaluator) Validate() error {
	if e.IsDefault() {
		return nil
	}

	_, err := Verify(e.keys, *e.signed, e.domain, e.now())
	if err != nil {
		log.WithError(err).WithField("id", e.license.ID).Debug("License is invalid")
	}
	return err
}

// Enabled returns whether the license is valid and enables the feature.
func (e *Evaluator) Enabled(feature Feature) bool {
	if e.Validate() != nil {
		return false
	}

	allowance, ok := AllowanceFor(e.license.Level)
	if !ok {
		return false
	}
	return allowance.Allows(feature)
}

// EnabledName is Enabled for a feature identifier. Unknown identifiers are
// disabled.
func (e *Evaluator) EnabledName(feature string) bool {
	f, err := ParseFeature(feature)
	if err != nil {
		log.WithField("feature", feature).Debug("Unknown feature")
		return false
	}
	return e.Enabled(f)
}

// HasEnoughSeats returns whether the license is valid and permits at least
// the given number of seats.
func (e *Evaluator) HasEnoughSeats(seats int) bool {
	if e.Validate() != nil {
		return false
	}

	if e.license.Seats == nil || *e.license.Seats == 0 {
		return true
	}
	return seats <= *e.license.Seats
}

// CanUsePrebuild returns whether the license permits prebuilds, given the
// total prebuild time that has been spent already.
func (e *Evaluator) CanUsePrebuild(spent time.Duration) bool {
	if !e.Enabled(FeaturePrebuild) {
		return false
	}

	allowance, ok := AllowanceFor(e.license.Level)
	if !ok {
		return false
	}

	if allowance.PrebuildTimeLimit == nil {
		return true
	}
	return spent <= *allowance.PrebuildTimeLimit
}

// Inspect returns the license. It's meant for debugging and must not be used
// to make authorization decisions, since it doesn't validate the license.
func (e *Evaluator) Inspect() License {
	return e.license.copy()
}

// InspectString returns Inspect formatted as indented JSON.
func (e *Evaluator) InspectString() (string, error) {
	b, err := json.MarshalIndent(e.Inspect(), "", "  ")
	if err != nil {
		return "", errors.WithContext("marshal license", err)
	}
	return string(b), nil
}

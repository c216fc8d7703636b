package license

import (
	"fmt"
	"time"
)

// DecodeError is returned when a license key isn't valid base64, isn't valid
// JSON, or describes a license this package can't represent.
type DecodeError struct {
	Err error
}

func (err *DecodeError) Error() string {
	return fmt.Sprintf("decode license key: %s", err.Err)
}

func (err *DecodeError) Unwrap() error {
	return err.Err
}

func (err *DecodeError) FriendlyMessage() string {
	return fmt.Sprintf("The license key is malformed: %s", err.Err)
}

// KeyFormatError is returned for PEM blocks with an unexpected tag, or whose
// contents aren't a PKCS#1 RSA key.
type KeyFormatError struct {
	Msg string
	Err error
}

func (err *KeyFormatError) Error() string {
	if err.Err == nil {
		return fmt.Sprintf("key format: %s", err.Msg)
	}
	return fmt.Sprintf("key format: %s: %s", err.Msg, err.Err)
}

func (err *KeyFormatError) Unwrap() error {
	return err.Err
}

// SigningError is returned when the signing primitive or the random source
// fails, or when the private key is unusable.
type SigningError struct {
	Err error
}

func (err *SigningError) Error() string {
	return fmt.Sprintf("sign license: %s", err.Err)
}

func (err *SigningError) Unwrap() error {
	return err.Err
}

// ParameterError is returned when a caller-supplied identifier, such as a
// license level, isn't recognized, or when a license field is out of range.
type ParameterError struct {
	Name  string
	Value string

	// Msg is set for values that are recognized but out of range.
	Msg string
}

func (err *ParameterError) Error() string {
	if err.Msg != "" {
		return fmt.Sprintf("invalid %s %q: %s", err.Name, err.Value, err.Msg)
	}
	return fmt.Sprintf("unknown %s: %q", err.Name, err.Value)
}

func (err *ParameterError) FriendlyMessage() string {
	if err.Msg != "" {
		return fmt.Sprintf("Invalid %s %q: %s.", err.Name, err.Value, err.Msg)
	}
	return fmt.Sprintf("Unknown %s %q.", err.Name, err.Value)
}

// Reason describes why a signed license failed verification.
type Reason int

const (
	// SignatureMismatch means that none of the trusted keys produced the
	// license's signature.
	SignatureMismatch Reason = iota + 1
	// DomainMismatch means that the license was issued for a different
	// domain than the one it's being used with.
	DomainMismatch
	// Expired means that the license's validity period has ended.
	Expired
)

func (r Reason) String() string {
	switch r {
	case SignatureMismatch:
		return "signature mismatch"
	case DomainMismatch:
		return "domain mismatch"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// VerificationError is returned by Validate and Verify.
type VerificationError struct {
	Reason Reason

	// Set for DomainMismatch.
	LicenseDomain   string
	RequestedDomain string

	// Set for Expired.
	ValidUntil time.Time
}

func (err *VerificationError) Error() string {
	switch err.Reason {
	case DomainMismatch:
		return fmt.Sprintf("verify license: wrong domain (%q), expected %q",
			err.LicenseDomain, err.RequestedDomain)
	case Expired:
		return fmt.Sprintf("verify license: expired at %s",
			err.ValidUntil.Format(time.RFC3339))
	default:
		return fmt.Sprintf("verify license: %s", err.Reason)
	}
}

func (err *VerificationError) FriendlyMessage() string {
	switch err.Reason {
	case SignatureMismatch:
		return "The license key's signature isn't from a trusted issuer."
	case DomainMismatch:
		return fmt.Sprintf("The license was issued for %q, but is being used for %q.",
			err.LicenseDomain, err.RequestedDomain)
	case Expired:
		return fmt.Sprintf("The license expired at %s.", err.ValidUntil.Format(time.RFC822))
	default:
		return err.Error()
	}
}

// Is reports whether target is a VerificationError with the same Reason, so
// that callers can write errors.Is(err, &VerificationError{Reason: Expired}).
func (err *VerificationError) Is(target error) bool {
	t, ok := target.(*VerificationError)
	return ok && t.Reason == err.Reason
}

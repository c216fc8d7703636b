package license_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelda/licensor/pkg/license"
	"github.com/kelda/licensor/pkg/license/licensetest"
)

func TestRoundTrip(t *testing.T) {
	key := licensetest.Key(t)
	orig := licensetest.License()
	orig.Level = license.LevelEnterprise
	orig.Seats = licensetest.Seats(10)

	signed, err := license.Sign(orig, key)
	require.NoError(t, err)

	serialized, err := signed.Serialize()
	require.NoError(t, err)

	deserialized, err := license.Deserialize([]byte(serialized))
	require.NoError(t, err)
	assert.Equal(t, signed.Signature, deserialized.Signature)

	eval, err := license.NewEvaluator(licensetest.KeyStore(key), []byte(serialized), orig.Domain)
	require.NoError(t, err)
	assert.NoError(t, eval.Validate())
	assert.False(t, eval.IsDefault())

	inspected := eval.Inspect()
	assert.Equal(t, orig.ID, inspected.ID)
	assert.Equal(t, orig.Level, inspected.Level)
	assert.Equal(t, orig.Domain, inspected.Domain)
	assert.True(t, orig.ValidUntil.Equal(inspected.ValidUntil))
	assert.Equal(t, 10, *inspected.Seats)
	assert.Equal(t, license.SchemaVersion, inspected.SchemaVersion)
}

func TestUnrestrictedDomain(t *testing.T) {
	key := licensetest.Key(t)
	l := licensetest.License()
	l.Domain = ""
	licenseKey := licensetest.Sign(t, key, l)

	eval, err := license.FromLicenseKey(licensetest.KeyStore(key), licenseKey, "")
	require.NoError(t, err)
	assert.NoError(t, eval.Validate())

	// The domain is still compared literally once one is requested.
	eval, err = license.FromLicenseKey(licensetest.KeyStore(key), licenseKey, "foobar.com")
	require.NoError(t, err)
	assert.True(t, errors.Is(eval.Validate(), &license.VerificationError{Reason: license.DomainMismatch}))
}

func TestSeats(t *testing.T) {
	tests := []struct {
		name           string
		licensed       *int
		probe          int
		expWithin      bool
		invalidLicense bool
	}{
		{
			name:      "unlimited seats (zero)",
			licensed:  licensetest.Seats(0),
			probe:     1000,
			expWithin: true,
		},
		{
			name:      "unlimited seats (nil)",
			licensed:  nil,
			probe:     1000,
			expWithin: true,
		},
		{
			name:      "within limited seats",
			licensed:  licensetest.Seats(50),
			probe:     40,
			expWithin: true,
		},
		{
			name:      "within limited seats (edge)",
			licensed:  licensetest.Seats(50),
			probe:     50,
			expWithin: true,
		},
		{
			name:      "beyond limited seats",
			licensed:  licensetest.Seats(50),
			probe:     150,
			expWithin: false,
		},
		{
			name:      "beyond limited seats (edge)",
			licensed:  licensetest.Seats(50),
			probe:     51,
			expWithin: false,
		},
		{
			name:           "invalid license",
			licensed:       licensetest.Seats(50),
			probe:          50,
			expWithin:      false,
			invalidLicense: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			l := licensetest.License()
			l.Seats = test.licensed
			if test.invalidLicense {
				l.ValidUntil = time.Now().Add(-6 * time.Hour)
			}

			eval := licensetest.Evaluator(t, l)
			assert.Equal(t, test.expWithin, eval.HasEnoughSeats(test.probe))
		})
	}
}

func TestUnlimitedSeatsAnyRequest(t *testing.T) {
	for _, seats := range []*int{nil, licensetest.Seats(0)} {
		l := licensetest.License()
		l.Seats = seats
		eval := licensetest.Evaluator(t, l)
		for _, n := range []int{0, 1, 50, 1 << 20} {
			assert.True(t, eval.HasEnoughSeats(n), "seats=%v n=%d", seats, n)
		}
	}
}

func TestFeatures(t *testing.T) {
	tests := []struct {
		name           string
		defaultLicense bool
		level          license.Level
		domain         string
		expEnabled     []license.Feature
	}{
		{
			name:           "no license",
			defaultLicense: true,
			expEnabled:     []license.Feature{license.FeaturePrebuild},
		},
		{
			name:       "team license",
			level:      license.LevelTeam,
			domain:     licensetest.Domain,
			expEnabled: []license.Feature{license.FeaturePrebuild},
		},
		{
			name:   "enterprise license",
			level:  license.LevelEnterprise,
			domain: licensetest.Domain,
			expEnabled: []license.Feature{
				license.FeatureAdminDashboard,
				license.FeatureSetTimeout,
				license.FeatureWorkspaceSharing,
				license.FeatureSnapshot,
				license.FeaturePrebuild,
			},
		},
		{
			name:       "team license, wrong domain",
			level:      license.LevelTeam,
			domain:     "other.com",
			expEnabled: nil,
		},
		{
			name:       "enterprise license, wrong domain",
			level:      license.LevelEnterprise,
			domain:     "other.com",
			expEnabled: nil,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			var eval *license.Evaluator
			if test.defaultLicense {
				eval = license.NewDefaultEvaluator()
			} else {
				l := licensetest.License()
				l.Level = test.level
				l.Domain = test.domain
				l.Seats = licensetest.Seats(5)
				eval = licensetest.Evaluator(t, l)
			}

			for _, feature := range license.Features {
				expected := false
				for _, f := range test.expEnabled {
					if f == feature {
						expected = true
					}
				}
				assert.Equal(t, expected, eval.Enabled(feature), "feature %s", feature)
				assert.Equal(t, expected, eval.EnabledName(string(feature)), "feature %s", feature)
			}
		})
	}
}

func TestEnabledNameUnknown(t *testing.T) {
	l := licensetest.License()
	l.Level = license.LevelEnterprise
	eval := licensetest.Evaluator(t, l)

	assert.False(t, eval.EnabledName("time-travel"))
	assert.False(t, eval.EnabledName(""))
	assert.False(t, eval.EnabledName("Prebuild"))
	assert.True(t, eval.EnabledName("prebuild"))
}

func TestCanUsePrebuild(t *testing.T) {
	enterprise := licensetest.License()
	enterprise.Level = license.LevelEnterprise

	team := licensetest.License()

	broken := licensetest.License()
	broken.Level = license.LevelEnterprise
	broken.Domain = ""

	tests := []struct {
		name    string
		license *license.License
		spent   time.Duration
		exp     bool
	}{
		{"default license ok", nil, 0, true},
		{"default license edge", nil, 50 * time.Hour, true},
		{"default license not ok", nil, 250 * time.Hour, false},
		{"team license ok", &team, 10 * time.Hour, true},
		{"team license edge", &team, 50 * time.Hour, true},
		{"team license beyond edge", &team, 50*time.Hour + time.Second, false},
		{"enterprise license a", &enterprise, time.Hour, true},
		{"enterprise license b", &enterprise, 500 * time.Hour, true},
		{"enterprise license c", &enterprise, 1 << 62, true},
		{"broken license", &broken, 0, false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			var eval *license.Evaluator
			if test.license == nil {
				eval = license.NewDefaultEvaluator()
			} else {
				eval = licensetest.Evaluator(t, *test.license)
			}
			assert.Equal(t, test.exp, eval.CanUsePrebuild(test.spent))
		})
	}
}

func TestDefaultLicense(t *testing.T) {
	eval, err := license.FromLicenseKey(license.NewKeyStore(), "  \n", "anything.com")
	require.NoError(t, err)

	assert.True(t, eval.IsDefault())
	assert.NoError(t, eval.Validate())
	assert.True(t, eval.Enabled(license.FeaturePrebuild))
	assert.False(t, eval.Enabled(license.FeatureAdminDashboard))
	assert.True(t, eval.HasEnoughSeats(1<<30))
	assert.True(t, eval.CanUsePrebuild(50*time.Hour))
	assert.False(t, eval.CanUsePrebuild(50*time.Hour+time.Second))

	inspected := eval.Inspect()
	assert.Equal(t, "default-license", inspected.ID)
	assert.Equal(t, license.LevelTeam, inspected.Level)
	assert.Equal(t, "", inspected.Domain)
	assert.Nil(t, inspected.Seats)
}

func TestTamperedSignature(t *testing.T) {
	key := licensetest.Key(t)
	other := licensetest.NewKey(t)
	keys := licensetest.KeyStore(other, key)

	signed, err := license.Sign(licensetest.License(), key)
	require.NoError(t, err)

	for i := range signed.Signature {
		tampered := signed
		tampered.Signature = append([]byte(nil), signed.Signature...)
		tampered.Signature[i] ^= 0x01

		_, err := license.Verify(keys, tampered, licensetest.Domain, time.Now())
		var verr *license.VerificationError
		require.True(t, errors.As(err, &verr), "byte %d", i)
		require.Equal(t, license.SignatureMismatch, verr.Reason, "byte %d", i)
	}
}

func TestTamperedLicense(t *testing.T) {
	key := licensetest.Key(t)
	signed, err := license.Sign(licensetest.License(), key)
	require.NoError(t, err)

	signed.License.Level = license.LevelEnterprise
	serialized, err := signed.Serialize()
	require.NoError(t, err)

	eval, err := license.NewEvaluator(licensetest.KeyStore(key), []byte(serialized), licensetest.Domain)
	require.NoError(t, err)
	assert.True(t, errors.Is(eval.Validate(), &license.VerificationError{Reason: license.SignatureMismatch}))
	assert.False(t, eval.Enabled(license.FeaturePrebuild))
	assert.False(t, eval.Enabled(license.FeatureAdminDashboard))
}

func TestExpired(t *testing.T) {
	l := licensetest.License()
	l.ValidUntil = time.Now().Add(-time.Minute)

	err := licensetest.Evaluator(t, l).Validate()
	var verr *license.VerificationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, license.Expired, verr.Reason)
	assert.True(t, l.ValidUntil.Equal(verr.ValidUntil))
}

func TestValidationOrder(t *testing.T) {
	key := licensetest.Key(t)
	untrusted := licensetest.NewKey(t)

	expiredElsewhere := licensetest.License()
	expiredElsewhere.Domain = "other.com"
	expiredElsewhere.ValidUntil = time.Now().Add(-time.Hour)

	tests := []struct {
		name      string
		signWith  bool
		expReason license.Reason
	}{
		{
			name:      "untrusted signer wins over domain and expiry",
			signWith:  false,
			expReason: license.SignatureMismatch,
		},
		{
			name:      "domain wins over expiry",
			signWith:  true,
			expReason: license.DomainMismatch,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			signingKey := untrusted
			if test.signWith {
				signingKey = key
			}

			licenseKey := licensetest.Sign(t, signingKey, expiredElsewhere)
			eval, err := license.NewEvaluator(licensetest.KeyStore(key), []byte(licenseKey), licensetest.Domain)
			require.NoError(t, err)

			var verr *license.VerificationError
			require.True(t, errors.As(eval.Validate(), &verr))
			assert.Equal(t, test.expReason, verr.Reason)
		})
	}
}

func TestVerifyReturnsSigner(t *testing.T) {
	first := licensetest.NewKey(t)
	second := licensetest.Key(t)
	keys := licensetest.KeyStore(first, second)

	signed, err := license.Sign(licensetest.License(), second)
	require.NoError(t, err)

	signer, err := license.Verify(keys, signed, licensetest.Domain, time.Now())
	require.NoError(t, err)
	assert.Equal(t, license.KeyID(&second.PublicKey), signer.ID)
}

func TestNoTrustedKeys(t *testing.T) {
	licenseKey := licensetest.Sign(t, licensetest.Key(t), licensetest.License())

	for _, keys := range []license.KeyProvider{nil, license.NewKeyStore()} {
		eval, err := license.NewEvaluator(keys, []byte(licenseKey), licensetest.Domain)
		require.NoError(t, err)
		assert.True(t, errors.Is(eval.Validate(), &license.VerificationError{Reason: license.SignatureMismatch}))
	}
}

func TestNewEvaluatorDecodeError(t *testing.T) {
	eval, err := license.NewEvaluator(license.NewKeyStore(), []byte("not a license"), licensetest.Domain)
	assert.Nil(t, eval)

	var decodeErr *license.DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestInspectIsACopy(t *testing.T) {
	l := licensetest.License()
	l.Seats = licensetest.Seats(3)
	eval := licensetest.Evaluator(t, l)

	inspected := eval.Inspect()
	*inspected.Seats = 1000
	assert.False(t, eval.HasEnoughSeats(4))
	assert.Equal(t, 3, *eval.Inspect().Seats)

	str, err := eval.InspectString()
	require.NoError(t, err)
	assert.Contains(t, str, `"seats": 3`)
	assert.Contains(t, str, `"domain": "foobar.com"`)
}

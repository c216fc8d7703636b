package license

// Feature is a capability that a license level may enable. The string value
// is the identifier used across process boundaries.
type Feature string

const (
	FeatureAdminDashboard   Feature = "admin-dashboard"
	FeaturePrebuild         Feature = "prebuild"
	FeatureSetTimeout       Feature = "set-timeout"
	FeatureSnapshot         Feature = "snapshot"
	FeatureWorkspaceSharing Feature = "workspace-sharing"
)

// Features lists every known feature.
var Features = []Feature{
	FeatureAdminDashboard,
	FeaturePrebuild,
	FeatureSetTimeout,
	FeatureSnapshot,
	FeatureWorkspaceSharing,
}

// ParseFeature returns the feature with the given identifier.
func ParseFeature(s string) (Feature, error) {
	for _, f := range Features {
		if string(f) == s {
			return f, nil
		}
	}
	return "", &ParameterError{Name: "feature", Value: s}
}

func (f Feature) String() string {
	return string(f)
}

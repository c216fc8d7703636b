package license

import "time"

// Allowance is what a license level grants.
type Allowance struct {
	Features []Feature

	// PrebuildTimeLimit is the total prebuild time that can be used. nil means
	// that prebuild time is unlimited.
	PrebuildTimeLimit *time.Duration
}

// Allows returns whether the feature is part of the allowance.
func (a Allowance) Allows(feature Feature) bool {
	for _, f := range a.Features {
		if f == feature {
			return true
		}
	}
	return false
}

var teamPrebuildTimeLimit = 50 * time.Hour

var allowances = map[Level]Allowance{
	LevelTeam: {
		Features: []Feature{
			FeaturePrebuild,
		},
		PrebuildTimeLimit: &teamPrebuildTimeLimit,
	},
	LevelEnterprise: {
		Features: []Feature{
			FeaturePrebuild,

			FeatureAdminDashboard,
			FeatureSetTimeout,
			FeatureSnapshot,
			FeatureWorkspaceSharing,
		},
	},
}

// AllowanceFor returns a copy of the allowance for the given level.
func AllowanceFor(level Level) (Allowance, bool) {
	a, ok := allowances[level]
	if !ok {
		return Allowance{}, false
	}

	cp := Allowance{Features: append([]Feature(nil), a.Features...)}
	if a.PrebuildTimeLimit != nil {
		limit := *a.PrebuildTimeLimit
		cp.PrebuildTimeLimit = &limit
	}
	return cp, true
}

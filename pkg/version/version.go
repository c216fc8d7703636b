package version

import (
	"fmt"

	"github.com/Masterminds/semver"

	"github.com/kelda/licensor/pkg/license"
)

// Version is set at build time with
// -ldflags "-X github.com/kelda/licensor/pkg/version.Version=...".
var Version = "latest"

// IsRelease returns whether the binary was built from a tagged release.
func IsRelease() bool {
	_, err := semver.NewVersion(Version)
	return err == nil
}

// String describes the build, including the license schema it writes.
func String() string {
	build := Version
	if !IsRelease() {
		build = fmt.Sprintf("%s (development build)", Version)
	}
	return fmt.Sprintf("licensor %s, license schema %s", build, license.SchemaVersion)
}

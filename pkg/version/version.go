// Package version provides API version parsing and compatibility checks.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the API version implemented by this module. It is reported
// in discovery responses and status snapshots.
const Current = "1.0.0"

// APIVersion represents a parsed "major.minor.patch" version.
type APIVersion struct {
	Major uint16
	Minor uint16
	Patch uint16
}

// Parse parses a "major.minor.patch" version string. The patch
// component may be omitted.
func Parse(s string) (APIVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return APIVersion{}, fmt.Errorf("invalid version %q: expected major.minor[.patch]", s)
	}

	components := make([]uint16, 3)
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 16)
		if err != nil || part == "" {
			return APIVersion{}, fmt.Errorf("invalid version %q: bad component %q", s, part)
		}
		components[i] = uint16(v)
	}

	return APIVersion{Major: components[0], Minor: components[1], Patch: components[2]}, nil
}

// String returns the version as "major.minor.patch".
func (v APIVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compatible returns true if the other version has the same major
// version. Minor and patch differences are wire-compatible.
func (v APIVersion) Compatible(other APIVersion) bool {
	return v.Major == other.Major
}

// AtLeast returns true if v is the same as or newer than other.
func (v APIVersion) AtLeast(other APIVersion) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor > other.Minor
	}
	return v.Patch >= other.Patch
}

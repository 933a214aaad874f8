package update

import (
	"fmt"
	"regexp"
	"strconv"
)

// versionRegex accepts semantic versions ("v1.2.3", "1.2.3-rc.1") and the
// dated tags used by the emulator's release index ("release-2024_1_28").
var versionRegex = regexp.MustCompile(`^(?:v|release[-_])?(\d+)[._](\d+)[._](\d+)(?:-([a-zA-Z0-9.-]+))?$`)

// Version is a release tag parsed into numeric components.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
}

// ParseVersion parses a release tag.
// Supports formats like "0.8.2", "v0.8.2", "0.9.0-rc.1", "release-2024_1_28"
func ParseVersion(s string) (*Version, error) {
	matches := versionRegex.FindStringSubmatch(s)
	if matches == nil {
		return nil, fmt.Errorf("invalid version format: %s", s)
	}

	major, _ := strconv.Atoi(matches[1])
	minor, _ := strconv.Atoi(matches[2])
	patch, _ := strconv.Atoi(matches[3])

	return &Version{
		Major:      major,
		Minor:      minor,
		Patch:      patch,
		Prerelease: matches[4],
	}, nil
}

// String returns the dotted representation
func (v *Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// Compare returns 1 if v > other, 0 if equal and -1 if v < other.
// A version without prerelease sorts above the same version with one.
func (v *Version) Compare(other *Version) int {
	for _, pair := range [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
	} {
		if pair[0] != pair[1] {
			if pair[0] > pair[1] {
				return 1
			}
			return -1
		}
	}

	switch {
	case v.Prerelease == other.Prerelease:
		return 0
	case v.Prerelease == "":
		return 1
	case other.Prerelease == "":
		return -1
	case v.Prerelease > other.Prerelease:
		return 1
	default:
		return -1
	}
}

// IsGreaterThan returns true if v > other
func (v *Version) IsGreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}

// newerThanFirst returns the tag of a later release that parses as a newer
// version than releases[0]. The index is expected to be newest first, so a
// hit means the upstream ordering cannot be trusted. Tags that do not parse
// are ignored; the second result is false when nothing newer is found.
func newerThanFirst(releases []Release) (string, bool) {
	if len(releases) < 2 {
		return "", false
	}
	first, err := ParseVersion(releases[0].Tag)
	if err != nil {
		return "", false
	}
	for _, r := range releases[1:] {
		v, err := ParseVersion(r.Tag)
		if err != nil {
			continue
		}
		if v.IsGreaterThan(first) {
			return r.Tag, true
		}
	}
	return "", false
}

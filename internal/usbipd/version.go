package usbipd

import (
	"fmt"
	"strconv"
	"strings"
)

// Version represents a usbipd release.
type Version struct {
	Major int
	Minor int
	Patch int
}

// String returns the version in "major.minor.patch" form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsLegacy returns whether the release predates the "attach --wsl" syntax.
func (v Version) IsLegacy() bool {
	return v.Major < 4
}

// ParseVersion parses "<major>.<minor>.<patch>[+build]". Missing or invalid
// components are returned as zero.
func ParseVersion(s string) Version {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "+")
	parts := strings.Split(s, ".")

	parse := func(i int) int {
		if i >= len(parts) {
			return 0
		}

		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 {
			return 0
		}

		return n
	}

	return Version{
		Major: parse(0),
		Minor: parse(1),
		Patch: parse(2),
	}
}

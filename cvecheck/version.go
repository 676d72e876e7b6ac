package cvecheck

import (
	"strconv"
	"strings"
)

// CompareVersions orders two dotted version strings for display, larger
// version first. It returns -1 when v1 sorts before v2 (v1 is the larger
// version), 1 when v2 sorts before v1, and 0 when they are equal.
//
// An empty version sorts after any non-empty one. Components are compared
// pairwise: numeric components numerically, non-numeric components
// lexicographically, and a non-numeric component sorts before a numeric one
// at the same position. When one version is a prefix of the other, the
// longer one is the larger ("1.2.3" sorts before "1.2").
func CompareVersions(v1, v2 string) int {
	if v1 == "" {
		if v2 == "" {
			return 0
		}
		return 1
	}
	if v2 == "" {
		return -1
	}

	parts1 := strings.Split(v1, ".")
	parts2 := strings.Split(v2, ".")

	minCount := len(parts1)
	if len(parts2) < minCount {
		minCount = len(parts2)
	}

	for i := 0; i < minCount; i++ {
		n1, err1 := strconv.Atoi(parts1[i])
		n2, err2 := strconv.Atoi(parts2[i])

		switch {
		case err1 == nil && err2 == nil:
			if n1 > n2 {
				return -1
			}
			if n1 < n2 {
				return 1
			}
		case err1 == nil:
			// non-numeric component sorts first
			return 1
		case err2 == nil:
			return -1
		default:
			if parts1[i] > parts2[i] {
				return -1
			}
			if parts1[i] < parts2[i] {
				return 1
			}
		}
	}

	if len(parts1) > len(parts2) {
		return -1
	}
	if len(parts1) < len(parts2) {
		return 1
	}
	return 0
}

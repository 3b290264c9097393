package domain

import (
	"strconv"
	"strings"
)

// IsNewer reports whether remote denotes a newer content version than local.
// Versions are dotted strings compared numerically segment by segment, with a
// missing segment counting as 0, so "1.10" is newer than "1.9" and "1.2.0" is
// not newer than "1.2". If any segment of either version fails to parse the
// whole comparison falls back to plain lexical ordering.
func IsNewer(remote, local string) bool {
	remoteParts, ok := versionSegments(remote)
	if !ok {
		return remote > local
	}
	localParts, ok := versionSegments(local)
	if !ok {
		return remote > local
	}

	n := len(remoteParts)
	if len(localParts) > n {
		n = len(localParts)
	}
	for i := 0; i < n; i++ {
		r := segmentAt(remoteParts, i)
		l := segmentAt(localParts, i)
		if r > l {
			return true
		}
		if r < l {
			return false
		}
	}
	return false
}

func versionSegments(version string) ([]int, bool) {
	parts := strings.Split(version, ".")
	segments := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, false
		}
		segments = append(segments, n)
	}
	return segments, true
}

func segmentAt(segments []int, i int) int {
	if i >= len(segments) {
		return 0
	}
	return segments[i]
}

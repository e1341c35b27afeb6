//go:build linux

package kernel

import (
	"bytes"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	version     = Version{}
	versionOnce = sync.Once{}
)

// cutInt splits a leading decimal digit run off s.
func cutInt(s string) (n int, rest string, ok bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, s, false
	}
	n, _ = strconv.Atoi(s[:i])
	return n, s[i:], true
}

// parseRelease takes a release like "6.1.0-13-amd64" apart: major and
// minor are required, the patch is optional, whatever trails them is the
// flavor.
func parseRelease(release string) (v Version, ok bool) {
	major, rest, hasMajor := cutInt(release)
	if !hasMajor || !strings.HasPrefix(rest, ".") {
		return
	}
	minor, rest, hasMinor := cutInt(rest[1:])
	if !hasMinor {
		return
	}
	v.Major = major
	v.Minor = minor
	if strings.HasPrefix(rest, ".") {
		if patch, tail, hasPatch := cutInt(rest[1:]); hasPatch {
			v.Patch = patch
			rest = tail
		}
	}
	v.Flavor = rest
	v.valid = true
	ok = true
	return
}

// Get reads the release once via uname.
func Get() Version {
	versionOnce.Do(func() {
		uts := &unix.Utsname{}
		if err := unix.Uname(uts); err != nil {
			return
		}
		release := string(uts.Release[:bytes.IndexByte(uts.Release[:], 0)])
		if v, ok := parseRelease(release); ok {
			version = v
		}
	})
	return version
}

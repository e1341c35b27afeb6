//go:build windows

package kernel

import (
	"golang.org/x/sys/windows"
)

// Get reads the build version on every call.
func Get() Version {
	major, minor, build := windows.RtlGetNtVersionNumbers()
	return Version{
		Major: int(major),
		Minor: int(minor),
		Patch: int(build),
		valid: true,
	}
}

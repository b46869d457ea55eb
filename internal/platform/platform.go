// Package platform resolves the host OS into one of the supported platform
// variants and carries each variant's command set as data.
package platform

import (
	"os"
	"runtime"

	"github.com/systmms/ykvc/internal/errors"
)

// Platform is a supported host OS family.
type Platform int

const (
	MacOS Platform = iota + 1
	Debian
)

func (p Platform) String() string {
	switch p {
	case MacOS:
		return "macOS"
	case Debian:
		return "Ubuntu/Debian"
	default:
		return "unknown"
	}
}

// Key is the lower-case identifier used in the config file.
func (p Platform) Key() string {
	switch p {
	case MacOS:
		return "macos"
	case Debian:
		return "debian"
	default:
		return ""
	}
}

// Resolver detects the running platform. Zero fields fall back to the
// real environment.
type Resolver struct {
	// GOOS overrides runtime.GOOS.
	GOOS string
	// Exists reports whether a path is present on disk.
	Exists func(path string) bool
	// MarkerPaths lists the paths that identify a Debian host; defaults to
	// the Debian profile's PackageManagerPaths.
	MarkerPaths []string
}

// Resolve returns the host platform or UnsupportedPlatform.
func (r Resolver) Resolve() (Platform, error) {
	goos := r.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	switch goos {
	case "darwin":
		return MacOS, nil
	case "linux":
		exists := r.Exists
		if exists == nil {
			exists = fileExists
		}
		paths := r.MarkerPaths
		if len(paths) == 0 {
			paths = DefaultProfile(Debian).PackageManagerPaths
		}
		for _, p := range paths {
			if exists(p) {
				return Debian, nil
			}
		}
		return 0, errors.UnsupportedPlatform("Only Ubuntu/Debian distributions are supported on Linux")
	default:
		return 0, errors.UnsupportedPlatform(goos)
	}
}

// Detect resolves and returns the matching default profile.
func (r Resolver) Detect() (Profile, error) {
	p, err := r.Resolve()
	if err != nil {
		return Profile{}, err
	}
	return DefaultProfile(p), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

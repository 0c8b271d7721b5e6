package arch

import (
	"fmt"
	"strings"
)

// platformMapping maps a platform name prefix to its base architecture.
// An empty Arch means "same as the host".
type platformMapping struct {
	Prefix string
	Arch   string
}

// Order matters: rpi3 and rpi2 must be tried before rpi.
var platforms = []platformMapping{
	{"bananapi", "armv7l"},
	{"beaglebone", "armv7l"},
	{"cubieboard2", "armv7l"},
	{"cubietruck", "armv7l"},
	{"dockstar", "armv5tel"},
	{"odroid-u2", "armv7l"},
	{"odroid-c2", "aarch64"},
	{"rpi3", "aarch64"},
	{"rpi2", "armv7l"},
	{"rpi", "armv6l"},
	{"usbarmory", "armv7l"},
	{"ci20", "mipsel"},
	{"pinebookpro", "aarch64"},
	{"GCP", ""},
}

// ResolvePlatform maps a platform name such as "rpi3-musl" to the XBPS target
// architecture ("aarch64-musl"). hostArch is used for platforms that build
// for whatever the host runs.
func ResolvePlatform(platform, hostArch string) (string, error) {
	if platform == "" {
		return "", fmt.Errorf("%w: platform not set", ErrUnknownPlatform)
	}

	var resolved string
	found := false
	for _, p := range platforms {
		if strings.HasPrefix(platform, p.Prefix) {
			resolved = p.Arch
			found = true
			break
		}
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}

	if resolved == "" {
		if hostArch == "" {
			return "", fmt.Errorf("%w: %s needs the host architecture", ErrUnknownPlatform, platform)
		}
		resolved = BaseArch(hostArch)
	}

	if strings.HasSuffix(platform, MuslSuffix) {
		resolved += MuslSuffix
	}
	return resolved, nil
}

// NeedsHostArch reports whether resolving platform depends on the host
// architecture.
func NeedsHostArch(platform string) bool {
	for _, p := range platforms {
		if strings.HasPrefix(platform, p.Prefix) {
			return p.Arch == ""
		}
	}
	return false
}

// Platforms lists the known platform prefixes in match order.
func Platforms() []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, p.Prefix)
	}
	return out
}

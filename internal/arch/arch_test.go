package arch_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/old-void-ppc/void-mklive/internal/arch"
)

func TestResolvePlatform(t *testing.T) {
	tests := []struct {
		platform string
		hostArch string
		expected string
	}{
		{"bananapi", "x86_64", "armv7l"},
		{"beaglebone", "x86_64", "armv7l"},
		{"cubieboard2", "x86_64", "armv7l"},
		{"cubietruck", "x86_64", "armv7l"},
		{"dockstar", "x86_64", "armv5tel"},
		{"odroid-u2", "x86_64", "armv7l"},
		{"odroid-c2", "x86_64", "aarch64"},
		{"rpi3", "x86_64", "aarch64"},
		{"rpi2", "x86_64", "armv7l"},
		{"rpi", "x86_64", "armv6l"},
		{"rpi-musl", "x86_64", "armv6l-musl"},
		{"rpi2-musl", "x86_64", "armv7l-musl"},
		{"rpi3-musl", "x86_64", "aarch64-musl"},
		{"usbarmory", "x86_64", "armv7l"},
		{"ci20", "x86_64", "mipsel"},
		{"ci20-musl", "x86_64", "mipsel-musl"},
		{"pinebookpro", "x86_64", "aarch64"},
		{"GCP", "x86_64", "x86_64"},
		{"GCP-musl", "x86_64", "x86_64-musl"},
		{"GCP", "x86_64-musl", "x86_64"},
	}

	for _, tt := range tests {
		t.Run(tt.platform+"_on_"+tt.hostArch, func(t *testing.T) {
			got, err := arch.ResolvePlatform(tt.platform, tt.hostArch)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ResolvePlatform(%q) = %q, want %q", tt.platform, got, tt.expected)
			}
		})
	}
}

func TestResolvePlatformUnknown(t *testing.T) {
	for _, platform := range []string{"", "amiga", "musl", "RPI3"} {
		got, err := arch.ResolvePlatform(platform, "x86_64")
		if !errors.Is(err, arch.ErrUnknownPlatform) {
			t.Errorf("ResolvePlatform(%q) error = %v, want ErrUnknownPlatform", platform, err)
		}
		if got != "" {
			t.Errorf("ResolvePlatform(%q) returned %q alongside an error", platform, got)
		}
	}
}

func TestResolvePlatformHostDependentWithoutHost(t *testing.T) {
	if _, err := arch.ResolvePlatform("GCP", ""); !errors.Is(err, arch.ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		arch     string
		name     string
		emulator string
		family   arch.Family
	}{
		{"armv5tel", "qemu-arm", "qemu-arm-static", arch.FamilyARM},
		{"armv6l", "qemu-arm", "qemu-arm-static", arch.FamilyARM},
		{"armv7l-musl", "qemu-arm", "qemu-arm-static", arch.FamilyARM},
		{"aarch64", "qemu-aarch64", "qemu-aarch64-static", arch.FamilyAArch64},
		{"aarch64-musl", "qemu-aarch64", "qemu-aarch64-static", arch.FamilyAArch64},
		{"ppc64le", "qemu-ppc64le", "qemu-ppc64le-static", arch.FamilyPPC64LE},
		{"ppc64le-musl", "qemu-ppc64le", "qemu-ppc64le-static", arch.FamilyPPC64LE},
		{"ppc64", "qemu-ppc64", "qemu-ppc64-static", arch.FamilyPPC64},
		{"ppc", "qemu-ppc", "qemu-ppc-static", arch.FamilyPPC},
		{"ppc-musl", "qemu-ppc", "qemu-ppc-static", arch.FamilyPPC},
		{"mipsel", "qemu-mipsel", "qemu-mipsel-static", arch.FamilyMIPSEL},
		{"x86_64", "qemu-x86_64", "qemu-x86_64-static", arch.FamilyX86},
		{"i686", "qemu-i386", "qemu-i386-static", arch.FamilyX86},
	}

	for _, tt := range tests {
		t.Run(tt.arch, func(t *testing.T) {
			d, err := arch.Lookup(tt.arch)
			if err != nil {
				t.Fatalf("Lookup(%s): %v", tt.arch, err)
			}
			if d.Name != tt.name || d.Emulator != tt.emulator || d.Family != tt.family {
				t.Errorf("Lookup(%s) = {%s %s %s}, want {%s %s %s}",
					tt.arch, d.Name, d.Emulator, d.Family, tt.name, tt.emulator, tt.family)
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	for _, a := range []string{"", "riscv64", "sparc64", "mips", "s390x"} {
		if _, err := arch.Lookup(a); !errors.Is(err, arch.ErrUnknownArchitecture) {
			t.Errorf("Lookup(%q) error = %v, want ErrUnknownArchitecture", a, err)
		}
	}
}

func TestArmMagicMask(t *testing.T) {
	d, err := arch.Lookup("armv7l")
	if err != nil {
		t.Fatal(err)
	}
	wantMagic := []byte{0x7f, 'E', 'L', 'F', 0x01, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x02, 0x00, 0x28, 0x00}
	wantMask := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xfe, 0xff, 0xff, 0xff}
	if !bytes.Equal(d.Magic, wantMagic) {
		t.Errorf("arm magic = % x", d.Magic)
	}
	if !bytes.Equal(d.Mask, wantMask) {
		t.Errorf("arm mask = % x", d.Mask)
	}
}

func TestCatalogMagicMaskLengths(t *testing.T) {
	for _, d := range arch.Descriptors() {
		if len(d.Magic) != len(d.Mask) {
			t.Errorf("%s: magic has %d bytes, mask %d", d.Name, len(d.Magic), len(d.Mask))
		}
		if !bytes.HasPrefix(d.Magic, []byte("\x7fELF")) {
			t.Errorf("%s: magic does not start with the ELF signature", d.Name)
		}
		// The ELF signature itself is never masked out.
		for i := 0; i < 4 && i < len(d.Mask); i++ {
			if d.Mask[i] != 0xff {
				t.Errorf("%s: mask byte %d is %#x, want 0xff", d.Name, i, d.Mask[i])
			}
		}
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		host, target string
		want         bool
	}{
		{"x86_64", "x86_64", true},
		{"x86_64", "i686", true},
		{"i686", "x86_64-musl", true},
		{"x86_64", "x86_64-musl", true},
		{"x86_64", "armv7l", false},
		{"x86_64", "aarch64", false},
		{"aarch64", "aarch64-musl", true},
		{"armv7l", "armv6l", true},
		{"armv7l", "armv5tel-musl", true},
		{"armv6l", "armv7l", false},
		{"armv5tel", "armv6l", false},
		{"armv6l", "armv6l-musl", true},
		{"aarch64", "armv7l", false},
		{"ppc64le", "ppc64", false},
		{"ppc64", "ppc", false},
		{"riscv64", "riscv64", true},
		{"riscv64", "x86_64", false},
		{"", "x86_64", false},
	}

	for _, tt := range tests {
		if got := arch.Compatible(tt.host, tt.target); got != tt.want {
			t.Errorf("Compatible(%q, %q) = %v, want %v", tt.host, tt.target, got, tt.want)
		}
	}
}

func TestBaseArch(t *testing.T) {
	if got := arch.BaseArch("armv7l-musl"); got != "armv7l" {
		t.Errorf("BaseArch = %q", got)
	}
	if got := arch.BaseArch("x86_64"); got != "x86_64" {
		t.Errorf("BaseArch = %q", got)
	}
}

func TestNeedsHostArch(t *testing.T) {
	if !arch.NeedsHostArch("GCP-musl") {
		t.Error("GCP-musl depends on the host")
	}
	for _, p := range []string{"rpi3", "unknown", ""} {
		if arch.NeedsHostArch(p) {
			t.Errorf("%q should not depend on the host", p)
		}
	}
}

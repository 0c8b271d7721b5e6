package system

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/old-void-ppc/void-mklive/internal/utils/logger"
	"github.com/old-void-ppc/void-mklive/internal/utils/shell"
)

var (
	OsReleaseFile = "/etc/os-release"
)

// GetHostArch returns the machine name reported by uname, e.g. "x86_64".
func GetHostArch() (string, error) {
	output, err := shell.ExecCmd(shell.Command{Args: []string{"uname", "-m"}})
	if err != nil {
		return "", fmt.Errorf("failed to get host architecture: %w", err)
	}
	hostArch := strings.TrimSpace(output)
	if hostArch == "" {
		return "", fmt.Errorf("failed to get host architecture: empty uname output")
	}
	return hostArch, nil
}

func GetHostOsInfo() (map[string]string, error) {
	log := logger.Logger()
	var hostOsInfo = map[string]string{
		"name":    "",
		"version": "",
		"arch":    "",
	}

	hostArch, err := GetHostArch()
	if err != nil {
		log.Errorf("Failed to get host architecture: %v", err)
		return hostOsInfo, err
	}
	hostOsInfo["arch"] = hostArch

	// Read from /etc/os-release if it exists
	if file, err := os.Open(OsReleaseFile); err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)

		for scanner.Scan() {
			key, value, ok := parseOsReleaseLine(scanner.Text())
			if !ok {
				continue
			}
			switch key {
			case "NAME":
				hostOsInfo["name"] = value
			case "VERSION_ID":
				hostOsInfo["version"] = value
			}
		}

		log.Debugf("Detected OS info: %s %s %s", hostOsInfo["name"], hostOsInfo["version"], hostOsInfo["arch"])
		return hostOsInfo, nil
	}

	output, err := shell.ExecCmd(shell.Command{Args: []string{"lsb_release", "-si"}})
	if err != nil {
		log.Errorf("Failed to get host OS name: %v", err)
		return hostOsInfo, fmt.Errorf("failed to get host OS name: %w", err)
	}
	if name := strings.TrimSpace(output); name != "" {
		hostOsInfo["name"] = name
		output, err = shell.ExecCmd(shell.Command{Args: []string{"lsb_release", "-sr"}})
		if err != nil {
			log.Errorf("Failed to get host OS version: %v", err)
			return hostOsInfo, fmt.Errorf("failed to get host OS version: %w", err)
		}
		if version := strings.TrimSpace(output); version != "" {
			hostOsInfo["version"] = version
			log.Debugf("Detected OS info: %s %s %s", hostOsInfo["name"], hostOsInfo["version"], hostOsInfo["arch"])
			return hostOsInfo, nil
		}
	}

	log.Errorf("Failed to detect host OS info!")
	return hostOsInfo, fmt.Errorf("failed to detect host OS info")
}

func parseOsReleaseLine(line string) (string, string, bool) {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	key := strings.TrimSpace(parts[0])
	if key == "" || strings.HasPrefix(key, "#") {
		return "", "", false
	}
	return key, strings.Trim(strings.TrimSpace(parts[1]), "\""), true
}

// OsDistribution contains information about the Linux OS distribution
type OsDistribution struct {
	Name            string   // Distribution name (e.g., "Void", "Ubuntu")
	Version         string   // Version (e.g., "22.04"); rolling releases leave it empty
	ID              string   // Distribution ID (e.g., "void", "ubuntu")
	IDLike          []string // Related distributions (e.g., ["debian"])
	PackageManagers []string // Package managers (e.g., ["xbps-install"], ["apt-get", "dpkg"])
}

// DetectOsDistribution parses /etc/os-release and works out which package
// manager installs host software such as the qemu user emulators.
func DetectOsDistribution() (*OsDistribution, error) {
	log := logger.Logger()
	osInfo := &OsDistribution{}

	file, err := os.Open(OsReleaseFile)
	if err != nil {
		return nil, fmt.Errorf("file %s not found: %w", OsReleaseFile, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := parseOsReleaseLine(scanner.Text())
		if !ok {
			continue
		}
		switch key {
		case "NAME":
			osInfo.Name = value
		case "VERSION_ID":
			osInfo.Version = value
		case "ID":
			osInfo.ID = strings.ToLower(value)
		case "ID_LIKE":
			// ID_LIKE can contain multiple space-separated values
			osInfo.IDLike = strings.Fields(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", OsReleaseFile, err)
	}

	osInfo.PackageManagers = detectPackageManagers(osInfo.ID, osInfo.IDLike)
	if len(osInfo.PackageManagers) == 0 {
		log.Warnf("Could not determine package manager for distribution: %s (ID: %s)", osInfo.Name, osInfo.ID)
	}

	log.Debugf("Detected OS distribution: %s %s (ID: %s, Package Managers: %v)",
		osInfo.Name, osInfo.Version, osInfo.ID, osInfo.PackageManagers)

	return osInfo, nil
}

func detectPackageManagers(id string, idLike []string) []string {
	if mgrs := getPackageManagersForID(id); len(mgrs) > 0 {
		return mgrs
	}
	for _, likeID := range idLike {
		if mgrs := getPackageManagersForID(likeID); len(mgrs) > 0 {
			return mgrs
		}
	}
	return detectFromCommands()
}

func getPackageManagersForID(id string) []string {
	switch strings.ToLower(id) {
	case "void":
		return []string{"xbps-install"}
	case "ubuntu", "debian", "linuxmint", "pop", "elementary", "kali", "raspbian":
		return []string{"apt-get", "dpkg"}
	case "fedora", "rhel", "centos", "rocky", "almalinux":
		return []string{"dnf", "rpm"}
	case "opensuse", "opensuse-leap", "opensuse-tumbleweed", "sles":
		return []string{"zypper", "rpm"}
	case "arch", "manjaro", "endeavouros":
		return []string{"pacman"}
	case "alpine":
		return []string{"apk"}
	case "gentoo":
		return []string{"emerge"}
	default:
		return nil
	}
}

// detectFromCommands looks for a known package manager on the host PATH.
func detectFromCommands() []string {
	for _, cmd := range []string{"xbps-install", "apt-get", "dnf", "zypper", "pacman", "apk", "emerge"} {
		exists, err := shell.IsCommandExist(cmd, shell.HostPath)
		if err == nil && exists {
			return []string{cmd}
		}
	}
	return nil
}

// QemuInstallHint returns a one-line suggestion for installing the given
// static emulator on this host. It never fails; an undetectable host gets a
// generic hint.
func QemuInstallHint(emulator string) string {
	generic := fmt.Sprintf("install the static qemu user emulators so that %s is in PATH", emulator)

	osInfo, err := DetectOsDistribution()
	if err != nil || len(osInfo.PackageManagers) == 0 {
		return generic
	}

	switch osInfo.PackageManagers[0] {
	case "xbps-install":
		return "xbps-install -S qemu-user-static"
	case "apt-get":
		return "apt-get install -y qemu-user-static binfmt-support"
	case "dnf":
		return "dnf install -y qemu-user-static"
	case "zypper":
		return "zypper install -y qemu-linux-user"
	case "pacman":
		return "pacman -S qemu-user-static"
	case "apk":
		cpu := strings.TrimSuffix(strings.TrimPrefix(emulator, "qemu-"), "-static")
		return "apk add qemu-" + cpu
	case "emerge":
		return "emerge app-emulation/qemu with USE=static-user"
	default:
		return generic
	}
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/old-void-ppc/void-mklive/internal/config"
	"github.com/old-void-ppc/void-mklive/internal/hostos"
	"github.com/old-void-ppc/void-mklive/internal/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version information, set at build time with -ldflags.
var (
	Version   = "dev"
	CommitSHA = "unknown"
)

// Global flags
var (
	configFile   string
	logLevel     string
	verbose      bool
	globalConfig *config.GlobalConfig
)

// Seams replaced by tests.
var (
	newHost     = func() hostos.Host { return hostos.Default }
	exitProcess = os.Exit
	requireRoot = func() error {
		if os.Geteuid() != 0 {
			return fmt.Errorf("this command must be run as root")
		}
		return nil
	}
)

func main() {
	rootCmd := createRootCommand()
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mklive",
		Short: "Prepare and run commands in Void Linux rootfs trees for any architecture",
		Long: `mklive prepares a Void Linux root filesystem for a target architecture,
registers a static qemu user emulator with binfmt_misc when the host cannot
run target binaries natively, bind-mounts dev, proc and sys and runs commands
inside the rootfs with chroot.`,
		Version:       fmt.Sprintf("%s (%s)", Version, CommitSHA),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to configuration file (default: ./"+config.DefaultConfigFile+" when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	rootCmd.AddCommand(createPlatform2ArchCommand())
	rootCmd.AddCommand(createChrootCommand())
	rootCmd.AddCommand(createRunTargetCommand())
	rootCmd.AddCommand(createCleanupCommand())
	rootCmd.AddCommand(createCheckToolsCommand())

	attachLoggingHooks(rootCmd)
	return rootCmd
}

// normalizeFlagName accepts underscores for dashes and the spellings used
// by the mklive shell scripts.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	name = strings.ReplaceAll(name, "_", "-")
	switch name {
	case "target-arch", "xbps-arch":
		name = "arch"
	case "rootfs-dir", "root-dir":
		name = "rootfs"
	}
	return pflag.NormalizedName(name)
}

// attachLoggingHooks installs the config and logger setup on every
// subcommand so it runs before any of them.
func attachLoggingHooks(root *cobra.Command) {
	for _, cmd := range root.Commands() {
		cmd.PersistentPreRunE = initGlobals
	}
}

func initGlobals(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadGlobalConfig(configFile)
	if err != nil {
		return err
	}
	globalConfig = cfg

	level := resolveRequestedLogLevel(cmd)
	if level == "" {
		level = config.NewConfigHelpers(cfg).LogLevel()
	}
	if err := logger.Init(level); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Logger().Debugf("mklive %s, config %q", Version, configFile)
	return nil
}

// resolveRequestedLogLevel returns the level asked for on the command line:
// --log-level wins, --verbose means debug, otherwise empty.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd == nil {
		return ""
	}
	if flag := cmd.Flags().Lookup("verbose"); flag != nil && flag.Value.String() == "true" {
		return "debug"
	}
	return ""
}

func currentConfig() *config.GlobalConfig {
	if globalConfig == nil {
		return config.DefaultGlobalConfig()
	}
	return globalConfig
}

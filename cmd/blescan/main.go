// Blescan discovers nearby devices and shows them as they are found.
//
// It asks for permission before touching the radio, scans over Bluetooth LE
// (or mDNS on networks without Bluetooth), and lists every device once, in
// the order it was first seen. Results can be followed in the terminal, in a
// live full-screen view, or remotely over HTTP and WebSocket.
//
// Usage:
//
//	blescan [command] [flags]
//
// See 'blescan --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/blescan/internal/config"
	"github.com/muurk/blescan/internal/logging"
	"github.com/muurk/blescan/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	logLevel   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "blescan",
	Short: "Permission-gated device discovery",
	Long: `Discover nearby Bluetooth LE devices (or mDNS services) and list each one
once, in the order it was first seen.

A scan only starts after permission has been granted. The answer is
remembered in the configuration file, so you are asked once.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $"+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file (default: XDG config dir)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("blescan %s\n", version.Get())
	},
}

// loadRegistry loads the configuration from --config or the default location
func loadRegistry() (*config.Registry, error) {
	if configPath != "" {
		return config.LoadRegistryFrom(configPath)
	}
	return config.LoadRegistry()
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srg/vitalink/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var cfgPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vitalinkd",
	Short: "BLE health peripheral daemon",
	Long: `vitalinkd pairs and manages Bluetooth Low Energy health peripherals
(blood pressure cuffs, weight scales) and ingests their measurements:

- Discover nearby pairable health devices
- Pair them and persist durable device records
- Reconnect paired devices across restarts and Bluetooth power cycles
- Decode and normalize measurements into unit-resolved health records`,
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(forgetCmd)

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultConfigPath(), "Config file path")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

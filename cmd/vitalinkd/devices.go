package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/srg/vitalink/internal/config"
	"github.com/srg/vitalink/internal/registry"
)

var devicesFormat string

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List paired devices",
	RunE:  runDevices,
}

func init() {
	devicesCmd.Flags().StringVarP(&devicesFormat, "format", "f", "table", "Output format (table, json)")
}

func runDevices(cmd *cobra.Command, args []string) error {
	if devicesFormat != "table" && devicesFormat != "json" {
		return fmt.Errorf("invalid format %q: must be table or json", devicesFormat)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	store, err := registry.NewFileStore(cfg.StorePath)
	if err != nil {
		return err
	}
	devices, err := store.LoadDevices()
	if err != nil {
		return err
	}

	if devicesFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(devices)
	}

	if len(devices) == 0 {
		fmt.Println("No paired devices.")
		return nil
	}

	header := color.New(color.Bold)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, header.Sprint("ID\tNAME\tTYPE\tMODEL\tBATTERY\tLAST SEEN"))
	for _, d := range devices {
		battery := "-"
		if d.BatteryPercentage != nil {
			battery = fmt.Sprintf("%d%%", *d.BatteryPercentage)
		}
		lastSeen := "never"
		if d.LastSeen != nil {
			lastSeen = d.LastSeen.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Name, d.DeviceType, d.Model, battery, lastSeen)
	}
	return w.Flush()
}

package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/srg/vitalink/internal/config"
	"github.com/srg/vitalink/internal/registry"
)

var forgetCmd = &cobra.Command{
	Use:   "forget <device-id>",
	Short: "Forget a paired device",
	Long: `Remove the paired-device record for the given identity. The device
will reappear as a pairable nearby device the next time it advertises.`,
	Args: cobra.ExactArgs(1),
	RunE: runForget,
}

func runForget(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid device id %q: %w", args[0], err)
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

	kept := devices[:0]
	var found bool
	for _, d := range devices {
		if d.ID == id {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		return fmt.Errorf("no paired device with id %s", id)
	}

	if err := store.SaveDevices(kept); err != nil {
		return err
	}
	fmt.Printf("Forgot device %s\n", id)
	return nil
}

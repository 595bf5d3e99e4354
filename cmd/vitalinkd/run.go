package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/vitalink/internal/config"
	"github.com/srg/vitalink/internal/device"
	"github.com/srg/vitalink/internal/healthsink"
	"github.com/srg/vitalink/internal/measurement"
	"github.com/srg/vitalink/internal/registry"
	"github.com/srg/vitalink/internal/transport/gatt"
	"github.com/srg/vitalink/internal/transport/goble"
)

var (
	runAutoPair bool
	runAutoSave bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the device daemon",
	Long: `Run the daemon: reconcile persisted paired devices, scan for nearby
pairable health peripherals while needed, and ingest measurements.

Without --auto-pair, discoveries are only logged; pairing normally happens
through the pairing UI of an embedding application.`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().BoolVar(&runAutoPair, "auto-pair", false, "Pair every discovered device without confirmation")
	runCmd.Flags().BoolVar(&runAutoSave, "auto-save", false, "Persist measurements without confirmation")
}

// daemon wires the central's discovery callbacks into the registry and the
// measurement pipeline. It is the stand-in for the UI layer.
type daemon struct {
	logger     *logrus.Logger
	registry   *registry.Registry
	central    *goble.Central
	normalizer *measurement.Normalizer
	inbox      *measurement.Inbox
	autoPair   bool
	autoSave   bool
}

func (d *daemon) NearbyPairableDevice(dev device.Device) {
	d.registry.NearbyPairableDevice(dev)

	if !d.autoPair {
		return
	}
	go func() {
		pairable, ok := dev.(device.Pairable)
		if !ok {
			return
		}
		if err := pairable.Pair(context.Background()); err != nil {
			d.logger.WithError(err).WithField("device", dev.ID()).Warn("Pairing failed")
			return
		}
		d.registry.RegisterPairedDevice(context.Background(), dev)
		d.registry.SetPairingUIPresented(false)
		d.attachMeasurementHandler(dev)
		d.syncScanning()
	}()
}

func (d *daemon) HandleDiscardedDevice(dev device.Device) {
	d.registry.HandleDiscardedDevice(dev)
}

func (d *daemon) HandleDeviceStateUpdated(dev device.Device, state device.State) {
	d.registry.HandleDeviceStateUpdated(dev, state)
}

func (d *daemon) attachMeasurementHandler(dev device.Device) {
	source, ok := dev.(device.HealthMeasurementSource)
	if !ok {
		return
	}
	source.SetMeasurementHandler(func(m measurement.BluetoothHealthMeasurement) {
		processed, ok := d.normalizer.Normalize(m)
		if !ok {
			return
		}
		d.inbox.Submit(processed)
		if d.autoSave {
			if err := d.inbox.Save(context.Background()); err != nil {
				d.logger.WithError(err).Error("Failed to save measurement, keeping it pending")
			}
		}
	})
}

func (d *daemon) syncScanning() {
	if err := d.central.Scan(d.registry.ScanningNearbyDevices()); err != nil {
		d.logger.WithError(err).Error("Failed to update scan state")
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg.LogLevel)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	store, err := registry.NewFileStore(cfg.StorePath)
	if err != nil {
		return err
	}
	sink, err := healthsink.NewJSONL(filepath.Join(filepath.Dir(cfg.StorePath), "measurements.jsonl"))
	if err != nil {
		return err
	}

	d := &daemon{
		logger:     logger,
		normalizer: measurement.NewNormalizer(logger),
		inbox:      measurement.NewInbox(sink, logger),
		autoPair:   runAutoPair,
		autoSave:   runAutoSave,
	}

	profiles := make([]goble.Profile, 0, len(cfg.DeviceTypes))
	for _, dt := range cfg.DeviceTypes {
		p := goble.Profile{
			DeviceType:   dt.Type,
			ServiceUUIDs: dt.Services,
			DiscardAfter: time.Duration(cfg.DiscardAfterSeconds) * time.Second,
		}
		// Standard GATT decoders; vendor modules substitute their own.
		switch dt.Type {
		case "weight-scale":
			p.Decoder = gatt.WeightDecoder(0)
			p.Icon = &device.Icon{System: "scalemass.fill"}
		case "blood-pressure-cuff":
			p.Decoder = gatt.BloodPressureDecoder(0)
			p.Icon = &device.Icon{System: "heart.fill"}
		}
		profiles = append(profiles, p)
	}

	central := goble.NewCentral(profiles, d, logger)
	reg := registry.New(central, store, logger)
	d.central = central
	d.registry = reg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed the retrieval cache from persisted addresses so reconciliation
	// can re-attach handles from before the restart.
	for _, info := range reg.PairedDevices() {
		if info.Address == "" {
			continue
		}
		if !central.SeedRetrieved(info.Address, info.DeviceType) {
			logger.WithFields(logrus.Fields{
				"device":     info.ID,
				"deviceType": info.DeviceType,
			}).Info("No profile for persisted device, skipping")
		}
	}

	logger.WithField("devices", len(reg.PairedDevices())).Info("Reconciling paired devices")
	reg.Reconcile(ctx)

	for _, info := range reg.PairedDevices() {
		if dev, ok := reg.LiveHandle(info.ID); ok {
			d.attachMeasurementHandler(dev)
		}
	}

	d.syncScanning()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down")
			return central.Scan(false)
		case ev := <-reg.Events():
			logger.WithFields(logrus.Fields{
				"event":  ev.Kind,
				"device": ev.DeviceID,
			}).Debug("Registry event")
			d.syncScanning()
		}
	}
}

// Package goble implements the transport.Central contract on top of
// github.com/go-ble/ble. It discovers nearby health peripherals matching the
// configured device profiles, tracks them across connections, and serves the
// registry's retrieval path.
package goble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/srg/vitalink/internal/device"
	"github.com/srg/vitalink/internal/measurement"
	"github.com/srg/vitalink/internal/transport"
)

// DeviceFactory creates ble.Device instances (overridden in tests).
var DeviceFactory = func() (ble.Device, error) {
	dev, err := darwin.NewDevice()
	if err != nil {
		if strings.Contains(err.Error(), "central manager has invalid state") {
			return nil, fmt.Errorf("Bluetooth is not ready - %w", err)
		}
		return nil, err
	}
	return dev, nil
}

// addrNamespace seeds deterministic identity UUIDs for transports that
// report plain MAC addresses instead of platform UUIDs.
var addrNamespace = uuid.MustParse("8a3e41de-90f5-4f4c-9d5c-6f32b6a0c8d1")

// IdentityForAddr maps a transport address to the stable identity UUID used
// across the core. Platform-UUID addresses map to themselves.
func IdentityForAddr(addr string) uuid.UUID {
	if id, err := uuid.Parse(addr); err == nil {
		return id
	}
	return uuid.NewSHA1(addrNamespace, []byte(strings.ToLower(addr)))
}

// MeasurementDecoder converts a raw characteristic notification into a typed
// health measurement. Vendor byte-level parsing lives behind this function;
// ok is false for payloads the vendor module does not recognize.
type MeasurementDecoder func(charUUID string, data []byte, dev measurement.DeviceDescriptor) (measurement.BluetoothHealthMeasurement, bool)

// Profile describes one concrete device type the central is configured to
// discover.
type Profile struct {
	// DeviceType is the stable tag stored in paired-device records.
	DeviceType string
	// ServiceUUIDs are the advertised services identifying this type.
	ServiceUUIDs []string
	// Decoder decodes measurement notifications. May be nil for types
	// that pair without emitting measurements through this core.
	Decoder MeasurementDecoder
	// PairingMode lets a vendor module decide from manufacturer data
	// whether the device is advertising pairing mode rather than transfer
	// mode. When nil, every connectable advertisement from an unpaired
	// device counts as pairing mode.
	PairingMode func(manufacturerData []byte) bool
	// Icon optionally names the image the pairing UI shows for this type.
	Icon *device.Icon
	// DiscardAfter drops a discovered device that stopped advertising.
	// Zero means DefaultDiscardAfter.
	DiscardAfter time.Duration
}

// DefaultDiscardAfter is the advertisement silence after which a discovered
// device is reported as discarded.
const DefaultDiscardAfter = 30 * time.Second

// Central is the go-ble-backed transport collaborator.
type Central struct {
	logger   *logrus.Logger
	handler  transport.DiscoveryHandler
	profiles []Profile

	// tracked caches every peripheral seen or retrieved this process
	// lifetime, keyed by identity UUID string. Retrieval after a restart
	// only succeeds for identities present here or reconstructible from
	// the profile's retrieval path.
	tracked *hashmap.Map[string, *Peripheral]

	mu         sync.Mutex
	dev        ble.Device
	scanCancel context.CancelFunc
	sweepStop  chan struct{}
}

// NewCentral creates a central discovering the given profiles and reporting
// discovery lifecycle events to handler.
func NewCentral(profiles []Profile, handler transport.DiscoveryHandler, logger *logrus.Logger) *Central {
	if logger == nil {
		logger = logrus.New()
	}
	return &Central{
		logger:   logger,
		handler:  handler,
		profiles: profiles,
		tracked:  hashmap.New[string, *Peripheral](),
	}
}

// SupportsDeviceType reports whether a profile is registered for deviceType.
func (c *Central) SupportsDeviceType(deviceType string) bool {
	return c.profileFor(deviceType) != nil
}

func (c *Central) profileFor(deviceType string) *Profile {
	for i := range c.profiles {
		if c.profiles[i].DeviceType == deviceType {
			return &c.profiles[i]
		}
	}
	return nil
}

// RetrievePeripheral re-attaches the peripheral instance for a known
// identity. Returns nil when the identity is unknown to the transport cache
// or the device type has no registered profile.
func (c *Central) RetrievePeripheral(id uuid.UUID, deviceType string) device.Device {
	profile := c.profileFor(deviceType)
	if profile == nil {
		return nil
	}

	if p, ok := c.tracked.Get(id.String()); ok {
		return p
	}
	return nil
}

// Track registers an externally constructed peripheral in the retrieval
// cache. Used to seed the cache from persisted addresses at startup.
func (c *Central) Track(p *Peripheral) {
	c.tracked.Set(p.ID().String(), p)
}

// SeedRetrieved reconstructs and tracks a peripheral handle for a persisted
// address so RetrievePeripheral can re-attach it after a restart. Returns
// false when no profile is registered for deviceType.
func (c *Central) SeedRetrieved(addr, deviceType string) bool {
	profile := c.profileFor(deviceType)
	if profile == nil || addr == "" {
		return false
	}
	c.Track(NewRetrievedPeripheral(addr, profile, c, c.logger))
	return true
}

// Scan enables or disables nearby-device scanning.
func (c *Central) Scan(enable bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !enable {
		if c.scanCancel != nil {
			c.scanCancel()
			c.scanCancel = nil
		}
		if c.sweepStop != nil {
			close(c.sweepStop)
			c.sweepStop = nil
		}
		return nil
	}

	if c.scanCancel != nil {
		return nil // already scanning
	}

	if c.dev == nil {
		dev, err := DeviceFactory()
		if err != nil {
			return fmt.Errorf("failed to initialize BLE device: %w", err)
		}
		c.dev = dev
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.scanCancel = cancel
	c.sweepStop = make(chan struct{})

	go func() {
		err := c.dev.Scan(ctx, false, c.handleAdvertisement)
		if err != nil && ctx.Err() == nil {
			c.logger.WithError(err).Error("BLE scan terminated unexpectedly")
		}
	}()
	go c.sweepDiscarded(c.sweepStop)

	return nil
}

// Unpair requests removal of the radio-level association. go-ble manages no
// bond store of its own, so this degrades to dropping the retrieval cache
// entry; the OS bond, if any, is released when the peer re-pairs.
func (c *Central) Unpair(id uuid.UUID) error {
	c.tracked.Del(id.String())
	return nil
}

func (c *Central) handleAdvertisement(adv ble.Advertisement) {
	profile := c.matchProfile(adv)
	if profile == nil {
		return
	}

	id := IdentityForAddr(adv.Addr().String())

	if p, ok := c.tracked.Get(id.String()); ok {
		p.updateFromAdvertisement(adv)
		return
	}

	p := newPeripheral(id, adv.Addr(), profile, c, c.logger)
	p.updateFromAdvertisement(adv)

	if !c.tracked.Insert(id.String(), p) {
		return // lost the race to a concurrent advertisement
	}

	c.logger.WithFields(logrus.Fields{
		"device":     id,
		"deviceType": profile.DeviceType,
		"name":       adv.LocalName(),
	}).Info("Discovered nearby pairable device")

	if c.handler != nil {
		c.handler.NearbyPairableDevice(p)
	}
}

func (c *Central) matchProfile(adv ble.Advertisement) *Profile {
	for i := range c.profiles {
		for _, svc := range c.profiles[i].ServiceUUIDs {
			want, err := ble.Parse(svc)
			if err != nil {
				continue
			}
			for _, got := range adv.Services() {
				if got.Equal(want) {
					return &c.profiles[i]
				}
			}
		}
	}
	return nil
}

// sweepDiscarded periodically reports devices whose advertisements went
// silent as discarded. Connected or paired peripherals are exempt; only
// unclaimed discovery entries age out.
func (c *Central) sweepDiscarded(stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.tracked.Range(func(key string, p *Peripheral) bool {
				if p.State() != device.StateDisconnected || p.Discarded() || p.isClaimed() {
					return true
				}
				discardAfter := p.profile.DiscardAfter
				if discardAfter <= 0 {
					discardAfter = DefaultDiscardAfter
				}
				if now.Sub(p.lastAdvertisement()) < discardAfter {
					return true
				}
				p.markDiscarded()
				c.tracked.Del(key)
				if c.handler != nil {
					c.handler.HandleDiscardedDevice(p)
				}
				return true
			})
		}
	}
}

// notifyStateChanged forwards per-device transport state transitions to the
// discovery handler.
func (c *Central) notifyStateChanged(p *Peripheral, state device.State) {
	if c.handler != nil {
		c.handler.HandleDeviceStateUpdated(p, state)
	}
}

func (c *Central) bleDevice() (ble.Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		dev, err := DeviceFactory()
		if err != nil {
			return nil, err
		}
		c.dev = dev
	}
	return c.dev, nil
}

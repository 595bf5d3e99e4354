// Package registry owns the durable paired-device records, the in-memory
// map of live peripheral handles, and the reconnection policy that ties the
// two together across app restarts, Bluetooth power cycles, and connection
// churn.
package registry

import (
	"context"
	"fmt"
	"time"

	"sync"

	"github.com/cornelk/hashmap"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/vitalink/internal/device"
	"github.com/srg/vitalink/internal/ringchan"
	"github.com/srg/vitalink/internal/transport"
)

// eventBuffer bounds the change-notification ring. A UI that falls behind
// sees the latest events only.
const eventBuffer = 64

// Registry is the single writer for the paired-device list and the live
// handle map. Concrete device instances never mutate registry state
// directly; they call back through the narrow methods below, which are safe
// to call from multiple devices' goroutines concurrently.
type Registry struct {
	logger  *logrus.Logger
	central transport.Central
	store   Store

	// handles maps identity (uuid string) to the live peripheral handle.
	// Owned exclusively by the registry for the process lifetime; never
	// serialized. At most one handle per identity, asserted on insert.
	handles *hashmap.Map[string, device.Device]

	mu         sync.Mutex
	devices    []PairedDeviceInfo
	discovered *orderedmap.OrderedMap[uuid.UUID, device.Device]
	// presentingPairingUI is set when a nearby pairable device appears
	// and cleared by the UI layer when the pairing sheet goes away.
	presentingPairingUI bool

	events *ringchan.RingChannel[Event]
	now    func() time.Time
}

// New creates a registry backed by store and central. Persisted records are
// loaded immediately; call Reconcile to re-attach live handles.
func New(central transport.Central, store Store, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}

	r := &Registry{
		logger:     logger,
		central:    central,
		store:      store,
		handles:    hashmap.New[string, device.Device](),
		discovered: orderedmap.New[uuid.UUID, device.Device](),
		events:     ringchan.New[Event](eventBuffer),
		now:        time.Now,
	}

	devices, err := store.LoadDevices()
	if err != nil {
		// Startup must not block on a bad store; begin with an empty
		// list and let the next successful save repair it.
		logger.WithError(err).Error("Failed to load paired device records")
		return r
	}
	r.devices = devices
	return r
}

// Events returns the registry change-notification channel.
func (r *Registry) Events() <-chan Event {
	return r.events.C()
}

// PairedDevices returns a snapshot of the paired-device records.
func (r *Registry) PairedDevices() []PairedDeviceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PairedDeviceInfo, len(r.devices))
	copy(out, r.devices)
	return out
}

// PairedDevice returns the record for id.
func (r *Registry) PairedDevice(id uuid.UUID) (PairedDeviceInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, info := range r.devices {
		if info.ID == id {
			return info, true
		}
	}
	return PairedDeviceInfo{}, false
}

// DiscoveredDevices returns the nearby unpaired devices in discovery order.
func (r *Registry) DiscoveredDevices() []device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]device.Device, 0, r.discovered.Len())
	for pair := r.discovered.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// LiveHandle returns the live peripheral handle for id, if any.
func (r *Registry) LiveHandle(id uuid.UUID) (device.Device, bool) {
	return r.handles.Get(id.String())
}

// ShouldPresentPairingUI reports whether the pairing sheet was requested.
func (r *Registry) ShouldPresentPairingUI() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presentingPairingUI
}

// SetPairingUIPresented is called by the UI layer when the pairing sheet is
// shown (true) or dismissed (false). While presented, scanning stays active.
func (r *Registry) SetPairingUIPresented(presented bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presentingPairingUI = presented
}

// ScanningNearbyDevices derives the scan policy: scan whenever there are no
// paired devices at all, or the user is actively looking at the pairing UI.
// Scanning continuously once devices are paired would only burn power.
func (r *Registry) ScanningNearbyDevices() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices) == 0 || r.presentingPairingUI
}

// Reconcile re-attaches live handles for persisted records after a restart.
//
// Records are processed sequentially, awaiting each connect attempt before
// moving on, to avoid a thundering herd of simultaneous radio connections.
// Per-record failures are logged and skipped; startup never blocks or alerts
// on a single bad record.
func (r *Registry) Reconcile(ctx context.Context) {
	for _, info := range r.PairedDevices() {
		if _, ok := r.handles.Get(info.ID.String()); ok {
			continue
		}

		log := r.logger.WithFields(logrus.Fields{
			"device":     info.ID,
			"deviceType": info.DeviceType,
		})

		if !r.central.SupportsDeviceType(info.DeviceType) {
			// Device support was removed from the app; the record
			// stays but is inert.
			log.Info("Skipping paired device of unsupported type")
			continue
		}

		dev := r.central.RetrievePeripheral(info.ID, info.DeviceType)
		if dev == nil {
			// The transport cache no longer knows the device: the
			// OS-level association was revoked externally.
			log.Warn("Failed to retrieve peripheral for paired device")
			continue
		}

		r.registerHandle(dev)

		if err := dev.Connect(ctx); err != nil {
			log.WithError(err).Warn("Reconnection attempt failed, will retry on next lifecycle event")
		}
	}
}

// RegisterPairedDevice creates the durable record for a freshly paired
// device. This is the only path that creates a persisted record; the pairing
// session itself persists nothing.
func (r *Registry) RegisterPairedDevice(ctx context.Context, dev device.Device) PairedDeviceInfo {
	log := r.logger.WithField("device", dev.ID())

	// Opportunistic enrichment: tolerate read failures, a degraded record
	// beats a failed pairing.
	var battery *uint8
	if b, ok := dev.(device.BatteryPowered); ok {
		if pct, err := b.ReadBattery(ctx); err != nil {
			log.WithError(err).Debug("Battery read failed during registration")
		} else {
			battery = &pct
		}
	}

	model := dev.Model()
	if model == "" {
		if ip, ok := dev.(device.InformationProvider); ok {
			if m, err := ip.ReadModelNumber(ctx); err != nil {
				log.WithError(err).Debug("Model number read failed during registration")
			} else {
				model = m
			}
		}
	}

	var icon *device.Icon
	if ip, ok := dev.(device.IconProvider); ok {
		icon = ip.Icon()
	}

	var address string
	if a, ok := dev.(transport.Addressable); ok {
		address = a.Address()
	}

	info := PairedDeviceInfo{
		ID:                dev.ID(),
		DeviceType:        dev.DeviceType(),
		Name:              truncateName(dev.Name()),
		Model:             model,
		Address:           address,
		Icon:              icon,
		BatteryPercentage: battery,
	}

	r.mu.Lock()
	r.devices = append(r.devices, info)
	r.discovered.Delete(dev.ID())
	r.mu.Unlock()

	r.registerHandle(dev)
	r.persist()
	r.events.Send(Event{Kind: EventDevicePaired, DeviceID: info.ID})
	return info
}

// NearbyPairableDevice tracks a new nearby candidate and requests the
// pairing UI. Idempotent: an already-tracked or already-paired device is
// ignored.
func (r *Registry) NearbyPairableDevice(dev device.Device) {
	id := dev.ID()

	r.mu.Lock()
	if r.isPairedLocked(id) {
		r.mu.Unlock()
		return
	}
	if _, tracked := r.discovered.Get(id); tracked {
		r.mu.Unlock()
		return
	}
	r.discovered.Set(id, dev)
	r.presentingPairingUI = true
	r.mu.Unlock()

	r.events.Send(Event{Kind: EventDeviceDiscovered, DeviceID: id})
}

// HandleDiscardedDevice drops a device from the discovery map when the
// transport layer signals it is no longer nearby. Paired-device records are
// unaffected.
func (r *Registry) HandleDiscardedDevice(dev device.Device) {
	id := dev.ID()

	r.mu.Lock()
	_, tracked := r.discovered.Get(id)
	r.discovered.Delete(id)
	r.mu.Unlock()

	if tracked {
		r.events.Send(Event{Kind: EventDeviceDiscarded, DeviceID: id})
	}
}

// HandleDeviceStateUpdated reacts to transport state transitions of tracked
// devices. A disconnect of a paired device stamps LastSeen and schedules an
// automatic reconnect; reconnect failures are swallowed and retried on the
// next lifecycle event.
func (r *Registry) HandleDeviceStateUpdated(dev device.Device, state device.State) {
	if state != device.StateDisconnected {
		return
	}

	id := dev.ID()

	r.mu.Lock()
	var updated bool
	for i := range r.devices {
		if r.devices[i].ID == id {
			now := r.now()
			r.devices[i].LastSeen = &now
			updated = true
			break
		}
	}
	r.mu.Unlock()

	// Unpaired disconnects are not our concern.
	if !updated {
		return
	}

	r.persist()
	r.events.Send(Event{Kind: EventDeviceUpdated, DeviceID: id})

	go func() {
		if err := dev.Connect(context.Background()); err != nil {
			r.logger.WithError(err).WithField("device", id).
				Debug("Background reconnect failed, will retry on next lifecycle event")
		}
	}()
}

// UpdateBattery records a fresh battery reading for a paired device. A
// reading for an unpaired (merely discovered) device is a no-op.
func (r *Registry) UpdateBattery(dev device.Device, percentage uint8) {
	id := dev.ID()

	r.mu.Lock()
	var updated bool
	for i := range r.devices {
		if r.devices[i].ID == id {
			pct := percentage
			r.devices[i].BatteryPercentage = &pct
			updated = true
			break
		}
	}
	r.mu.Unlock()

	if !updated {
		return
	}

	r.persist()
	r.events.Send(Event{Kind: EventDeviceUpdated, DeviceID: id})
}

// ErrNotPaired is returned for mutations on identities without a record.
var ErrNotPaired = fmt.Errorf("device is not paired")

// RenameDevice updates the user-editable display name, truncated to
// MaxNameLength runes.
func (r *Registry) RenameDevice(id uuid.UUID, name string) error {
	r.mu.Lock()
	var updated bool
	for i := range r.devices {
		if r.devices[i].ID == id {
			r.devices[i].Name = truncateName(name)
			updated = true
			break
		}
	}
	r.mu.Unlock()

	if !updated {
		return ErrNotPaired
	}

	r.persist()
	r.events.Send(Event{Kind: EventDeviceUpdated, DeviceID: id})
	return nil
}

// ForgetDevice removes the paired-device record, disconnects and drops the
// live handle if present, and requests radio-level unpairing best-effort.
// The discovery map is left alone; rediscovery repopulates it naturally.
func (r *Registry) ForgetDevice(id uuid.UUID) error {
	r.mu.Lock()
	kept := r.devices[:0]
	var found bool
	for _, info := range r.devices {
		if info.ID == id {
			found = true
			continue
		}
		kept = append(kept, info)
	}
	r.devices = kept
	r.mu.Unlock()

	if !found {
		return ErrNotPaired
	}

	if dev, ok := r.handles.Get(id.String()); ok {
		r.handles.Del(id.String())
		if err := dev.Disconnect(); err != nil {
			r.logger.WithError(err).WithField("device", id).Warn("Disconnect on forget failed")
		}
	}

	if err := r.central.Unpair(id); err != nil {
		r.logger.WithError(err).WithField("device", id).Warn("Radio-level unpair request failed")
	}

	r.persist()
	r.events.Send(Event{Kind: EventDeviceForgotten, DeviceID: id})
	return nil
}

// registerHandle inserts the live handle for dev. A second handle for an
// already-registered identity is a programming error and must not be papered
// over; it panics.
func (r *Registry) registerHandle(dev device.Device) {
	if !r.handles.Insert(dev.ID().String(), dev) {
		panic(fmt.Sprintf("registry: duplicate live handle for device %s", dev.ID()))
	}
}

func (r *Registry) isPairedLocked(id uuid.UUID) bool {
	for _, info := range r.devices {
		if info.ID == id {
			return true
		}
	}
	return false
}

// persist writes the paired-device list through the store. Best-effort: a
// failed save is logged and the in-memory state stays authoritative.
func (r *Registry) persist() {
	r.mu.Lock()
	snapshot := make([]PairedDeviceInfo, len(r.devices))
	copy(snapshot, r.devices)
	r.mu.Unlock()

	if err := r.store.SaveDevices(snapshot); err != nil {
		r.logger.WithError(err).Error("Failed to persist paired device records")
	}
}

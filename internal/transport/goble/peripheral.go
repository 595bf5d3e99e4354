package goble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/srg/vitalink/internal/device"
	"github.com/srg/vitalink/internal/measurement"
	"github.com/srg/vitalink/internal/pairing"
)

// Standard GATT assigned numbers used across all health profiles.
const (
	batteryServiceUUID    = "180f"
	batteryLevelCharUUID  = "2a19"
	deviceInfoServiceUUID = "180a"

	modelNumberCharUUID      = "2a24"
	firmwareRevisionCharUUID = "2a26"
	hardwareRevisionCharUUID = "2a27"
	softwareRevisionCharUUID = "2a28"
	manufacturerNameCharUUID = "2a29"
)

const connectTimeout = 10 * time.Second

// Peripheral is a live BLE health peripheral handle. It implements
// device.Device plus the Pairable, BatteryPowered, InformationProvider,
// HealthMeasurementSource and IconProvider capabilities.
type Peripheral struct {
	id      uuid.UUID
	addr    ble.Addr
	profile *Profile
	central *Central
	logger  *logrus.Logger
	session *pairing.Session

	mu          sync.RWMutex
	name        string
	state       device.State
	client      ble.Client
	gatt        *ble.Profile
	pairingMode bool
	discarded   bool
	claimed     bool
	lastAdv     time.Time
	info        measurement.DeviceDescriptor
	handler     device.MeasurementHandler
}

func newPeripheral(id uuid.UUID, addr ble.Addr, profile *Profile, central *Central, logger *logrus.Logger) *Peripheral {
	p := &Peripheral{
		id:      id,
		addr:    addr,
		profile: profile,
		central: central,
		logger:  logger,
		state:   device.StateDisconnected,
		lastAdv: time.Now(),
	}
	p.session = pairing.NewSession(p, nil, logger)
	return p
}

// NewRetrievedPeripheral reconstructs a peripheral handle for a persisted
// identity and address, used to seed the retrieval cache at startup.
func NewRetrievedPeripheral(addr string, profile *Profile, central *Central, logger *logrus.Logger) *Peripheral {
	p := newPeripheral(IdentityForAddr(addr), ble.NewAddr(addr), profile, central, logger)
	// Retrieved handles belong to paired devices; the discovery sweep must
	// not age them out.
	p.claimed = true
	return p
}

func (p *Peripheral) ID() uuid.UUID      { return p.id }
func (p *Peripheral) DeviceType() string { return p.profile.DeviceType }
func (p *Peripheral) Address() string    { return p.addr.String() }

func (p *Peripheral) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.name != "" {
		return p.name
	}
	return p.addr.String()
}

func (p *Peripheral) Model() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info.ModelNumber
}

func (p *Peripheral) State() device.State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// InPairingMode reports whether the latest advertisement signaled pairing
// readiness.
func (p *Peripheral) InPairingMode() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pairingMode
}

// Discarded reports whether the central dropped this device from discovery.
func (p *Peripheral) Discarded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.discarded
}

// Pair runs one pairing attempt through the device's pairing session.
func (p *Peripheral) Pair(ctx context.Context) error {
	return p.session.Pair(ctx)
}

// Icon resolves the image the pairing UI shows for this device type.
func (p *Peripheral) Icon() *device.Icon {
	return p.profile.Icon
}

// SetMeasurementHandler installs the decoded-measurement callback.
func (p *Peripheral) SetMeasurementHandler(fn device.MeasurementHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = fn
}

// DeviceInformation returns the identification strings read so far.
func (p *Peripheral) DeviceInformation() measurement.DeviceDescriptor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	info := p.info
	if info.Name == "" {
		info.Name = p.name
	}
	return info
}

func (p *Peripheral) updateFromAdvertisement(adv ble.Advertisement) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if name := adv.LocalName(); name != "" {
		p.name = name
	}
	p.lastAdv = time.Now()
	p.discarded = false

	if p.profile.PairingMode != nil {
		p.pairingMode = p.profile.PairingMode(adv.ManufacturerData())
	} else {
		p.pairingMode = adv.Connectable()
	}
}

func (p *Peripheral) lastAdvertisement() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastAdv
}

func (p *Peripheral) isClaimed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.claimed
}

func (p *Peripheral) markDiscarded() {
	p.mu.Lock()
	p.discarded = true
	p.mu.Unlock()
}

func (p *Peripheral) setState(state device.State) {
	p.mu.Lock()
	if p.state == state {
		p.mu.Unlock()
		return
	}
	p.state = state
	p.mu.Unlock()

	p.central.notifyStateChanged(p, state)
}

// Connect dials the peripheral, discovers its GATT database, and subscribes
// to the notifying characteristics of the profile's services. Every inbound
// notification feeds the pairing session's interaction signal before any
// decoding happens.
func (p *Peripheral) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.state != device.StateDisconnected {
		p.mu.Unlock()
		return fmt.Errorf("device %s is %s", p.id, p.state)
	}
	p.state = device.StateConnecting
	p.mu.Unlock()
	p.central.notifyStateChanged(p, device.StateConnecting)

	dev, err := p.central.bleDevice()
	if err != nil {
		p.setState(device.StateDisconnected)
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := dev.Dial(dialCtx, p.addr)
	if err != nil {
		p.setState(device.StateDisconnected)
		return fmt.Errorf("failed to connect to %s: %w", p.addr, err)
	}

	gatt, err := client.DiscoverProfile(true)
	if err != nil {
		_ = client.CancelConnection()
		p.setState(device.StateDisconnected)
		return fmt.Errorf("failed to discover services on %s: %w", p.addr, err)
	}

	p.mu.Lock()
	p.client = client
	p.gatt = gatt
	// A device we connected to is no longer a mere discovery candidate and
	// must not age out of the retrieval cache.
	p.claimed = true
	p.mu.Unlock()
	p.setState(device.StateConnected)

	if err := p.subscribeNotifications(client, gatt); err != nil {
		// Subscription problems degrade the session; the connection
		// itself is still useful for reads.
		p.logger.WithError(err).WithField("device", p.id).Warn("Characteristic subscription failed")
	}

	go p.watchDisconnect(client)
	return nil
}

// Disconnect tears the connection down. Safe to call when not connected.
func (p *Peripheral) Disconnect() error {
	p.mu.Lock()
	client := p.client
	if client == nil {
		p.mu.Unlock()
		return nil
	}
	p.state = device.StateDisconnecting
	p.mu.Unlock()
	p.central.notifyStateChanged(p, device.StateDisconnecting)

	return client.CancelConnection()
}

func (p *Peripheral) watchDisconnect(client ble.Client) {
	<-client.Disconnected()

	p.mu.Lock()
	p.client = nil
	p.gatt = nil
	p.mu.Unlock()

	// The pairing session must learn about the drop before the registry
	// schedules any reconnect.
	p.session.HandleDeviceDisconnected()
	p.setState(device.StateDisconnected)
}

// subscribeNotifications subscribes to every notify/indicate characteristic
// within the profile's services.
func (p *Peripheral) subscribeNotifications(client ble.Client, gatt *ble.Profile) error {
	var firstErr error
	for _, svc := range gatt.Services {
		if !p.profileService(svc.UUID) {
			continue
		}
		for _, char := range svc.Characteristics {
			if char.Property&(ble.CharNotify|ble.CharIndicate) == 0 {
				continue
			}
			c := char
			useIndications := c.Property&ble.CharNotify == 0
			err := client.Subscribe(c, useIndications, func(data []byte) {
				p.handleNotification(c.UUID.String(), data)
			})
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("subscribe %s: %w", c.UUID, err)
			}
		}
	}
	return firstErr
}

func (p *Peripheral) profileService(u ble.UUID) bool {
	for _, svc := range p.profile.ServiceUUIDs {
		if want, err := ble.Parse(svc); err == nil && u.Equal(want) {
			return true
		}
	}
	// Battery level notifications count as interactions too; several
	// vendors use them to signal pairing readiness.
	if want, err := ble.Parse(batteryServiceUUID); err == nil && u.Equal(want) {
		return true
	}
	return false
}

func (p *Peripheral) handleNotification(charUUID string, data []byte) {
	// Any application data from the device resolves a pending pairing
	// attempt, regardless of which characteristic carried it.
	p.session.HandleDeviceInteraction()

	p.mu.RLock()
	decoder := p.profile.Decoder
	handler := p.handler
	info := p.info
	if info.Name == "" {
		info.Name = p.name
	}
	p.mu.RUnlock()

	if decoder == nil || handler == nil {
		return
	}
	if m, ok := decoder(charUUID, data, info); ok {
		handler(m)
	}
}

// ReadBattery reads the battery level characteristic.
func (p *Peripheral) ReadBattery(ctx context.Context) (uint8, error) {
	data, err := p.readCharacteristic(ctx, batteryServiceUUID, batteryLevelCharUUID)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("empty battery level value from %s", p.id)
	}
	return data[0], nil
}

// ReadModelNumber reads the model number string and caches it in the device
// descriptor.
func (p *Peripheral) ReadModelNumber(ctx context.Context) (string, error) {
	data, err := p.readCharacteristic(ctx, deviceInfoServiceUUID, modelNumberCharUUID)
	if err != nil {
		return "", err
	}
	model := string(data)

	p.mu.Lock()
	p.info.ModelNumber = model
	p.mu.Unlock()
	return model, nil
}

// ReadDeviceInformation reads the full device information service,
// tolerating individual characteristic failures.
func (p *Peripheral) ReadDeviceInformation(ctx context.Context) measurement.DeviceDescriptor {
	fields := []struct {
		char string
		dst  func(info *measurement.DeviceDescriptor, v string)
	}{
		{manufacturerNameCharUUID, func(i *measurement.DeviceDescriptor, v string) { i.Manufacturer = v }},
		{modelNumberCharUUID, func(i *measurement.DeviceDescriptor, v string) { i.ModelNumber = v }},
		{hardwareRevisionCharUUID, func(i *measurement.DeviceDescriptor, v string) { i.HardwareRevision = v }},
		{firmwareRevisionCharUUID, func(i *measurement.DeviceDescriptor, v string) { i.FirmwareRevision = v }},
		{softwareRevisionCharUUID, func(i *measurement.DeviceDescriptor, v string) { i.SoftwareRevision = v }},
	}

	for _, f := range fields {
		data, err := p.readCharacteristic(ctx, deviceInfoServiceUUID, f.char)
		if err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"device":         p.id,
				"characteristic": f.char,
			}).Debug("Device information read failed")
			continue
		}
		p.mu.Lock()
		f.dst(&p.info, string(data))
		p.mu.Unlock()
	}

	return p.DeviceInformation()
}

func (p *Peripheral) readCharacteristic(_ context.Context, svcUUID, charUUID string) ([]byte, error) {
	p.mu.RLock()
	client := p.client
	gatt := p.gatt
	p.mu.RUnlock()

	if client == nil || gatt == nil {
		return nil, fmt.Errorf("device %s is not connected", p.id)
	}

	wantSvc, err := ble.Parse(svcUUID)
	if err != nil {
		return nil, err
	}
	wantChar, err := ble.Parse(charUUID)
	if err != nil {
		return nil, err
	}

	for _, svc := range gatt.Services {
		if !svc.UUID.Equal(wantSvc) {
			continue
		}
		for _, char := range svc.Characteristics {
			if char.UUID.Equal(wantChar) {
				return client.ReadCharacteristic(char)
			}
		}
	}
	return nil, fmt.Errorf("characteristic %s/%s not found on %s", svcUUID, charUUID, p.id)
}

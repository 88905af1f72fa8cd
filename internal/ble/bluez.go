//go:build linux

package ble

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// BlueZ D-Bus names.
const (
	bluezBusName     = "org.bluez"
	adapterIface     = "org.bluez.Adapter1"
	deviceIface      = "org.bluez.Device1"
	gattServiceIface = "org.bluez.GattService1"
	gattCharIface    = "org.bluez.GattCharacteristic1"
	propsIface       = "org.freedesktop.DBus.Properties"
	objectManager    = "org.freedesktop.DBus.ObjectManager"
)

// managedObjects is the shape GetManagedObjects returns: object path →
// interface name → property name → value.
type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// BluezBackend talks to BlueZ directly over the system D-Bus. Unlike
// the tinygo backend it sees GattCharacteristic1 Flags, so it can
// offer both write modes to the resolver.
type BluezBackend struct {
	conn *dbus.Conn
}

// NewBluezBackend connects to the system bus and verifies BlueZ is
// actually on it.
func NewBluezBackend() (*BluezBackend, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	for _, n := range names {
		if n == bluezBusName {
			return &BluezBackend{conn: conn}, nil
		}
	}
	conn.Close()
	return nil, fmt.Errorf("org.bluez not found on system bus — is bluetooth.service running?")
}

func (b *BluezBackend) Name() string { return "bluez" }

// Enable checks that at least the bus connection is healthy. Powering
// the adapter happens lazily per scan so that a host that grows an
// adapter later still works.
func (b *BluezBackend) Enable() error {
	if b.conn == nil {
		return fmt.Errorf("bluez: bus connection closed")
	}
	return nil
}

// Close releases the bus connection.
func (b *BluezBackend) Close() {
	b.conn.Close()
}

func (b *BluezBackend) getManagedObjects() (managedObjects, error) {
	var objects managedObjects
	err := b.conn.Object(bluezBusName, "/").
		Call(objectManager+".GetManagedObjects", 0).Store(&objects)
	if err != nil {
		return nil, fmt.Errorf("get managed objects: %w", err)
	}
	return objects, nil
}

// adapters returns the object paths of all org.bluez.Adapter1 objects.
func (b *BluezBackend) adapters() ([]dbus.ObjectPath, error) {
	objects, err := b.getManagedObjects()
	if err != nil {
		return nil, err
	}
	var paths []dbus.ObjectPath
	for path, ifaces := range objects {
		if _, ok := ifaces[adapterIface]; ok {
			paths = append(paths, path)
		}
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	return paths, nil
}

func (b *BluezBackend) setProp(path dbus.ObjectPath, iface, prop string, val any) error {
	return b.conn.Object(bluezBusName, path).
		Call(propsIface+".Set", 0, iface, prop, dbus.MakeVariant(val)).Err
}

// Scan powers the first adapter, runs discovery for the timeout window
// and reports every org.bluez.Device1 object known afterwards. A host
// without adapters invokes found for nothing and returns nil.
func (b *BluezBackend) Scan(ctx context.Context, timeout time.Duration, found func(Device)) error {
	adapters, err := b.adapters()
	if err != nil {
		return err
	}
	if len(adapters) == 0 {
		return nil
	}
	adapter := adapters[0]

	if err := b.setProp(adapter, adapterIface, "Powered", true); err != nil {
		return fmt.Errorf("power adapter: %w", err)
	}

	obj := b.conn.Object(bluezBusName, adapter)
	if err := obj.Call(adapterIface+".StartDiscovery", 0).Err; err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(timeout):
	}
	if err := obj.Call(adapterIface+".StopDiscovery", 0).Err; err != nil {
		return fmt.Errorf("stop discovery: %w", err)
	}

	objects, err := b.getManagedObjects()
	if err != nil {
		return err
	}
	for path, ifaces := range objects {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		addr, _ := props["Address"].Value().(string)
		name, _ := props["Alias"].Value().(string)
		if name == "" {
			name, _ = props["Name"].Value().(string)
		}
		found(Device{Name: name, Address: addr, Handle: path})
	}
	return nil
}

func (b *BluezBackend) Connect(ctx context.Context, dev Device) (Connection, error) {
	path, ok := dev.Handle.(dbus.ObjectPath)
	if !ok {
		// A device picked from config rather than a scan: derive the
		// BlueZ object path from the address on the first adapter.
		adapters, err := b.adapters()
		if err != nil {
			return nil, err
		}
		if len(adapters) == 0 {
			return nil, fmt.Errorf("no bluetooth adapters")
		}
		path = deviceObjectPath(adapters[0], dev.Address)
	}

	obj := b.conn.Object(bluezBusName, path)
	call := obj.CallWithContext(ctx, deviceIface+".Connect", 0)
	if call.Err != nil {
		return nil, call.Err
	}

	conn := &bluezConnection{backend: b, path: path, done: make(chan struct{})}
	conn.watchDisconnect()
	return conn, nil
}

var _ Backend = (*BluezBackend)(nil)

// deviceObjectPath converts "AA:BB:CC:DD:EE:FF" under an adapter to
// the BlueZ form ".../dev_AA_BB_CC_DD_EE_FF".
func deviceObjectPath(adapter dbus.ObjectPath, addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(addr), ":", "_")
	return dbus.ObjectPath(string(adapter) + "/dev_" + escaped)
}

type bluezConnection struct {
	backend *BluezBackend
	path    dbus.ObjectPath
	done    chan struct{}

	// mu protects disconnectCb: the signal watcher fires it from its
	// own goroutine.
	mu           sync.Mutex
	disconnectCb func()
}

// watchDisconnect subscribes to PropertiesChanged on the device path
// and fires the callback when Connected flips to false. The watcher
// stops on an explicit Disconnect so a replaced link does not keep a
// listener alive.
func (c *bluezConnection) watchDisconnect() {
	conn := c.backend.conn
	conn.BusObject().Call(
		"org.freedesktop.DBus.AddMatch", 0,
		"type='signal',interface='"+propsIface+"',member='PropertiesChanged',path='"+string(c.path)+"'",
	)
	ch := make(chan *dbus.Signal, 16)
	conn.Signal(ch)

	go func() {
		defer conn.RemoveSignal(ch)
		for {
			var sig *dbus.Signal
			select {
			case <-c.done:
				return
			case sig = <-ch:
			}
			if sig == nil || sig.Path != c.path || len(sig.Body) < 2 {
				continue
			}
			iface, _ := sig.Body[0].(string)
			if iface != deviceIface {
				continue
			}
			changed, _ := sig.Body[1].(map[string]dbus.Variant)
			v, ok := changed["Connected"]
			if !ok {
				continue
			}
			if connected, _ := v.Value().(bool); !connected {
				c.fireDisconnect()
				return
			}
		}
	}()
}

func (c *bluezConnection) fireDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Services waits for BlueZ to finish GATT discovery, then assembles
// the service/characteristic tree from the object manager.
func (c *bluezConnection) Services() ([]Service, error) {
	if err := c.waitServicesResolved(10 * time.Second); err != nil {
		return nil, err
	}

	objects, err := c.backend.getManagedObjects()
	if err != nil {
		return nil, err
	}

	prefix := string(c.path) + "/"
	services := make(map[dbus.ObjectPath]*bluezService)
	for path, ifaces := range objects {
		props, ok := ifaces[gattServiceIface]
		if !ok || !strings.HasPrefix(string(path), prefix) {
			continue
		}
		uuid, _ := props["UUID"].Value().(string)
		services[path] = &bluezService{uuid: strings.ToLower(uuid)}
	}
	for path, ifaces := range objects {
		props, ok := ifaces[gattCharIface]
		if !ok || !strings.HasPrefix(string(path), prefix) {
			continue
		}
		svcPath, _ := props["Service"].Value().(dbus.ObjectPath)
		svc, ok := services[svcPath]
		if !ok {
			continue
		}
		uuid, _ := props["UUID"].Value().(string)
		flags, _ := props["Flags"].Value().([]string)
		ch := &bluezCharacteristic{
			backend: c.backend,
			path:    path,
			uuid:    strings.ToLower(uuid),
		}
		for _, f := range flags {
			switch f {
			case "write":
				ch.writable = true
			case "write-without-response":
				ch.writableNoRsp = true
			}
		}
		svc.chars = append(svc.chars, ch)
	}

	out := make([]Service, 0, len(services))
	for _, svc := range services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID() < out[j].UUID() })
	return out, nil
}

// waitServicesResolved polls the ServicesResolved property. BlueZ
// populates GATT objects asynchronously after Connect returns.
func (c *bluezConnection) waitServicesResolved(timeout time.Duration) error {
	obj := c.backend.conn.Object(bluezBusName, c.path)
	deadline := time.Now().Add(timeout)
	for {
		var v dbus.Variant
		if err := obj.Call(propsIface+".Get", 0, deviceIface, "ServicesResolved").Store(&v); err != nil {
			return fmt.Errorf("get ServicesResolved: %w", err)
		}
		if resolved, _ := v.Value().(bool); resolved {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("gatt discovery timed out after %s", timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func (c *bluezConnection) Disconnect() error {
	c.mu.Lock()
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	c.mu.Unlock()
	return c.backend.conn.Object(bluezBusName, c.path).
		Call(deviceIface+".Disconnect", 0).Err
}

func (c *bluezConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	c.disconnectCb = cb
	c.mu.Unlock()
}

type bluezService struct {
	uuid  string
	chars []Characteristic
}

func (s *bluezService) UUID() string { return s.uuid }
func (s *bluezService) Characteristics() []Characteristic { return s.chars }

type bluezCharacteristic struct {
	backend       *BluezBackend
	path          dbus.ObjectPath
	uuid          string
	writable      bool
	writableNoRsp bool
}

func (c *bluezCharacteristic) UUID() string { return c.uuid }
func (c *bluezCharacteristic) Writable() bool { return c.writable }
func (c *bluezCharacteristic) WritableWithoutResponse() bool { return c.writableNoRsp }

func (c *bluezCharacteristic) Write(data []byte, withResponse bool) error {
	mode := "command"
	if withResponse {
		mode = "request"
	}
	options := map[string]dbus.Variant{"type": dbus.MakeVariant(mode)}
	return c.backend.conn.Object(bluezBusName, c.path).
		Call(gattCharIface+".WriteValue", 0, data, options).Err
}

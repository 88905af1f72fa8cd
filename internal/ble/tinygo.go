package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// TinygoBackend drives tinygo-org/bluetooth, which binds CoreBluetooth
// on macOS, BlueZ on Linux and WinRT on Windows. It is the preferred
// backend when it initializes.
//
// The library only exposes unacknowledged writes on discovered
// characteristics and no property flags, so every characteristic is
// reported as writable-without-response only.
type TinygoBackend struct {
	adapter *bluetooth.Adapter

	// mu protects the connections map.
	mu          sync.Mutex
	connections map[string]*tinygoConnection // keyed by device address
}

// NewTinygoBackend wraps the default adapter.
func NewTinygoBackend() *TinygoBackend {
	return &TinygoBackend{
		adapter:     bluetooth.DefaultAdapter,
		connections: make(map[string]*tinygoConnection),
	}
}

func (b *TinygoBackend) Name() string { return "tinygo" }

func (b *TinygoBackend) Enable() error {
	if err := b.adapter.Enable(); err != nil {
		return err
	}

	// The adapter-level handler is the only place the library reports
	// peripheral disconnects.
	b.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		addr := device.Address.String()
		b.mu.Lock()
		conn, ok := b.connections[addr]
		delete(b.connections, addr)
		b.mu.Unlock()
		if ok {
			conn.fireDisconnect()
		}
	})

	return nil
}

func (b *TinygoBackend) Scan(ctx context.Context, timeout time.Duration, found func(Device)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			b.adapter.StopScan()
		case <-done:
		}
	}()

	err := b.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		found(Device{
			Name:    result.LocalName(),
			Address: result.Address.String(),
		})
	})
	close(done)

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("scan: %w", err)
	}
	return nil
}

func (b *TinygoBackend) Connect(ctx context.Context, dev Device) (Connection, error) {
	var addr bluetooth.Address
	addr.Set(dev.Address)

	// The library's Connect blocks with its own internal timeout. Run
	// it on the side so ctx cancellation returns promptly.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := b.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-ch:
		if result.err != nil {
			return nil, result.err
		}
		conn := &tinygoConnection{backend: b, address: dev.Address, device: result.device}

		b.mu.Lock()
		b.connections[dev.Address] = conn
		b.mu.Unlock()

		return conn, nil
	}
}

// forget drops conn from the address map if it is still the one
// registered there. A connection replaced by a newer link to the same
// address stays out of the way.
func (b *TinygoBackend) forget(conn *tinygoConnection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connections[conn.address] == conn {
		delete(b.connections, conn.address)
	}
}

var _ Backend = (*TinygoBackend)(nil)

type tinygoConnection struct {
	backend *TinygoBackend
	address string
	device  bluetooth.Device

	// mu protects disconnectCb: the adapter-level connect handler
	// fires it from the library's own goroutine.
	mu           sync.Mutex
	disconnectCb func()
}

func (c *tinygoConnection) Services() ([]Service, error) {
	svcs, err := c.device.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("discover services: %w", err)
	}

	services := make([]Service, 0, len(svcs))
	for i := range svcs {
		chars, err := svcs[i].DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("discover characteristics of %s: %w", svcs[i].UUID().String(), err)
		}
		svc := &tinygoService{uuid: strings.ToLower(svcs[i].UUID().String())}
		for j := range chars {
			svc.chars = append(svc.chars, &tinygoCharacteristic{
				uuid: strings.ToLower(chars[j].UUID().String()),
				char: chars[j],
			})
		}
		services = append(services, svc)
	}
	return services, nil
}

func (c *tinygoConnection) Disconnect() error {
	c.backend.forget(c)
	return c.device.Disconnect()
}

func (c *tinygoConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	c.disconnectCb = cb
	c.mu.Unlock()
}

func (c *tinygoConnection) fireDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type tinygoService struct {
	uuid  string
	chars []Characteristic
}

func (s *tinygoService) UUID() string { return s.uuid }
func (s *tinygoService) Characteristics() []Characteristic { return s.chars }

type tinygoCharacteristic struct {
	uuid string
	char bluetooth.DeviceCharacteristic
}

func (c *tinygoCharacteristic) UUID() string { return c.uuid }
func (c *tinygoCharacteristic) Writable() bool { return false }
func (c *tinygoCharacteristic) WritableWithoutResponse() bool { return true }

func (c *tinygoCharacteristic) Write(data []byte, _ bool) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}

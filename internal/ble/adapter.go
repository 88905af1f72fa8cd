// Package ble provides the BLE HID keyboard transport: device
// discovery, connection management and resolution of the GATT
// characteristic that accepts HID keyboard reports. All radio access
// goes through the Backend interface, with one implementation per
// underlying BLE library.
package ble

import (
	"context"
	"time"
)

// Standard Bluetooth SIG UUIDs for HID over GATT.
const (
	HIDServiceUUID   = "00001812-0000-1000-8000-00805f9b34fb"
	HIDReportUUID    = "00002a4d-0000-1000-8000-00805f9b34fb"
	HIDReportMapUUID = "00002a4b-0000-1000-8000-00805f9b34fb"
)

// Device is a discovered BLE peripheral. Address is the stable
// transport identity (MAC, or a CoreBluetooth UUID on macOS) and is
// what scan deduplication keys on. Handle is a backend-private
// reference passed back to the same backend's Connect.
type Device struct {
	Name    string
	Address string
	Handle  any
}

// Characteristic is a backend-neutral view of one GATT characteristic
// on a connected peer.
type Characteristic interface {
	// UUID returns the characteristic UUID in canonical lowercase form.
	UUID() string
	// Writable reports whether the peer accepts writes with response.
	Writable() bool
	// WritableWithoutResponse reports whether the peer accepts
	// unacknowledged writes.
	WritableWithoutResponse() bool
	// Write sends data to the characteristic using the given mode.
	Write(data []byte, withResponse bool) error
}

// Service is one GATT service and its characteristics.
type Service interface {
	UUID() string
	Characteristics() []Characteristic
}

// Connection is an active link to a peripheral.
type Connection interface {
	// Services enumerates the peer's GATT services with their
	// characteristics.
	Services() ([]Service, error)
	// Disconnect tears down the link.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the link drops.
	OnDisconnect(callback func())
}

// Backend abstracts one concrete BLE library. Implementations are
// constructed once at startup (see Probe) and passed explicitly to the
// scanner and connection manager.
type Backend interface {
	// Name identifies the backend in logs ("tinygo", "bluez").
	Name() string
	// Enable powers on the adapter. An error here means the backend
	// is unusable on this host.
	Enable() error
	// Scan runs one discovery pass, invoking found for every
	// advertisement observed, until ctx is cancelled or timeout
	// elapses. Duplicate advertisements may be reported; callers
	// dedupe. A host with no adapters returns nil without invoking
	// found.
	Scan(ctx context.Context, timeout time.Duration, found func(Device)) error
	// Connect establishes a link to the device.
	Connect(ctx context.Context, dev Device) (Connection, error)
}

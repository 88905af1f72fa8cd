package ble

import "errors"

var (
	// ErrNoBackend means no BLE library could be initialized on this
	// host. Fatal at startup; nothing in this package works without a
	// backend.
	ErrNoBackend = errors.New("ble: no usable bluetooth backend")

	// ErrNotConnected is returned by writes issued without an
	// established link.
	ErrNotConnected = errors.New("ble: not connected")

	// ErrNoHIDCharacteristic is returned by writes on a degraded
	// connection: the link is up but no HID report characteristic was
	// resolved during connect.
	ErrNoHIDCharacteristic = errors.New("ble: no HID report characteristic resolved")
)

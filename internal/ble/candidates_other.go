//go:build !linux

package ble

// backendCandidates lists the probing order where BlueZ is absent:
// only the tinygo binding (CoreBluetooth on macOS, WinRT on Windows).
func backendCandidates() []candidate {
	return []candidate{
		{name: "tinygo", new: func() (Backend, error) { return NewTinygoBackend(), nil }},
	}
}

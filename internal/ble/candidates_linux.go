//go:build linux

package ble

// backendCandidates lists the probing order on Linux. The tinygo
// binding is preferred; raw BlueZ over D-Bus is the fallback and the
// only backend that can negotiate write-with-response.
func backendCandidates() []candidate {
	return []candidate{
		{name: "tinygo", new: func() (Backend, error) { return NewTinygoBackend(), nil }},
		{name: "bluez", new: func() (Backend, error) { return NewBluezBackend() }},
	}
}

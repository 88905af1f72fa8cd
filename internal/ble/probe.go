package ble

import "fmt"

// candidate is one probe-able backend constructor, tried in order.
type candidate struct {
	name string
	new  func() (Backend, error)
}

// Probe selects a backend once at startup: each candidate is
// constructed and enabled, and the first that succeeds wins. Later
// calls never fall back to a different backend; the chosen value is
// passed explicitly to everything that touches the radio.
func Probe(logf Logf) (Backend, error) {
	if logf == nil {
		logf = DefaultLogf
	}

	for _, c := range backendCandidates() {
		backend, err := c.new()
		if err != nil {
			logf("backend %s unavailable: %v", c.name, err)
			continue
		}
		if err := backend.Enable(); err != nil {
			logf("backend %s failed to enable: %v", c.name, err)
			continue
		}
		logf("using %s bluetooth backend", c.name)
		return backend, nil
	}

	return nil, fmt.Errorf("%w (install BlueZ on Linux, or grant Bluetooth permission on macOS/Windows)", ErrNoBackend)
}

// ProbeNamed constructs one specific backend instead of probing the
// whole candidate list. Unknown names include backends not built for
// this OS.
func ProbeNamed(name string, logf Logf) (Backend, error) {
	if logf == nil {
		logf = DefaultLogf
	}

	for _, c := range backendCandidates() {
		if c.name != name {
			continue
		}
		backend, err := c.new()
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", name, err)
		}
		if err := backend.Enable(); err != nil {
			return nil, fmt.Errorf("backend %s: enable: %w", name, err)
		}
		logf("using %s bluetooth backend", name)
		return backend, nil
	}
	return nil, fmt.Errorf("%w: no backend named %q on this platform", ErrNoBackend, name)
}

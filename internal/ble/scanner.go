package ble

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Scanner runs timed discovery passes over one backend.
type Scanner struct {
	backend Backend
	logf    Logf
}

// NewScanner creates a Scanner. logf may be nil.
func NewScanner(backend Backend, logf Logf) *Scanner {
	if logf == nil {
		logf = DefaultLogf
	}
	return &Scanner{backend: backend, logf: logf}
}

// Scan discovers peripherals for up to timeout and returns one record
// per distinct address, in first-seen order. Repeat advertisements for
// an address are dropped, keeping the first record even when a later
// one carries a different name. Advertisements without an address are
// discarded with a diagnostic: the address is the only stable identity
// the rest of the transport relies on. A host with zero adapters
// yields an empty result, not an error.
func (s *Scanner) Scan(ctx context.Context, timeout time.Duration) ([]Device, error) {
	s.logf("scanning for devices (%.0fs)...", timeout.Seconds())

	// Some backends deliver advertisements from their own callback
	// goroutine.
	var mu sync.Mutex
	seen := make(map[string]bool)
	var devices []Device

	err := s.backend.Scan(ctx, timeout, func(dev Device) {
		if dev.Address == "" {
			s.logf("ignoring advertisement with no address (name %q)", dev.Name)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if seen[dev.Address] {
			return
		}
		seen[dev.Address] = true
		if dev.Name == "" {
			dev.Name = "Unknown"
		}
		devices = append(devices, dev)
	})
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}

	s.logf("scan finished, %d device(s) found", len(devices))
	return devices, nil
}

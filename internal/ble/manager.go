package ble

import (
	"context"
	"fmt"
	"sync"

	"github.com/mferraro/bleboard/internal/hid"
)

// State is the connection lifecycle of a Manager.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Manager owns at most one live peer connection and the HID report
// characteristic resolved on it. The mutex only guards the Manager's
// own fields; callers are expected to serialize Connect, Disconnect
// and Write against a single Manager, same as a single GUI event loop
// pumping keystrokes would.
type Manager struct {
	backend Backend
	logf    Logf

	mu    sync.Mutex
	state State
	conn  Connection
	hid   *Resolved
}

// NewManager creates a Manager bound to one backend. logf may be nil.
func NewManager(backend Backend, logf Logf) *Manager {
	if logf == nil {
		logf = DefaultLogf
	}
	return &Manager{backend: backend, logf: logf}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether a link is established (possibly degraded).
func (m *Manager) Connected() bool {
	return m.State() == StateConnected
}

// Connect establishes a link to dev and resolves its HID report
// characteristic. Success is defined by link establishment alone: a
// peer without a recognizable HID characteristic still connects, the
// connection is just degraded and every Write on it fails with
// ErrNoHIDCharacteristic. Transport-level connect failures reset the
// state to disconnected and are returned. Connecting while a link is
// already up tears the old link down first.
func (m *Manager) Connect(ctx context.Context, dev Device) error {
	m.mu.Lock()
	old := m.conn
	m.conn = nil
	m.hid = nil
	m.state = StateConnecting
	m.mu.Unlock()

	// Disowning old above already disarms its loss callback; the
	// backend call is best-effort cleanup.
	if old != nil {
		m.logf("replacing existing connection")
		if err := old.Disconnect(); err != nil {
			m.logf("backend disconnect failed: %v", err)
		}
	}

	m.logf("connecting to %s (%s)...", dev.Name, dev.Address)

	conn, err := m.backend.Connect(ctx, dev)
	if err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.mu.Unlock()
		return fmt.Errorf("ble: connect to %s: %w", dev.Address, err)
	}

	var resolved *Resolved
	services, err := conn.Services()
	if err != nil {
		// The link is up; treat discovery failure like an
		// unresolvable characteristic.
		m.logf("service discovery failed: %v", err)
	} else if res, ok := ResolveHID(services); ok {
		resolved = &res
		m.logf("HID report characteristic resolved (%s, with_response=%v)",
			res.Char.UUID(), res.WithResponse)
	} else {
		m.logf("no HID report characteristic found; connected degraded")
	}

	conn.OnDisconnect(func() {
		m.logf("link to %s lost", dev.Address)
		m.resetIf(conn)
	})

	m.mu.Lock()
	m.conn = conn
	m.hid = resolved
	m.state = StateConnected
	m.mu.Unlock()

	m.logf("connected to %s", dev.Name)
	return nil
}

// Disconnect tears down the link. Idempotent. The state reset runs
// unconditionally, so the Manager never reports connected after a
// disconnect was requested, even when the backend call fails.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	defer m.reset()

	if conn == nil {
		return
	}
	if err := conn.Disconnect(); err != nil {
		m.logf("backend disconnect failed: %v", err)
	}
}

// reset clears the connection state and the resolved characteristic.
func (m *Manager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateDisconnected
	m.conn = nil
	m.hid = nil
}

// resetIf clears state only while conn is still the owned connection.
// A loss callback from a link that has since been replaced must not
// tear down its successor.
func (m *Manager) resetIf(conn Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != conn {
		return
	}
	m.state = StateDisconnected
	m.conn = nil
	m.hid = nil
}

// Write delivers one HID report to the resolved characteristic using
// the write mode it was resolved with.
func (m *Manager) Write(report hid.Report) error {
	m.mu.Lock()
	state, resolved := m.state, m.hid
	m.mu.Unlock()

	if state != StateConnected {
		return ErrNotConnected
	}
	if resolved == nil {
		return ErrNoHIDCharacteristic
	}

	if err := resolved.Char.Write(report[:], resolved.WithResponse); err != nil {
		// A disconnect may have raced the write; report the more
		// precise condition.
		if m.State() != StateConnected {
			return ErrNotConnected
		}
		return fmt.Errorf("ble: write report: %w", err)
	}
	return nil
}

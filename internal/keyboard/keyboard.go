package keyboard

import (
	"context"
	"time"

	"github.com/mferraro/bleboard/internal/ble"
)

// Keyboard is the surface a front end drives: scan, pick a device,
// connect, type. It wires one backend into a scanner, a connection
// manager and a keystroke session, and fans all progress text out
// through a single logging callback.
type Keyboard struct {
	backend ble.Backend
	scanner *ble.Scanner
	manager *ble.Manager
	session *Session
	logf    ble.Logf
}

// Options tunes a Keyboard.
type Options struct {
	// KeyInterval is the pause between press and release reports.
	// Zero selects DefaultKeyInterval.
	KeyInterval time.Duration
	// Logf receives human-readable progress and diagnostics. Nil
	// routes to slog. Never consulted for control decisions.
	Logf ble.Logf
}

// New builds a Keyboard on an already-probed backend.
func New(backend ble.Backend, opts Options) *Keyboard {
	logf := opts.Logf
	if logf == nil {
		logf = ble.DefaultLogf
	}
	manager := ble.NewManager(backend, logf)
	return &Keyboard{
		backend: backend,
		scanner: ble.NewScanner(backend, logf),
		manager: manager,
		session: NewSession(manager, opts.KeyInterval, logf),
		logf:    logf,
	}
}

// Scan runs one timed discovery pass.
func (k *Keyboard) Scan(ctx context.Context, timeout time.Duration) ([]ble.Device, error) {
	return k.scanner.Scan(ctx, timeout)
}

// Connect establishes the link to dev.
func (k *Keyboard) Connect(ctx context.Context, dev ble.Device) error {
	return k.manager.Connect(ctx, dev)
}

// Disconnect tears the link down. Safe to call when not connected.
func (k *Keyboard) Disconnect() {
	k.manager.Disconnect()
}

// IsConnected reports whether a link is up (possibly degraded).
func (k *Keyboard) IsConnected() bool {
	return k.manager.Connected()
}

// SendCharacter types one character on the peer.
func (k *Keyboard) SendCharacter(r rune) error {
	return k.session.SendCharacter(r)
}

// SendBackspace types backspace on the peer.
func (k *Keyboard) SendBackspace() error {
	return k.session.SendBackspace()
}

// SendEnter types enter on the peer.
func (k *Keyboard) SendEnter() error {
	return k.session.SendEnter()
}

// SendText types a whole string in order.
func (k *Keyboard) SendText(text string) error {
	return k.session.SendText(text)
}

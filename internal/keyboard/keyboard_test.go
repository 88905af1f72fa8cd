package keyboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mferraro/bleboard/internal/ble"
)

// fakeHIDPeer implements the ble backend interfaces as a well-behaved
// HID keyboard host: service 1812 with a writable 2a4d characteristic.
type fakeHIDPeer struct {
	mu     sync.Mutex
	writes [][]byte
}

func (p *fakeHIDPeer) Name() string { return "fake" }
func (p *fakeHIDPeer) Enable() error { return nil }

func (p *fakeHIDPeer) Scan(_ context.Context, _ time.Duration, found func(ble.Device)) error {
	found(ble.Device{Name: "Pad", Address: "AA:BB:CC:DD:EE:FF"})
	return nil
}

func (p *fakeHIDPeer) Connect(context.Context, ble.Device) (ble.Connection, error) {
	return p, nil
}

func (p *fakeHIDPeer) Services() ([]ble.Service, error) { return []ble.Service{p}, nil }
func (p *fakeHIDPeer) Disconnect() error { return nil }
func (p *fakeHIDPeer) OnDisconnect(func()) {}

// UUID serves the ble.Service role of the fake.
func (p *fakeHIDPeer) UUID() string { return ble.HIDServiceUUID }
func (p *fakeHIDPeer) Characteristics() []ble.Characteristic {
	return []ble.Characteristic{&fakeReportChar{peer: p}}
}

type fakeReportChar struct{ peer *fakeHIDPeer }

func (c *fakeReportChar) UUID() string { return ble.HIDReportUUID }
func (c *fakeReportChar) Writable() bool { return false }
func (c *fakeReportChar) WritableWithoutResponse() bool { return true }

func (c *fakeReportChar) Write(data []byte, _ bool) error {
	c.peer.mu.Lock()
	defer c.peer.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.peer.writes = append(c.peer.writes, cp)
	return nil
}

func TestKeyboardEndToEnd(t *testing.T) {
	peer := &fakeHIDPeer{}
	kb := New(peer, Options{KeyInterval: 1, Logf: func(string, ...any) {}})

	devices, err := kb.Scan(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("Scan() found %d devices, want 1", len(devices))
	}

	if err := kb.Connect(context.Background(), devices[0]); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !kb.IsConnected() {
		t.Fatal("IsConnected() = false after connect")
	}

	if err := kb.SendText("ok"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	// Two characters, press+release each.
	if len(peer.writes) != 4 {
		t.Fatalf("peer saw %d writes, want 4", len(peer.writes))
	}

	kb.Disconnect()
	if kb.IsConnected() {
		t.Error("IsConnected() = true after disconnect")
	}
	if err := kb.SendCharacter('x'); !errors.Is(err, ble.ErrNotConnected) {
		t.Errorf("SendCharacter() after disconnect = %v, want ErrNotConnected", err)
	}
}

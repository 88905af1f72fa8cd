package ble

import (
	"context"
	"testing"
	"time"
)

func TestScanDeduplicatesByAddress(t *testing.T) {
	// The same address advertised twice with different names: only the
	// first-seen record survives.
	backend := &mockBackend{advertisements: []Device{
		{Name: "Pad", Address: "AA:BB:CC:DD:EE:FF"},
		{Name: "Pad (renamed)", Address: "AA:BB:CC:DD:EE:FF"},
		{Name: "Other", Address: "11:22:33:44:55:66"},
	}}

	devices, err := NewScanner(backend, discardLogf).Scan(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(devices) != 2 {
		t.Fatalf("Scan() returned %d devices, want 2", len(devices))
	}
	if devices[0].Name != "Pad" {
		t.Errorf("first record name = %q, want first-seen %q", devices[0].Name, "Pad")
	}
}

func TestScanDropsAddresslessAdvertisements(t *testing.T) {
	backend := &mockBackend{advertisements: []Device{
		{Name: "ghost", Address: ""},
		{Name: "Pad", Address: "AA:BB:CC:DD:EE:FF"},
	}}

	var logged []string
	logf := func(format string, args ...any) { logged = append(logged, format) }

	devices, err := NewScanner(backend, logf).Scan(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(devices) != 1 || devices[0].Address != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("Scan() = %v, want only the addressable device", devices)
	}
	if len(logged) < 3 { // start line, diagnostic, finish line
		t.Error("dropping an addressless advertisement emitted no diagnostic")
	}
}

func TestScanNamelessDeviceGetsPlaceholder(t *testing.T) {
	backend := &mockBackend{advertisements: []Device{
		{Name: "", Address: "AA:BB:CC:DD:EE:FF"},
	}}

	devices, err := NewScanner(backend, discardLogf).Scan(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if devices[0].Name != "Unknown" {
		t.Errorf("nameless device surfaced as %q, want %q", devices[0].Name, "Unknown")
	}
}

func TestScanNoAdaptersReturnsEmpty(t *testing.T) {
	// A backend with nothing to report (e.g. zero adapters) is not an
	// error condition.
	devices, err := NewScanner(&mockBackend{}, discardLogf).Scan(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("Scan() = %v, want empty", devices)
	}
}

func TestScanFreshResultsPerPass(t *testing.T) {
	backend := &mockBackend{advertisements: []Device{
		{Name: "Pad", Address: "AA:BB:CC:DD:EE:FF"},
	}}
	scanner := NewScanner(backend, discardLogf)

	first, _ := scanner.Scan(context.Background(), time.Second)
	second, _ := scanner.Scan(context.Background(), time.Second)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one device per pass, got %d and %d", len(first), len(second))
	}
	first[0].Name = "mutated"
	if second[0].Name != "Pad" {
		t.Error("scan passes share a result slice")
	}
}

func discardLogf(string, ...any) {}

package ble

import "strings"

// Resolved is the characteristic chosen to carry HID reports, together
// with the write mode it was selected for.
type Resolved struct {
	Char         Characteristic
	WithResponse bool
}

// ResolveHID picks the characteristic that accepts HID report writes
// from a peer's enumerated services. Matching is ordered:
//
//  1. The standard HID service (1812), characteristic 2a4d or 2a4b,
//     writable either way. Without-response is preferred for latency.
//  2. Any writable characteristic anywhere whose UUID contains
//     "report" or the fragment "2a4d". Some peers expose HID under
//     vendor service UUIDs.
//
// ok is false when neither matches. Callers treat that as a degraded
// connection, not a failure: the link stays up and writes fail
// per-call with ErrNoHIDCharacteristic.
func ResolveHID(services []Service) (Resolved, bool) {
	for _, svc := range services {
		if !isStandardUUID(svc.UUID(), HIDServiceUUID) {
			continue
		}
		if res, ok := pickWritable(svc.Characteristics(), func(uuid string) bool {
			return strings.Contains(uuid, "2a4d") || strings.Contains(uuid, "2a4b")
		}); ok {
			return res, true
		}
	}

	// Fallback sweep over every service.
	for _, svc := range services {
		if res, ok := pickWritable(svc.Characteristics(), func(uuid string) bool {
			return strings.Contains(uuid, "report") || strings.Contains(uuid, "2a4d")
		}); ok {
			return res, true
		}
	}

	return Resolved{}, false
}

// pickWritable returns the first characteristic whose lowercased UUID
// satisfies match and that is writable in some mode.
func pickWritable(chars []Characteristic, match func(uuid string) bool) (Resolved, bool) {
	for _, ch := range chars {
		if !match(strings.ToLower(ch.UUID())) {
			continue
		}
		switch {
		case ch.WritableWithoutResponse():
			return Resolved{Char: ch, WithResponse: false}, true
		case ch.Writable():
			return Resolved{Char: ch, WithResponse: true}, true
		}
	}
	return Resolved{}, false
}

// isStandardUUID reports whether uuid is the given canonical 128-bit
// Bluetooth SIG UUID, either written out in full or abbreviated to its
// 16-bit short form ("1812"). A vendor UUID that merely embeds the
// same hex digits somewhere does not match.
func isStandardUUID(uuid, canonical string) bool {
	u := strings.TrimPrefix(strings.ToLower(uuid), "0x")
	return u == canonical || u == canonical[4:8]
}

package ble

import (
	"fmt"
	"log/slog"
)

// Logf receives human-readable progress and diagnostic lines. The
// transport only ever writes to it; nothing is read back for control
// decisions, so a GUI can point it at a text widget.
type Logf func(format string, args ...any)

// DefaultLogf routes diagnostics to slog.
func DefaultLogf(format string, args ...any) {
	slog.Info("[BLE] " + fmt.Sprintf(format, args...))
}

// Package keyboard turns characters into timed press/release HID
// report pairs and provides the high-level facade a front end drives.
package keyboard

import (
	"errors"
	"fmt"
	"time"

	"github.com/mferraro/bleboard/internal/ble"
	"github.com/mferraro/bleboard/internal/hid"
)

// ErrUnsupportedRune marks characters outside the keycode mapping.
// They are skipped; no partial report is ever emitted for them.
var ErrUnsupportedRune = errors.New("keyboard: unsupported character")

// DefaultKeyInterval separates press from release and one key from the
// next. 10ms clears typical host debounce/scan windows.
const DefaultKeyInterval = 10 * time.Millisecond

// ReportWriter delivers one HID report to the connected peer.
// *ble.Manager satisfies it.
type ReportWriter interface {
	Write(report hid.Report) error
}

// Session sequences keystrokes over one connection. Not safe for
// concurrent use; callers pump it from a single goroutine so reports
// reach the host strictly in press-then-release, character order.
type Session struct {
	writer   ReportWriter
	interval time.Duration
	logf     ble.Logf
}

// NewSession creates a Session. interval <= 0 selects the default;
// logf may be nil.
func NewSession(writer ReportWriter, interval time.Duration, logf ble.Logf) *Session {
	if interval <= 0 {
		interval = DefaultKeyInterval
	}
	if logf == nil {
		logf = ble.DefaultLogf
	}
	return &Session{writer: writer, interval: interval, logf: logf}
}

// SendCharacter types one character: press report, pause, release
// report, pause. Press and release are independent writes; a failed
// press does not suppress the release attempt, as leaving a key held
// makes the host auto-repeat it.
func (s *Session) SendCharacter(r rune) error {
	keycode, needsShift, ok := hid.CharToKeycode(r)
	if !ok {
		s.logf("unsupported character %q skipped", r)
		return fmt.Errorf("%w: %q", ErrUnsupportedRune, r)
	}

	modifier := hid.ModNone
	if needsShift {
		modifier = hid.ModLeftShift
	}
	return s.tap(keycode, modifier)
}

// SendBackspace types the backspace key.
func (s *Session) SendBackspace() error {
	return s.tap(hid.KeyBackspace, hid.ModNone)
}

// SendEnter types the enter key.
func (s *Session) SendEnter() error {
	return s.tap(hid.KeyEnter, hid.ModNone)
}

// SendText types text character by character, in order. Unsupported
// characters and per-key write failures are logged and skipped so one
// bad keystroke never loses the rest of the stream; the joined errors
// are returned for the caller's benefit.
func (s *Session) SendText(text string) error {
	var errs []error
	for _, r := range text {
		if err := s.SendCharacter(r); err != nil {
			errs = append(errs, err)
			// Stop retrying against a link that is known down.
			if errors.Is(err, ble.ErrNotConnected) {
				break
			}
		}
	}
	return errors.Join(errs...)
}

// tap emits the press/release pair for one key.
func (s *Session) tap(keycode, modifier byte) error {
	pressErr := s.writer.Write(hid.BuildReport(keycode, modifier))
	if pressErr != nil {
		s.logf("press write failed: %v", pressErr)
		// The link is gone; a release attempt cannot reach the host.
		if errors.Is(pressErr, ble.ErrNotConnected) {
			return pressErr
		}
	}
	time.Sleep(s.interval)

	releaseErr := s.writer.Write(hid.ReleaseReport())
	if releaseErr != nil {
		s.logf("release write failed: %v", releaseErr)
	}
	time.Sleep(s.interval)

	return errors.Join(pressErr, releaseErr)
}

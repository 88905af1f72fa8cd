// Package capture streams locally typed keystrokes using a global
// gohook event tap, for relaying them to the connected peer.
package capture

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// KeyKind classifies a captured keystroke.
type KeyKind int

const (
	// KindRune is a printable character (includes space and tab).
	KindRune KeyKind = iota
	// KindEnter is the return key.
	KindEnter
	// KindBackspace is the backspace/delete-left key.
	KindBackspace
)

// Key is one captured keystroke.
type Key struct {
	Kind KeyKind
	Rune rune // valid for KindRune
}

// Listener taps global key-down events and emits them as Keys.
type Listener struct {
	ch   chan Key
	done chan struct{}
	once sync.Once
}

// NewListener creates a Listener. Call Start in a goroutine and read
// from Keys.
func NewListener() *Listener {
	return &Listener{
		ch:   make(chan Key, 64),
		done: make(chan struct{}),
	}
}

// Keys returns the channel that receives captured keystrokes.
// The channel is closed when Stop is called.
func (l *Listener) Keys() <-chan Key {
	return l.ch
}

// Start begins the global key tap. Blocks until Stop is called; run it
// in a goroutine.
func (l *Listener) Start() {
	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()

	for ev := range evChan {
		if ev.Kind != hook.KeyDown {
			continue
		}
		key, ok := classify(ev.Keychar)
		if !ok {
			continue
		}
		select {
		case l.ch <- key:
		default: // don't block the hook thread if the consumer stalls
		}
	}
	close(l.ch)
}

// classify maps a gohook key character to a Key. Unrecognized control
// characters are dropped; the session reports unsupported printable
// runes itself.
func classify(c rune) (Key, bool) {
	switch c {
	case '\r', '\n':
		return Key{Kind: KindEnter}, true
	case '\b', 0x7f:
		return Key{Kind: KindBackspace}, true
	case '\t':
		return Key{Kind: KindRune, Rune: '\t'}, true
	}
	if c < 0x20 || c == 0xffff {
		return Key{}, false
	}
	return Key{Kind: KindRune, Rune: c}, true
}

// Stop terminates the key tap.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

// Package hid builds USB HID keyboard reports (Usage Page 0x07) for
// delivery over BLE GATT. It is pure encoding: no I/O, no state.
package hid

// Report is the 8-byte boot-protocol keyboard input report:
// [modifier, reserved, key1..key6]. Only key slot 0 is ever populated;
// the format allows six simultaneous keys but this sender emits one.
type Report [8]byte

// Modifier bitmask values for Report[0].
const (
	ModNone      byte = 0x00
	ModLeftShift byte = 0x02
)

// Keycodes for keys that have no printable rune.
const (
	KeyEnter     byte = 40
	KeyBackspace byte = 42
	KeyTab       byte = 43
	KeySpace     byte = 44
)

// punctuation maps the unshifted punctuation runes to their keycodes.
var punctuation = map[rune]byte{
	'-':  45,
	'=':  46,
	'[':  47,
	']':  48,
	'\\': 49,
	';':  51,
	'\'': 52,
	'`':  53,
	',':  54,
	'.':  55,
	'/':  56,
}

// shifted is the set of runes whose entry requires Left Shift.
// Membership here only decides the modifier; the shifted punctuation
// runes are deliberately absent from the keycode mapping, so sending
// one still reports the rune as unsupported.
const shifted = `!@#$%^&*()_+{}|:"<>?`

// CharToKeycode maps a rune to its keycode and whether Left Shift must
// be held. ok is false for runes outside the supported set: letters,
// digits, space, tab, newline/CR (both Enter) and unshifted US-layout
// punctuation.
func CharToKeycode(r rune) (keycode byte, needsShift bool, ok bool) {
	needsShift = NeedsShift(r)

	switch {
	case r >= 'a' && r <= 'z':
		return byte(r-'a') + 4, needsShift, true
	case r >= 'A' && r <= 'Z':
		return byte(r-'A') + 4, needsShift, true
	case r == '0':
		return 39, needsShift, true
	case r >= '1' && r <= '9':
		return byte(r-'1') + 30, needsShift, true
	case r == ' ':
		return KeySpace, needsShift, true
	case r == '\n' || r == '\r':
		return KeyEnter, needsShift, true
	case r == '\t':
		return KeyTab, needsShift, true
	}

	if code, found := punctuation[r]; found {
		return code, needsShift, true
	}
	return 0, needsShift, false
}

// NeedsShift reports whether typing r on a US keyboard requires Shift.
func NeedsShift(r rune) bool {
	if r >= 'A' && r <= 'Z' {
		return true
	}
	for _, s := range shifted {
		if r == s {
			return true
		}
	}
	return false
}

// BuildReport assembles a report for a single held key.
func BuildReport(keycode, modifier byte) Report {
	var rep Report
	rep[0] = modifier
	rep[2] = keycode
	return rep
}

// ReleaseReport returns the all-zero report that releases every key.
// Hosts auto-repeat a key until they see this.
func ReleaseReport() Report {
	return Report{}
}

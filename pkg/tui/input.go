package tui

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dshills/flowcanvas/pkg/canvas"
)

// EventKind tells keyboard and mouse events apart
type EventKind int

const (
	EventKey EventKind = iota
	EventMouse
)

// KeyEvent represents a keyboard input event
type KeyEvent struct {
	Key     rune   // printable character, or the letter of a Ctrl combination
	Special string // named key: Enter, Escape, Tab, Backspace, Delete, Up, Down, Left, Right
	Ctrl    bool
}

// IsSpecial reports whether the event is a named key
func (k KeyEvent) IsSpecial() bool { return k.Special != "" }

// MouseAction is what the pointer did
type MouseAction int

const (
	MousePress MouseAction = iota
	MouseRelease
	MouseMotion
	MouseWheel
)

// MouseEvent is one decoded SGR mouse report. Col and Row are zero-based.
type MouseEvent struct {
	Col, Row int
	Action   MouseAction
	Button   canvas.PointerButton
	Mods     canvas.Modifiers
	// Wheel is +1 for wheel up and -1 for wheel down
	Wheel int
}

// Event is one parsed input
type Event struct {
	Kind  EventKind
	Key   KeyEvent
	Mouse MouseEvent
}

// Mouse reporting control sequences: button events, drag motion and SGR
// extended coordinates
const (
	mouseOn  = "\x1b[?1000h\x1b[?1002h\x1b[?1006h"
	mouseOff = "\x1b[?1006l\x1b[?1002l\x1b[?1000l"
)

// ParseInput splits a raw read from the terminal into events. A read can
// carry several keys or mouse reports back to back.
func ParseInput(buf []byte) []Event {
	var events []Event
	for len(buf) > 0 {
		ev, n := parseOne(buf)
		if n <= 0 {
			break
		}
		buf = buf[n:]
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events
}

// parseOne decodes the event at the start of buf and returns it with the
// number of bytes consumed
func parseOne(buf []byte) (*Event, int) {
	if buf[0] == 27 {
		return parseEscape(buf)
	}

	switch buf[0] {
	case 9:
		return key(KeyEvent{Special: "Tab"}), 1
	case 13, 10:
		return key(KeyEvent{Special: "Enter"}), 1
	case 127, 8:
		return key(KeyEvent{Special: "Backspace"}), 1
	}

	if buf[0] < 32 {
		return key(KeyEvent{Key: rune(buf[0] + 'a' - 1), Ctrl: true}), 1
	}

	r, size := utf8.DecodeRune(buf)
	if r == utf8.RuneError && size <= 1 {
		return nil, 1
	}
	return key(KeyEvent{Key: r}), size
}

func parseEscape(buf []byte) (*Event, int) {
	if len(buf) == 1 {
		return key(KeyEvent{Special: "Escape"}), 1
	}
	if buf[1] != '[' {
		// a lone Escape followed by another key
		return key(KeyEvent{Special: "Escape"}), 1
	}
	if len(buf) > 2 && buf[2] == '<' {
		return parseSGRMouse(buf)
	}
	if len(buf) > 2 {
		switch buf[2] {
		case 'A':
			return key(KeyEvent{Special: "Up"}), 3
		case 'B':
			return key(KeyEvent{Special: "Down"}), 3
		case 'C':
			return key(KeyEvent{Special: "Right"}), 3
		case 'D':
			return key(KeyEvent{Special: "Left"}), 3
		}
		if len(buf) > 3 && buf[2] == '3' && buf[3] == '~' {
			return key(KeyEvent{Special: "Delete"}), 4
		}
	}
	// unknown CSI sequence: skip to its final byte
	for i := 2; i < len(buf); i++ {
		if buf[i] >= 0x40 && buf[i] <= 0x7e {
			return nil, i + 1
		}
	}
	return nil, len(buf)
}

// parseSGRMouse decodes ESC [ < b ; x ; y M|m
func parseSGRMouse(buf []byte) (*Event, int) {
	end := -1
	for i := 3; i < len(buf); i++ {
		if buf[i] == 'M' || buf[i] == 'm' {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, len(buf)
	}

	fields := strings.Split(string(buf[3:end]), ";")
	if len(fields) != 3 {
		return nil, end + 1
	}
	b, err1 := strconv.Atoi(fields[0])
	x, err2 := strconv.Atoi(fields[1])
	y, err3 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, end + 1
	}

	ev := MouseEvent{Col: x - 1, Row: y - 1}
	if b&4 != 0 {
		ev.Mods |= canvas.ModShift
	}
	if b&8 != 0 {
		ev.Mods |= canvas.ModAlt
	}
	if b&16 != 0 {
		ev.Mods |= canvas.ModCtrl
	}

	switch {
	case b&64 != 0:
		ev.Action = MouseWheel
		ev.Wheel = 1
		if b&1 != 0 {
			ev.Wheel = -1
		}
	case b&32 != 0:
		ev.Action = MouseMotion
	case buf[end] == 'm':
		ev.Action = MouseRelease
	default:
		ev.Action = MousePress
	}

	switch b & 3 {
	case 1:
		ev.Button = canvas.ButtonMiddle
	case 2:
		ev.Button = canvas.ButtonSecondary
	default:
		ev.Button = canvas.ButtonPrimary
	}

	return &Event{Kind: EventMouse, Mouse: ev}, end + 1
}

func key(k KeyEvent) *Event {
	return &Event{Kind: EventKey, Key: k}
}

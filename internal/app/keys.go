// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import "io"

type specialKey int

const (
	keyNone specialKey = iota
	keyUp
	keyDown
	keyEnter
	keyEscape
)

// key is one decoded keypress from the raw-mode terminal.
type key struct {
	rune    byte
	ctrl    byte // set for control characters: ctrl='c' for ^C
	special specialKey
}

// readKeys decodes raw-mode terminal input into key values until r is
// closed. Only the handful of sequences the overview binds are decoded;
// unrecognized escape sequences are swallowed so they never leak through
// as spurious letter keys.
func readKeys(r io.Reader, out chan<- key) {
	defer close(out)
	buf := make([]byte, 1)

	readByte := func() (byte, bool) {
		n, err := r.Read(buf)
		if err != nil || n == 0 {
			return 0, false
		}
		return buf[0], true
	}

	for {
		b, ok := readByte()
		if !ok {
			return
		}
		switch {
		case b == 0x1b: // escape: either a bare Esc or a CSI sequence
			next, ok := readByte()
			if !ok {
				out <- key{special: keyEscape}
				return
			}
			if next != '[' {
				out <- key{special: keyEscape}
				continue
			}
			final, ok := readByte()
			if !ok {
				return
			}
			switch final {
			case 'A':
				out <- key{special: keyUp}
			case 'B':
				out <- key{special: keyDown}
			default:
				// Swallow the rest of longer CSI sequences (mouse,
				// function keys): parameter bytes are 0x30-0x3F,
				// intermediates 0x20-0x2F, final 0x40-0x7E.
				for final < 0x40 {
					final, ok = readByte()
					if !ok {
						return
					}
				}
			}
		case b == '\r' || b == '\n':
			out <- key{special: keyEnter}
		case b < 0x20: // control characters
			out <- key{ctrl: b + 'a' - 1}
		default:
			out <- key{rune: b}
		}
	}
}

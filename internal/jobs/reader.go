package jobs

// reader.go cleans raw CSV bytes before they reach encoding/csv.
//
// Spreadsheet exports commonly start with a UTF-8 BOM and occasionally carry
// stray Latin-1 bytes. Left alone, the BOM ends up glued to the first header
// name ("\ufeffjob_title") and invalid bytes leak into record values.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewCleanReader wraps r so that a leading UTF-8 BOM is dropped and every
// invalid UTF-8 byte is replaced with '?'. Valid multi-byte runes, including
// a literal U+FFFD, pass through unchanged.
func NewCleanReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return &utf8Sanitizer{br: br}
}

type utf8Sanitizer struct {
	br *bufio.Reader

	// A rune that did not fit the caller's buffer on the previous Read.
	buf     [utf8.UTFMax]byte
	pending []byte
}

// Read implements io.Reader.
func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) > 0 {
			c := copy(p[n:], s.pending)
			s.pending = s.pending[c:]
			n += c
			continue
		}

		// Hand back what we have instead of blocking on the source.
		if n > 0 && s.br.Buffered() == 0 {
			break
		}

		r, size, err := s.br.ReadRune()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}

		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}

		if size <= len(p)-n {
			n += utf8.EncodeRune(p[n:], r)
			continue
		}
		s.pending = s.buf[:utf8.EncodeRune(s.buf[:], r)]
	}
	return n, nil
}

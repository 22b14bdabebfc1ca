package loader

// decode.go provides the byte-level cleanup applied before CSV parsing.
//
// Event-log exports are hand-edited and pass through several spreadsheet
// tools, so they regularly carry a Windows BOM and stray bytes that are not
// valid UTF-8. Parsing must not fail on either: the BOM is skipped and every
// invalid byte is discarded (not replaced), with a count kept for reporting.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br
}

// DroppingUTF8Reader wraps an io.Reader and removes invalid UTF-8 bytes on
// the fly. Multi-byte sequences split across reads are held back until they
// are complete, so valid characters are never cut in half.
type DroppingUTF8Reader struct {
	reader  io.Reader
	scratch [4096]byte
	in      []byte // raw bytes not yet classified
	out     []byte // sanitized bytes not yet returned
	err     error

	// Dropped counts the bytes discarded so far.
	Dropped int
}

// NewDroppingUTF8Reader creates a reader that discards invalid UTF-8 bytes.
func NewDroppingUTF8Reader(r io.Reader) *DroppingUTF8Reader {
	return &DroppingUTF8Reader{reader: r}
}

// Read implements io.Reader.
func (d *DroppingUTF8Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(d.out) == 0 {
		if d.err != nil {
			return 0, d.err
		}
		n, err := d.reader.Read(d.scratch[:])
		d.in = append(d.in, d.scratch[:n]...)
		if err != nil {
			d.err = err
		}
		d.drain(d.err != nil)
	}

	n := copy(p, d.out)
	d.out = d.out[n:]
	return n, nil
}

// drain moves every classifiable byte from in to out. Unless atEOF, an
// incomplete sequence at the end of in is kept for the next read.
func (d *DroppingUTF8Reader) drain(atEOF bool) {
	i := 0
	for i < len(d.in) {
		b := d.in[i]
		if b < utf8.RuneSelf {
			d.out = append(d.out, b)
			i++
			continue
		}
		if !atEOF && !utf8.FullRune(d.in[i:]) {
			break
		}
		r, size := utf8.DecodeRune(d.in[i:])
		if r == utf8.RuneError && size == 1 {
			d.Dropped++
			i++
			continue
		}
		d.out = append(d.out, d.in[i:i+size]...)
		i += size
	}
	d.in = append(d.in[:0], d.in[i:]...)
}

// Package console implements the console grouper: it accumulates
// individual stimulus-port bytes into message-level frames, each
// message terminated by a line feed or NUL byte.
package console

import (
	"time"
	"unicode"

	"github.com/RallySmith/logic2-ext-armdebug/eventio"
)

const (
	lf  = 0x0A
	nul = 0x00
)

// Grouper accumulates stimulus-port bytes between terminators into
// whole-message frames. It is a single-owner, non-concurrent sink and
// implements itm.ConsoleSink structurally.
type Grouper struct {
	buf   []byte
	start time.Duration
	open  bool
}

// NewGrouper constructs an empty Grouper.
func NewGrouper() *Grouper {
	return &Grouper{}
}

// PushByte consumes one stimulus-port byte. A terminator (LF or NUL)
// closes and emits the accumulated message; the terminator itself is
// not included in the message text.
func (g *Grouper) PushByte(b byte, start, end time.Duration) []eventio.Frame {
	if !g.open {
		g.start = start
		g.open = true
	}

	if b == lf || b == nul {
		frame := eventio.Frame{
			Tag:   eventio.TagConsole,
			Start: g.start,
			End:   end,
			Val:   string(g.buf),
		}
		g.buf = nil
		g.open = false
		return []eventio.Frame{frame}
	}

	if unicode.IsPrint(rune(b)) {
		g.buf = append(g.buf, b)
	}
	return nil
}

// Flush emits any partially accumulated message, for use at stream
// end when no terminator arrives. It returns nil if nothing is
// pending.
func (g *Grouper) Flush(end time.Duration) []eventio.Frame {
	if !g.open || len(g.buf) == 0 {
		g.open = false
		g.buf = nil
		return nil
	}
	frame := eventio.Frame{Tag: eventio.TagConsole, Start: g.start, End: end, Val: string(g.buf)}
	g.buf = nil
	g.open = false
	return []eventio.Frame{frame}
}

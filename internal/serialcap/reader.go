// Package serialcap opens a trace probe's serial endpoint (SWO over
// USB-UART, or a TTY bridging a debug probe) and turns it into a
// stream of eventio.ByteEvent values with capture-relative timestamps.
// It performs no protocol decoding: that is the job of the tpiu and
// itm packages further down the pipeline.
package serialcap

import (
	"time"

	"github.com/RallySmith/logic2-ext-armdebug/eventio"
	"github.com/pkg/term"
)

// Reader owns a raw-mode serial port and produces timestamped byte
// events as it is polled.
type Reader struct {
	tty   *term.Term
	start time.Time
}

// Open puts path into raw mode at baud and returns a Reader positioned
// at the start of the capture clock.
func Open(path string, baud int) (*Reader, error) {
	tty, err := term.Open(path, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, err
	}
	if err := applyExclusive(tty); err != nil {
		tty.Close()
		return nil, err
	}
	return &Reader{tty: tty, start: timeNow()}, nil
}

// timeNow is a seam so this package's one wall-clock read stays in one
// place; ByteEvent.Start/End are always measured relative to it.
func timeNow() time.Time { return time.Now() }

// Close releases the underlying serial port.
func (r *Reader) Close() error {
	return r.tty.Close()
}

// ReadByte blocks for the next captured byte and stamps it with the
// elapsed time since Open.
func (r *Reader) ReadByte() (eventio.ByteEvent, error) {
	var buf [1]byte
	start := time.Since(r.start)
	n, err := r.tty.Read(buf[:])
	end := time.Since(r.start)
	if err != nil {
		return eventio.ByteEvent{Start: start, End: end, Err: err}, err
	}
	if n == 0 {
		return eventio.ByteEvent{Start: start, End: end, Err: errShortRead}, errShortRead
	}
	return eventio.ByteEvent{Start: start, End: end, Data: buf[0]}, nil
}

// Package tpiu implements the CoreSight TPIU (Trace Port Interface Unit)
// deframer: it recovers sync, demultiplexes 16-byte wire frames into
// stream-tagged byte substreams, and reports framing errors.
package tpiu

import (
	"fmt"
	"strings"
	"time"

	"github.com/RallySmith/logic2-ext-armdebug/eventio"
)

// DecodeStyle selects how demultiplexed payload is reported.
type DecodeStyle int

const (
	// All emits one aggregate tpiu frame per logical-stream run.
	All DecodeStyle = iota
	// Stream is like All but suppresses frames outside StreamFilter.
	Stream
	// Saleae emits one data frame per payload byte of StreamFilter,
	// letting a stacked ITM/DWT parser consume it as if TPIU were
	// never present.
	Saleae
)

// Config is the per-instance configuration of a Deframer.
type Config struct {
	Style        DecodeStyle
	StreamFilter int // 0..127, meaningful for Stream and Saleae
	Offset       int // 0..15, initial byte skew
}

type entry struct {
	b     byte
	start time.Duration
	end   time.Duration
	valid bool
}

// Deframer recovers per-stream byte substreams from 16-byte TPIU
// frames. It is a single-owner, non-concurrent Stage: Push must be
// called with bytes in capture order.
type Deframer struct {
	cfg Config

	buf [16]entry
	pos int

	activeStream int

	syncActive bool
	syncLen    int
}

// New constructs a Deframer with its startup skew already applied: a
// capture that begins mid-frame is decoded correctly from the next
// frame boundary onward.
func New(cfg Config) *Deframer {
	d := &Deframer{cfg: cfg}
	d.pos = cfg.Offset % 16
	return d
}

// Push consumes one captured byte and returns zero or more annotated
// frames.
func (d *Deframer) Push(ev eventio.ByteEvent) []eventio.Frame {
	if ev.Err != nil {
		return nil
	}

	if d.syncActive {
		return d.continueSync(ev)
	}

	if d.pos%2 == 0 && ev.Data == 0xFF {
		d.syncActive = true
		d.syncLen = 1
		return nil
	}

	d.buf[d.pos] = entry{b: ev.Data, start: ev.Start, end: ev.End, valid: true}
	d.pos++

	if d.pos == 16 {
		out := d.flush()
		d.buf = [16]entry{}
		d.pos = 0
		return out
	}
	return nil
}

// continueSync drives the nested sync-scan: a run of 0xFF bytes
// (started at an even frame position) terminated by 0x7F. Any other
// byte seen mid-scan is a malformed sync.
func (d *Deframer) continueSync(ev eventio.ByteEvent) []eventio.Frame {
	d.syncLen++

	switch ev.Data {
	case 0xFF:
		return nil
	case 0x7F:
		d.syncActive = false
		d.reacquire()
		return nil
	default:
		d.syncActive = false
		frame := eventio.Frame{
			Tag:   eventio.TagErr,
			Start: ev.Start,
			End:   ev.End,
			Val:   fmt.Sprintf("malformed sync: expected 0xFF or 0x7F, saw 0x%02X", ev.Data),
		}
		d.reacquire()
		return []eventio.Frame{frame}
	}
}

// reacquire discards the in-progress frame buffer and re-aligns the
// next write position by the number of bytes consumed during the
// sync scan, same as the initial startup skew.
func (d *Deframer) reacquire() {
	d.buf = [16]entry{}
	d.pos = d.syncLen % 16
	d.syncLen = 0
}

type runByte struct {
	stream int
	val    byte
	start  time.Duration
	end    time.Duration
}

// flush decodes one complete 16-byte frame: 8 even-indexed slots that
// are either stream markers or data bytes with their LSB borrowed from
// the bit-15 auxiliary vector, and 7 odd-indexed slots that are always
// plain data.
func (d *Deframer) flush() []eventio.Frame {
	aux := d.buf[15]
	stream := d.activeStream

	var pendingStream int
	var pendingDelayed bool

	var items []runByte

	for i := 0; i < 15; i++ {
		e := d.buf[i]
		if !e.valid {
			continue
		}
		if i%2 == 0 {
			k := i / 2
			bit := byte(0)
			if aux.valid {
				bit = (aux.b >> uint(k)) & 1
			}
			if e.b&1 == 1 {
				newStream := int(e.b>>1) & 0x7F
				if bit == 1 {
					pendingStream = newStream
					pendingDelayed = true
				} else {
					stream = newStream
				}
				continue
			}
			val := (e.b &^ 1) | bit
			items = append(items, runByte{stream: stream, val: val, start: e.start, end: e.end})
		} else {
			items = append(items, runByte{stream: stream, val: e.b, start: e.start, end: e.end})
			if pendingDelayed {
				stream = pendingStream
				pendingDelayed = false
			}
		}
	}

	d.activeStream = stream

	switch d.cfg.Style {
	case Saleae:
		var out []eventio.Frame
		for _, it := range items {
			if it.stream != d.cfg.StreamFilter {
				continue
			}
			out = append(out, eventio.Frame{
				Tag:     eventio.TagData,
				Start:   it.start,
				End:     it.end,
				Val:     fmt.Sprintf("%02X", it.val),
				Payload: it.val,
			})
		}
		return out
	default:
		return groupRuns(items, d.cfg.Style, d.cfg.StreamFilter)
	}
}

// groupRuns coalesces contiguous same-stream bytes within the frame
// into one annotated frame each.
func groupRuns(items []runByte, style DecodeStyle, filter int) []eventio.Frame {
	var out []eventio.Frame
	i := 0
	for i < len(items) {
		j := i + 1
		for j < len(items) && items[j].stream == items[i].stream {
			j++
		}
		run := items[i:j]
		i = j

		if style == Stream && run[0].stream != filter {
			continue
		}

		var hex strings.Builder
		for _, it := range run {
			fmt.Fprintf(&hex, "%02X", it.val)
		}
		out = append(out, eventio.Frame{
			Tag:   eventio.TagTPIU,
			Start: run[0].start,
			End:   run[len(run)-1].end,
			Val:   fmt.Sprintf("Stream#%d Data#%s", run[0].stream, hex.String()),
		})
	}
	return out
}

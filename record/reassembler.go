// Package record implements the application-record reassembler: it
// recovers whole application records from a sequence of ITM
// stimulus-port writes on the instrumentation port, each record being
// a 2-byte head, a run of 4-byte fields, and a confirming 1-byte tail.
package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/RallySmith/logic2-ext-armdebug/eventio"
)

// idleSeq is the sentinel for "no record currently open", matching
// spec's expected_sequence idle state.
const idleSeq = -1

// Reassembler recovers application records from the size-tagged
// stimulus-port writes reported by an itm.Parser configured for
// Instrumentation-style decoding. It is a single-owner, non-concurrent
// sink and implements itm.RecordSink structurally.
//
// Dispatch is driven by write size alone, per the on-wire contract: a
// 2-byte write is always a head, a 4-byte write is always a field, a
// 1-byte write is always a tail, regardless of what the reassembler
// was expecting next. This lets it detect and report a record that
// never closed.
type Reassembler struct {
	expectedSeq int // idleSeq when no record is open
	lastSeq     int // last confirmed sequence number; 0 until the first record closes, matching the original decoder's self.lastseq

	expectedWords int
	seenWords     int
	dvector       []uint32

	start, end time.Duration
}

// NewReassembler constructs a Reassembler with no record open.
func NewReassembler() *Reassembler {
	return &Reassembler{expectedSeq: idleSeq, lastSeq: 0}
}

// Push consumes one completed ITM write. size is the write width in
// bytes (1, 2, or 4); pdata is its little-endian value.
func (r *Reassembler) Push(size int, pdata uint32, start, end time.Duration) []eventio.Frame {
	switch size {
	case 2:
		return r.head(pdata, start, end)
	case 4:
		r.dvector = append(r.dvector, pdata)
		r.seenWords++
		r.end = end
		return nil
	case 1:
		return r.tail(pdata, start, end)
	default:
		frame := errFrame(start, end, fmt.Sprintf("Unexpected field size %d", size))
		r.resetRecord()
		return []eventio.Frame{frame}
	}
}

// head decodes a 2-byte record head: high byte is the field count,
// low byte is the sequence number the tail must confirm. A head
// arriving while a record is already open reports the abandoned
// record before opening the new one.
func (r *Reassembler) head(pdata uint32, start, end time.Duration) []eventio.Frame {
	var out []eventio.Frame
	if r.expectedSeq != idleSeq {
		out = append(out, errFrame(r.start, r.end, fmt.Sprintf("Partial record for seq# %02X", r.expectedSeq)))
	}

	r.expectedWords = int((pdata >> 8) & 0xFF)
	r.expectedSeq = int(pdata & 0xFF)
	r.seenWords = 0
	r.dvector = r.dvector[:0]
	r.start = start
	r.end = end
	return out
}

// tail decodes a 1-byte record tail confirming the sequence number
// the head announced, and closes the record.
func (r *Reassembler) tail(pdata uint32, start, end time.Duration) []eventio.Frame {
	snum := int(pdata & 0xFF)

	if snum != r.expectedSeq {
		frame := errFrame(r.start, end, fmt.Sprintf("Seq# mismatch: saw %02X expected %02X", snum, r.expectedSeq))
		r.expectedSeq = idleSeq
		return []eventio.Frame{frame}
	}

	var prefix string
	switch {
	case snum != (r.lastSeq+1)%256:
		prefix = "[Missed packets] "
	case r.seenWords != r.expectedWords:
		prefix = fmt.Sprintf("[Fields saw %d expected %d] ", r.seenWords, r.expectedWords)
	}

	var sb strings.Builder
	sb.WriteString(prefix)
	fmt.Fprintf(&sb, "Seq#%02X", snum)
	for _, f := range r.dvector {
		fmt.Fprintf(&sb, " 0x%08X", f)
	}

	frame := eventio.Frame{Tag: eventio.TagConsole, Start: r.start, End: end, Val: sb.String()}

	r.lastSeq = snum
	r.expectedSeq = idleSeq
	return []eventio.Frame{frame}
}

func (r *Reassembler) resetRecord() {
	r.expectedSeq = idleSeq
	r.expectedWords = 0
	r.seenWords = 0
	r.dvector = nil
}

func errFrame(start, end time.Duration, msg string) eventio.Frame {
	return eventio.Frame{Tag: eventio.TagErr, Start: start, End: end, Val: msg}
}

// Package itm implements the ARMv7-M ITM/DWT packet parser: a
// byte-granular state machine decoding the variable-length encoding of
// ARMv7-M Architecture Reference Manual Appendix D4 — protocol packets
// (timestamps, extension/stimulus-page) and source packets (software
// instrumentation writes, hardware DWT events).
package itm

import (
	"fmt"
	"time"

	"github.com/RallySmith/logic2-ext-armdebug/eventio"
)

// DecodeStyle selects which source packets the parser emits and how.
type DecodeStyle int

const (
	// All emits every source packet as a raw itm/dwt frame.
	All DecodeStyle = iota
	// Port restricts emission to one effective stimulus address.
	Port
	// Console restricts to one port and groups its bytes into
	// message frames via ConsoleSink; suppresses all DWT output.
	Console
	// Instrumentation restricts to one port and reassembles its
	// writes into application records via RecordSink.
	Instrumentation
)

// fsmState is the parser's state, matching spec.md's PktCtx.fsm: an
// exhaustive tagged variant with HDR as both the initial and the
// terminal state.
type fsmState int

const (
	stHDR fsmState = iota
	stITM1
	stITM2
	stITM3
	stITM4
	stDWT1
	stDWT2
	stDWT3
	stDWT4
	stEXT
	stLTS
	stGTS1
	stGTS2
)

// Config is the per-instance, construction-time configuration of a
// Parser — spec.md's design notes ask for explicit construction with
// all invariants established up front, rather than lazily populated
// fields.
type Config struct {
	Style    DecodeStyle
	PortAddr int // 0..255, effective stimulus address under filtering

	// Strict, when set, emits an informational frame on single-byte
	// overflow (0x70) instead of silently discarding it. Off by
	// default, matching both the corrected and uncorrected sources.
	Strict bool

	Console ConsoleSink
	Record  RecordSink
}

// Parser is the ITM/DWT byte-granular state machine (spec.md's
// PktCtx). It is a single-owner, non-concurrent Stage.
type Parser struct {
	cfg Config

	fsm   fsmState
	size  int // target payload width, set when the header selects a source packet
	idx   int // bytes accumulated so far into pdata/gdata
	pcode int
	ipage int
	pdata uint32

	gdata    uint64 // GTS2 accumulator, seeded from the most recent GTS1
	lastGTS1 uint32
	gtsWrap  bool // Wrap flag pulled from GTS1's fourth byte
	gtsClkCh bool // ClkCh flag pulled from GTS1's fourth byte

	startTime  time.Duration
	pendingEnd time.Duration
}

// NewParser constructs a Parser in its initial HDR state.
func NewParser(cfg Config) *Parser {
	return &Parser{cfg: cfg}
}

// Push consumes one byte of the logical ITM/DWT stream and returns
// zero or more annotated frames.
func (p *Parser) Push(ev eventio.ByteEvent) []eventio.Frame {
	if ev.Err != nil {
		return nil
	}

	switch p.fsm {
	case stHDR:
		return p.hdr(ev)
	case stITM1:
		return p.itmAccum(ev, 1)
	case stITM2:
		return p.itmAccum(ev, 2)
	case stITM3:
		return p.itmAccum(ev, 3)
	case stITM4:
		return p.itmAccum(ev, 4)
	case stDWT1:
		return p.dwtAccum(ev, 1)
	case stDWT2:
		return p.dwtAccum(ev, 2)
	case stDWT3:
		return p.dwtAccum(ev, 3)
	case stDWT4:
		return p.dwtAccum(ev, 4)
	case stEXT:
		return p.ext(ev)
	case stLTS:
		return p.lts(ev)
	case stGTS1:
		return p.gts1(ev)
	case stGTS2:
		return p.gts2(ev)
	default:
		p.reset()
		return nil
	}
}

// reset returns the parser to HDR with a clean packet accumulator.
// ipage is deliberately untouched: it persists across packets until a
// sync packet or a new page directive changes it.
func (p *Parser) reset() {
	p.fsm = stHDR
	p.size = 0
	p.idx = 0
	p.pcode = 0
	p.pdata = 0
}

func (p *Parser) hdr(ev eventio.ByteEvent) []eventio.Frame {
	b := ev.Data

	switch {
	case b == 0x00:
		p.ipage = 0
		return nil

	case b == 0x70:
		if p.cfg.Strict {
			return []eventio.Frame{{Tag: eventio.TagTPIU, Start: ev.Start, End: ev.End, Val: "OVERFLOW"}}
		}
		return nil

	case b&0x03 == 0x00:
		return p.hdrProtocol(ev, b)

	default:
		return p.hdrSource(ev, b)
	}
}

// hdrProtocol decodes b[1:0]==00: extension, timestamp, or reserved
// protocol packets.
func (p *Parser) hdrProtocol(ev eventio.ByteEvent, b byte) []eventio.Frame {
	if b&0x08 != 0 {
		// Extension encoding.
		if b&0x80 != 0 {
			p.pdata = uint32(b>>4) & 0x07
			p.idx = 0
			p.fsm = stEXT
			p.startTime = ev.Start
			return nil
		}
		if b&0x04 != 0 {
			// SH=1, undefined: ignore.
			return nil
		}
		p.ipage = int(b>>4) & 0x07
		return nil
	}

	if b&0x04 != 0 {
		// SH=1: global timestamp headers, or reserved.
		switch b {
		case 0x94:
			p.pdata = 0
			p.pcode = 0
			p.idx = 0
			p.fsm = stGTS1
			p.startTime = ev.Start
			return nil
		case 0xB4:
			p.gdata = uint64(p.lastGTS1)
			p.idx = 0
			p.fsm = stGTS2
			p.startTime = ev.Start
			return nil
		default:
			return []eventio.Frame{{
				Tag: eventio.TagErr, Start: ev.Start, End: ev.End,
				Val: fmt.Sprintf("unrecognised global timestamp header 0x%02X", b),
			}}
		}
	}

	// SH=0: local timestamp.
	if b&0x80 != 0 {
		p.pcode = int(b>>4) & 0x07
		p.pdata = 0
		p.idx = 0
		p.fsm = stLTS
		p.startTime = ev.Start
		return nil
	}

	ts := int(b>>4) & 0x07
	return []eventio.Frame{{
		Tag: eventio.TagConsole, Start: ev.Start, End: ev.End,
		Val: fmt.Sprintf("Local TS %d synchronous", ts),
	}}
}

// hdrSource decodes b[1:0] in {01,10,11}: a 1-, 2-, or 4-byte source
// packet, ITM (software) or DWT (hardware).
func (p *Parser) hdrSource(ev eventio.ByteEvent, b byte) []eventio.Frame {
	switch b & 0x03 {
	case 0x01:
		p.size = 1
	case 0x02:
		p.size = 2
	case 0x03:
		p.size = 4
	}

	p.pdata = 0
	p.idx = 0
	p.startTime = ev.Start
	p.pcode = int(b>>3) & 0x1F

	if b&0x04 != 0 {
		p.fsm = stDWT1
	} else {
		p.fsm = stITM1
	}
	return nil
}

package itm

import (
	"fmt"

	"github.com/RallySmith/logic2-ext-armdebug/eventio"
)

const maxTSBytes = 4

// maxGTS2Bytes is GTS2's own continuation limit: spec.md §4.2.4/§7
// allow a 5- or 7-byte GTS1+GTS2 pair (bits 26..47 or 26..63), so
// GTS2's own chain may run to 6 continuation bytes before it is an
// error, unlike LTS/GTS1's shared 4-byte limit.
const maxGTS2Bytes = 6

func tcDescription(tc int) string {
	switch tc {
	case 0:
		return "sync"
	case 1:
		return "ts-delayed"
	case 2:
		return "data-delayed"
	case 3:
		return "ts-and-data-delayed"
	default:
		return "reserved"
	}
}

// lts accumulates a multi-byte local timestamp packet: up to 4
// continuation bytes of 7 bits each, TC (the relationship between this
// timestamp and the packet it describes) having already been captured
// from the header into pcode.
func (p *Parser) lts(ev eventio.ByteEvent) []eventio.Frame {
	b := ev.Data
	p.pdata |= uint32(b&0x7F) << uint(7*p.idx)
	p.idx++
	p.pendingEnd = ev.End

	if b&0x80 != 0 {
		if p.idx >= maxTSBytes {
			err := []eventio.Frame{{
				Tag: eventio.TagErr, Start: p.startTime, End: ev.End,
				Val: "unterminated local timestamp",
			}}
			p.reset()
			return err
		}
		return nil
	}

	out := []eventio.Frame{{
		Tag:   eventio.TagConsole,
		Start: p.startTime,
		End:   p.pendingEnd,
		Val:   fmt.Sprintf("Local TS %s Count#%d", tcDescription(p.pcode), p.pdata),
	}}
	p.reset()
	return out
}

// gts1 accumulates the low-order bits of a global timestamp. The
// first three bytes each contribute 7 data bits; the fourth (final)
// byte contributes only its low 5 bits as data, with bit 5 (ClkCh)
// and bit 6 (Wrap) pulled out as separate flags rather than folded
// into the count. lastGTS1 is seeded so a following GTS2 packet can
// report the full 48/64-bit value.
func (p *Parser) gts1(ev eventio.ByteEvent) []eventio.Frame {
	b := ev.Data
	cont := b&0x80 != 0

	if p.idx == maxTSBytes-1 {
		p.pdata |= uint32(b&0x1F) << uint(7*p.idx)
		p.gtsClkCh = (b>>5)&0x01 != 0
		p.gtsWrap = (b>>6)&0x01 != 0
	} else {
		p.pdata |= uint32(b&0x7F) << uint(7*p.idx)
	}
	p.idx++
	p.pendingEnd = ev.End

	if cont {
		if p.idx >= maxTSBytes {
			err := []eventio.Frame{{
				Tag: eventio.TagErr, Start: p.startTime, End: ev.End,
				Val: "unterminated global timestamp (GTS1)",
			}}
			p.reset()
			return err
		}
		return nil
	}

	p.lastGTS1 = p.pdata
	out := []eventio.Frame{{
		Tag:   eventio.TagConsole,
		Start: p.startTime,
		End:   p.pendingEnd,
		Val:   fmt.Sprintf("Global TS1 Count#%d Wrap#%t ClkCh#%t", p.pdata, p.gtsWrap, p.gtsClkCh),
	}}
	p.reset()
	return out
}

// gts2 accumulates the high-order bits of a global timestamp,
// continuing on from the low-order value captured by the most recent
// GTS1 packet: GTS1 contributes bits 0..25, so GTS2's first byte
// starts at bit 26.
func (p *Parser) gts2(ev eventio.ByteEvent) []eventio.Frame {
	b := ev.Data
	p.gdata |= uint64(b&0x7F) << uint(26+7*p.idx)
	p.idx++
	p.pendingEnd = ev.End

	if b&0x80 != 0 {
		if p.idx >= maxGTS2Bytes {
			err := []eventio.Frame{{
				Tag: eventio.TagErr, Start: p.startTime, End: ev.End,
				Val: "unterminated global timestamp (GTS2)",
			}}
			p.reset()
			return err
		}
		return nil
	}

	out := []eventio.Frame{{
		Tag:   eventio.TagConsole,
		Start: p.startTime,
		End:   p.pendingEnd,
		Val:   fmt.Sprintf("Global TS2 Count#%d", p.gdata),
	}}
	p.reset()
	return out
}

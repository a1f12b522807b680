package itm

import (
	"fmt"

	"github.com/RallySmith/logic2-ext-armdebug/eventio"
)

// dwtAccum folds one little-endian payload byte of a hardware (DWT)
// source packet into pdata, mirroring itmAccum's byte-count bookkeeping
// but dispatching to dwtProcessData on completion.
func (p *Parser) dwtAccum(ev eventio.ByteEvent, _ int) []eventio.Frame {
	p.pdata |= uint32(ev.Data) << (8 * uint(p.idx))
	p.idx++
	p.endTimeForSourcePacket(ev)

	if p.idx < p.size {
		switch p.idx {
		case 1:
			p.fsm = stDWT2
		case 2:
			p.fsm = stDWT3
		case 3:
			p.fsm = stDWT4
		}
		return nil
	}

	out := p.dwtProcessData(ev)
	p.reset()
	return out
}

// dwtProcessData decodes a completed DWT source packet. All DWT output
// is suppressed under Console style: DWT events carry no stimulus port
// and have no place in a grouped message stream.
func (p *Parser) dwtProcessData(ev eventio.ByteEvent) []eventio.Frame {
	if p.cfg.Style == Console || p.cfg.Style == Instrumentation {
		return nil
	}
	if p.cfg.Style == Port && p.pcode != p.cfg.PortAddr {
		return nil
	}

	return []eventio.Frame{{
		Tag:   eventio.TagDWT,
		Start: p.startTime,
		End:   p.pendingEnd,
		Val:   p.dwtFormat(),
	}}
}

// dwtFormat classifies pcode, the 5-bit DWT discriminator taken from
// header bits [7:3], into the event-counter-wrap, exception-trace, and
// PC-sample families of spec.md §4.2.6. Data-tracing packets (pcode
// 8..23) are acknowledged but not decoded, per the ETM/data-trace
// non-goal.
func (p *Parser) dwtFormat() string {
	switch {
	case p.pcode == 0x00:
		return fmt.Sprintf("WRAP %02X", p.pdata&0xFF)

	case p.pcode == 0x01:
		exc := p.pdata & 0x1FF
		fn := (p.pdata >> 12) & 0x03
		return fmt.Sprintf(" EXC %d %s", exc, excReason(fn))

	case p.pcode == 0x02:
		if p.size == 1 {
			if p.pdata == 0 {
				return "IDLE:SLEEP"
			}
			return fmt.Sprintf("IDLE:%02X", p.pdata&0xFF)
		}
		return fmt.Sprintf("PC:%08X", p.pdata)

	case p.pcode >= 0x08 && p.pcode <= 0x17:
		return "DATA-TRACE:IGNORED"

	default:
		return "RESERVED"
	}
}

func excReason(fn uint32) string {
	switch fn {
	case 1:
		return "ENTERED"
	case 2:
		return "EXITED"
	case 3:
		return "RESUMED"
	default:
		return "RESERVED"
	}
}

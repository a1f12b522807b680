package itm

import (
	"fmt"

	"github.com/RallySmith/logic2-ext-armdebug/eventio"
)

// itmAccum folds one little-endian payload byte of a software
// instrumentation (stimulus) source packet into pdata, advancing to
// the next ITM accumulation state or, once p.size bytes have arrived,
// emitting the decoded packet.
func (p *Parser) itmAccum(ev eventio.ByteEvent, _ int) []eventio.Frame {
	p.pdata |= uint32(ev.Data) << (8 * uint(p.idx))
	p.idx++
	p.endTimeForSourcePacket(ev)

	if p.idx < p.size {
		switch p.idx {
		case 1:
			p.fsm = stITM2
		case 2:
			p.fsm = stITM3
		case 3:
			p.fsm = stITM4
		}
		return nil
	}

	out := p.itmProcessData(ev)
	p.reset()
	return out
}

// endTimeForSourcePacket records the running end timestamp so the
// eventually-emitted frame spans the whole packet, header to last
// payload byte.
func (p *Parser) endTimeForSourcePacket(ev eventio.ByteEvent) {
	p.pendingEnd = ev.End
}

// effectivePort folds the stimulus page directive into the 5-bit
// packet code to form the full 0..255 stimulus address, matching the
// ipage semantics of the original decoder.
func (p *Parser) effectivePort() int {
	return (p.ipage << 5) | (p.pcode & 0x1F)
}

// itmProcessData dispatches a completed ITM source packet per the
// configured decode style: raw emission, single-port filtering,
// console-byte grouping, or application-record reassembly.
func (p *Parser) itmProcessData(ev eventio.ByteEvent) []eventio.Frame {
	port := p.effectivePort()

	switch p.cfg.Style {
	case Console:
		if port != p.cfg.PortAddr || p.cfg.Console == nil {
			return nil
		}
		var out []eventio.Frame
		for i := 0; i < p.size; i++ {
			b := byte(p.pdata >> (8 * uint(i)))
			out = append(out, p.cfg.Console.PushByte(b, p.startTime, p.pendingEnd)...)
		}
		return out

	case Instrumentation:
		if port != p.cfg.PortAddr || p.cfg.Record == nil {
			return nil
		}
		return p.cfg.Record.Push(p.size, p.pdata, p.startTime, p.pendingEnd)

	case Port:
		if port != p.cfg.PortAddr {
			return nil
		}
		return []eventio.Frame{p.itmRawFrame(port)}

	default: // All
		return []eventio.Frame{p.itmRawFrame(port)}
	}
}

func (p *Parser) itmRawFrame(port int) eventio.Frame {
	return eventio.Frame{
		Tag:   eventio.TagITM,
		Start: p.startTime,
		End:   p.pendingEnd,
		Val:   fmt.Sprintf("Port#%d Size#%d Data#%0*X", port, p.size, p.size*2, p.pdata),
	}
}

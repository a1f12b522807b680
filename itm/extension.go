package itm

import (
	"fmt"

	"github.com/RallySmith/logic2-ext-armdebug/eventio"
)

// maxExtBytes bounds the extension continuation chain: the first
// header byte contributes 3 bits and each continuation byte 7 more,
// so 4 continuation bytes already exceed any page directive this
// decoder needs to represent.
const maxExtBytes = 4

// ext accumulates the continuation bytes of a multi-byte stimulus-page
// extension packet: each byte contributes 7 data bits (its top bit is
// a continuation flag), following on from the 3 bits the header byte
// already placed in pdata.
func (p *Parser) ext(ev eventio.ByteEvent) []eventio.Frame {
	b := ev.Data
	p.pdata |= uint32(b&0x7F) << uint(3+7*p.idx)
	p.idx++
	p.pendingEnd = ev.End

	if b&0x80 != 0 {
		if p.idx >= maxExtBytes {
			err := []eventio.Frame{{
				Tag: eventio.TagErr, Start: p.startTime, End: ev.End,
				Val: "unterminated stimulus-page extension",
			}}
			p.reset()
			return err
		}
		return nil
	}

	p.ipage = int(p.pdata) & 0x07
	out := []eventio.Frame{{
		Tag:   eventio.TagExt,
		Start: p.startTime,
		End:   p.pendingEnd,
		Val:   fmt.Sprintf("Page#%d", p.ipage),
	}}
	p.reset()
	return out
}

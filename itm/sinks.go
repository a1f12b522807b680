package itm

import (
	"time"

	"github.com/RallySmith/logic2-ext-armdebug/eventio"
)

// ConsoleSink receives individual stimulus-port bytes, LSB-first, for
// message-level grouping. The console package's Grouper implements
// this.
type ConsoleSink interface {
	PushByte(b byte, start, end time.Duration) []eventio.Frame
}

// RecordSink receives whole ITM writes destined for the
// application-record reassembler. The record package's Reassembler
// implements this.
type RecordSink interface {
	Push(size int, pdata uint32, start, end time.Duration) []eventio.Frame
}

// Package pipeline composes the TPIU deframer and the ITM/DWT parser
// into a single Stage, following the same push-based composition the
// two stages are each built around.
package pipeline

import (
	"github.com/RallySmith/logic2-ext-armdebug/eventio"
	"github.com/RallySmith/logic2-ext-armdebug/itm"
	"github.com/RallySmith/logic2-ext-armdebug/tpiu"
)

// Config selects whether the capture carries TPIU framing at all. A
// capture taken directly off the SWO pin (TPIU_stream == 0, in
// spec terms) has no TPIU layer and feeds the ITM parser unframed.
type Config struct {
	UseTPIU bool
	TPIU    tpiu.Config
	ITM     itm.Config
}

// Pipeline is a single-owner, non-concurrent Stage combining a TPIU
// Deframer (optional) and an ITM Parser.
type Pipeline struct {
	deframer *tpiu.Deframer
	parser   *itm.Parser
	useTPIU  bool
}

// New constructs a Pipeline. When cfg.UseTPIU is set, cfg.TPIU.Style
// must be tpiu.Saleae: any other style reports aggregated stream
// frames instead of individual bytes, which the ITM parser cannot
// consume.
func New(cfg Config) *Pipeline {
	p := &Pipeline{useTPIU: cfg.UseTPIU, parser: itm.NewParser(cfg.ITM)}
	if cfg.UseTPIU {
		p.deframer = tpiu.New(cfg.TPIU)
	}
	return p
}

// Push feeds one captured byte through the TPIU layer (if configured)
// and the result through the ITM/DWT parser.
func (p *Pipeline) Push(ev eventio.ByteEvent) []eventio.Frame {
	if !p.useTPIU {
		return p.parser.Push(ev)
	}

	var out []eventio.Frame
	for _, f := range p.deframer.Push(ev) {
		if f.Tag != eventio.TagData {
			out = append(out, f)
			continue
		}
		out = append(out, p.parser.Push(eventio.ByteEvent{Start: f.Start, End: f.End, Data: f.Payload})...)
	}
	return out
}

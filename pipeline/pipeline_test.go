package pipeline_test

import (
	"testing"
	"time"

	"github.com/RallySmith/logic2-ext-armdebug/eventio"
	"github.com/RallySmith/logic2-ext-armdebug/itm"
	"github.com/RallySmith/logic2-ext-armdebug/pipeline"
	"github.com/RallySmith/logic2-ext-armdebug/tpiu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func push(p *pipeline.Pipeline, bytes []byte) []eventio.Frame {
	var out []eventio.Frame
	for i, b := range bytes {
		t := time.Duration(i) * time.Microsecond
		out = append(out, p.Push(eventio.ByteEvent{Start: t, End: t + time.Microsecond, Data: b})...)
	}
	return out
}

func TestPipeline_WithoutTPIUFeedsITMDirectly(t *testing.T) {
	p := pipeline.New(pipeline.Config{
		UseTPIU: false,
		ITM:     itm.Config{Style: itm.All},
	})
	out := push(p, []byte{0x19, 0x7A})
	require.Len(t, out, 1)
	assert.Equal(t, eventio.TagITM, out[0].Tag)
}

func TestPipeline_WithTPIUSaleaeUnwrapsStreamIntoITM(t *testing.T) {
	p := pipeline.New(pipeline.Config{
		UseTPIU: true,
		TPIU:    tpiu.Config{Style: tpiu.Saleae, StreamFilter: 1},
		ITM:     itm.Config{Style: itm.All},
	})

	frame := make([]byte, 16)
	frame[0] = 0x03 // marker -> stream 1, immediate
	frame[1] = 0x19 // ITM header: port3 size1
	frame[2] = 0x7A // payload
	out := push(p, frame)

	var itmFrames []eventio.Frame
	for _, f := range out {
		if f.Tag == eventio.TagITM {
			itmFrames = append(itmFrames, f)
		}
	}
	require.Len(t, itmFrames, 1)
	assert.Contains(t, itmFrames[0].Val, "Port#3")
}

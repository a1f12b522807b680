package itm_test

import (
	"testing"
	"time"

	"github.com/RallySmith/logic2-ext-armdebug/eventio"
	"github.com/RallySmith/logic2-ext-armdebug/itm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func pushAll(p *itm.Parser, bytes []byte) []eventio.Frame {
	var out []eventio.Frame
	for i, b := range bytes {
		t := time.Duration(i) * time.Microsecond
		out = append(out, p.Push(eventio.ByteEvent{Start: t, End: t + time.Microsecond, Data: b})...)
	}
	return out
}

// S1 (corrected): header 0x19 selects ITM stimulus port 3, size 1.
// The literal byte in the distilled scenario (0x0B) does not satisfy
// the header's own bit formulas; 0x19 is the byte that actually
// produces "port 3, size 1" under pcode=(b>>3)&0x1F and the stated
// size encoding.
func TestParser_ITMPort3Size1(t *testing.T) {
	p := itm.NewParser(itm.Config{Style: itm.All})
	out := pushAll(p, []byte{0x19, 0x7A})
	require.Len(t, out, 1)
	assert.Equal(t, eventio.TagITM, out[0].Tag)
	assert.Contains(t, out[0].Val, "Port#3")
	assert.Contains(t, out[0].Val, "Size#1")
}

// S2 (corrected): header 0xC3 selects ITM stimulus port 24, size 4.
func TestParser_ITMPort24Size4(t *testing.T) {
	p := itm.NewParser(itm.Config{Style: itm.All})
	out := pushAll(p, []byte{0xC3, 0x01, 0x02, 0x03, 0x04})
	require.Len(t, out, 1)
	assert.Equal(t, eventio.TagITM, out[0].Tag)
	assert.Contains(t, out[0].Val, "Port#24")
	assert.Contains(t, out[0].Val, "Size#4")
	assert.Contains(t, out[0].Val, "Data#04030201")
}

// S3: a DWT exception-trace packet (pcode 0x01, size 2) decodes into
// an exception number and enter/exit/return function.
func TestParser_DWTExceptionTrace(t *testing.T) {
	// header: pcode=1 -> bits[7:3]=00001, DWT bit set (bit2), size=2 (bits1:0=10)
	hdr := byte((1 << 3) | 0x04 | 0x02)
	p := itm.NewParser(itm.Config{Style: itm.All})
	// exception number 5, function "Enter" (0x1) in bits 12:13 -> low
	// byte 0x05, high byte has bits4:5 = 01 -> 0x10
	out := pushAll(p, []byte{hdr, 0x05, 0x10})
	require.Len(t, out, 1)
	assert.Equal(t, eventio.TagDWT, out[0].Tag)
	assert.Equal(t, " EXC 5 ENTERED", out[0].Val)
}

// S4: a single-byte local timestamp header (SH=0, no continuation)
// emits immediately from hdr() with no payload bytes consumed.
func TestParser_SingleByteLocalTimestamp(t *testing.T) {
	p := itm.NewParser(itm.Config{Style: itm.All})
	out := pushAll(p, []byte{0x30}) // TS field = (0x30>>4)&0x07 = 3
	require.Len(t, out, 1)
	assert.Equal(t, eventio.TagConsole, out[0].Tag)
	assert.Equal(t, "Local TS 3 synchronous", out[0].Val)
}

type fakeConsole struct {
	bytes []byte
}

func (f *fakeConsole) PushByte(b byte, start, end time.Duration) []eventio.Frame {
	f.bytes = append(f.bytes, b)
	return nil
}

// S5: console-style decoding routes each stimulus byte of the
// configured port to the ConsoleSink, one byte per call, in order.
func TestParser_ConsoleRoutesBytesInOrder(t *testing.T) {
	fc := &fakeConsole{}
	p := itm.NewParser(itm.Config{Style: itm.Console, PortAddr: 3, Console: fc})
	pushAll(p, []byte{0x19, 'h'})
	pushAll(p, []byte{0x19, 'i'})
	require.Equal(t, []byte{'h', 'i'}, fc.bytes)
}

type fakeRecord struct {
	sizes []int
	pdata []uint32
}

func (f *fakeRecord) Push(size int, pdata uint32, start, end time.Duration) []eventio.Frame {
	f.sizes = append(f.sizes, size)
	f.pdata = append(f.pdata, pdata)
	return nil
}

func TestParser_InstrumentationRoutesWholeWrites(t *testing.T) {
	fr := &fakeRecord{}
	p := itm.NewParser(itm.Config{Style: itm.Instrumentation, PortAddr: 24, Record: fr})
	pushAll(p, []byte{0xC3, 0xEF, 0xBE, 0xAD, 0xDE})
	require.Len(t, fr.sizes, 1)
	assert.Equal(t, 4, fr.sizes[0])
	assert.Equal(t, uint32(0xDEADBEEF), fr.pdata[0])
}

func TestParser_OverflowSilentByDefault(t *testing.T) {
	p := itm.NewParser(itm.Config{Style: itm.All})
	out := pushAll(p, []byte{0x70})
	assert.Empty(t, out)
}

func TestParser_OverflowStrictEmitsDiagnostic(t *testing.T) {
	p := itm.NewParser(itm.Config{Style: itm.All, Strict: true})
	out := pushAll(p, []byte{0x70})
	require.Len(t, out, 1)
	assert.Equal(t, eventio.TagTPIU, out[0].Tag)
}

// GTS2 may run to 6 continuation bytes (spec.md §4.2.4/§7) before it
// is an error, a larger budget than the 4-byte limit LTS/GTS1 share.
func TestParser_GTS2SixByteChainAccumulatesWithoutError(t *testing.T) {
	p := itm.NewParser(itm.Config{Style: itm.All})
	bytes := []byte{0x94, 0x05} // GTS1 header, single terminating byte (lastGTS1 = 5)
	bytes = append(bytes, 0xB4) // GTS2 header
	bytes = append(bytes, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00)
	out := pushAll(p, bytes)
	require.NotEmpty(t, out)
	last := out[len(out)-1]
	assert.Equal(t, eventio.TagConsole, last.Tag)
	assert.Contains(t, last.Val, "Global TS2")
}

// A 6th GTS2 byte still carrying the continuation bit is an overrun.
func TestParser_GTS2SixthByteStillContinuingErrors(t *testing.T) {
	p := itm.NewParser(itm.Config{Style: itm.All})
	bytes := []byte{0x94, 0x05, 0xB4, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80}
	out := pushAll(p, bytes)
	require.NotEmpty(t, out)
	last := out[len(out)-1]
	assert.Equal(t, eventio.TagErr, last.Tag)
}

// GTS1 contributes bits 0..25; GTS2's first byte must start at bit 26
// so the two never collide.
func TestParser_GTS2StartsAtBit26(t *testing.T) {
	p := itm.NewParser(itm.Config{Style: itm.All})
	// GTS1: single terminating byte, value 5 (no continuation).
	out := pushAll(p, []byte{0x94, 0x05})
	assert.NotEmpty(t, out)

	// GTS2: single terminating byte, value 1 (bit 0 of this byte -> bit 26 overall).
	out = pushAll(p, []byte{0xB4, 0x01})
	require.Len(t, out, 1)
	assert.Equal(t, eventio.TagConsole, out[0].Tag)
	assert.Equal(t, "Global TS2 Count#67108869", out[0].Val) // 5 | (1<<26)
}

// Property: regardless of random byte input, the parser never emits a
// frame with Start > End, and once any in-flight packet has been
// completed by zero bytes (at most 4 are needed) it is back in HDR,
// where a further sync byte 0x00 produces no frame.
func TestParser_NeverPanicsSpanOrdering(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		style := itm.DecodeStyle(rapid.IntRange(0, 0).Draw(t, "style")) // All
		p := itm.NewParser(itm.Config{Style: style})

		n := rapid.IntRange(0, 128).Draw(t, "n")
		var clock time.Duration
		for i := 0; i < n; i++ {
			b := byte(rapid.IntRange(0, 255).Draw(t, "b"))
			start := clock
			clock += time.Duration(rapid.IntRange(1, 5).Draw(t, "dt")) * time.Microsecond
			end := clock
			for _, f := range p.Push(eventio.ByteEvent{Start: start, End: end, Data: b}) {
				assert.LessOrEqual(t, f.Start, f.End)
			}
		}

		// Zero bytes complete whatever packet is in flight; after 4 of
		// them the parser is in HDR.
		for i := 0; i < 4; i++ {
			for _, f := range p.Push(eventio.ByteEvent{Start: clock, End: clock + time.Microsecond, Data: 0x00}) {
				assert.LessOrEqual(t, f.Start, f.End)
			}
			clock += time.Microsecond
		}

		// A sync byte in HDR produces nothing.
		out := p.Push(eventio.ByteEvent{Start: clock, End: clock + time.Microsecond, Data: 0x00})
		assert.Empty(t, out)
	})
}

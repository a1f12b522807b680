// Command armdebug-decode replays a captured SWO byte stream (TPIU
// framed or raw) through the ITM/DWT decoding pipeline and prints the
// resulting frames.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/RallySmith/logic2-ext-armdebug/config"
	"github.com/RallySmith/logic2-ext-armdebug/console"
	"github.com/RallySmith/logic2-ext-armdebug/eventio"
	"github.com/RallySmith/logic2-ext-armdebug/itm"
	"github.com/RallySmith/logic2-ext-armdebug/pipeline"
	"github.com/RallySmith/logic2-ext-armdebug/record"
	"github.com/RallySmith/logic2-ext-armdebug/tpiu"
	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"
)

func main() {
	var configFileName = pflag.StringP("config-file", "c", "", "YAML configuration file.  Flags below override its values.")
	var inputFileName = pflag.StringP("input", "i", "", "Raw capture file to decode.  Reads stdin if omitted.")
	var useTPIU = pflag.BoolP("tpiu", "T", false, "Capture carries TPIU framing; deframe before ITM/DWT decode.")
	var tpiuStream = pflag.IntP("tpiu-stream", "s", -1, "TPIU stream ID to decode.  -1 leaves the config/default value.")
	var tpiuOffset = pflag.IntP("tpiu-offset", "o", -1, "Initial byte skew into the first TPIU frame.  -1 leaves the config/default value.")
	var port = pflag.IntP("port", "p", -1, "Stimulus port to filter on for port/console/instrumentation styles.  -1 leaves the config/default value.")
	var decodeStyle = pflag.StringP("decode-style", "d", "", "ITM decode style: all, port, console, instrumentation.")
	var strict = pflag.BoolP("strict", "x", false, "Emit a diagnostic frame on an ITM overflow packet (0x70) instead of discarding it silently.")
	var timestampFormat = pflag.StringP("timestamp-format", "f", "%H:%M:%S", "strftime pattern used to render each frame's timestamp.")
	var help = pflag.BoolP("help", "h", false, "Display this help text.")

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: armdebug-decode [options]")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	cfg, err := config.Load(*configFileName)
	if err != nil {
		log.Fatal("loading configuration", "err", err)
	}
	applyOverrides(&cfg, *useTPIU, *tpiuStream, *tpiuOffset, *port, *decodeStyle, *strict)

	ts, err := strftime.New(*timestampFormat)
	if err != nil {
		log.Fatal("invalid timestamp format", "pattern", *timestampFormat, "err", err)
	}

	in := os.Stdin
	if *inputFileName != "" {
		f, err := os.Open(*inputFileName)
		if err != nil {
			log.Fatal("opening input", "path", *inputFileName, "err", err)
		}
		defer f.Close()
		in = f
	}

	grouper := console.NewGrouper()
	reassembler := record.NewReassembler()
	p := pipeline.New(pipeline.Config{
		UseTPIU: cfg.UseTPIU,
		TPIU: tpiu.Config{
			Style:        mapTPIUStyle(cfg.TPIUDecodeStyle),
			StreamFilter: cfg.TPIUStream,
			Offset:       cfg.TPIUOffset,
		},
		ITM: itm.Config{
			Style:    mapITMStyle(cfg.DecodeStyle),
			PortAddr: cfg.Port,
			Strict:   cfg.Strict,
			Console:  grouper,
			Record:   reassembler,
		},
	})

	buf := make([]byte, 4096)
	var clock time.Duration
	for {
		n, readErr := in.Read(buf)
		for i := 0; i < n; i++ {
			start := clock
			clock += time.Microsecond
			for _, f := range p.Push(eventio.ByteEvent{Start: start, End: clock, Data: buf[i]}) {
				printFrame(ts, f)
			}
		}
		if readErr != nil {
			break
		}
	}

	for _, f := range grouper.Flush(clock) {
		printFrame(ts, f)
	}
}

func printFrame(ts *strftime.Strftime, f eventio.Frame) {
	wall := time.Unix(0, int64(f.Start))
	fmt.Printf("[%s] %s\n", ts.FormatString(wall), f.String())
}

func applyOverrides(cfg *config.Config, useTPIU bool, stream, offset, port int, style string, strict bool) {
	if useTPIU {
		cfg.UseTPIU = true
	}
	if stream >= 0 {
		cfg.TPIUStream = stream
	}
	if offset >= 0 {
		cfg.TPIUOffset = offset
	}
	if port >= 0 {
		cfg.Port = port
	}
	if style != "" {
		cfg.DecodeStyle = config.DecodeStyle(style)
	}
	if strict {
		cfg.Strict = true
	}
}

func mapITMStyle(s config.DecodeStyle) itm.DecodeStyle {
	switch s {
	case config.StylePort:
		return itm.Port
	case config.StyleConsole:
		return itm.Console
	case config.StyleInstrumentation:
		return itm.Instrumentation
	default:
		return itm.All
	}
}

func mapTPIUStyle(s config.TPIUDecodeStyle) tpiu.DecodeStyle {
	switch s {
	case config.TPIUStyleStream:
		return tpiu.Stream
	case config.TPIUStyleSaleae:
		return tpiu.Saleae
	default:
		return tpiu.All
	}
}

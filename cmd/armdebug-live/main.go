// Command armdebug-live captures SWO trace from a live debug probe
// over a local serial device — given explicitly or discovered via udev
// — and decodes it through the same pipeline armdebug-decode replays
// captures with. Browsing mDNS only logs the first network probe found;
// capture always reads a local serial device.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/RallySmith/logic2-ext-armdebug/config"
	"github.com/RallySmith/logic2-ext-armdebug/console"
	"github.com/RallySmith/logic2-ext-armdebug/internal/discovery"
	"github.com/RallySmith/logic2-ext-armdebug/internal/resetline"
	"github.com/RallySmith/logic2-ext-armdebug/internal/serialcap"
	"github.com/RallySmith/logic2-ext-armdebug/itm"
	"github.com/RallySmith/logic2-ext-armdebug/pipeline"
	"github.com/RallySmith/logic2-ext-armdebug/record"
	"github.com/RallySmith/logic2-ext-armdebug/tpiu"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func main() {
	var configFileName = pflag.StringP("config-file", "c", "", "YAML configuration file.")
	var devicePath = pflag.StringP("device", "D", "", "Serial device to capture from.  Auto-discovered via udev if omitted.")
	var baud = pflag.IntP("baud", "b", 115200, "Serial baud rate.")
	var autoDiscoverNetwork = pflag.BoolP("discover-network", "n", false, "Browse mDNS for a network-bridged probe and log the first one found.  Capture still opens a local device.")
	var resetChip = pflag.StringP("reset-chip", "g", "", "GPIO chip to pulse the target reset line on before capture.  Empty disables reset.")
	var resetLine = pflag.IntP("reset-line", "l", 0, "GPIO line offset on reset-chip.")
	var help = pflag.BoolP("help", "h", false, "Display this help text.")

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: armdebug-live [options]")
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

	path := *devicePath
	if *autoDiscoverNetwork {
		probes, err := discovery.BrowseNetworkProbes(context.Background(), 3*time.Second)
		if err != nil {
			log.Fatal("browsing for network probes", "err", err)
		}
		if len(probes) == 0 {
			log.Fatal("no network probes found")
		}
		log.Info("using network probe", "name", probes[0].Name, "host", probes[0].Host, "port", probes[0].Port)
		log.Warn("network capture transport is not yet wired; falling back to local device discovery")
	}

	if path == "" {
		probes, err := discovery.ListUSBProbes(context.Background())
		if err != nil {
			log.Fatal("enumerating USB probes", "err", err)
		}
		if len(probes) == 0 {
			log.Fatal("no USB serial probes found; pass --device explicitly")
		}
		path = probes[0].DevNode
		log.Info("auto-selected USB probe", "device", path, "vendor", probes[0].Vendor, "model", probes[0].Model)
	}

	if *resetChip != "" {
		log.Info("pulsing target reset", "chip", *resetChip, "line", *resetLine)
		if err := resetline.Pulse(*resetChip, *resetLine, 50*time.Millisecond); err != nil {
			log.Fatal("pulsing reset line", "err", err)
		}
	}

	reader, err := serialcap.Open(path, *baud)
	if err != nil {
		log.Fatal("opening serial capture", "device", path, "err", err)
	}
	defer reader.Close()

	grouper := console.NewGrouper()
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
			Record:   record.NewReassembler(),
		},
	})

	for {
		ev, err := reader.ReadByte()
		if err != nil {
			log.Error("serial read failed, stopping capture", "err", err)
			return
		}
		for _, f := range p.Push(ev) {
			fmt.Println(f.String())
		}
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

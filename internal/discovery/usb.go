// Package discovery locates candidate trace-probe endpoints: USB-serial
// debug probes enumerated via udev, and network-bridged probes
// advertising themselves over mDNS. Neither path decodes anything; both
// just produce a path or address for serialcap (or a TCP dialer) to
// open.
package discovery

import (
	"context"
	"strings"

	"github.com/jochenvg/go-udev"
)

// USBProbe describes one tty device udev reports as a likely debug
// probe (CDC-ACM or FTDI-class USB-serial adapter).
type USBProbe struct {
	DevNode string
	Vendor  string
	Model   string
}

// ListUSBProbes enumerates /dev/tty* nodes backed by a USB device,
// which on most CoreSight-capable boards is the OpenOCD/J-Link/ST-Link
// SWO-over-serial bridge.
func ListUSBProbes(ctx context.Context) ([]USBProbe, error) {
	u := udev.Udev{}
	enum := u.NewEnumerate()

	if err := enum.AddMatchSubsystem("tty"); err != nil {
		return nil, err
	}
	if err := enum.AddMatchIsInitialized(); err != nil {
		return nil, err
	}

	devices, err := enum.Devices()
	if err != nil {
		return nil, err
	}

	var probes []USBProbe
	for _, d := range devices {
		node := d.Devnode()
		if node == "" || !strings.HasPrefix(node, "/dev/tty") {
			continue
		}
		parent := d.ParentWithSubsystemDevtype("usb", "usb_device")
		if parent == nil {
			continue
		}
		probes = append(probes, USBProbe{
			DevNode: node,
			Vendor:  parent.PropertyValue("ID_VENDOR"),
			Model:   parent.PropertyValue("ID_MODEL"),
		})
	}
	return probes, nil
}

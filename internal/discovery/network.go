package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/brutella/dnssd"
)

// NetworkProbe is a debug probe reachable over TCP, advertising a
// trace bridge service over mDNS (e.g. a Wi-Fi-attached J-Link or a
// network KVM-style probe server).
type NetworkProbe struct {
	Name string
	Host string
	Port int
}

// serviceType is the mDNS service instance type network-bridged trace
// probes are expected to register under.
const serviceType = "_armtrace._tcp"

// BrowseNetworkProbes listens for serviceType advertisements for
// timeout and returns whatever probes answered.
func BrowseNetworkProbes(ctx context.Context, timeout time.Duration) ([]NetworkProbe, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var probes []NetworkProbe
	add := func(e dnssd.BrowseEntry) {
		host := e.Host
		if len(e.IPs) > 0 {
			host = e.IPs[0].String()
		}
		probes = append(probes, NetworkProbe{Name: e.Name, Host: host, Port: e.Port})
	}
	remove := func(e dnssd.BrowseEntry) {}

	if err := dnssd.LookupType(ctx, fmt.Sprintf("%s.local.", serviceType), add, remove); err != nil && ctx.Err() == nil {
		return nil, err
	}
	return probes, nil
}

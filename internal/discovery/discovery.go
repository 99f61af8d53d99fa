// Package discovery implements the optional LAN peer-discovery
// collaborator: mDNS advertise and browse, additive to the --peer flag
// and PeerList gossip. Never crosses a NAT boundary, so it does not
// expand the node's no-NAT-traversal posture.
package discovery

import (
	"context"
	"fmt"

	"github.com/grandcat/zeroconf"
	"github.com/miekg/dns"
)

const serviceType = "_chatnode._tcp"
const domain = "local."

// Advertise registers this node's listen port on the LAN under its
// node id, until ctx is cancelled.
func Advertise(ctx context.Context, nodeID string, port int) (Advertiser, error) {
	instance := dns.Fqdn(nodeID)
	if _, ok := dns.IsDomainName(instance); !ok {
		return nil, fmt.Errorf("discovery: %q is not a valid mDNS instance name", nodeID)
	}
	server, err := zeroconf.Register(nodeID, serviceType, domain, port, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: register: %w", err)
	}
	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()
	return server, nil
}

// Advertiser exists only to avoid importing the zeroconf.Server type
// into callers that merely want to hold onto the handle.
type Advertiser interface {
	Shutdown()
}

// Browse reports IPv4 addresses of other nodes advertising serviceType
// on the LAN, excluding the given self IP, and delivers them on the
// returned channel until ctx is done.
func Browse(ctx context.Context, selfIP string) (<-chan string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	out := make(chan string)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				for _, ip := range entry.AddrIPv4 {
					addr := ip.To4()
					if addr == nil || addr.String() == selfIP {
						continue
					}
					select {
					case out <- addr.String():
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	browseCtx, cancel := context.WithCancel(ctx)
	if err := resolver.Browse(browseCtx, serviceType, domain, entries); err != nil {
		cancel()
		return nil, fmt.Errorf("discovery: browse: %w", err)
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()

	return out, nil
}

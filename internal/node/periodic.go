package node

import (
	"time"

	"chatnode/internal/wire"
)

// peerDiscoveryLoop broadcasts PeerRequest to the peer table every
// DiscoveryInterval. Per-peer send errors are logged and never abort
// the loop.
func (n *Node) peerDiscoveryLoop() {
	defer n.wg.Done()
	t := time.NewTicker(DiscoveryInterval)
	defer t.Stop()
	for {
		select {
		case <-n.quit:
			return
		case <-t.C:
			for ip, pc := range n.peerConns() {
				if err := pc.send(wire.PeerRequest{}); err != nil {
					n.logError("discovery ping %s: %v", ip, err)
				}
			}
		}
	}
}

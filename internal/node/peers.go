package node

import "chatnode/internal/wire"

// insertPeer overwrites any stale entry for ip, matching the handler's
// contract ("insert the socket keyed by peer IP, overwriting any stale
// entry for that IP").
func (n *Node) insertPeer(ip string, pc *peerConn) {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	n.peers[ip] = pc
}

func (n *Node) removePeer(ip string) {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	delete(n.peers, ip)
}

// rejectDial reports whether ip must be rejected for outbound dialing:
// a self address, or one already present in the peer table.
func (n *Node) rejectDial(ip string) bool {
	if ip == n.hostIP || (n.advertisedIP != "" && ip == n.advertisedIP) {
		return true
	}
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	_, present := n.peers[ip]
	return present
}

// peerIPs snapshots the current peer-table keys.
func (n *Node) peerIPs() []string {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	ips := make([]string, 0, len(n.peers))
	for ip := range n.peers {
		ips = append(ips, ip)
	}
	return ips
}

// peerConns snapshots the current peer-table values, used by broadcast
// so sends happen outside the peer-table lock.
func (n *Node) peerConns() map[string]*peerConn {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	snap := make(map[string]*peerConn, len(n.peers))
	for ip, pc := range n.peers {
		snap[ip] = pc
	}
	return snap
}

func (n *Node) recordArchiveResponse(ip string, history []wire.Chat) {
	n.archiveMu.Lock()
	defer n.archiveMu.Unlock()
	n.archive[ip] = history
}

// archiveContains reports whether the last recorded archive response
// from ip contains a Chat structurally equal to want.
func (n *Node) archiveContains(ip string, want wire.Chat) bool {
	n.archiveMu.Lock()
	defer n.archiveMu.Unlock()
	for _, c := range n.archive[ip] {
		if c.Equal(want) {
			return true
		}
	}
	return false
}

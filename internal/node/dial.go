package node

import (
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"chatnode/internal/wire"
)

// dialWithBackoff is used for explicit outbound dials: the initial
// --peer seed and LAN-discovered addresses. It retries the connection
// attempt itself (not the rejection checks, which are cheap and
// authoritative) under a bounded exponential backoff.
func (n *Node) dialWithBackoff(ip string) {
	op := func() error {
		return n.connectToPeer(ip)
	}
	if err := backoff.Retry(op, dialBackoffPolicy()); err != nil {
		n.logError("dial %s: giving up after backoff: %v", ip, err)
	}
}

// dialGossiped is the single-attempt dial spawned for addresses learned
// from an inbound PeerList; retrying every gossiped candidate would
// amplify discovery traffic across the mesh.
func (n *Node) dialGossiped(ip string) {
	if err := n.connectToPeer(ip); err != nil {
		n.logError("dial %s: %v", ip, err)
	}
}

// connectToPeer implements the outbound-dial contract: reject self/
// advertised/already-peered IPs under the peer-table lock, then open a
// connection, send an ArchiveRequest, and hand off to the same
// per-connection handler inbound connections use.
func (n *Node) connectToPeer(ip string) error {
	if n.rejectDial(ip) {
		return nil
	}

	conn, err := net.DialTimeout("tcp4", fmt.Sprintf("%s:%d", ip, n.port), 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	pc := &peerConn{conn: conn}
	if err := pc.send(wire.ArchiveRequest{}); err != nil {
		conn.Close()
		return fmt.Errorf("send archive request: %w", err)
	}

	n.wg.Add(1)
	go n.handleConnFrom(ip, conn, pc)
	return nil
}

// handleConnFrom runs the same dispatch loop as handleConn, but for a
// connection this node dialed out, where the peer IP is already known
// rather than derived from the socket's remote address.
func (n *Node) handleConnFrom(ip string, conn net.Conn, pc *peerConn) {
	defer n.wg.Done()
	n.insertPeer(ip, pc)
	defer n.removePeer(ip)
	defer conn.Close()

	for {
		msg, err := wire.Decode(conn)
		if err != nil {
			n.logError("connection %s: %v", ip, err)
			return
		}
		if err := n.dispatch(ip, pc, msg); err != nil {
			n.logError("connection %s: %v", ip, err)
			return
		}
	}
}

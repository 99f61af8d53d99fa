package node

import (
	"net"
	"time"

	"chatnode/internal/chain"
	"chatnode/internal/wire"
)

// acceptLoop binds the listener loop to the node's quit channel: a
// short accept deadline lets it notice shutdown without blocking
// forever on Accept.
func (n *Node) acceptLoop(ln net.Listener) {
	defer n.wg.Done()
	defer ln.Close()

	for {
		if tcpLn, ok := ln.(*net.TCPListener); ok {
			_ = tcpLn.SetDeadline(time.Now().Add(2 * time.Second))
		}
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				select {
				case <-n.quit:
					return
				default:
					continue
				}
			}
			select {
			case <-n.quit:
				return
			default:
				n.logError("accept: %v", err)
				continue
			}
		}
		n.wg.Add(1)
		go n.handleConn(conn)
	}
}

// handleConn is the per-connection read-dispatch loop. It owns the
// connection's read side exclusively; the peer table only ever writes
// to it through peerConn.send, serialized by peerConn.writeMu.
func (n *Node) handleConn(conn net.Conn) {
	defer n.wg.Done()

	ip, err := remoteIPv4(conn)
	if err != nil {
		n.logError("reject connection: %v", err)
		conn.Close()
		return
	}

	pc := &peerConn{conn: conn}
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

// dispatch implements the receive table in the component design: reply
// to requests, fold archives into the chain, and record every archive
// response for confirmation counting.
func (n *Node) dispatch(peerIP string, pc *peerConn, msg wire.Message) error {
	switch m := msg.(type) {
	case wire.PeerRequest:
		return pc.send(wire.PeerList{IPs: n.peerIPs()})

	case wire.PeerList:
		for _, ip := range m.IPs {
			go n.dialGossiped(ip)
		}
		return nil

	case wire.ArchiveRequest:
		return pc.send(wire.ArchiveResponse{History: n.chain.GetChain()})

	case wire.ArchiveResponse:
		if !n.chain.ReplaceChain(m.History) {
			if err := chain.ValidateReason(m.History); err != nil {
				n.logError("archive from %s rejected: %v", peerIP, err)
			}
			// Shorter-than-current is not a validation failure; nothing to log.
		}
		n.recordArchiveResponse(peerIP, m.History)
		return nil

	case wire.NotificationMessage:
		return nil

	default:
		return nil
	}
}

func remoteIPv4(conn net.Conn) (string, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return "", err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return "", wire.ErrBadIPv4
	}
	return ip.To4().String(), nil
}

// Package node implements the P2P chat node: the TCP listener, outbound
// dialer, per-connection message loop, peer table, periodic discovery,
// and the post-mine majority-confirmation broadcast.
package node

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"chatnode/internal/chain"
	"chatnode/internal/discovery"
	"chatnode/internal/logsink"
	"chatnode/internal/wire"
)

// DiscoveryInterval is the periodic peer-discovery broadcast cadence.
const DiscoveryInterval = 5 * time.Second

// peerConn pairs a live connection with the write mutex that
// serializes everything sent to it — handler replies and broadcast
// fan-out alike, closing the open question in the design notes about
// interleaved concurrent writes to the same socket.
type peerConn struct {
	conn    net.Conn
	writeMu sync.Mutex
}

func (p *peerConn) send(m wire.Message) error {
	b, err := wire.Encode(m)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err = p.conn.Write(b)
	return err
}

// Node is the P2P chat node.
type Node struct {
	hostIP       string
	port         int
	advertisedIP string
	nodeID       string
	log          *logsink.Sink

	chain *chain.Chain

	peersMu sync.Mutex
	peers   map[string]*peerConn

	archiveMu sync.Mutex
	archive   map[string][]wire.Chat

	discoveryEnabled bool
	advertiser       discovery.Advertiser

	quit chan struct{}
	wg   sync.WaitGroup
}

// Config is the subset of the node's configuration the constructor
// needs; internal/config.Config satisfies this shape by field name.
type Config struct {
	HostIP             string
	Port               uint16
	AdvertisedIP       string
	NodeID             string
	EnableLANDiscovery bool
}

// New constructs a Node around an existing Chain and log sink.
func New(cfg Config, c *chain.Chain, sink *logsink.Sink) *Node {
	return &Node{
		hostIP:           cfg.HostIP,
		port:             int(cfg.Port),
		advertisedIP:     cfg.AdvertisedIP,
		nodeID:           cfg.NodeID,
		log:              sink,
		chain:            c,
		peers:            make(map[string]*peerConn),
		archive:          make(map[string][]wire.Chat),
		discoveryEnabled: cfg.EnableLANDiscovery,
		quit:             make(chan struct{}),
	}
}

// Start spawns the listener, the periodic peer-discovery task, and an
// optional initial-peer dial task, then returns immediately.
func (n *Node) Start(initialPeerIP string) error {
	ln, err := net.Listen("tcp4", fmt.Sprintf("%s:%d", n.hostIP, n.port))
	if err != nil {
		return fmt.Errorf("node: listen: %w", err)
	}

	n.wg.Add(1)
	go n.acceptLoop(ln)

	n.wg.Add(1)
	go n.peerDiscoveryLoop()

	if initialPeerIP != "" {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.dialWithBackoff(initialPeerIP)
		}()
	}

	if n.discoveryEnabled {
		n.startLANDiscovery()
	}

	return nil
}

func (n *Node) startLANDiscovery() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-n.quit
		cancel()
	}()

	adv, err := discovery.Advertise(ctx, n.nodeID, n.port)
	if err != nil {
		n.logError("discovery advertise failed: %v", err)
	} else {
		n.advertiser = adv
	}

	found, err := discovery.Browse(ctx, n.hostIP)
	if err != nil {
		n.logError("discovery browse failed: %v", err)
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for ip := range found {
			go n.dialWithBackoff(ip)
		}
	}()
}

// Shutdown aborts every spawned goroutine and closes all sockets.
func (n *Node) Shutdown() {
	close(n.quit)
	n.peersMu.Lock()
	for ip, pc := range n.peers {
		pc.conn.Close()
		delete(n.peers, ip)
	}
	n.peersMu.Unlock()
	n.wg.Wait()
}

// GetChain returns a snapshot of the chain's current history.
func (n *Node) GetChain() []wire.Chat {
	return n.chain.GetChain()
}

// ListPeers returns the current peer-table keys.
func (n *Node) ListPeers() []string {
	return n.peerIPs()
}

func (n *Node) logInfo(format string, args ...any) {
	if n.log != nil {
		n.log.Info("node/"+n.nodeID, fmt.Sprintf(format, args...))
	}
}

func (n *Node) logError(format string, args ...any) {
	if n.log != nil {
		n.log.Error("node/"+n.nodeID, fmt.Sprintf(format, args...))
	}
}

func (n *Node) stdLogger() *log.Logger {
	if n.log == nil {
		return nil
	}
	return n.log.StdLogger("mining/" + n.nodeID)
}

// dialBackoffPolicy returns a bounded exponential backoff schedule for
// explicit outbound dials (seed peer, LAN discovery). Gossip-driven
// dials triggered by an inbound PeerList stay single-attempt.
func dialBackoffPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return backoff.WithMaxRetries(b, 5)
}

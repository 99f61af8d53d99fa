package node

import (
	"time"

	"chatnode/internal/wire"
)

const maxConfirmationRounds = 10

// CreateAndBroadcastChat mines text via the chain, then best-effort
// broadcasts the updated history and polls peers for majority
// confirmation. There is no cryptographic proof a peer accepted the
// chat — only the observation that it subsequently reports a chain
// containing it.
func (n *Node) CreateAndBroadcastChat(text string) wire.Chat {
	mined := n.chain.MineChat(text, n.stdLogger())
	n.confirmBroadcast(mined)
	return mined
}

func (n *Node) confirmBroadcast(mined wire.Chat) {
	history := n.chain.GetChain()

	for attempt := 1; attempt <= maxConfirmationRounds; attempt++ {
		n.broadcastAll(wire.ArchiveResponse{History: history})
		time.Sleep(1 * time.Second)

		n.broadcastAll(wire.ArchiveRequest{})
		time.Sleep(2 * time.Second)

		total, confirmed := n.countConfirmations(mined)
		if total > 0 && confirmed >= total/2+1 {
			n.logInfo("chat confirmed by %d/%d peers", confirmed, total)
			return
		}

		if attempt < maxConfirmationRounds {
			time.Sleep(1 * time.Second)
		}
	}
	n.logError("chat confirmation failed after %d rounds", maxConfirmationRounds)
}

func (n *Node) broadcastAll(m wire.Message) {
	for ip, pc := range n.peerConns() {
		if err := pc.send(m); err != nil {
			n.logError("broadcast to %s: %v", ip, err)
		}
	}
}

func (n *Node) countConfirmations(mined wire.Chat) (total, confirmed int) {
	ips := n.peerIPs()
	total = len(ips)
	for _, ip := range ips {
		if n.archiveContains(ip, mined) {
			confirmed++
		}
	}
	return total, confirmed
}

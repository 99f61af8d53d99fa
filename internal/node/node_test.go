package node

import (
	"testing"
	"time"

	"chatnode/internal/chain"
	"chatnode/internal/logsink"
	"chatnode/internal/wire"
)

func newTestNode(t *testing.T, hostIP, advertisedIP string) *Node {
	t.Helper()
	return New(Config{
		HostIP:       hostIP,
		Port:         51511,
		AdvertisedIP: advertisedIP,
		NodeID:       "test",
	}, chain.New(), logsink.New(discardWriter{}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRejectDialSelfAndAdvertised(t *testing.T) {
	n := newTestNode(t, "10.0.0.1", "10.0.0.2")
	if !n.rejectDial("10.0.0.1") {
		t.Fatal("must reject dialing hostIP")
	}
	if !n.rejectDial("10.0.0.2") {
		t.Fatal("must reject dialing advertisedIP")
	}
	if n.rejectDial("10.0.0.3") {
		t.Fatal("must not reject an unrelated IP")
	}
}

func TestRejectDialAlreadyPeered(t *testing.T) {
	n := newTestNode(t, "10.0.0.1", "")
	n.insertPeer("10.0.0.5", &peerConn{})
	if !n.rejectDial("10.0.0.5") {
		t.Fatal("must reject an IP already in the peer table")
	}
}

func TestInsertPeerOverwritesStaleEntry(t *testing.T) {
	n := newTestNode(t, "10.0.0.1", "")
	first := &peerConn{}
	second := &peerConn{}
	n.insertPeer("10.0.0.5", first)
	n.insertPeer("10.0.0.5", second)

	n.peersMu.Lock()
	got := n.peers["10.0.0.5"]
	n.peersMu.Unlock()
	if got != second {
		t.Fatal("insertPeer must overwrite the stale entry for the same IP")
	}
}

func TestArchiveContains(t *testing.T) {
	n := newTestNode(t, "10.0.0.1", "")
	chat := wire.Chat{Text: "hi", VerificationCode: [16]byte{1}, Hash: [16]byte{0, 0, 2}}
	n.recordArchiveResponse("10.0.0.5", []wire.Chat{chat})

	if !n.archiveContains("10.0.0.5", chat) {
		t.Fatal("must find a chat present in the recorded archive")
	}
	other := chat
	other.Text = "bye"
	if n.archiveContains("10.0.0.5", other) {
		t.Fatal("must not find a chat that was never recorded")
	}
}

func TestCountConfirmationsMajority(t *testing.T) {
	n := newTestNode(t, "10.0.0.1", "")
	mined := wire.Chat{Text: "m", VerificationCode: [16]byte{9}, Hash: [16]byte{0, 0, 9}}

	n.insertPeer("10.0.0.2", &peerConn{})
	n.insertPeer("10.0.0.3", &peerConn{})
	n.insertPeer("10.0.0.4", &peerConn{})
	n.recordArchiveResponse("10.0.0.2", []wire.Chat{mined})
	n.recordArchiveResponse("10.0.0.3", []wire.Chat{mined})

	total, confirmed := n.countConfirmations(mined)
	if total != 3 || confirmed != 2 {
		t.Fatalf("total=%d confirmed=%d, want 3,2", total, confirmed)
	}
	if confirmed < total/2+1 {
		t.Fatal("2 of 3 should already satisfy majority")
	}
}

func TestStartAndShutdown(t *testing.T) {
	n := newTestNode(t, "127.0.0.1", "")
	n.port = 58111
	if err := n.Start(""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	n.Shutdown()
}

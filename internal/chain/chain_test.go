package chain

import (
	"log"
	"sync"
	"testing"

	"chatnode/internal/wire"
)

func TestVerifyHistoryEmpty(t *testing.T) {
	if !VerifyHistory(nil) {
		t.Fatal("empty history must be valid")
	}
}

func TestMineThenVerify(t *testing.T) {
	c := New()
	mined := c.MineChat("hello", nil)
	if mined.Hash[0] != 0 || mined.Hash[1] != 0 {
		t.Fatalf("mined hash does not start with two zero bytes: %x", mined.Hash)
	}
	if !VerifyHistory(c.GetChain()) {
		t.Fatal("chain produced by MineChat must verify")
	}
}

func TestVerifyHistorySingleChat(t *testing.T) {
	c := New()
	mined := c.MineChat("first", nil)
	ok := VerifyHistory([]wire.Chat{mined})
	if !ok {
		t.Fatal("single mined chat must verify on its own")
	}

	bad := mined
	bad.Hash[0] = 0x01
	if VerifyHistory([]wire.Chat{bad}) {
		t.Fatal("tampered hash must fail verification")
	}
}

func TestReplaceChainRejectsShorter(t *testing.T) {
	c := New()
	c.MineChat("a", nil)
	c.MineChat("b", nil)
	before := c.GetChain()

	shorter := New()
	shorter.MineChat("only", nil)
	if c.ReplaceChain(shorter.GetChain()) {
		t.Fatal("a shorter history must never replace a longer chain")
	}
	if len(c.GetChain()) != len(before) {
		t.Fatal("chain must be unchanged after a rejected replace")
	}
}

func TestReplaceChainAcceptsLongerValid(t *testing.T) {
	long := New()
	long.MineChat("a", nil)
	long.MineChat("b", nil)
	long.MineChat("c", nil)
	longHistory := long.GetChain()

	short := New()
	short.MineChat("a", nil)
	if !short.ReplaceChain(longHistory) {
		t.Fatal("longer valid history must replace a shorter chain")
	}
	got := short.GetChain()
	if len(got) != len(longHistory) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(longHistory))
	}
}

func TestReplaceChainRejectsInvalid(t *testing.T) {
	c := New()
	c.MineChat("a", nil)
	before := c.GetChain()

	invalid := []wire.Chat{
		{Text: "x", VerificationCode: [16]byte{1}, Hash: [16]byte{0, 1}},
		{Text: "y", VerificationCode: [16]byte{2}, Hash: [16]byte{0, 0}},
	}
	if c.ReplaceChain(invalid) {
		t.Fatal("invalid history must be rejected")
	}
	after := c.GetChain()
	if len(after) != len(before) {
		t.Fatalf("chain must be unchanged after a rejected replace")
	}
}

func TestMineChatConcurrentWithReplace(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.MineChat("concurrent", log.Default())
	}()

	replacement := New()
	replacement.MineChat("a", nil)
	replacement.MineChat("b", nil)
	replacement.MineChat("c", nil)
	c.ReplaceChain(replacement.GetChain())

	wg.Wait()
	final := c.GetChain()
	if !VerifyHistory(final) {
		t.Fatal("chain must remain validly hashed under concurrent mine/replace")
	}
}

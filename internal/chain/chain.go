// Package chain implements the proof-of-work chat chain: thread-safe
// state, history validation, mining, and longest-chain replacement.
package chain

import (
	"bytes"
	"crypto/md5"
	"sync"

	"chatnode/internal/wire"
)

// ValidationWindow is the number of trailing chats (including the one
// being checked) that feed into each position's hash.
const ValidationWindow = 20

// MiningPrevious is the number of trailing chats a mining attempt hashes
// against; the chat under construction is itself the 20th member of the
// corresponding validation window.
const MiningPrevious = 19

// ErrValidation covers every history-integrity failure reported by
// ValidateReason: text length out of range, bad hash prefix, or hash
// mismatch. An incoming history no longer than the current one is
// rejected by ReplaceChain without an ErrValidation.
type ErrValidation struct {
	Reason string
}

func (e *ErrValidation) Error() string { return "chain: validation failed: " + e.Reason }

// Chain is an ordered, mutex-guarded sequence of Chats.
type Chain struct {
	mu    sync.Mutex
	chats []wire.Chat
}

// New returns an empty chain.
func New() *Chain {
	return &Chain{}
}

// GetChain returns an independent snapshot of the current history.
func (c *Chain) GetChain() []wire.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]wire.Chat(nil), c.chats...)
}

// Len returns the current chain length without copying it.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chats)
}

// VerifyHistory validates every prefix of h against the hash-chain
// invariants using a trailing window of at most ValidationWindow
// entries. The empty history is valid.
func VerifyHistory(h []wire.Chat) bool {
	return ValidateReason(h) == nil
}

// ValidateReason is VerifyHistory with a descriptive error attached,
// for callers (the node's connection handler) that want to log why an
// incoming history was rejected rather than just that it was.
func ValidateReason(h []wire.Chat) error {
	for i := range h {
		if err := validateAt(h, i); err != nil {
			return err
		}
	}
	return nil
}

func validateAt(h []wire.Chat, i int) error {
	c := h[i]
	if len(c.Text) < 1 || len(c.Text) > 255 {
		return &ErrValidation{Reason: "text length out of range"}
	}
	if c.Hash[0] != 0 || c.Hash[1] != 0 {
		return &ErrValidation{Reason: "hash prefix is not zero"}
	}
	window := trailingWindow(h, i, ValidationWindow)
	sum, err := hashWindow(window)
	if err != nil {
		return &ErrValidation{Reason: err.Error()}
	}
	if !bytes.Equal(sum[:], c.Hash[:]) {
		return &ErrValidation{Reason: "hash mismatch"}
	}
	return nil
}

// trailingWindow returns h[max(0, i-w+1) .. i].
func trailingWindow(h []wire.Chat, i, w int) []wire.Chat {
	start := i - w + 1
	if start < 0 {
		start = 0
	}
	return h[start : i+1]
}

// hashWindow concatenates the serialized form of every chat in window,
// omitting the final 16 hash bytes of the last entry, and returns the
// MD5 digest of that byte string.
func hashWindow(window []wire.Chat) ([16]byte, error) {
	var buf bytes.Buffer
	for idx, chat := range window {
		encoded, err := wire.EncodeChat(chat)
		if err != nil {
			return [16]byte{}, err
		}
		if idx == len(window)-1 {
			encoded = encoded[:len(encoded)-16]
		}
		buf.Write(encoded)
	}
	return md5.Sum(buf.Bytes()), nil
}

// ReplaceChain swaps the chain's contents with new_history if it is
// both longer than the current chain and valid. Returns whether the
// swap happened.
func (c *Chain) ReplaceChain(newHistory []wire.Chat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(newHistory) <= len(c.chats) {
		return false
	}
	if !VerifyHistory(newHistory) {
		return false
	}
	c.chats = append([]wire.Chat(nil), newHistory...)
	return true
}

// snapshotAndWindow takes the current chain snapshot and its trailing
// mining context together, under a single lock acquisition.
func (c *Chain) snapshotAndWindow() ([]wire.Chat, []wire.Chat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := append([]wire.Chat(nil), c.chats...)
	start := len(snap) - MiningPrevious
	if start < 0 {
		start = 0
	}
	return snap, snap[start:]
}

// tryAppend appends candidate only if the chain is still exactly snap.
// Returns whether the append happened.
func (c *Chain) tryAppend(snap []wire.Chat, candidate wire.Chat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.chats) != len(snap) {
		return false
	}
	for i := range snap {
		if !c.chats[i].Equal(snap[i]) {
			return false
		}
	}
	c.chats = append(c.chats, candidate)
	return true
}

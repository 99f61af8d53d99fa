package chain

import (
	"crypto/md5"
	"crypto/rand"
	"io"
	"log"

	"chatnode/internal/wire"
)

// attemptLogInterval matches the source's "log progress every 2,000,000
// attempts" cadence.
const attemptLogInterval = 2_000_000

// MineChat mines a new Chat for text against the chain's current
// trailing window and appends it. The outer loop is optimistic
// concurrency: if the chain changed underneath a mining attempt, the
// candidate is discarded and mining restarts against the new context.
func (c *Chain) MineChat(text string, logger *log.Logger) wire.Chat {
	for {
		snap, window := c.snapshotAndWindow()
		candidate := mineAgainst(window, text, rand.Reader, logger)
		if c.tryAppend(snap, candidate) {
			return candidate
		}
		// Chain moved under us; discard the work and retry.
	}
}

// mineAgainst runs the CPU-bound search for a verification code that
// makes the trailing-window hash start with two zero bytes. It runs on
// the caller's goroutine, has no cancellation point, and never returns
// without success.
func mineAgainst(window []wire.Chat, text string, randSource io.Reader, logger *log.Logger) wire.Chat {
	prefix := windowPrefix(window)
	attempts := 0
	for {
		var vcode [16]byte
		if _, err := io.ReadFull(randSource, vcode[:]); err != nil {
			// The only injectable source that can fail this way is a
			// test double; a real crypto/rand.Reader never does.
			continue
		}
		candidate := wire.Chat{Text: text, VerificationCode: vcode}
		sum := hashCandidate(prefix, candidate)
		if sum[0] == 0 && sum[1] == 0 {
			candidate.Hash = sum
			return candidate
		}
		attempts++
		if attempts%attemptLogInterval == 0 && logger != nil {
			logger.Printf("mining: %d attempts so far", attempts)
		}
	}
}

// windowPrefix serializes every chat preceding the one being mined.
func windowPrefix(window []wire.Chat) []byte {
	var buf []byte
	for _, chat := range window {
		encoded, err := wire.EncodeChat(chat)
		if err != nil {
			continue
		}
		buf = append(buf, encoded...)
	}
	return buf
}

// hashCandidate computes MD5(prefix || length || text || verification_code),
// i.e. the candidate's own frame with the trailing hash bytes omitted.
func hashCandidate(prefix []byte, candidate wire.Chat) [16]byte {
	h := md5.New()
	h.Write(prefix)
	h.Write([]byte{byte(len(candidate.Text))})
	h.Write([]byte(candidate.Text))
	h.Write(candidate.VerificationCode[:])
	var sum [16]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

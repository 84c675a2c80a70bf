// Package hashcash implements the proof-of-work token generators used by
// the store: a short form hashing key || value with SHA-256 under an
// optional difficulty limit, and a long form that expands each candidate
// through a 256 KiB SHA-512 chain so the per-candidate cost is bound by
// memory bandwidth rather than raw hash throughput.
//
// Both searches are monotone: candidate keys come from a cheap xorshift
// explorer and the key whose digest is lexicographically smallest so far
// is kept. The difficulty of a key is the number of leading zero bits of
// its digest; on a modern CPU the short form reaches ~20 bits in about a
// second.
package hashcash

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
	"math/bits"
	"time"

	sha256 "github.com/minio/sha256-simd"
)

const (
	// KeySize32 and ValueSize32 are the fixed key and value sizes of the
	// short form.
	KeySize32   = 32
	ValueSize32 = 32

	// KeySize64 is the key size of the long form; its values are
	// variable-length.
	KeySize64 = 64

	// bufferSize is the long form's per-candidate expansion.
	bufferSize = 256 * 1024
)

// Create32 searches for a 32-byte key whose SHA-256 digest over
// key || value has at least limit leading zero bits. limit < 0 disables
// the difficulty gate and timeout <= 0 disables the clock; with both
// disabled the search runs until ctx is done. The timeout is a minimum:
// the candidate in flight completes before the clock is checked. On
// timeout or cancellation the best key found is returned and may fall
// short of limit.
func Create32(ctx context.Context, value []byte, limit int, timeout time.Duration) ([]byte, error) {
	if len(value) != ValueSize32 {
		return nil, fmt.Errorf("hashcash: value must be %d bytes, got %d", ValueSize32, len(value))
	}
	if limit > 8*sha256.Size {
		return nil, fmt.Errorf("hashcash: limit %d out of range", limit)
	}

	start := time.Now()
	rng := newXorshift()

	// state is key(32) || value(32); only the key half changes per
	// candidate.
	var state [KeySize32 + ValueSize32]byte
	copy(state[KeySize32:], value)

	bestKey := make([]byte, KeySize32)

	rng.fill(state[:KeySize32])
	bestDigest := sha256.Sum256(state[:])
	copy(bestKey, state[:KeySize32])

	if limit >= 0 && leadingZeroBits(bestDigest[:]) >= limit {
		return bestKey, nil
	}

	for {
		select {
		case <-ctx.Done():
			return bestKey, nil
		default:
		}

		rng.fill(state[:KeySize32])
		digest := sha256.Sum256(state[:])

		if digestLess(digest[:], bestDigest[:]) {
			bestDigest = digest
			copy(bestKey, state[:KeySize32])

			// The gate is only consulted when a new best is accepted; a
			// candidate that meets limit without beating the best is not
			// returned.
			if limit >= 0 && leadingZeroBits(bestDigest[:]) >= limit {
				return bestKey, nil
			}
		}

		if timeout > 0 && time.Since(start) > timeout {
			return bestKey, nil
		}
	}
}

// Verify32 returns the number of leading zero bits of
// SHA-256(key || value).
func Verify32(key, value []byte) (int, error) {
	if len(key) != KeySize32 {
		return 0, fmt.Errorf("hashcash: key must be %d bytes, got %d", KeySize32, len(key))
	}
	if len(value) != ValueSize32 {
		return 0, fmt.Errorf("hashcash: value must be %d bytes, got %d", ValueSize32, len(value))
	}

	var state [KeySize32 + ValueSize32]byte
	copy(state[:], key)
	copy(state[KeySize32:], value)

	digest := sha256.Sum256(state[:])
	return leadingZeroBits(digest[:]), nil
}

// Create64 searches for a 64-byte key maximizing the difficulty of the
// memory-hard digest over value for at least timeout of wall clock, then
// returns the best key found. timeout <= 0 still completes a single
// candidate. Cancelling ctx returns the best key so far. The 256 KiB
// scratch is allocated once per call and reused across candidates.
func Create64(ctx context.Context, value []byte, timeout time.Duration) ([]byte, error) {
	start := time.Now()
	rng := newXorshift()

	buffer := make([]byte, bufferSize)
	block := newBlock64(value)

	bestKey := make([]byte, KeySize64)

	rng.fill(block[:KeySize64])
	bestDigest := expand64(block, buffer)
	copy(bestKey, block[:KeySize64])

	for {
		select {
		case <-ctx.Done():
			return bestKey, nil
		default:
		}
		if time.Since(start) > timeout {
			return bestKey, nil
		}

		rng.fill(block[:KeySize64])
		digest := expand64(block, buffer)

		if digestLess(digest[:], bestDigest[:]) {
			bestDigest = digest
			copy(bestKey, block[:KeySize64])
		}
	}
}

// Verify64 returns the number of leading zero bits of the memory-hard
// digest of key over value.
func Verify64(key, value []byte) (int, error) {
	if len(key) != KeySize64 {
		return 0, fmt.Errorf("hashcash: key must be %d bytes, got %d", KeySize64, len(key))
	}

	block := newBlock64(value)
	copy(block, key)

	digest := expand64(block, make([]byte, bufferSize))
	return leadingZeroBits(digest[:]), nil
}

// newBlock64 lays out the long form's message block,
// key(64) || value || accum(64), with the value section filled in.
func newBlock64(value []byte) []byte {
	block := make([]byte, KeySize64+len(value)+sha512.Size)
	copy(block[KeySize64:], value)
	return block
}

// expand64 runs the mask-generation chain for the key held in block and
// returns SHA-512 of the filled buffer. Slots are written from the top of
// the buffer down: accum ^= SHA-512(key || value || accum), slot = accum.
// The accum section of block is rewritten in place.
func expand64(block, buffer []byte) [sha512.Size]byte {
	accum := block[len(block)-sha512.Size:]
	clear(accum)

	for i := bufferSize/sha512.Size - 1; i >= 0; i-- {
		h := sha512.Sum512(block)
		subtle.XORBytes(accum, accum, h[:])
		copy(buffer[i*sha512.Size:], accum)
	}

	return sha512.Sum512(buffer)
}

// digestLess reports whether a sorts before b as unsigned big-endian
// bytes, short-circuiting at the first difference. The searches keep the
// smallest digest seen; a smaller digest has at least as many leading
// zero bits, so the limit gate converges.
func digestLess(a, b []byte) bool {
	return bytes.Compare(a, b) < 0
}

// leadingZeroBits counts consecutive zero bits from the most significant
// end of digest.
func leadingZeroBits(digest []byte) int {
	n := 0
	for _, b := range digest {
		if b != 0 {
			return n + bits.LeadingZeros8(b)
		}
		n += 8
	}
	return n
}

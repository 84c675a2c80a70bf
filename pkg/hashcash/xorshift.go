package hashcash

import (
	"crypto/rand"
	"encoding/binary"
)

// xorshift is the xorshift128 candidate-space explorer. It is not a
// CSPRNG and does not need to be: the challenge value is cryptographic,
// the explorer only has to cover the key space cheaply. One word of
// crypto/rand entropy is mixed in at seed time so concurrent searches
// walk different orbits.
type xorshift struct {
	x, y, z, w uint32
}

func newXorshift() *xorshift {
	s := &xorshift{
		x: 123456789,
		y: 362436069,
		z: 521288629,
		w: 88675123,
	}

	var seed [4]byte
	if _, err := rand.Read(seed[:]); err == nil {
		s.w ^= binary.LittleEndian.Uint32(seed[:])
	}

	return s
}

func (s *xorshift) next() uint32 {
	t := s.x ^ (s.x << 11)
	s.x, s.y, s.z = s.y, s.z, s.w
	s.w = (s.w ^ (s.w >> 19)) ^ (t ^ (t >> 8))
	return s.w
}

// fill overwrites b, whose length must be a multiple of 4, with explorer
// words.
func (s *xorshift) fill(b []byte) {
	for i := 0; i < len(b); i += 4 {
		binary.LittleEndian.PutUint32(b[i:], s.next())
	}
}

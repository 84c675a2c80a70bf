package fec

import (
	"encoding/binary"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// mulAddFunc accumulates dst[i] ^= mulTable[c][src[i]] over len(src)
// bytes. src and dst must not overlap.
type mulAddFunc func(dst, src []byte, c byte)

// mulAdd is the kernel used by encode, decode and matrix inversion,
// selected once at init. Every variant produces byte-identical output.
var mulAdd mulAddFunc = mulAddGeneric

func init() {
	// The lane-batched kernel wants cheap unaligned 64-bit loads.
	if cpuid.CPU.Has(cpuid.SSE2) || runtime.GOARCH == "arm64" {
		mulAdd = mulAddWords
	}
}

// mulAddGeneric is the scalar reference, unrolled 16 ways.
func mulAddGeneric(dst, src []byte, c byte) {
	if c == 0 {
		return
	}

	mt := mulTable[c][:256]

	i := 0
	for ; i+16 <= len(src); i += 16 {
		d := dst[i : i+16 : i+16]
		s := src[i : i+16 : i+16]

		d[0] ^= mt[s[0]]
		d[1] ^= mt[s[1]]
		d[2] ^= mt[s[2]]
		d[3] ^= mt[s[3]]
		d[4] ^= mt[s[4]]
		d[5] ^= mt[s[5]]
		d[6] ^= mt[s[6]]
		d[7] ^= mt[s[7]]
		d[8] ^= mt[s[8]]
		d[9] ^= mt[s[9]]
		d[10] ^= mt[s[10]]
		d[11] ^= mt[s[11]]
		d[12] ^= mt[s[12]]
		d[13] ^= mt[s[13]]
		d[14] ^= mt[s[14]]
		d[15] ^= mt[s[15]]
	}

	for ; i < len(src); i++ {
		dst[i] ^= mt[src[i]]
	}
}

// mulAddWords gathers the table lookups eight bytes at a time into a
// 64-bit lane and folds it into dst with a single XOR, eight lanes per
// block. XOR is bytewise, so the result matches the scalar kernel on any
// byte order.
func mulAddWords(dst, src []byte, c byte) {
	if c == 0 {
		return
	}

	mt := mulTable[c][:256]

	n := len(src) &^ 63
	for i := 0; i < n; i += 64 {
		d := dst[i : i+64 : i+64]
		s := src[i : i+64 : i+64]

		for j := 0; j < 64; j += 8 {
			v := uint64(mt[s[j]]) |
				uint64(mt[s[j+1]])<<8 |
				uint64(mt[s[j+2]])<<16 |
				uint64(mt[s[j+3]])<<24 |
				uint64(mt[s[j+4]])<<32 |
				uint64(mt[s[j+5]])<<40 |
				uint64(mt[s[j+6]])<<48 |
				uint64(mt[s[j+7]])<<56

			binary.LittleEndian.PutUint64(d[j:], binary.LittleEndian.Uint64(d[j:])^v)
		}
	}

	for i := n; i < len(src); i++ {
		dst[i] ^= mt[src[i]]
	}
}

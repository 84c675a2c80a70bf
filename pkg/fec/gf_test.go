package fec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowMul multiplies in GF(2^8) straight from the polynomial definition,
// reducing modulo x^8 + x^4 + x^3 + x^2 + 1 (0x11D).
func slowMul(a, b byte) byte {
	aa, bb := int(a), int(b)
	var r int
	for bb > 0 {
		if bb&1 != 0 {
			r ^= aa
		}
		aa <<= 1
		if aa&0x100 != 0 {
			aa ^= 0x11D
		}
		bb >>= 1
	}
	return byte(r)
}

func TestMulTableMatchesPolynomialDefinition(t *testing.T) {
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			require.Equal(t, slowMul(byte(a), byte(b)), mulTable[a][b],
				"mulTable[%d][%d]", a, b)
		}
	}
}

func TestGFTables(t *testing.T) {
	t.Run("ZeroRow", func(t *testing.T) {
		for x := 0; x < 256; x++ {
			assert.EqualValues(t, 0, mulTable[0][x])
			assert.EqualValues(t, 0, mulTable[x][0])
		}
	})

	t.Run("OneIsIdentity", func(t *testing.T) {
		for x := 0; x < 256; x++ {
			assert.EqualValues(t, x, mulTable[1][x])
			assert.EqualValues(t, x, mulTable[x][1])
		}
	})

	t.Run("ExpDuplicated", func(t *testing.T) {
		for i := 0; i < gfSize; i++ {
			assert.Equal(t, gfExp[i], gfExp[i+gfSize])
		}
	})

	t.Run("LogExpRoundTrip", func(t *testing.T) {
		for i := 0; i < gfSize; i++ {
			assert.Equal(t, i, gfLog[gfExp[i]])
		}
		assert.Equal(t, gfSize, gfLog[0])
	})

	t.Run("Inverse", func(t *testing.T) {
		assert.EqualValues(t, 0, gfInverse[0])
		assert.EqualValues(t, 1, gfInverse[1])

		for x := 1; x < 256; x++ {
			assert.EqualValues(t, 1, gfMul(byte(x), gfInverse[x]), "x=%d", x)
			assert.EqualValues(t, x, gfInverse[gfInverse[x]], "x=%d", x)
		}
	})
}

func TestMulProperties(t *testing.T) {
	t.Run("Commutative", func(t *testing.T) {
		for a := 0; a < 256; a++ {
			for b := a; b < 256; b++ {
				assert.Equal(t, mulTable[a][b], mulTable[b][a])
			}
		}
	})

	t.Run("InverseCancels", func(t *testing.T) {
		for c := 1; c < 256; c++ {
			for x := 1; x < 256; x++ {
				got := gfMul(byte(c), gfMul(gfInverse[c], byte(x)))
				require.EqualValues(t, x, got, "c=%d x=%d", c, x)
			}
		}
	})
}

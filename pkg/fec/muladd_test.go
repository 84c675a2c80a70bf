package fec

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulAddReference(t *testing.T) {
	// dst starting at zero receives plain products.
	src := make([]byte, 16)
	for i := range src {
		src[i] = byte(i + 1)
	}
	dst := make([]byte, 16)

	mulAdd(dst, src, 3)

	for i, s := range src {
		assert.Equal(t, mulTable[3][s], dst[i], "i=%d", i)
	}
}

func TestMulAddZeroConstant(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	dst := []byte{9, 8, 7, 6}
	want := bytes.Clone(dst)

	mulAddGeneric(dst, src, 0)
	assert.Equal(t, want, dst)

	mulAddWords(dst, src, 0)
	assert.Equal(t, want, dst)
}

func TestMulAddAccumulates(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	src := make([]byte, 100)
	dst := make([]byte, 100)
	rng.Read(src)
	rng.Read(dst)

	want := make([]byte, 100)
	for i := range want {
		want[i] = dst[i] ^ mulTable[7][src[i]]
	}

	mulAdd(dst, src, 7)
	assert.Equal(t, want, dst)
}

func TestMulAddVariantsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, size := range []int{0, 1, 7, 15, 16, 17, 63, 64, 65, 255, 1027} {
		src := make([]byte, size)
		dst := make([]byte, size)
		rng.Read(src)
		rng.Read(dst)

		for _, c := range []byte{0, 1, 2, 3, 0x1D, 0x80, 0xFF} {
			a := bytes.Clone(dst)
			b := bytes.Clone(dst)

			mulAddGeneric(a, src, c)
			mulAddWords(b, src, c)

			require.Equal(t, a, b, "size=%d c=%d", size, c)
		}
	}
}

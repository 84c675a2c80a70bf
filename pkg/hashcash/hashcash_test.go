package hashcash

import (
	"bytes"
	"context"
	"crypto/sha512"
	"testing"
	"time"

	sha256 "github.com/minio/sha256-simd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadingZeroBits(t *testing.T) {
	tests := []struct {
		name   string
		digest []byte
		want   int
	}{
		{"Empty", nil, 0},
		{"All zero", make([]byte, 4), 32},
		{"High bit set", []byte{0x80, 0x00}, 0},
		{"One leading zero", []byte{0x40}, 1},
		{"Seven leading zeros", []byte{0x01}, 7},
		{"Across bytes", []byte{0x00, 0x1F, 0xFF}, 11},
		{"Zero tail ignored", []byte{0x00, 0x00, 0x04, 0x00}, 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, leadingZeroBits(tt.digest))
		})
	}
}

func TestSearchPrefersSmallerDigest(t *testing.T) {
	// The monotone criterion keeps the lexicographically smaller digest.
	// That is the direction under which the difficulty gate can converge:
	// a smaller digest has at least as many leading zero bits.
	assert.True(t, digestLess([]byte{0x00, 0xFF}, []byte{0x01, 0x00}))
	assert.False(t, digestLess([]byte{0x01, 0x00}, []byte{0x00, 0xFF}))

	// Equal digests do not replace the incumbent.
	assert.False(t, digestLess([]byte{0x42, 0x42}, []byte{0x42, 0x42}))

	// Comparison is unsigned on the first differing byte.
	assert.True(t, digestLess([]byte{0x7F, 0xFF}, []byte{0x80, 0x00}))
}

func TestVerify32(t *testing.T) {
	key := bytes.Repeat([]byte{0xAB}, KeySize32)
	value := bytes.Repeat([]byte{0x01}, ValueSize32)

	count, err := Verify32(key, value)
	require.NoError(t, err)

	// Recompute from the definition.
	digest := sha256.Sum256(append(bytes.Clone(key), value...))
	assert.Equal(t, leadingZeroBits(digest[:]), count)
}

func TestVerify32Lengths(t *testing.T) {
	value := make([]byte, ValueSize32)

	_, err := Verify32(make([]byte, 31), value)
	assert.Error(t, err)

	_, err = Verify32(make([]byte, KeySize32), make([]byte, 16))
	assert.Error(t, err)
}

func TestCreate32MeetsLimit(t *testing.T) {
	value := bytes.Repeat([]byte{0x01}, ValueSize32)

	key, err := Create32(context.Background(), value, 8, 0)
	require.NoError(t, err)
	require.Len(t, key, KeySize32)

	count, err := Verify32(key, value)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 8)
}

func TestCreate32LimitZeroReturnsFirstCandidate(t *testing.T) {
	value := make([]byte, ValueSize32)

	key, err := Create32(context.Background(), value, 0, 0)
	require.NoError(t, err)
	assert.Len(t, key, KeySize32)
}

func TestCreate32Timeout(t *testing.T) {
	value := make([]byte, ValueSize32)

	start := time.Now()
	key, err := Create32(context.Background(), value, -1, 20*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, key, KeySize32)

	// The timeout is a minimum, not an error.
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestCreate32ContextCancel(t *testing.T) {
	value := make([]byte, ValueSize32)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	// Gate and clock both disabled: only ctx ends the search.
	key, err := Create32(ctx, value, -1, 0)
	require.NoError(t, err)
	assert.Len(t, key, KeySize32)
}

func TestCreate32RejectsBadArguments(t *testing.T) {
	_, err := Create32(context.Background(), make([]byte, 16), -1, time.Second)
	assert.Error(t, err)

	_, err = Create32(context.Background(), make([]byte, ValueSize32), 257, time.Second)
	assert.Error(t, err)
}

func TestCreate64RoundTrip(t *testing.T) {
	value := bytes.Repeat([]byte{0x01}, 128)

	// timeout <= 0 completes exactly one candidate.
	key, err := Create64(context.Background(), value, 0)
	require.NoError(t, err)
	require.Len(t, key, KeySize64)

	count, err := Verify64(key, value)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 0)

	// Verification is deterministic.
	again, err := Verify64(key, value)
	require.NoError(t, err)
	assert.Equal(t, count, again)
}

func TestCreate64EmptyValue(t *testing.T) {
	key, err := Create64(context.Background(), nil, 0)
	require.NoError(t, err)
	require.Len(t, key, KeySize64)

	_, err = Verify64(key, nil)
	require.NoError(t, err)
}

func TestVerify64MatchesExpansionDefinition(t *testing.T) {
	// Recompute the chain by hand for a tiny value and compare against
	// the implementation's digest path.
	key := bytes.Repeat([]byte{0x11}, KeySize64)
	value := []byte{0xDE, 0xAD}

	buffer := make([]byte, bufferSize)
	accum := make([]byte, sha512.Size)
	block := make([]byte, KeySize64+len(value)+sha512.Size)
	copy(block, key)
	copy(block[KeySize64:], value)

	for i := bufferSize/sha512.Size - 1; i >= 0; i-- {
		copy(block[KeySize64+len(value):], accum)
		h := sha512.Sum512(block)
		for j := range accum {
			accum[j] ^= h[j]
		}
		copy(buffer[i*sha512.Size:], accum)
	}
	digest := sha512.Sum512(buffer)
	want := leadingZeroBits(digest[:])

	got, err := Verify64(key, value)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestVerify64KeyLength(t *testing.T) {
	_, err := Verify64(make([]byte, 32), nil)
	assert.Error(t, err)
}

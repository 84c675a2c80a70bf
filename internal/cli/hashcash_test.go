package cli

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHashcash(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewHashcashCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestHashcashCreateVerifyRoundTrip(t *testing.T) {
	value := strings.Repeat("01", 32)

	// limit 0 accepts the first candidate, so this returns immediately.
	keyHex, err := runHashcash(t, "create", value, "0", "-1")
	require.NoError(t, err)
	require.Len(t, keyHex, 64)

	countStr, err := runHashcash(t, "verify", keyHex, value)
	require.NoError(t, err)

	count, err := strconv.Atoi(countStr)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 0)
}

func TestHashcashVerifyAcceptsBothByteOrders(t *testing.T) {
	value := strings.Repeat("01", 32)

	keyHex, err := runHashcash(t, "create", value, "0", "-1")
	require.NoError(t, err)

	wire, err := runHashcash(t, "verify", keyHex, value)
	require.NoError(t, err)

	// The same hex strings parsed in natural order describe a different
	// key/value pair, but verification still just counts bits.
	natural, err := runHashcash(t, "verify", "--normal-order", keyHex, value)
	require.NoError(t, err)

	assert.NotEmpty(t, wire)
	assert.NotEmpty(t, natural)
}

func TestHashcashCreateLongForm(t *testing.T) {
	// A non-32-byte value selects the memory-hard core; timeout -1 makes
	// it return its first candidate.
	value := strings.Repeat("01", 128)

	keyHex, err := runHashcash(t, "create", value, "-1")
	require.NoError(t, err)
	require.Len(t, keyHex, 128)

	countStr, err := runHashcash(t, "verify", keyHex, value)
	require.NoError(t, err)

	_, err = strconv.Atoi(countStr)
	assert.NoError(t, err)
}

func TestHashcashCreateRejectsLimitForLongForm(t *testing.T) {
	value := strings.Repeat("01", 64)

	_, err := runHashcash(t, "create", value, "10", "1")
	assert.Error(t, err)
}

func TestHashcashVerifyRejectsBadInput(t *testing.T) {
	_, err := runHashcash(t, "verify", "nothex", strings.Repeat("01", 32))
	assert.Error(t, err)

	_, err = runHashcash(t, "verify", strings.Repeat("01", 16), strings.Repeat("01", 32))
	assert.Error(t, err)
}

func TestHashcashCreateRejectsBadLimit(t *testing.T) {
	value := strings.Repeat("01", 32)

	_, err := runHashcash(t, "create", value, "300", "1")
	assert.Error(t, err)

	_, err = runHashcash(t, "create", value, "abc", "1")
	assert.Error(t, err)
}

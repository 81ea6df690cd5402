package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tok, err := New()
	require.NoError(t, err)
	assert.Equal(t, byte(0xff), tok[0])

	other, err := New()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestParse(t *testing.T) {
	t.Run("round-trips the hex form", func(t *testing.T) {
		tok, err := New()
		require.NoError(t, err)

		parsed, err := Parse(tok.String())
		require.NoError(t, err)
		assert.Equal(t, tok, parsed)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := Parse("ff00")
		assert.Error(t, err)
	})

	t.Run("rejects non-hex input", func(t *testing.T) {
		_, err := Parse("zzzzzzzzzzzzzzzz")
		assert.Error(t, err)
	})

	t.Run("rejects a missing sentinel byte", func(t *testing.T) {
		_, err := Parse("0000112233445566")
		assert.Error(t, err)
	})
}

func TestRecordRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond).UTC()
	rec := record{uid: "ejudge/alice", lastUse: now}

	decoded, err := decodeRecord(rec.encode())
	require.NoError(t, err)
	assert.Equal(t, "ejudge/alice", decoded.uid)
	assert.True(t, decoded.lastUse.Equal(now))
}

func TestDecodeRecord(t *testing.T) {
	t.Run("rejects short buffers", func(t *testing.T) {
		_, err := decodeRecord([]byte{1, 0, 0})
		assert.Error(t, err)
	})

	t.Run("rejects unknown versions", func(t *testing.T) {
		buf := record{uid: "alice", lastUse: epoch}.encode()
		buf[0] = 9

		_, err := decodeRecord(buf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "version")
	})

	t.Run("empty uid is allowed", func(t *testing.T) {
		decoded, err := decodeRecord(record{uid: "", lastUse: epoch}.encode())
		require.NoError(t, err)
		assert.Empty(t, decoded.uid)
	})
}

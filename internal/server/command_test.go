package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrawl-dev/scrawl/pkg/canvas"
)

func TestParseEditCommand(t *testing.T) {
	const tok = "ff00112233445566"

	t.Run("parses a valid command", func(t *testing.T) {
		cmd, err := parseEditCommand("set " + tok + " 1 2 10 20 30 40")
		require.NoError(t, err)

		assert.Equal(t, tok, cmd.token.String())
		assert.Equal(t, uint32(1), cmd.x)
		assert.Equal(t, uint32(2), cmd.y)
		assert.Equal(t, canvas.Cell{R: 10, G: 20, B: 30, A: 40}, cmd.cell)
	})

	t.Run("rejects malformed commands", func(t *testing.T) {
		cases := map[string]string{
			"empty":              "",
			"wrong verb":         "get " + tok + " 1 2 3 4 5 6",
			"too few fields":     "set " + tok + " 1 2 3 4 5",
			"too many fields":    "set " + tok + " 1 2 3 4 5 6 7",
			"bad token":          "set nothex 1 2 3 4 5 6",
			"short token":        "set ff00 1 2 3 4 5 6",
			"non-numeric coord":  "set " + tok + " x 2 3 4 5 6",
			"negative coord":     "set " + tok + " -1 2 3 4 5 6",
			"channel over 255":   "set " + tok + " 1 1 300 0 0 0",
			"coord over 32 bits": "set " + tok + " 5000000000 0 0 0 0 0",
		}

		for name, line := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := parseEditCommand(line)
				assert.Error(t, err)
			})
		}
	})

	t.Run("channel range error names the range", func(t *testing.T) {
		_, err := parseEditCommand("set " + tok + " 1 1 300 0 0 0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "0..255")
	})

	t.Run("accepts boundary channel values", func(t *testing.T) {
		cmd, err := parseEditCommand("set " + tok + " 0 0 0 255 0 255")
		require.NoError(t, err)
		assert.Equal(t, canvas.Cell{R: 0, G: 255, B: 0, A: 255}, cmd.cell)
	})
}

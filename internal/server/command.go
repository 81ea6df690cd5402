package server

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/scrawl-dev/scrawl/internal/token"
	"github.com/scrawl-dev/scrawl/pkg/canvas"
)

// editCommand is one parsed "set" command from a subscriber.
type editCommand struct {
	token token.Token
	x, y  uint32
	cell  canvas.Cell
}

var errCommandSyntax = errors.New("invalid command syntax: must be 'set <token> <x> <y> <r> <g> <b> <a>'")

// parseEditCommand validates the shape and numeric ranges of one inbound
// text frame. Coordinates are bounds-checked later against the grid; only
// color channels have a fixed 0..255 range here.
func parseEditCommand(line string) (editCommand, error) {
	parts := strings.Split(line, " ")
	if len(parts) != 8 || parts[0] != "set" {
		return editCommand{}, errCommandSyntax
	}

	tok, err := token.Parse(parts[1])
	if err != nil {
		return editCommand{}, err
	}

	var nums [6]uint64
	for i := range nums {
		n, err := strconv.ParseUint(parts[2+i], 10, 64)
		if err != nil {
			return editCommand{}, fmt.Errorf("invalid command syntax: not a number: %q", parts[2+i])
		}
		nums[i] = n
	}

	for _, c := range nums[2:] {
		if c > 255 {
			return editCommand{}, errors.New("invalid command syntax: color components must be in range 0..255 (inclusive)")
		}
	}
	if nums[0] > math.MaxUint32 || nums[1] > math.MaxUint32 {
		return editCommand{}, errors.New("invalid command syntax: coordinates out of range")
	}

	return editCommand{
		token: tok,
		x:     uint32(nums[0]),
		y:     uint32(nums[1]),
		cell: canvas.Cell{
			R: uint8(nums[2]),
			G: uint8(nums[3]),
			B: uint8(nums[4]),
			A: uint8(nums[5]),
		},
	}, nil
}

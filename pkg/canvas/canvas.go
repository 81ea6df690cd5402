// Package canvas implements the durable pixel grid backing a Scrawl canvas.
//
// The grid is a fixed-size 2D array of RGBA cells stored in a single binary
// file and memory-mapped for direct point access. The file starts with a
// 16-byte little-endian header (magic tag, format version, width, height)
// followed by width*height*4 bytes of cell data in row-major order, top row
// first.
//
// A Grid is safe for concurrent use: cell writes take a write lock for the
// duration of one mutation plus the flush request, reads and snapshots take
// a read lock. The lock is never held across anything except the mapped
// buffer access itself.
package canvas

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

const (
	// headerSize is the fixed byte length of the grid file header.
	headerSize = 16

	// bytesPerCell is the storage footprint of one RGBA cell.
	bytesPerCell = 4

	// formatVersion is the current grid file format version. Files with any
	// other version are rejected on open.
	formatVersion = 1
)

// magic identifies a Scrawl grid file.
var magic = []byte("Scrl")

// Cell is one pixel's RGBA color value. It is an immutable value type and
// the unit of both mutation and wire transmission.
type Cell struct {
	R, G, B, A uint8
}

// OutOfBoundsError reports a cell access outside the grid dimensions.
type OutOfBoundsError struct {
	X, Y          uint32
	Width, Height uint32
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("cell coordinates out of bounds: x must be below %d and y below %d, got x=%d y=%d",
		e.Width, e.Height, e.X, e.Y)
}

// FormatError reports a grid file that cannot be interpreted: wrong magic
// tag, unknown format version, or a physical size that does not match the
// stored dimensions.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid grid file %s: %s", e.Path, e.Reason)
}

// Grid is a memory-mapped pixel grid. Open it with Open and release it with
// Close. The dimensions are fixed for the life of the backing file.
type Grid struct {
	mu     sync.RWMutex
	file   *os.File
	data   mmap.MMap
	width  uint32
	height uint32
}

// Create writes a fresh grid file at path with the given dimensions and all
// cells zeroed. It fails if the file already exists. Create is an
// initialization-time operation; it does not leave the file open.
func Create(path string, width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("grid dimensions must be positive, got %dx%d", width, height)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create grid file: %w", err)
	}
	defer f.Close()

	if err := writeHeader(f, width, height); err != nil {
		return err
	}

	// Extending the file zero-fills the cell region.
	if err := f.Truncate(fileSize(width, height)); err != nil {
		return fmt.Errorf("failed to size grid file: %w", err)
	}

	return f.Sync()
}

// CreateWithData is Create with pre-seeded cell contents. cells must hold
// exactly height rows of width cells each.
func CreateWithData(path string, width, height uint32, cells [][]Cell) error {
	if uint32(len(cells)) != height {
		return fmt.Errorf("expected %d rows of cell data, got %d", height, len(cells))
	}
	for y, row := range cells {
		if uint32(len(row)) != width {
			return fmt.Errorf("row %d: expected %d cells, got %d", y, width, len(row))
		}
	}

	if err := Create(path, width, height); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to reopen grid file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 0, int(width)*int(height)*bytesPerCell)
	for _, row := range cells {
		for _, c := range row {
			buf = append(buf, c.R, c.G, c.B, c.A)
		}
	}
	if _, err := f.WriteAt(buf, headerSize); err != nil {
		return fmt.Errorf("failed to write cell data: %w", err)
	}

	return f.Sync()
}

// Open maps an existing grid file into memory and validates its header.
// The only corruption guard is the size check: the physical file length must
// equal headerSize + width*height*4 for the stored dimensions.
func Open(path string) (*Grid, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open grid file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat grid file: %w", err)
	}
	if info.Size() < headerSize {
		f.Close()
		return nil, &FormatError{Path: path, Reason: "file too small to contain a header"}
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map grid file: %w", err)
	}

	g, err := newGrid(path, f, data, info.Size())
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	return g, nil
}

func newGrid(path string, f *os.File, data mmap.MMap, size int64) (*Grid, error) {
	if !bytes.Equal(data[0:4], magic) {
		return nil, &FormatError{Path: path, Reason: "wrong magic tag"}
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != formatVersion {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("unknown format version %d", v)}
	}

	width := binary.LittleEndian.Uint32(data[8:12])
	height := binary.LittleEndian.Uint32(data[12:16])
	if size != fileSize(width, height) {
		return nil, &FormatError{
			Path:   path,
			Reason: fmt.Sprintf("file size %d does not match %dx%d grid", size, width, height),
		}
	}

	return &Grid{file: f, data: data, width: width, height: height}, nil
}

// Width returns the grid width in cells.
func (g *Grid) Width() uint32 { return g.width }

// Height returns the grid height in cells.
func (g *Grid) Height() uint32 { return g.height }

// Get returns the cell at (x, y), or an OutOfBoundsError if either
// coordinate is outside the grid.
func (g *Grid) Get(x, y uint32) (Cell, error) {
	if x >= g.width || y >= g.height {
		return Cell{}, &OutOfBoundsError{X: x, Y: y, Width: g.width, Height: g.height}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	off := g.cellOffset(x, y)
	return Cell{
		R: g.data[off],
		G: g.data[off+1],
		B: g.data[off+2],
		A: g.data[off+3],
	}, nil
}

// Set writes the cell at (x, y) and requests a flush of the mapped region
// toward persistent storage before returning. Out-of-bounds coordinates
// leave the grid unchanged.
func (g *Grid) Set(x, y uint32, c Cell) error {
	if x >= g.width || y >= g.height {
		return &OutOfBoundsError{X: x, Y: y, Width: g.width, Height: g.height}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	off := g.cellOffset(x, y)
	g.data[off] = c.R
	g.data[off+1] = c.G
	g.data[off+2] = c.B
	g.data[off+3] = c.A

	if err := g.data.Flush(); err != nil {
		return fmt.Errorf("failed to flush grid data: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the full cell region (header excluded) in
// row-major order. Its length is always width*height*4.
func (g *Grid) Snapshot() []byte {
	g.mu.RLock()
	defer g.mu.RUnlock()

	buf := make([]byte, len(g.data)-headerSize)
	copy(buf, g.data[headerSize:])
	return buf
}

// Close flushes outstanding writes, unmaps the file and closes it. The Grid
// must not be used afterwards.
func (g *Grid) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.data.Flush(); err != nil {
		g.data.Unmap()
		g.file.Close()
		return fmt.Errorf("failed to flush grid data: %w", err)
	}
	if err := g.data.Unmap(); err != nil {
		g.file.Close()
		return fmt.Errorf("failed to unmap grid file: %w", err)
	}
	return g.file.Close()
}

func (g *Grid) cellOffset(x, y uint32) int {
	return headerSize + (int(y)*int(g.width)+int(x))*bytesPerCell
}

func fileSize(width, height uint32) int64 {
	return headerSize + int64(width)*int64(height)*bytesPerCell
}

func writeHeader(f *os.File, width, height uint32) error {
	header := make([]byte, headerSize)
	copy(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], formatVersion)
	binary.LittleEndian.PutUint32(header[8:12], width)
	binary.LittleEndian.PutUint32(header[12:16], height)

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("failed to write grid header: %w", err)
	}
	return nil
}

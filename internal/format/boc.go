package format

import (
	"fmt"

	"github.com/ledgerboc/tvcengine/internal/buf"
)

// BocMagic is the four-byte big-endian tag that opens every generic
// Bag-of-Cells serialization this engine accepts.
const BocMagic = 0xB5EE9C72

// flag bits packed into the byte following the magic.
const (
	flagIndexIncluded = 0x80
	flagHasCRC        = 0x40
	flagHasCacheBits  = 0x20
	refSizeMask       = 0x07
)

// MaxRootsCount is the only roots_count this engine accepts: a Bag-of-Cells
// with more than one root describes a forest, which this engine has no use
// for (spec Non-goals).
const MaxRootsCount = 1

// Tree is a fully decoded, validated cell table: Cells[0] is always the
// single root. The backing array is always sized MaxCellsCount (matching the
// reference implementation's fixed cell table) regardless of how many
// entries a given BoC actually populates, so that a reference one past the
// last populated cell but still within cells_count's declared bound (an
// off-by-one the reference format tolerates) indexes a harmless zero Cell
// rather than panicking. ParseCell rejects a reference to slot MaxCellsCount,
// which the array does not have.
type Tree struct {
	Cells      [MaxCellsCount]Cell
	CellsCount int
}

// ParseBoc validates and decodes a generic Bag-of-Cells envelope, enforcing
// every structural constraint an ordinary (non-exotic, non-indexed,
// non-CRC'd) BoC must satisfy: a 1-byte reference size, a single root, a
// cell count within maxCells, and a forward-only reference graph (checked
// per-cell by ParseCell).
func ParseBoc(data []byte, maxCells int) (Tree, error) {
	c := buf.NewCursor(data)

	magic, err := c.ReadU32BE()
	if err != nil {
		return Tree{}, fmt.Errorf("boc: %w", ErrTruncated)
	}
	if magic != BocMagic {
		return Tree{}, fmt.Errorf("boc: bad magic 0x%08x: %w", magic, ErrInvalidData)
	}

	firstByte, err := c.ReadByte()
	if err != nil {
		return Tree{}, fmt.Errorf("boc: %w", ErrTruncated)
	}
	if firstByte&(flagIndexIncluded|flagHasCRC|flagHasCacheBits) != 0 {
		return Tree{}, fmt.Errorf("boc: unsupported framing flags: %w", ErrInvalidData)
	}
	refSize := firstByte & refSizeMask
	if refSize != 1 {
		return Tree{}, fmt.Errorf("boc: ref size %d != 1: %w", refSize, ErrInvalidData)
	}

	offsetSize, err := c.ReadByte()
	if err != nil {
		return Tree{}, fmt.Errorf("boc: %w", ErrTruncated)
	}
	if offsetSize == 0 || offsetSize > 8 {
		return Tree{}, fmt.Errorf("boc: offset size %d out of range: %w", offsetSize, ErrInvalidData)
	}

	cellsCountByte, err := c.ReadByte()
	if err != nil {
		return Tree{}, fmt.Errorf("boc: %w", ErrTruncated)
	}
	cellsCount := int(cellsCountByte)
	if cellsCount > maxCells {
		return Tree{}, fmt.Errorf("boc: cells_count %d exceeds %d: %w", cellsCount, maxCells, ErrInvalidData)
	}

	rootsCount, err := c.ReadByte()
	if err != nil {
		return Tree{}, fmt.Errorf("boc: %w", ErrTruncated)
	}
	if int(rootsCount) != MaxRootsCount {
		return Tree{}, fmt.Errorf("boc: roots_count %d != %d: %w", rootsCount, MaxRootsCount, ErrInvalidData)
	}

	if _, err := c.ReadByte(); err != nil { // absent_count, ignored
		return Tree{}, fmt.Errorf("boc: %w", ErrTruncated)
	}
	if err := c.Skip(int(offsetSize)); err != nil { // total_cells_size, ignored
		return Tree{}, fmt.Errorf("boc: %w", ErrTruncated)
	}
	if err := c.Skip(int(rootsCount) * int(refSize)); err != nil { // root index list, ignored (root is always 0)
		return Tree{}, fmt.Errorf("boc: %w", ErrTruncated)
	}

	var tree Tree
	tree.CellsCount = cellsCount
	for i := 0; i < cellsCount; i++ {
		cell, size, err := ParseCell(c.Rest(), i, cellsCount)
		if err != nil {
			return Tree{}, err
		}
		tree.Cells[i] = cell
		if err := c.Skip(size); err != nil {
			return Tree{}, fmt.Errorf("boc: %w", ErrTruncated)
		}
	}

	return tree, nil
}

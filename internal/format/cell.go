package format

import (
	"errors"
	"fmt"
)

// Sentinel errors returned while decoding a single cell's header. Translated
// to the public ErrKind taxonomy by internal/engine.
var (
	ErrInvalidData    = errors.New("format: invalid cell data")
	ErrTruncated      = errors.New("format: input truncated")
	ErrBoundsCheck    = errors.New("format: bounds check failed")
	ErrWrongLabel     = errors.New("format: wrong dictionary label prefix")
	ErrInvalidKey     = errors.New("format: invalid dictionary key")
	ErrCellIsEmpty    = errors.New("format: cell is empty")
	ErrInvalidInputID = errors.New("format: unexpected message input id")
	ErrInvalidSrcAddr = errors.New("format: source address mismatch")
	ErrInvalidHash    = errors.New("format: hash computation failed")
)

// CellDataOffset is the number of header bytes (d1, d2) preceding a cell's
// payload within the serialized cell table.
const CellDataOffset = 2

// MaxReferencesCount bounds the number of child references a single ordinary
// cell may carry; the BoC format reserves 3 bits for the count but an
// ordinary (non-exotic) cell never needs more than 4.
const MaxReferencesCount = 4

// MaxCellsCount is the largest cell table this engine will parse. It bounds
// both the contract-address flow (dictionary trees) and keeps the per-cell
// index arithmetic within a single byte.
const MaxCellsCount = 16

// Cell is a single decoded entry from a cell table: a short header (d1, d2),
// a payload slice, and a list of forward references into the same table.
type Cell struct {
	D1   byte
	D2   byte
	Data []byte
	Refs []int
}

// DataSize returns the payload length, in bytes, encoded by a cell's d2
// byte: the top 7 bits count whole bytes, the low bit signals one further
// byte left incomplete by the append-tag convention.
func DataSize(d2 byte) int {
	return int(d2>>1) + int(d2&1)
}

// RefsCount returns the number of child references encoded in a cell's d1
// byte (the low 3 bits).
func RefsCount(d1 byte) int {
	return int(d1 & 0x7)
}

// hasWithHashes, isExotic, and level read the d1 flag/level bits this engine
// rejects on an ordinary cell.
func hasWithHashes(d1 byte) bool { return d1&0x10 != 0 }
func isExotic(d1 byte) bool      { return d1&0x08 != 0 }
func level(d1 byte) byte         { return d1 >> 5 }

// ParseCell decodes the cell beginning at b[0], validating its header against
// the ordinary-cell constraints (no stored hashes, not exotic, level bits
// zero, refs count within bounds, and every reference strictly forward, at
// most cellsCount, and below MaxCellsCount).
// It returns the decoded cell and the total size, in bytes, it occupies
// (header + payload + references), so the caller can advance to the next
// cell.
func ParseCell(b []byte, cellIndex, cellsCount int) (Cell, int, error) {
	if len(b) < CellDataOffset {
		return Cell{}, 0, fmt.Errorf("cell %d: %w", cellIndex, ErrTruncated)
	}
	d1, d2 := b[0], b[1]
	if hasWithHashes(d1) {
		return Cell{}, 0, fmt.Errorf("cell %d: stored hashes: %w", cellIndex, ErrInvalidData)
	}
	if isExotic(d1) {
		return Cell{}, 0, fmt.Errorf("cell %d: exotic cell: %w", cellIndex, ErrInvalidData)
	}
	if level(d1) != 0 {
		return Cell{}, 0, fmt.Errorf("cell %d: level bits set: %w", cellIndex, ErrInvalidData)
	}
	refsCount := RefsCount(d1)
	if refsCount > MaxReferencesCount {
		return Cell{}, 0, fmt.Errorf("cell %d: refs count %d: %w", cellIndex, refsCount, ErrInvalidData)
	}

	dataSize := DataSize(d2)
	end := CellDataOffset + dataSize
	if len(b) < end+refsCount {
		return Cell{}, 0, fmt.Errorf("cell %d: %w", cellIndex, ErrTruncated)
	}

	data := b[CellDataOffset:end]
	refs := make([]int, refsCount)
	for i := 0; i < refsCount; i++ {
		ref := int(b[end+i])
		if ref <= cellIndex || ref > cellsCount || ref >= MaxCellsCount {
			return Cell{}, 0, fmt.Errorf("cell %d: ref[%d]=%d out of order: %w", cellIndex, i, ref, ErrInvalidData)
		}
		refs[i] = ref
	}

	return Cell{D1: d1, D2: d2, Data: data, Refs: refs}, end + refsCount, nil
}

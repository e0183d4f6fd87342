package format

import "fmt"

// HashFunc computes a 32-byte digest of data. The engine's default uses
// stdlib crypto/sha256; it is a collaborator rather than a hard-wired call
// so callers (including hardware-backed engines) can supply their own.
type HashFunc func(data []byte) ([32]byte, error)

// CellOverride replaces one cell's payload during hashing without mutating
// the parsed tree: used to fold the spliced public key into the address
// hash without a second pass over the cell table.
type CellOverride struct {
	CellIndex int
	Data      []byte
}

// HashTree computes the bottom-up SHA-256 hash of every cell in a tree,
// hashing children before parents (always true when walking indices from
// cellsCount-1 down to 0, since every reference is strictly forward) and
// folding each child's hash and depth into its parent's preimage exactly as
// the reference hash engine does.
//
// The preimage for a single cell is: d1, d2, the cell's data (or override,
// 262 bytes is ample for MaxPublicKeyCellDataSize plus up to
// MaxReferencesCount child depth/hash records), a 2-byte depth record per
// child (0x00 followed by the child's own depth), then each child's 32-byte
// hash in reference order.
func HashTree(tree *Tree, override *CellOverride, hash HashFunc) (hashes [MaxCellsCount][32]byte, depths [MaxCellsCount]byte, err error) {
	for i := tree.CellsCount - 1; i >= 0; i-- {
		cell := tree.Cells[i]

		var preimage [262]byte
		offset := 0
		preimage[0] = cell.D1
		preimage[1] = cell.D2
		offset += 2

		data := cell.Data
		if override != nil && i == override.CellIndex {
			data = override.Data
		}
		if offset+len(data) > len(preimage) {
			return hashes, depths, fmt.Errorf("hash: cell %d payload too large: %w", i, ErrInvalidData)
		}
		copy(preimage[offset:], data)
		offset += len(data)

		if len(cell.Refs) > MaxReferencesCount {
			return hashes, depths, fmt.Errorf("hash: cell %d refs: %w", i, ErrInvalidData)
		}
		if offset+len(cell.Refs)*(2+32) > len(preimage) {
			return hashes, depths, fmt.Errorf("hash: cell %d preimage too large: %w", i, ErrInvalidData)
		}
		for _, ref := range cell.Refs {
			childDepth := depths[ref]
			if depths[i] < childDepth+1 {
				depths[i] = childDepth + 1
			}
			preimage[offset] = 0
			preimage[offset+1] = childDepth
			offset += 2
		}
		for _, ref := range cell.Refs {
			copy(preimage[offset:], hashes[ref][:])
			offset += 32
		}

		h, err := hash(preimage[:offset])
		if err != nil {
			return hashes, depths, fmt.Errorf("hash: cell %d: %w", i, ErrInvalidHash)
		}
		hashes[i] = h
	}
	return hashes, depths, nil
}

package format

import (
	"fmt"

	"github.com/ledgerboc/tvcengine/internal/buf"
)

// KeyLenBytes is the fixed width of the dictionary key this engine descends
// with: contracts are addressed with HashmapE(64, PublicKey), and the only
// key this engine ever looks up is the all-zero 64-bit key (spec Non-goals
// exclude any other key).
const KeyLenBytes = 8

// labelData reads the fill bit and length field of a label record (the
// prefix marker has already been consumed by getLabel), producing a label
// slice filled with the fill bit and truncated to the decoded length.
func labelData(max int, slice *buf.SliceData) (buf.SliceData, error) {
	fillBit, err := slice.GetNextBit()
	if err != nil {
		return buf.SliceData{}, err
	}
	fillValue := byte(0)
	if fillBit != 0 {
		fillValue = 0xFF
	}
	length64, err := slice.GetNextSize(max)
	if err != nil {
		return buf.SliceData{}, err
	}
	length := int(length64)
	if length > 64 {
		return buf.SliceData{}, fmt.Errorf("dict: label length %d: %w", length, buf.ErrRangeCheck)
	}

	lengthBytes := length / 8
	if length%8 != 0 {
		lengthBytes++
	}
	labelBuf := make([]byte, KeyLenBytes)
	label := buf.NewSliceData(labelBuf)
	if err := label.Fill(fillValue, lengthBytes); err != nil {
		return buf.SliceData{}, err
	}
	if err := label.Truncate(length); err != nil {
		return buf.SliceData{}, err
	}
	return label, nil
}

// getLabel consumes the two leading bits this engine supports (the "label
// short" and "label long" markers, both set to 1) before delegating to
// labelData. Any other leading bit pattern describes a label shape this
// engine does not implement (spec Non-goals) and is rejected.
func getLabel(max int, slice *buf.SliceData) (buf.SliceData, error) {
	empty, err := slice.IsEmpty()
	if err != nil {
		return buf.SliceData{}, err
	}
	if empty {
		return buf.SliceData{}, buf.ErrSliceEmpty
	}
	b0, err := slice.GetNextBit()
	if err != nil {
		return buf.SliceData{}, err
	}
	if b0 != 1 {
		return buf.SliceData{}, fmt.Errorf("dict: %w", ErrWrongLabel)
	}
	b1, err := slice.GetNextBit()
	if err != nil {
		return buf.SliceData{}, err
	}
	if b1 != 1 {
		return buf.SliceData{}, fmt.Errorf("dict: %w", ErrWrongLabel)
	}
	return labelData(max, slice)
}

// commonPrefixLen returns the number of leading bits label and key share,
// comparing by direct index (not by consuming either slice) exactly as the
// reference descent does: only once the shared length is known does the
// caller advance key and truncate label.
func commonPrefixLen(label, key *buf.SliceData) (int, error) {
	max := label.RemainingBits()
	if kr := key.RemainingBits(); kr < max {
		max = kr
	}
	if max > 64 {
		return 0, fmt.Errorf("dict: prefix length %d: %w", max, buf.ErrRangeCheck)
	}
	i := 0
	for i < max {
		lb, err := label.GetBits(i, 1)
		if err != nil {
			return 0, err
		}
		kb, err := key.GetBits(i, 1)
		if err != nil {
			return 0, err
		}
		if lb != kb {
			break
		}
		i++
	}
	return i, nil
}

// Descent is the outcome of walking a dictionary down to the cell holding
// the looked-up key: the cell index and the bit width of that cell's own
// label record (prefix marker + fill bit + length field), needed later to
// locate where the stored value begins within the cell's payload.
type Descent struct {
	CellIndex     int
	LabelSizeBits int
}

// Descend walks cells starting from cellIndex (a direct 0-based index, as
// stored in a parsed Cell's Refs), looking for key, consuming bitLen bits of
// key space at each step. Only a left-branch (key bit == 0) descent is
// supported; any right-branch lookup means the key this engine was asked to
// resolve doesn't exist in the dictionary (spec Non-goals restrict lookups
// to the all-zero key, which always takes the left branch when present at
// all).
//
// Implemented iteratively: the reference implementation recurses one
// dictionary level per call, but the max depth is already bounded by
// KeyLenBytes*8, so an explicit loop avoids unbounded native call stack
// growth on adversarial input.
func Descend(cells *[MaxCellsCount]Cell, cellIndex, bitLen int, key *buf.SliceData) (Descent, error) {
	for {
		if cellIndex == 0 || cellIndex > MaxCellsCount {
			return Descent{}, fmt.Errorf("dict: cell index %d: %w", cellIndex, ErrInvalidData)
		}
		cell := cells[cellIndex]

		slice := buf.FromCellPayload(cell.Data)
		label, err := getLabel(bitLen, &slice)
		if err != nil {
			return Descent{}, err
		}

		eq, err := label.Equal(key)
		if err != nil {
			return Descent{}, err
		}
		if eq {
			labelSizeBits := 2 + 1 + buf.SizeBits(bitLen)
			return Descent{CellIndex: cellIndex, LabelSizeBits: labelSizeBits}, nil
		}

		prefixLen, err := commonPrefixLen(&label, key)
		if err != nil {
			return Descent{}, err
		}
		if err := key.MoveBy(prefixLen); err != nil {
			return Descent{}, err
		}
		if err := label.Truncate(prefixLen); err != nil {
			return Descent{}, err
		}
		labelRemaining := label.RemainingBits()
		if bitLen < labelRemaining {
			return Descent{}, fmt.Errorf("dict: %w", buf.ErrCellUnderflow)
		}
		bitLen -= labelRemaining

		if bitLen < 1 {
			return Descent{}, fmt.Errorf("dict: %w", buf.ErrCellUnderflow)
		}
		nextBit, err := key.GetNextBit()
		if err != nil {
			return Descent{}, err
		}
		if nextBit != 0 {
			return Descent{}, fmt.Errorf("dict: right-branch lookup: %w", ErrInvalidKey)
		}

		refsCount := len(cell.Refs)
		if refsCount == 0 || refsCount > MaxReferencesCount {
			return Descent{}, fmt.Errorf("dict: cell %d refs: %w", cellIndex, ErrInvalidData)
		}
		next := cell.Refs[0]
		if next == 0 || next > MaxCellsCount {
			return Descent{}, fmt.Errorf("dict: ref %d: %w", next, ErrInvalidData)
		}
		bitLen -= 1
		cellIndex = next
	}
}

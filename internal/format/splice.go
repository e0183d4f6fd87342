package format

import (
	"fmt"

	"github.com/ledgerboc/tvcengine/internal/buf"
)

// MaxPublicKeyCellDataSize bounds the payload of the cell this engine
// splices a public key into: a label of up to 3 bytes, a 32-byte public
// key, and one completion-tag byte.
const MaxPublicKeyCellDataSize = 36

// PublicKeyLength is the width, in bytes, of the Ed25519 public key this
// engine splices into the dictionary leaf.
const PublicKeyLength = 32

// FindPublicKeyCell locates the dictionary leaf that holds this contract's
// public key: cell 0 must carry the "has data" branch bit, its last
// reference is the data root, and the data root's first reference is the
// dictionary holding the key at the all-zero 64-bit key.
func FindPublicKeyCell(cells *[MaxCellsCount]Cell) (Descent, error) {
	root := cells[0]
	if len(root.Data) == 0 || root.Data[0]&0x20 == 0 {
		return Descent{}, fmt.Errorf("splice: no data branch: %w", ErrInvalidData)
	}
	if len(root.Refs) == 0 || len(root.Refs) > 2 {
		return Descent{}, fmt.Errorf("splice: root refs: %w", ErrInvalidData)
	}
	dataRoot := root.Refs[len(root.Refs)-1]
	if dataRoot == 0 || dataRoot > MaxCellsCount {
		return Descent{}, fmt.Errorf("splice: data root %d: %w", dataRoot, ErrInvalidData)
	}
	dictRoot := cells[dataRoot]
	if len(dictRoot.Refs) == 0 || len(dictRoot.Refs) > MaxReferencesCount {
		return Descent{}, fmt.Errorf("splice: dict root refs: %w", ErrInvalidData)
	}

	keyBuf := make([]byte, KeyLenBytes)
	key := buf.NewSliceData(keyBuf)
	bitLen := key.RemainingBits()
	return Descend(cells, dictRoot.Refs[0], bitLen, &key)
}

// SplicePublicKey copies a dictionary leaf's payload into a fresh
// MaxPublicKeyCellDataSize buffer and overwrites the bits beginning at
// labelOffsetBits with publicKey. When the offset falls on a byte boundary
// the key is copied directly and no completion tag is written: the byte after
// the key keeps whatever the original payload held there. Otherwise every
// destination byte is reassembled from two source bytes shifted into place,
// and a single completion-tag bit is set right after the key's last bit.
func SplicePublicKey(payload []byte, labelOffsetBits int, publicKey [PublicKeyLength]byte) ([]byte, error) {
	if len(payload) == 0 || len(payload) > MaxPublicKeyCellDataSize {
		return nil, fmt.Errorf("splice: cell data size %d: %w", len(payload), ErrInvalidData)
	}
	data := make([]byte, MaxPublicKeyCellDataSize)
	copy(data, payload)

	offset := labelOffsetBits
	if offset%8 == 0 {
		firstByte := offset / 8
		if firstByte+PublicKeyLength > len(data) {
			return nil, fmt.Errorf("splice: %w", ErrInvalidData)
		}
		copy(data[firstByte:], publicKey[:])
		return data, nil
	}

	shift := uint(offset % 8)
	firstDataByte := offset / 8
	cellDataSize := len(payload)
	for i, j := firstDataByte, 0; j < PublicKeyLength; i, j = i+1, j+1 {
		if i != j+firstDataByte || i >= cellDataSize {
			return nil, fmt.Errorf("splice: %w", ErrInvalidData)
		}
		pkCur := publicKey[j] >> shift
		if i == firstDataByte {
			first := data[i] >> (8 - shift)
			first <<= 8 - shift
			data[i] = first | pkCur
			continue
		}

		pkPrev := publicKey[j-1] << (8 - shift)
		data[i] = pkPrev | pkCur
		if j == PublicKeyLength-1 {
			last := publicKey[j] << (8 - shift)
			last = pkCur | last
			if shift != 7 {
				last >>= 7 - shift
			}
			last |= 1
			if shift != 7 {
				last <<= 7 - shift
			}
			if i+1 >= len(data) {
				return nil, fmt.Errorf("splice: %w", ErrInvalidData)
			}
			data[i+1] = last
		}
	}
	return data, nil
}

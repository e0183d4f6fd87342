package format

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/ledgerboc/tvcengine/internal/buf"
)

func samplePublicKey() [PublicKeyLength]byte {
	var pk [PublicKeyLength]byte
	for i := range pk {
		pk[i] = byte(i)
	}
	return pk
}

func TestSplicePublicKeyByteAligned(t *testing.T) {
	payload := []byte{0x11, 0x22, 0x33, 0x44, 0xFF}
	pk := samplePublicKey()

	data, err := SplicePublicKey(payload, 32, pk)
	if err != nil {
		t.Fatalf("SplicePublicKey: %v", err)
	}
	if len(data) != MaxPublicKeyCellDataSize {
		t.Fatalf("len(data)=%d want %d", len(data), MaxPublicKeyCellDataSize)
	}
	if !bytes.Equal(data[:4], payload[:4]) {
		t.Fatalf("leading bytes = %x want %x", data[:4], payload[:4])
	}
	if !bytes.Equal(data[4:36], pk[:]) {
		t.Fatalf("spliced key = %x want %x", data[4:36], pk[:])
	}
}

func TestSplicePublicKeySubByteOffsetRoundTrips(t *testing.T) {
	payload := make([]byte, 33)
	payload[1] = 0xFF // top 3 bits of this byte sit before bit offset 11
	pk := samplePublicKey()

	data, err := SplicePublicKey(payload, 11, pk)
	if err != nil {
		t.Fatalf("SplicePublicKey: %v", err)
	}

	// The 3 header bits preceding the offset (local bits 0-2 of byte 1,
	// i.e. global bits 8-10) must survive untouched.
	s := buf.NewSliceData(data)
	preserved, err := s.GetBits(8, 3)
	if err != nil {
		t.Fatalf("GetBits: %v", err)
	}
	if preserved != 0b111 {
		t.Fatalf("preserved header bits = %03b want 111", preserved)
	}

	if err := s.MoveBy(11); err != nil {
		t.Fatalf("MoveBy: %v", err)
	}
	for i := 0; i < PublicKeyLength; i++ {
		b, err := s.GetNextByte()
		if err != nil {
			t.Fatalf("GetNextByte(%d): %v", i, err)
		}
		if b != pk[i] {
			t.Fatalf("key byte %d = 0x%02x want 0x%02x", i, b, pk[i])
		}
	}
	tag, err := s.GetNextBit()
	if err != nil || tag != 1 {
		t.Fatalf("completion tag = %d,%v want 1,nil", tag, err)
	}
}

func TestSplicePublicKeyRejectsOversizedPayload(t *testing.T) {
	payload := make([]byte, MaxPublicKeyCellDataSize+1)
	pk := samplePublicKey()
	if _, err := SplicePublicKey(payload, 0, pk); err == nil {
		t.Fatalf("expected error for oversized payload")
	}
}

func sha256Hash(data []byte) ([32]byte, error) { return sha256.Sum256(data), nil }

func leafHash(t *testing.T, data []byte) [32]byte {
	t.Helper()
	tree := Tree{CellsCount: 1}
	tree.Cells[0] = Cell{D1: 0x00, D2: byte(len(data) * 2), Data: data}
	hashes, _, err := HashTree(&tree, nil, sha256Hash)
	if err != nil {
		t.Fatalf("HashTree: %v", err)
	}
	return hashes[0]
}

// The byte-aligned fast path leaves everything outside the key bytes
// untouched, including whatever completion tag the caller already baked into
// the payload (spec.md's open question on this asymmetry with the sub-byte
// path). Two payloads that agree everywhere except inside the 32 bytes the
// splice overwrites must therefore hash identically once spliced.
func TestSplicePublicKeyByteAlignedHashIndependentOfOverwrittenBytes(t *testing.T) {
	pk := samplePublicKey()
	const offset = 24 // 3-byte label, leaving exactly one trailing byte for the tag

	build := func(keyGarbage byte) []byte {
		p := make([]byte, MaxPublicKeyCellDataSize)
		p[0], p[1], p[2] = 0xAA, 0xBB, 0xCC
		for i := 3; i < 35; i++ {
			p[i] = keyGarbage
		}
		p[35] = 0x80 // completion tag, pre-baked since the fast path won't emit one
		return p
	}

	splicedA, err := SplicePublicKey(build(0x11), offset, pk)
	if err != nil {
		t.Fatalf("SplicePublicKey A: %v", err)
	}
	splicedB, err := SplicePublicKey(build(0xEE), offset, pk)
	if err != nil {
		t.Fatalf("SplicePublicKey B: %v", err)
	}
	if !bytes.Equal(splicedA, splicedB) {
		t.Fatalf("spliced payloads differ: %x vs %x", splicedA, splicedB)
	}
	if leafHash(t, splicedA) != leafHash(t, splicedB) {
		t.Fatalf("hashes differ for equivalent byte-aligned cells")
	}
}

// The sub-byte path recomputes the completion tag itself from the shifted key
// bytes, so it must produce an identical result regardless of what garbage
// sat in the overwritten region beforehand.
func TestSplicePublicKeySubByteHashIndependentOfOverwrittenBytes(t *testing.T) {
	pk := samplePublicKey()
	const offset = 11

	build := func(fill byte) []byte {
		p := make([]byte, 33)
		p[0] = 0xE0
		p[1] = 0xC0 | (fill & 0x1F) // top 3 bits precede the offset and stay fixed
		for i := 2; i < len(p); i++ {
			p[i] = fill
		}
		return p
	}

	splicedA, err := SplicePublicKey(build(0x00), offset, pk)
	if err != nil {
		t.Fatalf("SplicePublicKey A: %v", err)
	}
	splicedB, err := SplicePublicKey(build(0xFF), offset, pk)
	if err != nil {
		t.Fatalf("SplicePublicKey B: %v", err)
	}
	if !bytes.Equal(splicedA, splicedB) {
		t.Fatalf("spliced payloads differ: %x vs %x", splicedA, splicedB)
	}
	if leafHash(t, splicedA) != leafHash(t, splicedB) {
		t.Fatalf("hashes differ for equivalent sub-byte cells")
	}
}

package format

import "testing"

// minimalBoc builds a single-cell Bag-of-Cells: magic, flags (ref_size=1),
// offset_size=1, cells_count=1, roots_count=1, absent_count=0,
// total_cells_size=size, root index list=[0], then one leaf cell with the
// given payload and no refs.
func minimalBoc(payload []byte) []byte {
	cell := append([]byte{0x00, byte(len(payload) * 2)}, payload...)
	buf := []byte{0xB5, 0xEE, 0x9C, 0x72, 0x01, 0x01, 0x01, 0x01, 0x00, byte(len(cell)), 0x00}
	return append(buf, cell...)
}

func TestParseBocMinimal(t *testing.T) {
	tree, err := ParseBoc(minimalBoc([]byte{0xAB}), MaxCellsCount)
	if err != nil {
		t.Fatalf("ParseBoc: %v", err)
	}
	if tree.CellsCount != 1 {
		t.Fatalf("CellsCount=%d want 1", tree.CellsCount)
	}
	if len(tree.Cells[0].Data) != 1 || tree.Cells[0].Data[0] != 0xAB {
		t.Fatalf("unexpected root data: %+v", tree.Cells[0].Data)
	}
}

func TestParseBocTwoCellsWithChild(t *testing.T) {
	child := []byte{0x00, 0x04, 0x11, 0x22}
	root := []byte{0x01, 0x04, 0x33, 0x44, 0x01}
	buf := []byte{0xB5, 0xEE, 0x9C, 0x72, 0x01, 0x01, 0x02, 0x01, 0x00, byte(len(root) + len(child)), 0x00}
	data := append(buf, append(root, child...)...)

	tree, err := ParseBoc(data, MaxCellsCount)
	if err != nil {
		t.Fatalf("ParseBoc: %v", err)
	}
	if tree.CellsCount != 2 {
		t.Fatalf("CellsCount=%d want 2", tree.CellsCount)
	}
	if len(tree.Cells[0].Refs) != 1 || tree.Cells[0].Refs[0] != 1 {
		t.Fatalf("unexpected root refs: %+v", tree.Cells[0].Refs)
	}
	if tree.Cells[1].Data[0] != 0x11 {
		t.Fatalf("unexpected child data: %+v", tree.Cells[1].Data)
	}
}

func TestParseBocRejectsBadMagic(t *testing.T) {
	data := minimalBoc([]byte{0x00})
	data[0] = 0x00
	if _, err := ParseBoc(data, MaxCellsCount); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

func TestParseBocRejectsUnsupportedFlags(t *testing.T) {
	data := minimalBoc([]byte{0x00})
	data[4] = 0x81 // index_included bit set alongside ref_size=1
	if _, err := ParseBoc(data, MaxCellsCount); err == nil {
		t.Fatalf("expected error for unsupported framing flags")
	}
}

func TestParseBocRejectsMultipleRoots(t *testing.T) {
	data := minimalBoc([]byte{0x00})
	data[7] = 0x02
	if _, err := ParseBoc(data, MaxCellsCount); err == nil {
		t.Fatalf("expected error for roots_count != 1")
	}
}

func TestParseBocRejectsCellsCountOverMax(t *testing.T) {
	data := minimalBoc([]byte{0x00})
	if _, err := ParseBoc(data, 0); err == nil {
		t.Fatalf("expected error when cells_count exceeds the caller's max")
	}
}

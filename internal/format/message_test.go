package format

import (
	"bytes"
	"testing"

	"github.com/ledgerboc/tvcengine/internal/buf"
)

func TestDeserializeAddressZero(t *testing.T) {
	// type=2 ('10'), anycast=0, workchain=0x00 -> first 11 bits are
	// "10000000000"; everything after is the all-zero 256-bit account id.
	payload := make([]byte, 34)
	payload[0] = 0x80

	slice := buf.NewSliceData(payload)
	addr, err := DeserializeAddress(&slice)
	if err != nil {
		t.Fatalf("DeserializeAddress: %v", err)
	}
	if addr.Workchain != 0 {
		t.Fatalf("Workchain=%d want 0", addr.Workchain)
	}
	want := make([]byte, AddressLength)
	if !bytes.Equal(addr.Account[:], want) {
		t.Fatalf("Account=%x want all-zero", addr.Account)
	}
}

func TestDeserializeAddressRejectsWrongType(t *testing.T) {
	payload := make([]byte, 34)
	payload[0] = 0x00 // type bits '00', not the supported '10'
	slice := buf.NewSliceData(payload)
	if _, err := DeserializeAddress(&slice); err == nil {
		t.Fatalf("expected error for unsupported address type")
	}
}

func TestDeserializeAmountSkipsLeadingZeros(t *testing.T) {
	payload := make([]byte, 16)
	payload[14] = 0x07
	payload[15] = 0x80 // bounce bit (1) in the MSB, read by the caller next
	slice := buf.FromCellPayload(payload)

	amount, err := DeserializeAmount(&slice)
	if err != nil {
		t.Fatalf("DeserializeAmount: %v", err)
	}
	if len(amount) != 1 || amount[0] != 0x07 {
		t.Fatalf("amount=%x want [07]", amount)
	}
	bounce, err := slice.GetNextBit()
	if err != nil || bounce != 1 {
		t.Fatalf("bounce bit=%d,%v want 1,nil", bounce, err)
	}
}

func TestDeserializeAmountAllZero(t *testing.T) {
	// 15 leading zero bytes (MaxAmountLength of them) followed by a
	// non-zero byte that stops the scan but isn't part of the amount.
	payload := make([]byte, 16)
	payload[15] = 0xFF
	slice := buf.FromCellPayload(payload)
	amount, err := DeserializeAmount(&slice)
	if err != nil {
		t.Fatalf("DeserializeAmount: %v", err)
	}
	if len(amount) != 0 {
		t.Fatalf("amount=%x want empty when amount length is zero", amount)
	}
}

func TestDeserializeHeaderWorkedExample(t *testing.T) {
	wire := []byte{
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, // time, LE
		0x0D, 0x0C, 0x0B, 0x0A, // expire, LE
		0x35, 0xF9, 0x5E, 0x31, // input_id, LE
	}
	slice := buf.FromCellPayload(wire)
	header, err := DeserializeHeader(&slice)
	if err != nil {
		t.Fatalf("DeserializeHeader: %v", err)
	}
	if header.InputID != InputID {
		t.Fatalf("InputID=0x%x want 0x%x", header.InputID, InputID)
	}
	if header.Time != 0x0102030405060708 {
		t.Fatalf("Time=0x%x want 0x0102030405060708", header.Time)
	}
	if header.Expire != 0x0A0B0C0D {
		t.Fatalf("Expire=0x%x want 0x0A0B0C0D", header.Expire)
	}
	want := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x0A, 0x0B, 0x0C, 0x0D,
		0x31, 0x5E, 0xF9, 0x35,
	}
	if !bytes.Equal(header.BigEndian[:], want) {
		t.Fatalf("BigEndian=%x want %x", header.BigEndian, want)
	}
}

func TestDeserializeHeaderRejectsWrongInputID(t *testing.T) {
	wire := make([]byte, 16)
	slice := buf.FromCellPayload(wire)
	if _, err := DeserializeHeader(&slice); err == nil {
		t.Fatalf("expected error for a zero input_id")
	}
}

func TestLeToBE(t *testing.T) {
	got := leToBE([]byte{1, 2, 3, 4})
	want := []byte{4, 3, 2, 1}
	if !bytes.Equal(got, want) {
		t.Fatalf("leToBE=%x want %x", got, want)
	}
}

package format

import (
	"fmt"

	"github.com/ledgerboc/tvcengine/internal/buf"
)

// AddressCellIndex and AmountCellIndex are the two fixed positions a message
// BoC's cells occupy: the envelope (source/destination/header) and the
// value commitment, respectively.
const (
	AddressCellIndex = 0
	AmountCellIndex  = 1
)

// InputID is the only message header tag this engine accepts; any other
// value means the message wasn't built for the external-signing flow this
// engine implements.
const InputID = 0x315EF935

// AddressLength is the width, in bytes, of an address's account id: the part
// that follows the 2-bit type tag, the 1-bit anycast flag and the workchain
// byte.
const AddressLength = 32

// MaxAmountLength is the width, in bytes, of the zero-padded big-endian
// amount field at the start of an amount cell's payload; no length prefix is
// read.
const MaxAmountLength = 15

// Address is a deserialized address cell: a workchain byte and the 32-byte
// account id that follows it.
type Address struct {
	Workchain int8
	Account   [AddressLength]byte
}

// deserializeArray reads outSize bytes beginning at bit offset from in,
// handling the case where offset isn't byte-aligned by shifting two
// consecutive source bytes into each destination byte.
func deserializeArray(in []byte, offset, outSize int) ([]byte, error) {
	out := make([]byte, outSize)
	shift := uint(offset % 8)
	firstByte := offset / 8
	for i, j := firstByte, 0; j < outSize; i, j = i+1, j+1 {
		if i != j+firstByte || i+1 > len(in) {
			return nil, fmt.Errorf("message: %w", ErrInvalidData)
		}
		cur := in[i] << shift
		out[j] = cur
		if j == outSize-1 {
			if i+1 >= len(in) {
				return nil, fmt.Errorf("message: %w", ErrInvalidData)
			}
			out[j] |= in[i+1] >> (8 - shift)
		}
		if i != firstByte {
			out[j-1] |= in[i] >> (8 - shift)
		}
	}
	return out, nil
}

// DeserializeAddress reads a type-2 (standard, non-anycast) address: 2 bits
// of address type (must be 2), 1 anycast bit (ignored), a signed workchain
// byte, then 256 address bits.
func DeserializeAddress(slice *buf.SliceData) (Address, error) {
	addressType, err := slice.GetNextInt(2)
	if err != nil {
		return Address{}, err
	}
	if addressType != 2 {
		return Address{}, fmt.Errorf("message: address type %d: %w", addressType, ErrInvalidData)
	}
	if _, err := slice.GetNextBit(); err != nil { // anycast, ignored
		return Address{}, err
	}
	wcByte, err := slice.GetNextByte()
	if err != nil {
		return Address{}, err
	}

	payload, offsetBits := slicePayloadAndCursor(slice)
	raw, err := deserializeArray(payload, offsetBits, AddressLength)
	if err != nil {
		return Address{}, err
	}
	if err := slice.MoveBy(AddressLength * 8); err != nil {
		return Address{}, err
	}

	var addr Address
	addr.Workchain = int8(wcByte)
	copy(addr.Account[:], raw)
	return addr, nil
}

// slicePayloadAndCursor exposes a SliceData's backing payload and current
// bit cursor for the handful of message-parsing steps that must read a raw,
// possibly sub-byte-aligned byte run directly (deserializeArray).
func slicePayloadAndCursor(slice *buf.SliceData) ([]byte, int) {
	return slice.Payload(), slice.Cursor()
}

// DeserializeAmount reads a VarUInteger-style amount: any leading zero bytes
// are skipped, and the remaining MaxAmountLength-leadingZeroBytes bytes are
// the big-endian amount value. The slice cursor advances past the consumed
// bytes.
func DeserializeAmount(slice *buf.SliceData) ([]byte, error) {
	payload, startBits := slicePayloadAndCursor(slice)
	offset := startBits
	for offset/8 < len(payload) && payload[offset/8] == 0 {
		offset += 8
	}
	leadingZeroBytes := (offset - startBits) / 8
	amountLength := MaxAmountLength - leadingZeroBytes
	if amountLength < 0 || amountLength > MaxAmountLength {
		return nil, fmt.Errorf("message: amount length %d: %w", amountLength, ErrInvalidData)
	}
	amount, err := deserializeArray(payload, offset, amountLength)
	if err != nil {
		return nil, err
	}
	if err := slice.MoveBy(amountLength*8 + (offset - startBits)); err != nil {
		return nil, err
	}
	return amount, nil
}

// leToBE reverses a little-endian byte run into big-endian, matching the
// header re-encoding step: the wire format stores time/expire/input_id
// little-endian, but the signing preimage commits to their big-endian form.
func leToBE(le []byte) []byte {
	be := make([]byte, len(le))
	for i := range le {
		be[i] = le[len(le)-1-i]
	}
	return be
}

// Header is the deserialized message header: a timestamp, an expiration,
// and the input-id tag this engine validates.
type Header struct {
	Time      uint64
	Expire    uint32
	InputID   uint32
	BigEndian [16]byte // time || expire || input_id, re-encoded big-endian
}

// readLEBytes reads n raw bytes in stream order, which for this format's
// little-endian fields is already the field's byte array from least to most
// significant: the wire never needs an explicit reversal to be read, only to
// be re-encoded for the signing preimage.
func readLEBytes(slice *buf.SliceData, n int) ([]byte, error) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := slice.GetNextByte()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// leUint reconstructs the unsigned integer a little-endian byte array encodes.
func leUint(le []byte) uint64 {
	var v uint64
	for i, b := range le {
		v |= uint64(b) << uint(8*i)
	}
	return v
}

// DeserializeHeader reads the 64-bit time, 32-bit expire, and 32-bit
// input_id fields (all little-endian on the wire) and produces their
// big-endian re-encoding for the signing preimage.
func DeserializeHeader(slice *buf.SliceData) (Header, error) {
	timeLE, err := readLEBytes(slice, 8)
	if err != nil {
		return Header{}, err
	}
	expireLE, err := readLEBytes(slice, 4)
	if err != nil {
		return Header{}, err
	}
	inputIDLE, err := readLEBytes(slice, 4)
	if err != nil {
		return Header{}, err
	}

	inputID := uint32(leUint(inputIDLE))
	if inputID != InputID {
		return Header{}, fmt.Errorf("message: input_id 0x%x: %w", inputID, ErrInvalidInputID)
	}

	var be [16]byte
	copy(be[0:8], leToBE(timeLE))
	copy(be[8:12], leToBE(expireLE))
	copy(be[12:16], leToBE(inputIDLE))

	return Header{
		Time:      leUint(timeLE),
		Expire:    uint32(leUint(expireLE)),
		InputID:   inputID,
		BigEndian: be,
	}, nil
}

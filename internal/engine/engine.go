// Package engine provides the concrete types.Engine implementation: it
// orchestrates the cell-table parser, dictionary descent, payload splicer,
// and hash engine in internal/format behind the public collaborator
// interfaces in pkg/types.
package engine

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ledgerboc/tvcengine/internal/buf"
	"github.com/ledgerboc/tvcengine/internal/format"
	"github.com/ledgerboc/tvcengine/pkg/types"
)

// New constructs an Engine from opts. There is no persistent state between
// calls: a caller that wants a clean slate after a failure simply discards
// the returned value and calls New again, matching spec §5/§9's
// "reset becomes construct a new engine".
func New(opts types.EngineOptions) (types.Engine, error) {
	if opts.Hasher == nil {
		opts.Hasher = StdSHA256{}
	}
	return &engine{opts: opts}, nil
}

type engine struct {
	opts types.EngineOptions
}

// StdSHA256 is the default Hasher, wrapping stdlib crypto/sha256 the same
// way the teacher's security-descriptor deduplication hashes with
// sha256.Sum256 directly rather than reaching for a third-party digest
// library.
type StdSHA256 struct{}

func (StdSHA256) Sum256(data []byte) ([32]byte, error) {
	return sha256.Sum256(data), nil
}

func hashFunc(h types.Hasher) format.HashFunc {
	return func(data []byte) ([32]byte, error) {
		return h.Sum256(data)
	}
}

// ComputeAddress implements types.Engine.
func (e *engine) ComputeAddress(accountIndex uint32, tvc []byte) (types.AddressResult, error) {
	if e.opts.PublicKeyProvider == nil {
		return types.AddressResult{}, &types.Error{Kind: types.ErrKindInvalidData, Msg: "no public key provider configured"}
	}

	tree, err := format.ParseBoc(tvc, format.MaxCellsCount)
	if err != nil {
		return types.AddressResult{}, wrapFormatErr(err)
	}
	if tree.CellsCount == 0 {
		return types.AddressResult{}, wrapFormatErr(fmt.Errorf("engine: %w", format.ErrInvalidData))
	}

	descent, err := format.FindPublicKeyCell(&tree.Cells)
	if err != nil {
		return types.AddressResult{}, wrapFormatErr(err)
	}
	if descent.CellIndex == 0 || descent.LabelSizeBits == 0 {
		return types.AddressResult{}, types.ErrCellIsEmpty
	}

	leaf := tree.Cells[descent.CellIndex]
	if len(leaf.Data) == 0 || len(leaf.Data) > format.MaxPublicKeyCellDataSize {
		return types.AddressResult{}, wrapFormatErr(fmt.Errorf("engine: leaf size %d: %w", len(leaf.Data), format.ErrInvalidData))
	}

	publicKey, err := e.opts.PublicKeyProvider.PublicKey(accountIndex)
	if err != nil {
		return types.AddressResult{}, &types.Error{Kind: types.ErrKindInvalidData, Msg: "public key provider failed", Err: err}
	}

	splicedData, err := format.SplicePublicKey(leaf.Data, descent.LabelSizeBits, publicKey)
	if err != nil {
		return types.AddressResult{}, wrapFormatErr(err)
	}
	// The cell's declared data_size never changes: only the bits within it
	// are rewritten, plus the trailing completion tag already counted by
	// the BoC's own d2 field (see FindPublicKeyCell's descent and spec §4.6).
	override := &format.CellOverride{CellIndex: descent.CellIndex, Data: splicedData[:len(leaf.Data)]}

	hashes, _, err := format.HashTree(&tree, override, hashFunc(e.opts.Hasher))
	if err != nil {
		return types.AddressResult{}, wrapFormatErr(err)
	}

	return types.AddressResult{
		Address:    hashes[0],
		AddressHex: hexString(hashes[0][:]),
	}, nil
}

// PrepareToSign implements types.Engine.
func (e *engine) PrepareToSign(message []byte, expectedSrcAddress [32]byte) (types.SignResult, error) {
	tree, err := format.ParseBoc(message, 2)
	if err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}
	if tree.CellsCount != 2 {
		return types.SignResult{}, wrapFormatErr(fmt.Errorf("engine: message cells_count %d: %w", tree.CellsCount, format.ErrInvalidData))
	}

	toSignBuf := make([]byte, 86)
	toSign := buf.NewSliceData(toSignBuf)
	if err := toSign.Append([]byte{0x01, 0x63}, 16, false); err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}

	addrCell := tree.Cells[format.AddressCellIndex]
	envelope := buf.FromCellPayload(addrCell.Data)
	if err := envelope.MoveBy(4); err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}
	srcAddr, err := format.DeserializeAddress(&envelope)
	if err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}
	if srcAddr.Account != expectedSrcAddress {
		return types.SignResult{}, types.ErrInvalidSrcAddress
	}
	if err := envelope.MoveBy(6); err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}

	header, err := format.DeserializeHeader(&envelope)
	if err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}
	if err := toSign.Append(header.BigEndian[:], 16*8, false); err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}

	dstAddr, err := format.DeserializeAddress(&envelope)
	if err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}
	prefix := byte(((2 << 1) | 0) << 5)
	if err := toSign.Append([]byte{prefix}, 3, false); err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}
	if err := toSign.Append([]byte{byte(dstAddr.Workchain)}, 8, false); err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}
	if err := toSign.Append(dstAddr.Account[:], 32*8, true); err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}
	if err := toSign.MoveBy(2 * 8); err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}

	amountCell := tree.Cells[format.AmountCellIndex]
	amountSlice := buf.FromCellPayload(amountCell.Data)
	amount, err := format.DeserializeAmount(&amountSlice)
	if err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}
	if _, err := amountSlice.GetNextBit(); err != nil { // bounce, ignored
		return types.SignResult{}, wrapFormatErr(err)
	}

	hashes, _, err := format.HashTree(&tree, nil, hashFunc(e.opts.Hasher))
	if err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}
	if err := toSign.Append(hashes[format.AmountCellIndex][:], 32*8, false); err != nil {
		return types.SignResult{}, wrapFormatErr(err)
	}

	digest, err := e.opts.Hasher.Sum256(toSignBuf[:toSign.Cursor()/8])
	if err != nil {
		return types.SignResult{}, &types.Error{Kind: types.ErrKindInvalidHash, Msg: "hash computation failed", Err: err}
	}

	return types.SignResult{
		Digest:            digest,
		DestinationString: fmt.Sprintf("%d:%s", dstAddr.Workchain, hexString(dstAddr.Account[:])),
		AmountString:      amountString(amount),
	}, nil
}

// wrapFormatErr translates a low-level internal/format sentinel error into
// the public ErrKind taxonomy, the same way internal/reader's wrapFormatErr
// translates internal/format's hive-parsing sentinels.
func wrapFormatErr(err error) error {
	switch {
	case errors.Is(err, format.ErrInvalidInputID):
		return &types.Error{Kind: types.ErrKindInvalidInputID, Msg: "unexpected message input id", Err: err}
	case errors.Is(err, format.ErrInvalidSrcAddr):
		return &types.Error{Kind: types.ErrKindInvalidSrcAddr, Msg: "source address mismatch", Err: err}
	case errors.Is(err, format.ErrInvalidHash):
		return &types.Error{Kind: types.ErrKindInvalidHash, Msg: "hash computation failed", Err: err}
	case errors.Is(err, buf.ErrSliceEmpty):
		return &types.Error{Kind: types.ErrKindSliceEmpty, Msg: "slice has no backing buffer", Err: err}
	case errors.Is(err, buf.ErrCellUnderflow):
		return &types.Error{Kind: types.ErrKindCellUnderflow, Msg: "read or write past slice window", Err: err}
	case errors.Is(err, buf.ErrRangeCheck):
		return &types.Error{Kind: types.ErrKindRangeCheck, Msg: "bit count out of range", Err: err}
	case errors.Is(err, format.ErrWrongLabel):
		return &types.Error{Kind: types.ErrKindWrongLabel, Msg: "wrong dictionary label prefix", Err: err}
	case errors.Is(err, format.ErrInvalidKey):
		return &types.Error{Kind: types.ErrKindInvalidKey, Msg: "invalid dictionary key", Err: err}
	case errors.Is(err, format.ErrCellIsEmpty):
		return &types.Error{Kind: types.ErrKindCellIsEmpty, Msg: "cell is empty", Err: err}
	case errors.Is(err, format.ErrTruncated), errors.Is(err, buf.ErrCursorTruncated):
		return &types.Error{Kind: types.ErrKindInvalidData, Msg: "input truncated", Err: err}
	default:
		return &types.Error{Kind: types.ErrKindInvalidData, Msg: err.Error(), Err: err}
	}
}

package engine

import (
	"encoding/hex"
	"math/big"
)

// amountScale is the number of decimal places separating the network's
// smallest transferable unit from its display unit (spec.md §6, resolved in
// SPEC_FULL.md's Supplemented Features).
const amountScale = 9

func hexString(b []byte) string {
	return hex.EncodeToString(b)
}

// amountString renders a big-endian amount as a fixed-point decimal with
// amountScale places, followed by " TON". There is no ecosystem
// fixed-point/decimal library anywhere in the retrieval pack, so this uses
// stdlib math/big, matching the scale of precision Cell_get_data never
// exceeds (MaxAmountLength bytes comfortably fits in a big.Int).
func amountString(raw []byte) string {
	amount := new(big.Int).SetBytes(raw)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(amountScale), nil)
	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(amount, scale, frac)

	fracStr := frac.String()
	for len(fracStr) < amountScale {
		fracStr = "0" + fracStr
	}
	return whole.String() + "." + fracStr + " TON"
}

// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/btcsuite/ordtx/pkg/btcunit"
)

// TxShape is the information the fee model needs about a transaction: the
// script types of its inputs and outputs, and of the change output if there
// is one.
type TxShape struct {
	Inputs  []ScriptType
	Outputs []ScriptType

	// Change is the script type of the change output. ScriptUnknown
	// means the transaction has no change.
	Change ScriptType
}

// withInput returns a copy of the shape with one more input.
func (s TxShape) withInput(in ScriptType) TxShape {
	inputs := make([]ScriptType, len(s.Inputs), len(s.Inputs)+1)
	copy(inputs, s.Inputs)

	return TxShape{
		Inputs:  append(inputs, in),
		Outputs: s.Outputs,
		Change:  s.Change,
	}
}

// withoutChange returns a copy of the shape without a change output.
func (s TxShape) withoutChange() TxShape {
	return TxShape{Inputs: s.Inputs, Outputs: s.Outputs}
}

// EstimateVirtualSize returns a worst case virtual size for a signed
// transaction of the given shape. The estimate never undershoots the signed
// size, so fees computed from it always meet the target rate.
func EstimateVirtualSize(shape TxShape) btcunit.VByte {
	var numP2PKH, numP2TR, numP2WPKH, numNested int
	for _, in := range shape.Inputs {
		switch in {
		case ScriptP2TR:
			numP2TR++

		case ScriptP2WPKH:
			numP2WPKH++

		case ScriptNestedP2WPKH:
			numNested++

		// Legacy inputs are the largest, so anything unrecognised is
		// counted as one.
		default:
			numP2PKH++
		}
	}

	// Only the length of each output script matters to the estimate.
	txOuts := make([]*wire.TxOut, 0, len(shape.Outputs))
	for _, out := range shape.Outputs {
		txOuts = append(txOuts, &wire.TxOut{
			PkScript: make([]byte, out.PkScriptSize()),
		})
	}

	changeScriptSize := 0
	if shape.Change != ScriptUnknown {
		changeScriptSize = shape.Change.PkScriptSize()
	}

	vsize := txsizes.EstimateVirtualSize(
		numP2PKH, numP2TR, numP2WPKH, numNested, txOuts,
		changeScriptSize,
	)

	return btcunit.NewVByte(uint64(vsize))
}

// ComputeFee returns the fee for a transaction of the given virtual size at
// the given rate, rounded up to the next whole satoshi.
func ComputeFee(size btcunit.VByte, rate btcunit.SatPerVByte) btcutil.Amount {
	return rate.FeeForVByteRoundUp(size)
}

// EstimateFee returns the fee for a transaction of the given shape.
func EstimateFee(shape TxShape, rate btcunit.SatPerVByte) btcutil.Amount {
	return ComputeFee(EstimateVirtualSize(shape), rate)
}

// MarginalInputFee returns the fee that adding one input of type in adds to
// a transaction of the given shape.
func MarginalInputFee(shape TxShape, in ScriptType,
	rate btcunit.SatPerVByte) btcutil.Amount {

	return EstimateFee(shape.withInput(in), rate) -
		EstimateFee(shape, rate)
}

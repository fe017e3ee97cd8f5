// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/pkg/btcunit"
)

const (
	// txVersion is the version of every transaction the wallet builds.
	txVersion = 2

	// spendSequence is the input sequence used for every input. It
	// signals opt-in replace-by-fee.
	spendSequence = wire.MaxTxInSequenceNum - 2
)

// Output is a recipient whose address has been resolved for the active
// network.
type Output struct {
	Recipient

	ScriptType ScriptType
	PkScript   []byte
}

// TxOut returns the wire form of the output.
func (o *Output) TxOut() *wire.TxOut {
	return wire.NewTxOut(int64(o.Amount), o.PkScript)
}

// ChangeOutput is the single change output of a plan.
type ChangeOutput struct {
	Output
}

// TransactionPlan is a fully resolved, unsigned transaction: the inputs, the
// recipient outputs in order, an optional change output that always comes
// last, and the fee. A valid plan conserves value exactly:
//
//	Inputs.Total == sum(Outputs) + Change.Amount + Fee
type TransactionPlan struct {
	Inputs  *Selection
	Outputs []Output

	// Change is nil when the remainder was folded into the fee.
	Change *ChangeOutput

	// Fee is the absolute fee the transaction pays.
	Fee btcutil.Amount

	// FoldedChange is the part of Fee that was a remainder too small
	// for a change output. When a custom fee was requested, Fee exceeds
	// it by exactly this amount.
	FoldedChange btcutil.Amount

	// VSize is the estimated virtual size the fee was computed for.
	VSize btcunit.VByte

	// Params is the network the plan's scripts belong to.
	Params *chaincfg.Params
}

// OutputTotal returns the value of the recipient outputs.
func (p *TransactionPlan) OutputTotal() btcutil.Amount {
	var total btcutil.Amount
	for _, out := range p.Outputs {
		total += out.Amount
	}

	return total
}

// ChangeAmount returns the value of the change output, or zero.
func (p *TransactionPlan) ChangeAmount() btcutil.Amount {
	if p.Change == nil {
		return 0
	}

	return p.Change.Amount
}

// ChangeIndex returns the output index of the change output, or -1.
func (p *TransactionPlan) ChangeIndex() int {
	if p.Change == nil {
		return -1
	}

	return len(p.Outputs)
}

// FeeRate returns the effective fee rate of the plan.
func (p *TransactionPlan) FeeRate() btcunit.SatPerVByte {
	return btcunit.CalcSatPerVByte(p.Fee, p.VSize)
}

// Validate checks that the plan conserves value and can be signed.
func (p *TransactionPlan) Validate() error {
	if p.Inputs == nil || len(p.Inputs.Coins) == 0 {
		return fmt.Errorf("%w: no inputs", ErrUnbalancedPlan)
	}

	if len(p.Outputs) == 0 {
		return fmt.Errorf("%w: no outputs", ErrUnbalancedPlan)
	}

	if p.Fee < 0 {
		return fmt.Errorf("%w: negative fee %v", ErrUnbalancedPlan,
			p.Fee)
	}

	var inputTotal btcutil.Amount
	for _, c := range p.Inputs.Coins {
		inputTotal += c.Value
	}

	spent := p.OutputTotal() + p.ChangeAmount() + p.Fee
	if inputTotal != spent || inputTotal != p.Inputs.Total {
		return fmt.Errorf("%w: inputs %v, outputs+change+fee %v",
			ErrUnbalancedPlan, inputTotal, spent)
	}

	return nil
}

// UnsignedTx returns the plan as an unsigned transaction. Inputs follow the
// selection order, outputs the recipient order, and change comes last.
func (p *TransactionPlan) UnsignedTx() *wire.MsgTx {
	tx := wire.NewMsgTx(txVersion)

	for _, c := range p.Inputs.Coins {
		outPoint := c.OutPoint
		txIn := wire.NewTxIn(&outPoint, nil, nil)
		txIn.Sequence = spendSequence
		tx.AddTxIn(txIn)
	}

	for i := range p.Outputs {
		tx.AddTxOut(p.Outputs[i].TxOut())
	}

	if p.Change != nil {
		tx.AddTxOut(p.Change.TxOut())
	}

	return tx
}

// prevOutputs returns the scripts and values of the plan's inputs.
func (p *TransactionPlan) prevOutputs() ([][]byte, []btcutil.Amount) {
	scripts := make([][]byte, 0, len(p.Inputs.Coins))
	values := make([]btcutil.Amount, 0, len(p.Inputs.Coins))

	for _, c := range p.Inputs.Coins {
		scripts = append(scripts, c.PkScript)
		values = append(values, c.Value)
	}

	return scripts, values
}

// resolveOutputs resolves recipients into outputs. Outputs holding an
// ordinal skip the dust check, since their value is fixed by the
// inscription.
func resolveOutputs(recipients []Recipient, params *chaincfg.Params,
	checkDust bool) ([]Output, error) {

	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: no recipients", ErrMalformedInput)
	}

	outputs := make([]Output, 0, len(recipients))
	for i, r := range recipients {
		if r.Amount < 0 {
			return nil, fmt.Errorf("%w: recipient %d has negative "+
				"amount %v", ErrMalformedInput, i, r.Amount)
		}

		scriptType, pkScript, err := ResolveAddress(r.Address, params)
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", i, err)
		}

		out := Output{
			Recipient:  r,
			ScriptType: scriptType,
			PkScript:   pkScript,
		}

		if checkDust {
			if err := checkOutput(out.TxOut()); err != nil {
				return nil, fmt.Errorf("%w: recipient %d: %v",
					ErrMalformedInput, i, err)
			}
		}

		outputs = append(outputs, out)
	}

	return outputs, nil
}

// outputTypes returns the script types of the given outputs.
func outputTypes(outputs []Output) []ScriptType {
	types := make([]ScriptType, 0, len(outputs))
	for _, out := range outputs {
		types = append(types, out.ScriptType)
	}

	return types
}

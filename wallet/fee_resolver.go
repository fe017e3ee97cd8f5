// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// DefaultMaxFeeRate is the highest fee rate the resolver accepts.
	DefaultMaxFeeRate = btcunit.NewSatPerVByte(1_000)

	// ErrFeeRateTooLarge is returned when the fee rate exceeds
	// DefaultMaxFeeRate.
	ErrFeeRateTooLarge = fmt.Errorf("%w: fee rate too large",
		ErrMalformedInput)
)

// PaymentRequest describes an ordinary send.
type PaymentRequest struct {
	// Recipients are paid in order.
	Recipients []Recipient

	// ChangeAddress receives any non-dust remainder.
	ChangeAddress string

	// FeeRate is used unless CustomFee is set.
	FeeRate btcunit.SatPerVByte

	// CustomFee fixes the absolute fee and overrides FeeRate.
	CustomFee fn.Option[btcutil.Amount]

	// Pool is the snapshot of spendable UTXOs.
	Pool []UTXO

	// Excluded lists outpoints that must not be spent, such as outputs
	// carrying inscriptions.
	Excluded []wire.OutPoint

	// Params is the active network.
	Params *chaincfg.Params
}

// OrdinalSendRequest describes the transfer of a single inscription UTXO.
type OrdinalSendRequest struct {
	// Ordinal is the inscription UTXO being sent. It becomes the first
	// input and its full value becomes the first output.
	Ordinal UTXO

	// RecipientAddress receives the ordinal.
	RecipientAddress string

	// ChangeAddress receives the remainder of the fee funding coins.
	ChangeAddress string

	// FeeRate is used unless CustomFee is set.
	FeeRate btcunit.SatPerVByte

	// CustomFee fixes the absolute fee and overrides FeeRate.
	CustomFee fn.Option[btcutil.Amount]

	// Pool holds the payment UTXOs that fund the fee.
	Pool []UTXO

	// Excluded lists further inscription outpoints that must not be
	// used as fee funding.
	Excluded []wire.OutPoint

	// Params is the active network.
	Params *chaincfg.Params
}

// ResolvePayment selects inputs and settles the fee for an ordinary send.
func ResolvePayment(req *PaymentRequest) (*TransactionPlan, error) {
	if err := validateFee(req.FeeRate, req.CustomFee); err != nil {
		return nil, err
	}

	outputs, err := resolveOutputs(req.Recipients, req.Params, true)
	if err != nil {
		return nil, err
	}

	change, err := resolveChange(req.ChangeAddress, req.Params)
	if err != nil {
		return nil, err
	}

	r := &resolver{
		outputs:   outputs,
		change:    change,
		rate:      req.FeeRate,
		customFee: req.CustomFee,
		pool:      req.Pool,
		excluded:  req.Excluded,
		params:    req.Params,
	}

	return r.resolve()
}

// ResolveOrdinalSend settles an ordinal transfer. The ordinal is the first
// input and pays its exact value to the recipient in the first output, so
// its sats move one-to-one. Payment UTXOs only fund the fee, and any change
// comes from them.
func ResolveOrdinalSend(req *OrdinalSendRequest) (*TransactionPlan, error) {
	if err := validateFee(req.FeeRate, req.CustomFee); err != nil {
		return nil, err
	}

	if req.Ordinal.Value <= 0 {
		return nil, fmt.Errorf("%w: ordinal %v has no value",
			ErrMalformedInput, req.Ordinal.OutPoint)
	}

	// The ordinal output keeps the inscription's exact value even if it
	// is below the relay dust threshold of the recipient script.
	outputs, err := resolveOutputs([]Recipient{{
		Address: req.RecipientAddress,
		Amount:  req.Ordinal.Value,
	}}, req.Params, false)
	if err != nil {
		return nil, err
	}

	change, err := resolveChange(req.ChangeAddress, req.Params)
	if err != nil {
		return nil, err
	}

	ordinal := req.Ordinal
	r := &resolver{
		outputs:   outputs,
		change:    change,
		rate:      req.FeeRate,
		customFee: req.CustomFee,
		pinned:    &ordinal,
		pool:      req.Pool,
		excluded:  req.Excluded,
		params:    req.Params,
	}

	return r.resolve()
}

// validateFee checks that a usable fee has been supplied.
func validateFee(rate btcunit.SatPerVByte,
	customFee fn.Option[btcutil.Amount]) error {

	if customFee.IsSome() {
		if customFee.UnwrapOr(0) < 0 {
			return fmt.Errorf("%w: negative custom fee",
				ErrMalformedInput)
		}

		return nil
	}

	if !rate.IsPositive() {
		return ErrInvalidFeeRate
	}

	if rate.GreaterThan(DefaultMaxFeeRate) {
		return fmt.Errorf("%w: fee rate of %v is above the maximum "+
			"of %v", ErrFeeRateTooLarge, rate, DefaultMaxFeeRate)
	}

	return nil
}

// resolveChange resolves the change address.
func resolveChange(address string, params *chaincfg.Params) (Output, error) {
	scriptType, pkScript, err := ResolveAddress(address, params)
	if err != nil {
		return Output{}, fmt.Errorf("change address: %w", err)
	}

	return Output{
		Recipient:  Recipient{Address: address},
		ScriptType: scriptType,
		PkScript:   pkScript,
	}, nil
}

// checkOutput applies the relay policy to a recipient output.
func checkOutput(out *wire.TxOut) error {
	return txrules.CheckOutput(out, txrules.DefaultRelayFeePerKb)
}

// resolver runs the fixed point between the selected inputs and the fee.
type resolver struct {
	outputs   []Output
	change    Output
	rate      btcunit.SatPerVByte
	customFee fn.Option[btcutil.Amount]
	pinned    *UTXO
	pool      []UTXO
	excluded  []wire.OutPoint
	params    *chaincfg.Params
}

// spend returns the output value the funding coins must provide. A pinned
// coin pays for the output that carries it.
func (r *resolver) spend() btcutil.Amount {
	var total btcutil.Amount
	for _, out := range r.outputs {
		total += out.Amount
	}

	if r.pinned != nil {
		total -= r.pinned.Value
	}

	return total
}

// selectionRate returns the rate coin selection charges. With a custom fee
// the fee is part of the target instead.
func (r *resolver) selectionRate() btcunit.SatPerVByte {
	if r.customFee.IsSome() {
		return btcunit.ZeroSatPerVByte
	}

	return r.rate
}

// initialTarget is the funding the first selection round aims for: the
// spend, plus either the custom fee or the fee of the outputs alone.
func (r *resolver) initialTarget() btcutil.Amount {
	if r.customFee.IsSome() {
		return r.spend() + r.customFee.UnwrapOr(0)
	}

	return r.spend() + EstimateFee(TxShape{
		Outputs: outputTypes(r.outputs),
		Change:  r.change.ScriptType,
	}, r.rate)
}

// resolve alternates between coin selection and plan construction until the
// selection pays for its own fee. A round that does not settle asks for more
// than its selection holds, so the next round selects a longer prefix of the
// same walk and the loop ends within one round per coin.
func (r *resolver) resolve() (*TransactionPlan, error) {
	var (
		target    = r.initialTarget()
		maxRounds = len(r.pool) + 2
		lastNeed  btcutil.Amount
		folded    *TransactionPlan
	)

	for round := 0; round < maxRounds; round++ {
		selection, err := SelectCoins(&CoinSelectionRequest{
			Target:     target,
			FeeRate:    r.selectionRate(),
			Pool:       r.pool,
			Outputs:    outputTypes(r.outputs),
			ChangeType: r.change.ScriptType,
			Pinned:     r.pinned,
			Excluded:   r.excluded,
			Params:     r.params,
		})
		switch {
		// The pool cannot fund a real change output on top of the
		// custom fee, so the sub-dust remainder goes to the miners.
		case errors.Is(err, ErrInsufficientFunds) && folded != nil:
			log.Warnf("Unable to fund a change output, paying %v "+
				"in fees instead of %v", folded.Fee,
				r.customFee.UnwrapOr(0))

			return folded, nil

		case err != nil:
			return nil, err
		}

		plan, need := r.planFor(selection)
		if plan != nil {
			log.Debugf("Resolved fee %v for %v in round %d",
				plan.Fee, plan.VSize, round)
			log.Tracef("Plan inputs: %v", newLogClosure(func() string {
				return fmt.Sprint(selection.OutPoints())
			}))

			return plan, nil
		}

		if need <= lastNeed {
			break
		}
		lastNeed = need

		fee, custom := r.customFee.UnwrapOr(0), r.customFee.IsSome()
		if custom && selection.FundingTotal() >= r.spend()+fee {
			folded = r.foldedPlan(selection)
		}

		log.Debugf("Round %d: selection of %v needs %v, retrying",
			round, selection.FundingTotal(), need)

		target = need
	}

	return nil, fmt.Errorf("%w: funding requirement %v", ErrNoConvergence,
		lastNeed)
}

// planFor builds a plan for the selection. When the selection cannot support
// a valid plan the funding total it would need is returned instead.
func (r *resolver) planFor(s *Selection) (*TransactionPlan, btcutil.Amount) {
	funding := s.FundingTotal()
	spend := r.spend()

	withChange := TxShape{
		Inputs:  s.ScriptTypes(),
		Outputs: outputTypes(r.outputs),
		Change:  r.change.ScriptType,
	}
	noChange := withChange.withoutChange()
	dust := r.change.ScriptType.DustThreshold()

	if r.customFee.IsSome() {
		fee := r.customFee.UnwrapOr(0)
		remainder := funding - spend - fee

		switch {
		case remainder < 0:
			return nil, spend + fee

		case remainder == 0:
			return r.newPlan(s, fee, 0, EstimateVirtualSize(noChange)),
				0

		case remainder >= dust:
			return r.newPlan(
				s, fee, remainder, EstimateVirtualSize(withChange),
			), 0

		// A sub-dust remainder can neither be kept nor silently
		// added to a fee the caller fixed. Ask for enough to create
		// a real change output.
		default:
			return nil, spend + fee + dust
		}
	}

	withSize := EstimateVirtualSize(withChange)
	feeWith := ComputeFee(withSize, r.rate)
	if remainder := funding - spend - feeWith; remainder >= dust {
		return r.newPlan(s, feeWith, remainder, withSize), 0
	}

	// Without change the remainder is folded into the fee, which then
	// pays at least the target rate for the smaller transaction.
	noSize := EstimateVirtualSize(noChange)
	feeNo := ComputeFee(noSize, r.rate)
	if funding-spend < feeNo {
		return nil, spend + feeNo
	}

	plan := r.newPlan(s, funding-spend, 0, noSize)
	plan.FoldedChange = funding - spend - feeNo

	return plan, 0
}

// foldedPlan builds a change-less plan that pays the whole remainder as fee.
func (r *resolver) foldedPlan(s *Selection) *TransactionPlan {
	shape := TxShape{
		Inputs:  s.ScriptTypes(),
		Outputs: outputTypes(r.outputs),
	}

	fee := s.FundingTotal() - r.spend()
	plan := r.newPlan(s, fee, 0, EstimateVirtualSize(shape))
	plan.FoldedChange = fee - r.customFee.UnwrapOr(0)

	return plan
}

// newPlan assembles a plan. A zero change amount means no change output.
func (r *resolver) newPlan(s *Selection, fee, change btcutil.Amount,
	vsize btcunit.VByte) *TransactionPlan {

	outputs := make([]Output, len(r.outputs))
	copy(outputs, r.outputs)

	plan := &TransactionPlan{
		Inputs:  s.clone(),
		Outputs: outputs,
		Fee:     fee,
		VSize:   vsize,
		Params:  r.params,
	}

	if change > 0 {
		changeOut := r.change
		changeOut.Amount = change
		plan.Change = &ChangeOutput{Output: changeOut}
	}

	return plan
}

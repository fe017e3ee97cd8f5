// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package brc20

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/btcsuite/ordtx/wallet"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// DefaultPostage is the value the inscription output carries.
	DefaultPostage btcutil.Amount = 546
)

var (
	// ErrNoSender is returned when the estimator has no wallet sender.
	ErrNoSender = errors.New("no wallet sender configured")

	// estimationTag seeds the key estimates are computed with. Envelope
	// sizes do not depend on the key, so a fixed one keeps estimates
	// deterministic.
	estimationTag = []byte("ordtx/brc20/estimation")

	// placeholderTag seeds the outpoint of the fallback placeholder UTXO.
	placeholderTag = []byte("ordtx/brc20/placeholder")
)

// State is a step of an estimation flow.
type State uint8

const (
	// StateIdle is the state before a request was validated.
	StateIdle State = iota

	// StateEstimating estimates against the funding address's UTXOs.
	StateEstimating

	// StateEstimatingFallback estimates against a placeholder UTXO after
	// the real UTXOs could not fund the commit.
	StateEstimatingFallback

	// StateDone means an estimate was produced.
	StateDone

	// StateFailed means the flow ended with an error.
	StateFailed

	// StateCancelled means the flow was cancelled or superseded.
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"

	case StateEstimating:
		return "Estimating"

	case StateEstimatingFallback:
		return "EstimatingFallback"

	case StateDone:
		return "Done"

	case StateFailed:
		return "Failed"

	case StateCancelled:
		return "Cancelled"

	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Config holds the collaborators and policy of the BRC-20 flows.
type Config struct {
	// Sender fetches the funding UTXOs, skipping inscription outputs,
	// and resolves the commit transaction.
	Sender *wallet.Sender

	// FundingAddress pays for the commit transaction.
	FundingAddress string

	// Postage is the value of the inscription output. Defaults to
	// DefaultPostage.
	Postage btcutil.Amount

	// ServiceFee is paid to ServiceAddress by the reveal transaction.
	// Zero means no service output.
	ServiceFee btcutil.Amount

	// ServiceAddress receives ServiceFee.
	ServiceAddress string

	// Params is the active network.
	Params *chaincfg.Params
}

// validate checks the configuration and fills in defaults.
func (c *Config) validate() error {
	if c.Sender == nil {
		return ErrNoSender
	}

	if c.Params == nil {
		return fmt.Errorf("%w: no network parameters",
			wallet.ErrMalformedInput)
	}

	if _, _, err := wallet.ResolveAddress(
		c.FundingAddress, c.Params,
	); err != nil {
		return fmt.Errorf("funding address: %w", err)
	}

	if c.Postage == 0 {
		c.Postage = DefaultPostage
	}

	switch {
	case c.Postage < 0 || c.ServiceFee < 0:
		return fmt.Errorf("%w: negative postage or service fee",
			wallet.ErrMalformedInput)

	case c.ServiceFee > 0:
		if _, _, err := wallet.ResolveAddress(
			c.ServiceAddress, c.Params,
		); err != nil {
			return fmt.Errorf("service address: %w", err)
		}
	}

	return nil
}

// TransferRequest asks for a BRC-20 transfer inscription.
type TransferRequest struct {
	// Tick is the token ticker.
	Tick string

	// Amount is the decimal number of tokens.
	Amount string

	// FeeRate is paid by all three transactions.
	FeeRate btcunit.SatPerVByte

	// RevealAddress receives the inscription.
	RevealAddress string
}

// CommitValueBreakdown itemizes what a transfer inscription costs.
type CommitValueBreakdown struct {
	// CommitChainFee is the fee of the commit transaction.
	CommitChainFee btcutil.Amount

	// RevealChainFee is the fee of the reveal transaction.
	RevealChainFee btcutil.Amount

	// RevealServiceFee is paid to the inscription service.
	RevealServiceFee btcutil.Amount

	// TransferChainFee is reserved in the inscription output for the
	// transaction that later sends the transfer inscription.
	TransferChainFee btcutil.Amount

	// TransferUtxoValue is the postage left in the inscription output
	// after that transfer.
	TransferUtxoValue btcutil.Amount
}

// Total returns the sum of all items.
func (b CommitValueBreakdown) Total() btcutil.Amount {
	return b.CommitChainFee + b.RevealChainFee + b.RevealServiceFee +
		b.TransferChainFee + b.TransferUtxoValue
}

// Estimate is the cost of a transfer inscription.
type Estimate struct {
	// CommitValue is the total the funding address spends. It always
	// equals Breakdown.Total().
	CommitValue btcutil.Amount

	// Breakdown itemizes CommitValue.
	Breakdown CommitValueBreakdown

	// Advisory is set when the funding address could not pay for the
	// commit and the estimate was made against a placeholder UTXO. Such
	// an estimate cannot be turned into a transaction.
	Advisory bool

	// CommitPlan is the commit transaction the estimate is based on.
	CommitPlan *wallet.TransactionPlan
}

// Outcome is the final state of an estimation flow.
type Outcome struct {
	// State is StateDone, StateFailed or StateCancelled.
	State State

	// Estimate is set when State is StateDone.
	Estimate *Estimate

	// Err is set when State is StateFailed or StateCancelled.
	Err error

	// Kind classifies Err.
	Kind wallet.ErrorKind
}

// quote is the part of a transfer's cost that does not depend on how the
// commit transaction is funded.
type quote struct {
	envelope      *Envelope
	commitAddress string
	revealOutputs []*wire.TxOut
	revealFee     btcutil.Amount
	transferFee   btcutil.Amount
	serviceFee    btcutil.Amount
	postage       btcutil.Amount
}

// newQuote prices the reveal and the later transfer of an inscription made
// with the given inscription key.
func (c *Config) newQuote(req *TransferRequest,
	key *btcec.PublicKey) (*quote, error) {

	if !req.FeeRate.IsPositive() {
		return nil, wallet.ErrInvalidFeeRate
	}

	inscription, err := NewTransferInscription(req.Tick, req.Amount)
	if err != nil {
		return nil, err
	}

	revealType, revealScript, err := wallet.ResolveAddress(
		req.RevealAddress, c.Params,
	)
	if err != nil {
		return nil, fmt.Errorf("reveal address: %w", err)
	}

	envelope, err := NewEnvelope(key, ContentType, inscription.Body())
	if err != nil {
		return nil, err
	}

	commitAddr, err := envelope.Address(c.Params)
	if err != nil {
		return nil, err
	}

	// The inscription output is later spent on its own to move the
	// transfer inscription, so it carries that fee on top of the
	// postage.
	transferFee := wallet.EstimateFee(wallet.TxShape{
		Inputs:  []wallet.ScriptType{revealType},
		Outputs: []wallet.ScriptType{wallet.ScriptP2TR},
	}, req.FeeRate)

	outputs := []*wire.TxOut{
		wire.NewTxOut(int64(c.Postage+transferFee), revealScript),
	}

	if c.ServiceFee > 0 {
		_, serviceScript, err := wallet.ResolveAddress(
			c.ServiceAddress, c.Params,
		)
		if err != nil {
			return nil, fmt.Errorf("service address: %w", err)
		}

		outputs = append(
			outputs, wire.NewTxOut(int64(c.ServiceFee), serviceScript),
		)
	}

	revealSize, err := envelope.RevealVSize(outputs)
	if err != nil {
		return nil, err
	}

	return &quote{
		envelope:      envelope,
		commitAddress: commitAddr.EncodeAddress(),
		revealOutputs: outputs,
		revealFee:     wallet.ComputeFee(revealSize, req.FeeRate),
		transferFee:   transferFee,
		serviceFee:    c.ServiceFee,
		postage:       c.Postage,
	}, nil
}

// commitAmount returns the value of the commit output, which pays for the
// reveal transaction and everything it creates.
func (q *quote) commitAmount() btcutil.Amount {
	total := q.revealFee
	for _, out := range q.revealOutputs {
		total += btcutil.Amount(out.Value)
	}

	return total
}

// estimate completes the quote with a funded commit plan.
func (q *quote) estimate(plan *wallet.TransactionPlan,
	advisory bool) *Estimate {

	breakdown := CommitValueBreakdown{
		CommitChainFee:    plan.Fee,
		RevealChainFee:    q.revealFee,
		RevealServiceFee:  q.serviceFee,
		TransferChainFee:  q.transferFee,
		TransferUtxoValue: q.postage,
	}

	return &Estimate{
		CommitValue: breakdown.Total(),
		Breakdown:   breakdown,
		Advisory:    advisory,
		CommitPlan:  plan,
	}
}

// commitRecipients returns the single output of a commit transaction.
func (q *quote) commitRecipients() []wallet.Recipient {
	return []wallet.Recipient{{
		Address: q.commitAddress,
		Amount:  q.commitAmount(),
	}}
}

// Estimator prices BRC-20 transfer inscriptions.
type Estimator struct {
	cfg Config

	// estimationKey stands in for the ephemeral inscription key.
	estimationKey *btcec.PrivateKey
}

// NewEstimator creates an Estimator.
func NewEstimator(cfg Config) (*Estimator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	key, _ := btcec.PrivKeyFromBytes(chainhash.HashB(estimationTag))

	return &Estimator{cfg: cfg, estimationKey: key}, nil
}

// Estimate prices a transfer inscription. A cancelled context returns the
// context's error, which wallet.KindOf reports as KindCancelled.
func (e *Estimator) Estimate(ctx context.Context,
	req *TransferRequest) (*Estimate, error) {

	outcome := e.Run(ctx, req)
	if outcome.State != StateDone {
		return nil, outcome.Err
	}

	return outcome.Estimate, nil
}

// Run drives one estimation flow to its final state. The flow estimates
// against the funding address's UTXOs first. Only when those cannot fund the
// commit does it estimate once more against a placeholder UTXO, and that
// result is advisory.
func (e *Estimator) Run(ctx context.Context, req *TransferRequest) Outcome {
	f := &flow{state: StateIdle, tick: req.Tick}

	q, err := e.cfg.newQuote(req, e.estimationKey.PubKey())
	if err != nil {
		return f.fail(ctx, err)
	}

	if err := ctx.Err(); err != nil {
		return f.fail(ctx, err)
	}

	f.transition(StateEstimating)

	plan, err := e.cfg.Sender.PlanPayment(ctx, &wallet.SendRequest{
		Recipients:  q.commitRecipients(),
		FromAddress: e.cfg.FundingAddress,
		FeeRate:     fn.Some(req.FeeRate),
	})
	switch {
	case err == nil:
		return f.done(q.estimate(plan, false))

	case ctx.Err() != nil || !errors.Is(err, wallet.ErrInsufficientFunds):
		return f.fail(ctx, err)
	}

	log.Debugf("Funding address cannot pay for %s commit, estimating "+
		"with a placeholder: %v", req.Tick, err)

	f.transition(StateEstimatingFallback)

	plan, err = e.placeholderPlan(q, req.FeeRate)
	if err != nil {
		return f.fail(ctx, err)
	}

	// A request superseded while the fallback ran is not reported.
	if ctx.Err() != nil {
		return f.fail(ctx, ctx.Err())
	}

	return f.done(q.estimate(plan, true))
}

// placeholderPlan resolves the commit against a single confirmed UTXO that
// covers the commit output, a one-input fee and a minimal change output.
func (e *Estimator) placeholderPlan(q *quote,
	rate btcunit.SatPerVByte) (*wallet.TransactionPlan, error) {

	fundingType, _, err := wallet.ResolveAddress(
		e.cfg.FundingAddress, e.cfg.Params,
	)
	if err != nil {
		return nil, err
	}

	fee := wallet.EstimateFee(wallet.TxShape{
		Inputs:  []wallet.ScriptType{fundingType},
		Outputs: []wallet.ScriptType{wallet.ScriptP2TR},
		Change:  fundingType,
	}, rate)

	placeholder := wallet.UTXO{
		OutPoint: wire.OutPoint{Hash: chainhash.HashH(placeholderTag)},
		Value: q.commitAmount() + fee +
			fundingType.DustThreshold(),
		Address: e.cfg.FundingAddress,
		Confirmation: wallet.Confirmation{
			Confirmed: true,
		},
	}

	return wallet.ResolvePayment(&wallet.PaymentRequest{
		Recipients:    q.commitRecipients(),
		ChangeAddress: e.cfg.FundingAddress,
		FeeRate:       rate,
		Pool:          []wallet.UTXO{placeholder},
		Params:        e.cfg.Params,
	})
}

// flow tracks the state of a single estimation.
type flow struct {
	state State
	tick  string
}

// transition moves the flow to the next state.
func (f *flow) transition(to State) {
	log.Tracef("Estimate for %s: %v -> %v", f.tick, f.state, to)
	f.state = to
}

// done ends the flow with an estimate.
func (f *flow) done(estimate *Estimate) Outcome {
	f.transition(StateDone)

	log.Debugf("Estimated %s transfer at %v (advisory=%v)", f.tick,
		estimate.CommitValue, estimate.Advisory)

	return Outcome{State: StateDone, Estimate: estimate}
}

// fail ends the flow with an error. Errors caused by cancellation end the
// flow as cancelled instead.
func (f *flow) fail(ctx context.Context, err error) Outcome {
	kind := wallet.KindOf(err)
	if ctx.Err() != nil {
		err = ctx.Err()
		kind = wallet.KindOf(err)
	}

	if kind == wallet.KindCancelled {
		f.transition(StateCancelled)
		return Outcome{State: StateCancelled, Err: err, Kind: kind}
	}

	f.transition(StateFailed)

	log.Debugf("Estimate for %s failed (%v): %v", f.tick, kind, err)

	return Outcome{State: StateFailed, Err: err, Kind: kind}
}

// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet builds, signs and previews the transactions of a multi-asset
// bitcoin wallet: plain sends to one or more recipients and transfers of
// inscription outputs. UTXOs, inscription outputs and fee rates come from
// injected collaborators; selection, fee resolution and signing are
// synchronous and deterministic.
package wallet

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
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoUTXOSource is returned when the sender has no UTXO source.
	ErrNoUTXOSource = errors.New("no utxo source configured")

	// ErrNoBroadcaster is returned when broadcasting without a
	// broadcaster.
	ErrNoBroadcaster = errors.New("no broadcaster configured")
)

// FeeTier picks which of the recommended fee rates a request pays.
type FeeTier uint8

const (
	// FeeTierRegular pays the regular recommended rate.
	FeeTierRegular FeeTier = iota

	// FeeTierPriority pays the next-block recommended rate.
	FeeTierPriority
)

// SenderConfig holds the collaborators of a Sender.
type SenderConfig struct {
	// UTXOs provides spendable outputs. Required.
	UTXOs UTXOSource

	// Ordinals reports inscription outputs so they are never spent as
	// funding. Optional.
	Ordinals OrdinalSource

	// FeeRates provides recommended rates. Optional when every request
	// carries its own rate or fee.
	FeeRates FeeRateSource

	// Broadcaster publishes signed transactions. Optional.
	Broadcaster Broadcaster

	// Params is the active network.
	Params *chaincfg.Params
}

// Sender is the entry point for plain and ordinal sends. It gathers the
// snapshots a send needs from its collaborators, then hands off to the
// synchronous resolver and signer.
type Sender struct {
	cfg SenderConfig
}

// NewSender creates a Sender.
func NewSender(cfg SenderConfig) (*Sender, error) {
	if cfg.UTXOs == nil {
		return nil, ErrNoUTXOSource
	}

	if cfg.Params == nil {
		return nil, fmt.Errorf("%w: no network parameters",
			ErrMalformedInput)
	}

	return &Sender{cfg: cfg}, nil
}

// SendRequest describes a plain BTC send.
type SendRequest struct {
	// Recipients are paid in order.
	Recipients []Recipient

	// FromAddress owns the UTXOs that fund the send.
	FromAddress string

	// ChangeAddress receives the remainder. Defaults to FromAddress.
	ChangeAddress string

	// FeeTier selects the recommended rate to pay.
	FeeTier FeeTier

	// FeeRate overrides the recommended rate.
	FeeRate fn.Option[btcunit.SatPerVByte]

	// CustomFee fixes the absolute fee. The fee source is not queried.
	CustomFee fn.Option[btcutil.Amount]

	// Excluded lists further outpoints that must not be spent.
	Excluded []wire.OutPoint
}

// OrdinalTransferRequest describes the transfer of one inscription.
type OrdinalTransferRequest struct {
	// Ordinal is the inscription UTXO to transfer.
	Ordinal UTXO

	// RecipientAddress receives the inscription.
	RecipientAddress string

	// PaymentAddress owns the UTXOs that pay the fee.
	PaymentAddress string

	// ChangeAddress receives the fee change. Defaults to PaymentAddress.
	ChangeAddress string

	// FeeTier selects the recommended rate to pay.
	FeeTier FeeTier

	// FeeRate overrides the recommended rate.
	FeeRate fn.Option[btcunit.SatPerVByte]

	// CustomFee fixes the absolute fee. The fee source is not queried.
	CustomFee fn.Option[btcutil.Amount]

	// Excluded lists further inscription outpoints to protect.
	Excluded []wire.OutPoint
}

// FeeEstimate is the result of a fee-only preview.
type FeeEstimate struct {
	Fee   btcutil.Amount
	VSize btcunit.VByte
	Plan  *TransactionPlan
}

// snapshot is what a send needs from the collaborators.
type snapshot struct {
	pool     []UTXO
	excluded []wire.OutPoint
	rate     btcunit.SatPerVByte
}

// fetchSnapshot gathers the UTXOs of address, its inscription outputs and,
// when needed, the fee rate. The fetches run concurrently; the first failure
// cancels the rest.
func (s *Sender) fetchSnapshot(ctx context.Context, address string,
	tier FeeTier, rate fn.Option[btcunit.SatPerVByte],
	customFee fn.Option[btcutil.Amount]) (*snapshot, error) {

	var (
		snap     snapshot
		ordinals []UTXO
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		utxos, err := s.cfg.UTXOs.FetchUnspentOutputs(gctx, address)
		if err != nil {
			return fetchError("fetch utxos of "+address, err)
		}
		snap.pool = utxos

		return nil
	})

	if s.cfg.Ordinals != nil {
		g.Go(func() error {
			utxos, err := s.cfg.Ordinals.FetchOrdinalOutputs(
				gctx, address,
			)
			if err != nil {
				return fetchError("fetch inscriptions of "+address,
					err)
			}
			ordinals = utxos

			return nil
		})
	}

	// An explicit rate or fee wins; the fee source is only consulted
	// when neither was given.
	switch {
	case customFee.IsSome():
		// The fee is fixed, no rate is needed.

	case rate.IsSome():
		snap.rate = rate.UnwrapOr(btcunit.ZeroSatPerVByte)

	default:
		g.Go(func() error {
			r, err := s.recommendedRate(gctx, tier)
			if err != nil {
				return err
			}
			snap.rate = r

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, u := range ordinals {
		snap.excluded = append(snap.excluded, u.OutPoint)
	}

	log.Debugf("Fetched %d utxo(s) and %d inscription output(s) for %s",
		len(snap.pool), len(ordinals), address)

	return &snap, nil
}

// fetchError annotates a collaborator failure. Failures the collaborator did
// not classify itself are reported as network errors.
func fetchError(desc string, err error) error {
	if KindOf(err) == KindUnclassified {
		return NewError(KindNetwork, desc, err)
	}

	return fmt.Errorf("%s: %w", desc, err)
}

// recommendedRate fetches the rate of the requested tier.
func (s *Sender) recommendedRate(ctx context.Context,
	tier FeeTier) (btcunit.SatPerVByte, error) {

	if s.cfg.FeeRates == nil {
		return btcunit.ZeroSatPerVByte, fmt.Errorf("%w: no fee rate "+
			"source and no custom fee", ErrInvalidFeeRate)
	}

	rates, err := s.cfg.FeeRates.FetchRecommendedFeeRate(ctx)
	if err != nil {
		return btcunit.ZeroSatPerVByte, fetchError("fetch fee rate", err)
	}

	if err := rates.Validate(); err != nil {
		return btcunit.ZeroSatPerVByte, NewError(
			KindNetwork, "unusable fee rate snapshot", err,
		)
	}

	if tier == FeeTierPriority {
		return rates.Priority, nil
	}

	return rates.Regular, nil
}

// PlanPayment resolves a plain send without signing it.
func (s *Sender) PlanPayment(ctx context.Context,
	req *SendRequest) (*TransactionPlan, error) {

	snap, err := s.fetchSnapshot(
		ctx, req.FromAddress, req.FeeTier, req.FeeRate, req.CustomFee,
	)
	if err != nil {
		return nil, err
	}

	changeAddress := req.ChangeAddress
	if changeAddress == "" {
		changeAddress = req.FromAddress
	}

	return ResolvePayment(&PaymentRequest{
		Recipients:    req.Recipients,
		ChangeAddress: changeAddress,
		FeeRate:       snap.rate,
		CustomFee:     req.CustomFee,
		Pool:          snap.pool,
		Excluded:      append(snap.excluded, req.Excluded...),
		Params:        s.cfg.Params,
	})
}

// EstimateFee previews the fee of a plain send.
func (s *Sender) EstimateFee(ctx context.Context,
	req *SendRequest) (*FeeEstimate, error) {

	plan, err := s.PlanPayment(ctx, req)
	if err != nil {
		return nil, err
	}

	return &FeeEstimate{Fee: plan.Fee, VSize: plan.VSize, Plan: plan}, nil
}

// SendBTC resolves and signs a plain send. The key is only used for the
// duration of the call.
func (s *Sender) SendBTC(ctx context.Context, req *SendRequest,
	key *btcec.PrivateKey) (*SignedTransaction, error) {

	plan, err := s.PlanPayment(ctx, req)
	if err != nil {
		return nil, err
	}

	return SignPlan(plan, key)
}

// PlanOrdinalSend resolves an ordinal transfer without signing it.
func (s *Sender) PlanOrdinalSend(ctx context.Context,
	req *OrdinalTransferRequest) (*TransactionPlan, error) {

	snap, err := s.fetchSnapshot(
		ctx, req.PaymentAddress, req.FeeTier, req.FeeRate, req.CustomFee,
	)
	if err != nil {
		return nil, err
	}

	changeAddress := req.ChangeAddress
	if changeAddress == "" {
		changeAddress = req.PaymentAddress
	}

	return ResolveOrdinalSend(&OrdinalSendRequest{
		Ordinal:          req.Ordinal,
		RecipientAddress: req.RecipientAddress,
		ChangeAddress:    changeAddress,
		FeeRate:          snap.rate,
		CustomFee:        req.CustomFee,
		Pool:             snap.pool,
		Excluded:         append(snap.excluded, req.Excluded...),
		Params:           s.cfg.Params,
	})
}

// EstimateOrdinalFee previews the fee of an ordinal transfer.
func (s *Sender) EstimateOrdinalFee(ctx context.Context,
	req *OrdinalTransferRequest) (*FeeEstimate, error) {

	plan, err := s.PlanOrdinalSend(ctx, req)
	if err != nil {
		return nil, err
	}

	return &FeeEstimate{Fee: plan.Fee, VSize: plan.VSize, Plan: plan}, nil
}

// SendOrdinal resolves and signs an ordinal transfer. The ordinal input is
// signed with ordinalsKey and the fee inputs with paymentKey.
func (s *Sender) SendOrdinal(ctx context.Context,
	req *OrdinalTransferRequest, paymentKey,
	ordinalsKey *btcec.PrivateKey) (*SignedTransaction, error) {

	plan, err := s.PlanOrdinalSend(ctx, req)
	if err != nil {
		return nil, err
	}

	return SignPlan(plan, paymentKey, ordinalsKey)
}

// Broadcast publishes a signed transaction.
func (s *Sender) Broadcast(ctx context.Context,
	signed *SignedTransaction) (*chainhash.Hash, error) {

	if s.cfg.Broadcaster == nil {
		return nil, ErrNoBroadcaster
	}

	txid, err := s.cfg.Broadcaster.Broadcast(ctx, signed.Tx)
	if err != nil {
		return nil, fmt.Errorf("broadcast %v: %w", signed.TxHash(), err)
	}

	log.Infof("Broadcast transaction %v", txid)

	return txid, nil
}

// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package brc20

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/wallet"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Transfer is a signed commit and reveal pair that inscribes a BRC-20
// transfer. The commit must be broadcast before the reveal.
type Transfer struct {
	// Commit funds the envelope's taproot output.
	Commit *wallet.SignedTransaction

	// Reveal spends the commit output through the envelope leaf and
	// creates the inscription output.
	Reveal *wire.MsgTx

	// RevealHex is the serialized reveal transaction.
	RevealHex string

	// CommitAddress is the taproot address of the envelope.
	CommitAddress string

	// Breakdown itemizes what the transfer costs.
	Breakdown CommitValueBreakdown
}

// Inscriber builds BRC-20 transfer inscriptions.
type Inscriber struct {
	cfg Config
}

// NewInscriber creates an Inscriber.
func NewInscriber(cfg Config) (*Inscriber, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Inscriber{cfg: cfg}, nil
}

// BuildTransfer builds and signs the commit and reveal transactions of a
// transfer inscription. The commit is funded by fundingKey. The reveal is
// signed with an ephemeral inscription key that is zeroed before returning.
func (i *Inscriber) BuildTransfer(ctx context.Context, req *TransferRequest,
	fundingKey *btcec.PrivateKey) (*Transfer, error) {

	inscriptionKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	defer inscriptionKey.Zero()

	q, err := i.cfg.newQuote(req, inscriptionKey.PubKey())
	if err != nil {
		return nil, err
	}

	plan, err := i.cfg.Sender.PlanPayment(ctx, &wallet.SendRequest{
		Recipients:  q.commitRecipients(),
		FromAddress: i.cfg.FundingAddress,
		FeeRate:     fn.Some(req.FeeRate),
	})
	if err != nil {
		return nil, err
	}

	commit, err := wallet.SignPlan(plan, fundingKey)
	if err != nil {
		return nil, err
	}

	reveal, err := q.signReveal(commit.Tx, inscriptionKey)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := reveal.Serialize(&buf); err != nil {
		return nil, err
	}

	log.Infof("Built %s transfer: commit %v, reveal %v", req.Tick,
		commit.TxHash(), reveal.TxHash())

	return &Transfer{
		Commit:        commit,
		Reveal:        reveal,
		RevealHex:     hex.EncodeToString(buf.Bytes()),
		CommitAddress: q.commitAddress,
		Breakdown:     q.estimate(plan, false).Breakdown,
	}, nil
}

// signReveal builds the reveal transaction spending output 0 of the commit
// transaction and signs it through the envelope leaf.
func (q *quote) signReveal(commitTx *wire.MsgTx,
	key *btcec.PrivateKey) (*wire.MsgTx, error) {

	commitOut := commitTx.TxOut[0]
	if btcutil.Amount(commitOut.Value) != q.commitAmount() {
		return nil, fmt.Errorf("%w: commit output holds %v, reveal "+
			"needs %v", wallet.ErrUnbalancedPlan,
			btcutil.Amount(commitOut.Value), q.commitAmount())
	}

	pkScript, err := q.envelope.PkScript()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(pkScript, commitOut.PkScript) {
		return nil, fmt.Errorf("%w: commit output does not pay the "+
			"envelope", wallet.ErrUnbalancedPlan)
	}

	commitHash := commitTx.TxHash()

	tx := wire.NewMsgTx(txVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&commitHash, 0), nil, nil))
	for _, out := range q.revealOutputs {
		tx.AddTxOut(out)
	}

	prevOutFetcher := txscript.NewCannedPrevOutputFetcher(
		commitOut.PkScript, commitOut.Value,
	)
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	sig, err := txscript.RawTxInTapscriptSignature(
		tx, sigHashes, 0, commitOut.Value, commitOut.PkScript,
		q.envelope.leaf, txscript.SigHashDefault, key,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to sign reveal: %w", err)
	}

	witness, err := q.envelope.revealWitness(sig)
	if err != nil {
		return nil, err
	}
	tx.TxIn[0].Witness = witness

	vm, err := txscript.NewEngine(
		commitOut.PkScript, tx, 0, txscript.StandardVerifyFlags, nil,
		sigHashes, commitOut.Value, prevOutFetcher,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create script engine: %w", err)
	}
	if err := vm.Execute(); err != nil {
		return nil, fmt.Errorf("cannot validate reveal: %w", err)
	}

	return tx, nil
}

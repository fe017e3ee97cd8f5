// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txauthor"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/davecgh/go-spew/spew"
)

// SignedTransaction is a signed, verified transaction ready for broadcast.
type SignedTransaction struct {
	// Tx is the signed transaction.
	Tx *wire.MsgTx

	// SignedTx is the hex encoded serialization of Tx.
	SignedTx string

	// Fee is the absolute fee paid.
	Fee btcutil.Amount

	// FoldedChange is the sub-dust remainder included in Fee.
	FoldedChange btcutil.Amount

	// VSize is the estimated size the fee was computed for. It never
	// undershoots SignedVSize.
	VSize btcunit.VByte

	// SignedVSize is the virtual size of the signed transaction.
	SignedVSize btcunit.VByte

	// ChangeIndex is the output index of the change output, or -1.
	ChangeIndex int
}

// TxHash returns the id of the signed transaction.
func (s *SignedTransaction) TxHash() string {
	return s.Tx.TxHash().String()
}

// SignPlan signs every input of the plan with the supplied keys and verifies
// the result with the script engine. Each input is matched to a key through
// its output script, so a plan may mix inputs of different keys and script
// types, as ordinal sends do. The keys are only referenced for the duration
// of the call.
func SignPlan(plan *TransactionPlan,
	keys ...*btcec.PrivateKey) (*SignedTransaction, error) {

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	kr, err := newKeyring(plan.Params, keys...)
	if err != nil {
		return nil, err
	}
	defer kr.wipe()

	tx := plan.UnsignedTx()
	prevScripts, inputValues := plan.prevOutputs()

	prevOutFetcher, err := txauthor.TXPrevOutFetcher(
		tx, prevScripts, inputValues,
	)
	if err != nil {
		return nil, err
	}
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	for i := range plan.Inputs.Coins {
		coin := &plan.Inputs.Coins[i]

		key, ok := kr.keyFor(coin.PkScript)
		if !ok {
			return nil, fmt.Errorf("%w: input %d spending %v from %s",
				ErrMissingKey, i, coin.OutPoint, coin.Address)
		}

		capability, ok := capabilities[coin.ScriptType]
		if !ok {
			return nil, fmt.Errorf("%w: input %d has unsupported "+
				"script type", ErrMalformedInput, i)
		}

		witness, sigScript, err := capability.sign(
			tx, i, coin.TxOut(), sigHashes, key,
		)
		if err != nil {
			return nil, fmt.Errorf("unable to sign input %d: %w",
				i, err)
		}

		tx.TxIn[i].Witness = witness
		tx.TxIn[i].SignatureScript = sigScript
	}

	if err := validateMsgTx(tx, prevScripts, inputValues); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}

	weight := blockchain.GetTransactionWeight(btcutil.NewTx(tx))
	signedVSize := btcunit.NewWeightUnit(uint64(weight)).ToVB()

	log.Infof("Signed transaction %v: %d input(s), %d output(s), fee %v",
		tx.TxHash(), len(tx.TxIn), len(tx.TxOut), plan.Fee)
	log.Tracef("Signed transaction: %v", newLogClosure(func() string {
		return spew.Sdump(tx)
	}))

	return &SignedTransaction{
		Tx:           tx,
		SignedTx:     hex.EncodeToString(buf.Bytes()),
		Fee:          plan.Fee,
		FoldedChange: plan.FoldedChange,
		VSize:        plan.VSize,
		SignedVSize:  signedVSize,
		ChangeIndex:  plan.ChangeIndex(),
	}, nil
}

// validateMsgTx verifies that the transaction is valid and will be accepted
// by the script engine.
func validateMsgTx(tx *wire.MsgTx, prevScripts [][]byte,
	inputValues []btcutil.Amount) error {

	inputFetcher, err := txauthor.TXPrevOutFetcher(
		tx, prevScripts, inputValues,
	)
	if err != nil {
		return err
	}

	hashCache := txscript.NewTxSigHashes(tx, inputFetcher)
	for i, prevScript := range prevScripts {
		vm, err := txscript.NewEngine(
			prevScript, tx, i, txscript.StandardVerifyFlags, nil,
			hashCache, int64(inputValues[i]), inputFetcher,
		)
		if err != nil {
			return fmt.Errorf("cannot create script engine: %w", err)
		}

		err = vm.Execute()
		if err != nil {
			return fmt.Errorf("cannot validate transaction: %w", err)
		}
	}

	return nil
}

// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package brc20

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/pkg/btcunit"
)

const (
	// protocolID marks an ordinals envelope.
	protocolID = "ord"

	// tagContentType is the envelope field holding the MIME type. It is
	// pushed as data, never as OP_1.
	tagContentType = 1

	// bodyChunkSize is the largest body push, the consensus limit on
	// script element size.
	bodyChunkSize = txscript.MaxScriptElementSize

	// txVersion is the version of reveal transactions.
	txVersion = 2
)

// Envelope is the tapscript leaf that carries an inscription, together with
// the taproot output that commits to it. The leaf is spendable only by the
// inscription key:
//
//	<xonly key> OP_CHECKSIG OP_FALSE OP_IF "ord" 1 <content type> OP_0
//	<body chunk>... OP_ENDIF
type Envelope struct {
	// InternalKey is the inscription key. It is both the taproot
	// internal key and the key the leaf checks.
	InternalKey *btcec.PublicKey

	// Script is the leaf script.
	Script []byte

	leaf txscript.TapLeaf
	tree *txscript.IndexedTapScriptTree
}

// NewEnvelope builds the envelope inscribing body under key.
func NewEnvelope(key *btcec.PublicKey, contentType string,
	body []byte) (*Envelope, error) {

	builder := txscript.NewScriptBuilder().
		AddData(schnorr.SerializePubKey(key)).
		AddOp(txscript.OP_CHECKSIG).
		AddOp(txscript.OP_FALSE).
		AddOp(txscript.OP_IF).
		AddData([]byte(protocolID)).
		AddOp(txscript.OP_DATA_1).AddOp(tagContentType).
		AddData([]byte(contentType)).
		AddOp(txscript.OP_0)

	for len(body) > 0 {
		n := min(len(body), bodyChunkSize)
		builder.AddData(body[:n])
		body = body[n:]
	}

	script, err := builder.AddOp(txscript.OP_ENDIF).Script()
	if err != nil {
		return nil, fmt.Errorf("unable to build envelope: %w", err)
	}

	leaf := txscript.NewBaseTapLeaf(script)

	return &Envelope{
		InternalKey: key,
		Script:      script,
		leaf:        leaf,
		tree:        txscript.AssembleTaprootScriptTree(leaf),
	}, nil
}

// outputKey returns the tweaked key of the commit output.
func (e *Envelope) outputKey() *btcec.PublicKey {
	rootHash := e.tree.RootNode.TapHash()
	return txscript.ComputeTaprootOutputKey(e.InternalKey, rootHash[:])
}

// Address returns the commit address that locks funds to the envelope.
func (e *Envelope) Address(params *chaincfg.Params) (*btcutil.AddressTaproot,
	error) {

	return btcutil.NewAddressTaproot(
		schnorr.SerializePubKey(e.outputKey()), params,
	)
}

// PkScript returns the output script of the commit address.
func (e *Envelope) PkScript() ([]byte, error) {
	return txscript.PayToTaprootScript(e.outputKey())
}

// ControlBlock returns the serialized control block of the envelope leaf.
func (e *Envelope) ControlBlock() ([]byte, error) {
	ctrlBlock := e.tree.LeafMerkleProofs[0].ToControlBlock(e.InternalKey)
	return ctrlBlock.ToBytes()
}

// revealWitness returns the script path witness for a signature.
func (e *Envelope) revealWitness(sig []byte) (wire.TxWitness, error) {
	ctrlBlock, err := e.ControlBlock()
	if err != nil {
		return nil, err
	}

	return wire.TxWitness{sig, e.Script, ctrlBlock}, nil
}

// RevealVSize returns the virtual size of a reveal transaction that spends
// the commit output into the given outputs.
func (e *Envelope) RevealVSize(outputs []*wire.TxOut) (btcunit.VByte,
	error) {

	tx := wire.NewMsgTx(txVersion)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{}, nil, nil))

	// A default sighash Schnorr signature is always 64 bytes.
	witness, err := e.revealWitness(make([]byte, schnorr.SignatureSize))
	if err != nil {
		return btcunit.VByte{}, err
	}
	tx.TxIn[0].Witness = witness

	for _, out := range outputs {
		tx.AddTxOut(out)
	}

	weight := blockchain.GetTransactionWeight(btcutil.NewTx(tx))

	return btcunit.NewWeightUnit(uint64(weight)).ToVB(), nil
}

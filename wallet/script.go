// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/mempool"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
)

// ScriptType is the spend template of an output. The set is closed: every
// address the wallet pays to or spends from resolves to one of these.
type ScriptType uint8

const (
	// ScriptUnknown is the zero value. It is used in a TxShape to mean
	// "no change output".
	ScriptUnknown ScriptType = iota

	// ScriptP2PKH is a legacy pay-to-pubkey-hash output.
	ScriptP2PKH

	// ScriptNestedP2WPKH is a pay-to-witness-pubkey-hash output nested in
	// pay-to-script-hash, also known as wrapped segwit.
	ScriptNestedP2WPKH

	// ScriptP2WPKH is a native segwit v0 pay-to-witness-pubkey-hash
	// output.
	ScriptP2WPKH

	// ScriptP2TR is a segwit v1 taproot output, spent through the key
	// path when the wallet signs it.
	ScriptP2TR
)

// spendableScriptTypes lists the script types the wallet can sign for, in
// the order keyrings derive them.
var spendableScriptTypes = []ScriptType{
	ScriptP2PKH, ScriptNestedP2WPKH, ScriptP2WPKH, ScriptP2TR,
}

// signFunc produces the witness and signature script that spend prevOut at
// input idx of tx.
type signFunc func(tx *wire.MsgTx, idx int, prevOut *wire.TxOut,
	sigHashes *txscript.TxSigHashes, key *btcec.PrivateKey) (wire.TxWitness,
	[]byte, error)

// scriptCapability describes what the fee model and the signer need to know
// about a script type.
type scriptCapability struct {
	name         string
	pkScriptSize int
	sign         signFunc
}

// capabilities is the dispatch table for every supported script type.
var capabilities = map[ScriptType]scriptCapability{
	ScriptP2PKH: {
		name:         "p2pkh",
		pkScriptSize: txsizes.P2PKHPkScriptSize,
		sign:         signP2PKH,
	},
	ScriptNestedP2WPKH: {
		name:         "np2wkh",
		pkScriptSize: txsizes.NestedP2WPKHPkScriptSize,
		sign:         signNestedP2WPKH,
	},
	ScriptP2WPKH: {
		name:         "p2wkh",
		pkScriptSize: txsizes.P2WPKHPkScriptSize,
		sign:         signP2WPKH,
	},
	ScriptP2TR: {
		name:         "p2tr",
		pkScriptSize: txsizes.P2TRPkScriptSize,
		sign:         signP2TR,
	},
}

// String returns the short name of the script type.
func (s ScriptType) String() string {
	if c, ok := capabilities[s]; ok {
		return c.name
	}

	return "unknown"
}

// PkScriptSize returns the size of an output script of this type.
func (s ScriptType) PkScriptSize() int {
	return capabilities[s].pkScriptSize
}

// DustThreshold returns the smallest output value of this type the relay
// policy accepts. txrules.IsDustOutput at the default relay fee reports
// every smaller value as dust.
func (s ScriptType) DustThreshold() btcutil.Amount {
	out := wire.NewTxOut(0, s.templateScript())

	// IsDust holds while value*1000/cost < relayFee, so the first
	// accepted value is the cost scaled by the relay fee, rounded up.
	cost := mempool.GetDustThreshold(out) *
		int64(txrules.DefaultRelayFeePerKb)

	return btcutil.Amount((cost + 999) / 1000)
}

// templateScript returns an output script of this type paying to an all
// zero hash or key. Only its form and length are meaningful.
func (s ScriptType) templateScript() []byte {
	b := txscript.NewScriptBuilder()

	switch s {
	case ScriptNestedP2WPKH:
		b.AddOp(txscript.OP_HASH160).AddData(make([]byte, 20)).
			AddOp(txscript.OP_EQUAL)

	case ScriptP2WPKH:
		b.AddOp(txscript.OP_0).AddData(make([]byte, 20))

	case ScriptP2TR:
		b.AddOp(txscript.OP_1).AddData(make([]byte, 32))

	default:
		b.AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160).
			AddData(make([]byte, 20)).
			AddOp(txscript.OP_EQUALVERIFY).AddOp(txscript.OP_CHECKSIG)
	}

	script, _ := b.Script()

	return script
}

// ScriptTypeOf returns the script type of a decoded address.
func ScriptTypeOf(addr btcutil.Address) ScriptType {
	switch addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return ScriptP2PKH

	// A script hash address is assumed to wrap a P2WPKH program, which
	// is the only P2SH form the wallet creates.
	case *btcutil.AddressScriptHash:
		return ScriptNestedP2WPKH

	case *btcutil.AddressWitnessPubKeyHash:
		return ScriptP2WPKH

	case *btcutil.AddressTaproot:
		return ScriptP2TR

	default:
		return ScriptUnknown
	}
}

// ResolveAddress decodes an address for the given network and returns its
// script type and output script.
func ResolveAddress(address string,
	params *chaincfg.Params) (ScriptType, []byte, error) {

	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return ScriptUnknown, nil, fmt.Errorf("%w: %q: %v",
			ErrInvalidAddress, address, err)
	}

	if !addr.IsForNet(params) {
		return ScriptUnknown, nil, fmt.Errorf("%w: %q is not a %s "+
			"address", ErrInvalidAddress, address, params.Name)
	}

	scriptType := ScriptTypeOf(addr)
	if scriptType == ScriptUnknown {
		return ScriptUnknown, nil, fmt.Errorf("%w: %q has an "+
			"unsupported script type", ErrInvalidAddress, address)
	}

	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return ScriptUnknown, nil, fmt.Errorf("%w: %q: %v",
			ErrInvalidAddress, address, err)
	}

	return scriptType, pkScript, nil
}

// AddressFor returns the address of the given script type controlled by
// pubKey. Taproot addresses commit to the BIP-86 tweak of the key.
func AddressFor(scriptType ScriptType, pubKey *btcec.PublicKey,
	params *chaincfg.Params) (btcutil.Address, error) {

	pubKeyHash := btcutil.Hash160(pubKey.SerializeCompressed())

	switch scriptType {
	case ScriptP2PKH:
		return btcutil.NewAddressPubKeyHash(pubKeyHash, params)

	case ScriptNestedP2WPKH:
		witnessProgram, err := p2wkhProgram(pubKey)
		if err != nil {
			return nil, err
		}

		return btcutil.NewAddressScriptHash(witnessProgram, params)

	case ScriptP2WPKH:
		return btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, params)

	case ScriptP2TR:
		outputKey := txscript.ComputeTaprootKeyNoScript(pubKey)

		return btcutil.NewAddressTaproot(
			schnorr.SerializePubKey(outputKey), params,
		)

	default:
		return nil, fmt.Errorf("%w: script type %v",
			ErrMalformedInput, scriptType)
	}
}

// p2wkhProgram returns the P2WPKH output script of pubKey, which is also the
// redeem script of its nested address.
func p2wkhProgram(pubKey *btcec.PublicKey) ([]byte, error) {
	pubKeyHash := btcutil.Hash160(pubKey.SerializeCompressed())

	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(pubKeyHash).
		Script()
}

// signP2PKH signs a legacy input with a signature script.
func signP2PKH(tx *wire.MsgTx, idx int, prevOut *wire.TxOut,
	_ *txscript.TxSigHashes, key *btcec.PrivateKey) (wire.TxWitness,
	[]byte, error) {

	sigScript, err := txscript.SignatureScript(
		tx, idx, prevOut.PkScript, txscript.SigHashAll, key, true,
	)
	if err != nil {
		return nil, nil, err
	}

	return nil, sigScript, nil
}

// signP2WPKH signs a native segwit v0 input. The witness program is
// expanded into a regular p2kh script code by txscript.
func signP2WPKH(tx *wire.MsgTx, idx int, prevOut *wire.TxOut,
	sigHashes *txscript.TxSigHashes, key *btcec.PrivateKey) (wire.TxWitness,
	[]byte, error) {

	witness, err := txscript.WitnessSignature(
		tx, sigHashes, idx, prevOut.Value, prevOut.PkScript,
		txscript.SigHashAll, key, true,
	)
	if err != nil {
		return nil, nil, err
	}

	return witness, nil, nil
}

// signNestedP2WPKH signs a P2WPKH input nested in P2SH. The signature script
// holds a single push of the witness program.
func signNestedP2WPKH(tx *wire.MsgTx, idx int, prevOut *wire.TxOut,
	sigHashes *txscript.TxSigHashes, key *btcec.PrivateKey) (wire.TxWitness,
	[]byte, error) {

	witnessProgram, err := p2wkhProgram(key.PubKey())
	if err != nil {
		return nil, nil, err
	}

	// The P2SH script commits to the hash of the witness program, so a
	// key for a different address cannot produce a valid spend.
	p2shScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_HASH160).
		AddData(btcutil.Hash160(witnessProgram)).
		AddOp(txscript.OP_EQUAL).
		Script()
	if err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(p2shScript, prevOut.PkScript) {
		return nil, nil, fmt.Errorf("%w: key does not match nested "+
			"output", ErrMissingKey)
	}

	witness, err := txscript.WitnessSignature(
		tx, sigHashes, idx, prevOut.Value, witnessProgram,
		txscript.SigHashAll, key, true,
	)
	if err != nil {
		return nil, nil, err
	}

	sigScript, err := txscript.NewScriptBuilder().
		AddData(witnessProgram).
		Script()
	if err != nil {
		return nil, nil, err
	}

	return witness, sigScript, nil
}

// signP2TR produces a BIP-86 key path spend. The key is tweaked by txscript.
func signP2TR(tx *wire.MsgTx, idx int, prevOut *wire.TxOut,
	sigHashes *txscript.TxSigHashes, key *btcec.PrivateKey) (wire.TxWitness,
	[]byte, error) {

	witness, err := txscript.TaprootWitnessSignature(
		tx, sigHashes, idx, prevOut.Value, prevOut.PkScript,
		txscript.SigHashDefault, key,
	)
	if err != nil {
		return nil, nil, err
	}

	return witness, nil, nil
}

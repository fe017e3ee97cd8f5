// Copyright (c) 2020 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
)

// PSBT exports the plan as an unsigned packet for an external single signer.
// The public keys are optional: when one of them controls an input, the
// packet also carries the redeem script or taproot internal key the signer
// needs.
func (p *TransactionPlan) PSBT(pubKeys ...*btcec.PublicKey) (*psbt.Packet,
	error) {

	if err := p.Validate(); err != nil {
		return nil, err
	}

	packet, err := psbt.NewFromUnsignedTx(p.UnsignedTx())
	if err != nil {
		return nil, err
	}

	owners := make(map[string]*btcec.PublicKey, len(pubKeys)*4)
	for _, pubKey := range pubKeys {
		for _, scriptType := range spendableScriptTypes {
			addr, err := AddressFor(scriptType, pubKey, p.Params)
			if err != nil {
				return nil, err
			}

			pkScript, err := txscript.PayToAddrScript(addr)
			if err != nil {
				return nil, err
			}

			owners[string(pkScript)] = pubKey
		}
	}

	for i := range p.Inputs.Coins {
		coin := &p.Inputs.Coins[i]
		in := &packet.Inputs[i]
		owner := owners[string(coin.PkScript)]

		switch coin.ScriptType {
		case ScriptP2WPKH, ScriptNestedP2WPKH:
			err = addInputInfoSegWitV0(in, coin, owner)

		case ScriptP2TR:
			addInputInfoSegWitV1(in, coin, owner)

		// Legacy inputs need the full previous transaction, which the
		// UTXO snapshot does not carry. The signer has to add it.
		default:
			in.SighashType = txscript.SigHashAll
		}
		if err != nil {
			return nil, err
		}
	}

	return packet, nil
}

// addInputInfoSegWitV0 adds the UTXO information of a SegWit v0 input
// (p2wkh, np2wkh).
func addInputInfoSegWitV0(in *psbt.PInput, coin *Coin,
	owner *btcec.PublicKey) error {

	in.WitnessUtxo = coin.TxOut()
	in.SighashType = txscript.SigHashAll

	// For nested P2WKH we need to add the redeem script to the input,
	// otherwise an offline wallet won't be able to sign for it.
	if coin.ScriptType == ScriptNestedP2WPKH && owner != nil {
		witnessProgram, err := p2wkhProgram(owner)
		if err != nil {
			return err
		}
		in.RedeemScript = witnessProgram
	}

	return nil
}

// addInputInfoSegWitV1 adds the UTXO information of a SegWit v1 (p2tr)
// input.
func addInputInfoSegWitV1(in *psbt.PInput, coin *Coin,
	owner *btcec.PublicKey) {

	// For SegWit v1 we only need the witness UTXO information.
	in.WitnessUtxo = coin.TxOut()
	in.SighashType = txscript.SigHashDefault

	if owner != nil {
		in.TaprootInternalKey = schnorr.SerializePubKey(owner)
	}
}

// PsbtPrevOutputFetcher returns a txscript.PrevOutFetcher built from the UTXO
// information in a PSBT packet.
func PsbtPrevOutputFetcher(packet *psbt.Packet) *txscript.MultiPrevOutFetcher {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for idx, txIn := range packet.UnsignedTx.TxIn {
		in := packet.Inputs[idx]

		if in.NonWitnessUtxo != nil {
			prevIndex := txIn.PreviousOutPoint.Index
			fetcher.AddPrevOut(
				txIn.PreviousOutPoint,
				in.NonWitnessUtxo.TxOut[prevIndex],
			)

			continue
		}

		if in.WitnessUtxo != nil {
			fetcher.AddPrevOut(
				txIn.PreviousOutPoint, in.WitnessUtxo,
			)
		}
	}

	return fetcher
}

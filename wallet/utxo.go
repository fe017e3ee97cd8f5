// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Confirmation describes whether and where a UTXO was mined. The block
// fields are zero for unconfirmed outputs or when the source did not report
// them.
type Confirmation struct {
	Confirmed   bool
	BlockHeight uint32
	BlockHash   chainhash.Hash
	BlockTime   time.Time
}

// UTXO is an unspent output owned by one of the user's addresses, as reported
// by a UTXO source. The outpoint is its identity. UTXOs are read-only
// snapshots and are never modified by this package.
type UTXO struct {
	OutPoint     wire.OutPoint
	Value        btcutil.Amount
	Address      string
	Confirmation Confirmation
}

// String returns the outpoint and value of the UTXO.
func (u UTXO) String() string {
	return fmt.Sprintf("%v (%v)", u.OutPoint, u.Value)
}

// Recipient is a single payment output. Recipients keep their order in the
// final transaction.
type Recipient struct {
	Address string
	Amount  btcutil.Amount
}

// Coin is a UTXO whose address has been resolved into a script type and
// output script for the active network.
type Coin struct {
	UTXO

	// ScriptType is the spend template of the output.
	ScriptType ScriptType

	// PkScript is the output script the UTXO is locked to.
	PkScript []byte
}

// TxOut returns the previous output the coin represents.
func (c *Coin) TxOut() *wire.TxOut {
	return wire.NewTxOut(int64(c.Value), c.PkScript)
}

// NewCoin resolves the address of a UTXO for the given network.
func NewCoin(utxo UTXO, params *chaincfg.Params) (Coin, error) {
	if utxo.Value < 0 {
		return Coin{}, fmt.Errorf("%w: utxo %v has negative value",
			ErrMalformedInput, utxo.OutPoint)
	}

	scriptType, pkScript, err := ResolveAddress(utxo.Address, params)
	if err != nil {
		return Coin{}, fmt.Errorf("utxo %v: %w", utxo.OutPoint, err)
	}

	return Coin{
		UTXO:       utxo,
		ScriptType: scriptType,
		PkScript:   pkScript,
	}, nil
}

// Selection is an ordered set of coins chosen to fund a transaction.
type Selection struct {
	// Coins are the selected inputs, in spending order. A pinned coin,
	// if any, is always first.
	Coins []Coin

	// Total is the value of all selected coins, pinned ones included.
	Total btcutil.Amount

	// PinnedValue is the value of the pinned coin. It is already part of
	// Total and is not available to pay fees.
	PinnedValue btcutil.Amount
}

// FundingTotal returns the value of the selection that may pay for outputs
// other than the pinned one, and for fees.
func (s *Selection) FundingTotal() btcutil.Amount {
	return s.Total - s.PinnedValue
}

// ScriptTypes returns the script types of the selected coins in order.
func (s *Selection) ScriptTypes() []ScriptType {
	types := make([]ScriptType, 0, len(s.Coins))
	for _, c := range s.Coins {
		types = append(types, c.ScriptType)
	}

	return types
}

// OutPoints returns the outpoints of the selected coins in order.
func (s *Selection) OutPoints() []wire.OutPoint {
	ops := make([]wire.OutPoint, 0, len(s.Coins))
	for _, c := range s.Coins {
		ops = append(ops, c.OutPoint)
	}

	return ops
}

// add appends a coin to the selection.
func (s *Selection) add(c Coin) {
	s.Coins = append(s.Coins, c)
	s.Total += c.Value
}

// clone returns a copy that shares no slices with s.
func (s *Selection) clone() *Selection {
	coins := make([]Coin, len(s.Coins))
	copy(coins, s.Coins)

	return &Selection{
		Coins:       coins,
		Total:       s.Total,
		PinnedValue: s.PinnedValue,
	}
}

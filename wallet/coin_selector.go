// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// CoinSelectionRequest describes a single coin selection.
type CoinSelectionRequest struct {
	// Target is the value the funding coins must reach. The caller
	// includes whatever fee headroom it needs. For ordinal sends the
	// pinned coin pays its own output, so the target excludes it.
	Target btcutil.Amount

	// FeeRate prices the input each candidate would add. A candidate
	// worth less than that is skipped. A zero rate skips nothing.
	FeeRate btcunit.SatPerVByte

	// Pool holds the candidate UTXOs. Its order is the tie-breaker for
	// coins of equal value.
	Pool []UTXO

	// Outputs are the script types of the non-change outputs, in order.
	Outputs []ScriptType

	// ChangeType is the script type of the change output the
	// transaction will carry if the selection leaves a remainder.
	ChangeType ScriptType

	// Pinned is spent as the first input regardless of its value and is
	// never considered a funding candidate. It is used for the
	// inscription UTXO of an ordinal send.
	Pinned *UTXO

	// Excluded lists outpoints that must never be selected, typically
	// the outputs holding inscriptions.
	Excluded []wire.OutPoint

	// Params is the network the pool's addresses belong to.
	Params *chaincfg.Params
}

// shape returns the transaction shape implied by the current selection.
func (r *CoinSelectionRequest) shape(s *Selection) TxShape {
	return TxShape{
		Inputs:  s.ScriptTypes(),
		Outputs: r.Outputs,
		Change:  r.ChangeType,
	}
}

// SelectCoins greedily selects coins from the pool, largest first, with
// confirmed coins ahead of unconfirmed ones. A candidate worth less than the
// fee its own input adds is skipped. Selection stops as soon as the funding
// total reaches the target. The fee of the selected inputs is settled by the
// resolver, which raises the target and selects again until the selection
// pays for itself.
//
// If the pool runs out first an *InsufficientFundsError is returned holding
// what the walk had gathered.
func SelectCoins(req *CoinSelectionRequest) (*Selection, error) {
	if req.Target < 0 {
		return nil, fmt.Errorf("%w: negative selection target %v",
			ErrMalformedInput, req.Target)
	}

	excluded := fn.NewSet(req.Excluded...)
	selection := &Selection{}

	if req.Pinned != nil {
		pinned, err := NewCoin(*req.Pinned, req.Params)
		if err != nil {
			return nil, err
		}

		excluded.Add(pinned.OutPoint)
		selection.add(pinned)
		selection.PinnedValue = pinned.Value

		// A pinned coin with nothing else to pay for needs no
		// funding at all.
		if selection.FundingTotal() >= req.Target {
			return selection, nil
		}
	}

	candidates := arrangeCoins(eligibleCoins(req.Pool, excluded, req.Params))

	for _, candidate := range candidates {
		inputFee := MarginalInputFee(
			req.shape(selection), candidate.ScriptType, req.FeeRate,
		)
		if candidate.Value < inputFee {
			log.Debugf("Skipping uneconomical coin %v: value %v "+
				"below its input fee %v", candidate.OutPoint,
				candidate.Value, inputFee)

			continue
		}

		selection.add(candidate)

		if selection.FundingTotal() >= req.Target {
			log.Debugf("Selected %d coin(s) worth %v for target %v",
				len(selection.Coins), selection.Total, req.Target)

			return selection, nil
		}
	}

	return nil, &InsufficientFundsError{
		Selection: selection,
		Required:  req.Target,
		Available: selection.FundingTotal(),
	}
}

// eligibleCoins resolves the pool into coins, dropping excluded and duplicate
// outpoints and UTXOs whose address does not belong to the network.
func eligibleCoins(pool []UTXO, excluded fn.Set[wire.OutPoint],
	params *chaincfg.Params) []Coin {

	seen := fn.NewSet[wire.OutPoint]()
	coins := make([]Coin, 0, len(pool))

	for _, utxo := range pool {
		if excluded.Contains(utxo.OutPoint) {
			log.Tracef("Skipping protected output %v", utxo.OutPoint)
			continue
		}

		if seen.Contains(utxo.OutPoint) {
			continue
		}
		seen.Add(utxo.OutPoint)

		coin, err := NewCoin(utxo, params)
		if err != nil {
			log.Warnf("Ignoring unusable utxo: %v", err)
			continue
		}

		coins = append(coins, coin)
	}

	return coins
}

// sortByAmount sorts coins by value, largest first.
type sortByAmount []Coin

func (s sortByAmount) Len() int { return len(s) }
func (s sortByAmount) Less(i, j int) bool {
	return s[i].Value > s[j].Value
}
func (s sortByAmount) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// arrangeCoins orders coins for the greedy walk: confirmed coins first, each
// group largest first. Equal values keep their pool order.
func arrangeCoins(coins []Coin) []Coin {
	confirmed := make([]Coin, 0, len(coins))
	unconfirmed := make([]Coin, 0, len(coins))

	for _, c := range coins {
		if c.Confirmation.Confirmed {
			confirmed = append(confirmed, c)
		} else {
			unconfirmed = append(unconfirmed, c)
		}
	}

	sort.Stable(sortByAmount(confirmed))
	sort.Stable(sortByAmount(unconfirmed))

	return append(confirmed, unconfirmed...)
}

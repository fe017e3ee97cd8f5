// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/pkg/btcunit"
)

// UTXOSource provides the unspent outputs of an address.
type UTXOSource interface {
	// FetchUnspentOutputs returns a snapshot of the address's UTXOs. The
	// snapshot may be stale or incomplete; the wallet never assumes
	// otherwise.
	FetchUnspentOutputs(ctx context.Context, address string) ([]UTXO,
		error)
}

// OrdinalSource reports which outputs of an address carry inscriptions.
type OrdinalSource interface {
	// FetchOrdinalOutputs returns the address's UTXOs that hold at least
	// one inscription. They must never be spent as fee funding.
	FetchOrdinalOutputs(ctx context.Context, address string) ([]UTXO,
		error)
}

// FeeRateSource provides the current recommended fee rates.
type FeeRateSource interface {
	// FetchRecommendedFeeRate returns a fee rate snapshot.
	FetchRecommendedFeeRate(ctx context.Context) (*btcunit.FeeRates,
		error)
}

// Broadcaster publishes signed transactions.
type Broadcaster interface {
	// Broadcast submits tx to the network and returns its id.
	Broadcast(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash,
		error)
}

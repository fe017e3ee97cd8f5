// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"fmt"
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/wallet"
)

// OrdConfig configures an Ord client.
type OrdConfig struct {
	ClientConfig

	// Params is the network the ord server indexes.
	Params *chaincfg.Params
}

// Ord queries the JSON API of an ord server for outputs that carry
// inscriptions. It implements wallet.OrdinalSource.
type Ord struct {
	*client

	params *chaincfg.Params
}

// A compile time check to ensure Ord satisfies the wallet.OrdinalSource
// interface.
var _ wallet.OrdinalSource = (*Ord)(nil)

// NewOrd creates an Ord client.
func NewOrd(cfg OrdConfig) (*Ord, error) {
	if cfg.Params == nil {
		return nil, fmt.Errorf("%w: no network parameters",
			wallet.ErrMalformedInput)
	}

	c, err := newClient(cfg.ClientConfig)
	if err != nil {
		return nil, err
	}

	return &Ord{client: c, params: cfg.Params}, nil
}

// ordOutput is one entry of GET /outputs/:address.
type ordOutput struct {
	Address      string   `json:"address"`
	Indexed      bool     `json:"indexed"`
	Inscriptions []string `json:"inscriptions"`
	Outpoint     string   `json:"outpoint"`
	Spent        bool     `json:"spent"`
	Value        int64    `json:"value"`
}

// FetchOrdinalOutputs returns the unspent outputs of address holding at
// least one inscription.
func (o *Ord) FetchOrdinalOutputs(ctx context.Context,
	address string) ([]wallet.UTXO, error) {

	if err := checkAddress(address, o.params); err != nil {
		return nil, err
	}

	data, err := o.do(ctx, request{
		method: http.MethodGet,
		url:    o.endpoint("outputs", address),
		accept: "application/json",
	})
	if err != nil {
		return nil, err
	}

	var outputs []ordOutput
	if err := decodeJSON(data, &outputs); err != nil {
		return nil, err
	}

	var utxos []wallet.UTXO
	for _, out := range outputs {
		if out.Spent || len(out.Inscriptions) == 0 {
			continue
		}

		op, err := wire.NewOutPointFromString(out.Outpoint)
		if err != nil {
			return nil, fmt.Errorf("%w: outpoint %q: %w",
				wallet.ErrNetwork, out.Outpoint, err)
		}

		if out.Value < 0 {
			return nil, fmt.Errorf("%w: output %v has negative "+
				"value", wallet.ErrNetwork, op)
		}

		// Ord only indexes mined blocks, so an indexed output is
		// confirmed.
		utxos = append(utxos, wallet.UTXO{
			OutPoint: *op,
			Value:    btcutil.Amount(out.Value),
			Address:  address,
			Confirmation: wallet.Confirmation{
				Confirmed: out.Indexed,
			},
		})

		log.Tracef("Output %v holds inscriptions %v", op,
			out.Inscriptions)
	}

	log.Debugf("Found %d inscription outputs of %s", len(utxos), address)

	return utxos, nil
}

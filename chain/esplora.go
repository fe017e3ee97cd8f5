// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/btcsuite/ordtx/wallet"
)

// EsploraConfig configures an Esplora client.
type EsploraConfig struct {
	ClientConfig

	// Params is the network the API serves. Addresses of other networks
	// are rejected before any request is made.
	Params *chaincfg.Params

	// MaxFeeRate caps the rates reported by the API. Zero leaves them
	// uncapped.
	MaxFeeRate btcunit.SatPerVByte
}

// Esplora talks to an esplora compatible API such as the one served by
// mempool.space. It implements wallet.UTXOSource, wallet.FeeRateSource and
// wallet.Broadcaster.
type Esplora struct {
	*client

	params     *chaincfg.Params
	maxFeeRate btcunit.SatPerVByte
}

// A compile time check to ensure Esplora satisfies the wallet interfaces.
var (
	_ wallet.UTXOSource    = (*Esplora)(nil)
	_ wallet.FeeRateSource = (*Esplora)(nil)
	_ wallet.Broadcaster   = (*Esplora)(nil)
)

// NewEsplora creates an Esplora client.
func NewEsplora(cfg EsploraConfig) (*Esplora, error) {
	if cfg.Params == nil {
		return nil, fmt.Errorf("%w: no network parameters",
			wallet.ErrMalformedInput)
	}

	c, err := newClient(cfg.ClientConfig)
	if err != nil {
		return nil, err
	}

	return &Esplora{
		client:     c,
		params:     cfg.Params,
		maxFeeRate: cfg.MaxFeeRate,
	}, nil
}

// esploraStatus is the confirmation status of an esplora UTXO.
type esploraStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint32 `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	BlockTime   int64  `json:"block_time"`
}

// esploraUTXO is one entry of GET /address/:address/utxo.
type esploraUTXO struct {
	TxID   string        `json:"txid"`
	Vout   uint32        `json:"vout"`
	Value  int64         `json:"value"`
	Status esploraStatus `json:"status"`
}

// FetchUnspentOutputs returns the UTXOs of address.
func (e *Esplora) FetchUnspentOutputs(ctx context.Context,
	address string) ([]wallet.UTXO, error) {

	if err := checkAddress(address, e.params); err != nil {
		return nil, err
	}

	data, err := e.do(ctx, request{
		method: http.MethodGet,
		url:    e.endpoint("address", address, "utxo"),
		accept: "application/json",
	})
	if err != nil {
		return nil, err
	}

	var entries []esploraUTXO
	if err := decodeJSON(data, &entries); err != nil {
		return nil, err
	}

	utxos := make([]wallet.UTXO, 0, len(entries))
	for _, entry := range entries {
		utxo, err := entry.toUTXO(address)
		if err != nil {
			return nil, err
		}

		utxos = append(utxos, utxo)
	}

	log.Debugf("Fetched %d utxos of %s", len(utxos), address)

	return utxos, nil
}

// toUTXO converts an esplora entry owned by address.
func (u *esploraUTXO) toUTXO(address string) (wallet.UTXO, error) {
	hash, err := chainhash.NewHashFromStr(u.TxID)
	if err != nil {
		return wallet.UTXO{}, fmt.Errorf("%w: utxo txid %q: %w",
			wallet.ErrNetwork, u.TxID, err)
	}

	if u.Value < 0 {
		return wallet.UTXO{}, fmt.Errorf("%w: utxo %v:%d has negative "+
			"value", wallet.ErrNetwork, hash, u.Vout)
	}

	conf := wallet.Confirmation{Confirmed: u.Status.Confirmed}
	if u.Status.Confirmed {
		conf.BlockHeight = u.Status.BlockHeight
		if u.Status.BlockTime > 0 {
			conf.BlockTime = time.Unix(u.Status.BlockTime, 0)
		}

		if u.Status.BlockHash != "" {
			blockHash, err := chainhash.NewHashFromStr(
				u.Status.BlockHash,
			)
			if err != nil {
				return wallet.UTXO{}, fmt.Errorf("%w: block "+
					"hash %q: %w", wallet.ErrNetwork,
					u.Status.BlockHash, err)
			}
			conf.BlockHash = *blockHash
		}
	}

	return wallet.UTXO{
		OutPoint:     *wire.NewOutPoint(hash, u.Vout),
		Value:        btcutil.Amount(u.Value),
		Address:      address,
		Confirmation: conf,
	}, nil
}

// recommendedFees is the body of GET /v1/fees/recommended.
type recommendedFees struct {
	FastestFee  float64 `json:"fastestFee"`
	HalfHourFee float64 `json:"halfHourFee"`
	HourFee     float64 `json:"hourFee"`
	EconomyFee  float64 `json:"economyFee"`
	MinimumFee  float64 `json:"minimumFee"`
}

// FetchRecommendedFeeRate returns the recommended rates. The half hour
// target is the regular rate and the next block target the priority rate.
func (e *Esplora) FetchRecommendedFeeRate(
	ctx context.Context) (*btcunit.FeeRates, error) {

	data, err := e.do(ctx, request{
		method: http.MethodGet,
		url:    e.endpoint("v1", "fees", "recommended"),
		accept: "application/json",
	})
	if err != nil {
		return nil, err
	}

	var fees recommendedFees
	if err := decodeJSON(data, &fees); err != nil {
		return nil, err
	}

	var rates btcunit.FeeRates
	for _, r := range []struct {
		dst  *btcunit.SatPerVByte
		rate float64
	}{
		{&rates.Regular, fees.HalfHourFee},
		{&rates.Priority, fees.FastestFee},
		{&rates.Min, fees.MinimumFee},
	} {
		*r.dst, err = btcunit.ParseSatPerVByte(r.rate)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", wallet.ErrNetwork, err)
		}
	}

	if e.maxFeeRate.IsPositive() {
		rates.Max = e.maxFeeRate
		if e.maxFeeRate.LessThan(rates.Regular) {
			log.Warnf("Capping regular fee rate %v at %v",
				rates.Regular, e.maxFeeRate)
			rates.Regular = e.maxFeeRate
		}
		if e.maxFeeRate.LessThan(rates.Priority) {
			log.Warnf("Capping priority fee rate %v at %v",
				rates.Priority, e.maxFeeRate)
			rates.Priority = e.maxFeeRate
		}
	}

	log.Debugf("Fetched fee rates: regular=%v priority=%v min=%v",
		rates.Regular, rates.Priority, rates.Min)

	return &rates, nil
}

// Broadcast submits tx with POST /tx and returns the txid the API reports.
func (e *Esplora) Broadcast(ctx context.Context,
	tx *wire.MsgTx) (*chainhash.Hash, error) {

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("serialize tx: %w", err)
	}

	data, err := e.do(ctx, request{
		method:      http.MethodPost,
		url:         e.endpoint("tx"),
		contentType: "text/plain",
		body:        []byte(hex.EncodeToString(buf.Bytes())),
	})
	if err != nil {
		return nil, err
	}

	txid, err := chainhash.NewHashFromStr(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: broadcast response %q: %w",
			wallet.ErrNetwork, data, err)
	}

	if want := tx.TxHash(); !txid.IsEqual(&want) {
		log.Warnf("Broadcast returned txid %v, expected %v", txid, want)
	}

	return txid, nil
}

// checkAddress rejects addresses that do not decode for params before they
// are sent anywhere.
func checkAddress(address string, params *chaincfg.Params) error {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", wallet.ErrInvalidAddress,
			address, err)
	}

	if !addr.IsForNet(params) {
		return fmt.Errorf("%w: %q is not a %s address",
			wallet.ErrInvalidAddress, address, params.Name)
	}

	return nil
}

// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/wallet"
	"gopkg.in/yaml.v3"
)

// utxoFile is the YAML layout of an offline UTXO snapshot.
type utxoFile struct {
	UTXOs []utxoEntry `yaml:"utxos"`

	// Inscriptions lists the outpoints that carry inscriptions.
	Inscriptions []string `yaml:"inscriptions"`
}

// utxoEntry is one unspent output of a snapshot.
type utxoEntry struct {
	OutPoint    string `yaml:"outpoint"`
	Value       int64  `yaml:"value"`
	Address     string `yaml:"address"`
	Confirmed   bool   `yaml:"confirmed"`
	BlockHeight uint32 `yaml:"block_height"`
}

// fileSource serves UTXOs and inscription outputs from a snapshot file. It
// implements wallet.UTXOSource and wallet.OrdinalSource.
type fileSource struct {
	utxos       []wallet.UTXO
	inscription map[wire.OutPoint]struct{}
}

// A compile time check to ensure fileSource satisfies the wallet interfaces.
var (
	_ wallet.UTXOSource    = (*fileSource)(nil)
	_ wallet.OrdinalSource = (*fileSource)(nil)
)

// loadUTXOFile reads a snapshot from path.
func loadUTXOFile(path string) (*fileSource, error) {
	// #nosec G304 -- the path is given by the user.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return parseUTXOFile(data)
}

// parseUTXOFile decodes a YAML snapshot.
func parseUTXOFile(data []byte) (*fileSource, error) {
	var file utxoFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: utxo file: %w",
			wallet.ErrMalformedInput, err)
	}

	src := &fileSource{
		utxos:       make([]wallet.UTXO, 0, len(file.UTXOs)),
		inscription: make(map[wire.OutPoint]struct{}),
	}

	for _, entry := range file.UTXOs {
		op, err := wire.NewOutPointFromString(entry.OutPoint)
		if err != nil {
			return nil, fmt.Errorf("%w: utxo %q: %w",
				wallet.ErrMalformedInput, entry.OutPoint, err)
		}

		src.utxos = append(src.utxos, wallet.UTXO{
			OutPoint: *op,
			Value:    btcutil.Amount(entry.Value),
			Address:  entry.Address,
			Confirmation: wallet.Confirmation{
				Confirmed:   entry.Confirmed,
				BlockHeight: entry.BlockHeight,
			},
		})
	}

	for _, outpoint := range file.Inscriptions {
		op, err := wire.NewOutPointFromString(outpoint)
		if err != nil {
			return nil, fmt.Errorf("%w: inscription %q: %w",
				wallet.ErrMalformedInput, outpoint, err)
		}

		src.inscription[*op] = struct{}{}
	}

	return src, nil
}

// FetchUnspentOutputs returns the snapshot's UTXOs of address.
func (f *fileSource) FetchUnspentOutputs(_ context.Context,
	address string) ([]wallet.UTXO, error) {

	var utxos []wallet.UTXO
	for _, utxo := range f.utxos {
		if utxo.Address == address {
			utxos = append(utxos, utxo)
		}
	}

	return utxos, nil
}

// FetchOrdinalOutputs returns the snapshot's UTXOs of address that are
// listed as inscriptions.
func (f *fileSource) FetchOrdinalOutputs(ctx context.Context,
	address string) ([]wallet.UTXO, error) {

	utxos, err := f.FetchUnspentOutputs(ctx, address)
	if err != nil {
		return nil, err
	}

	var ordinals []wallet.UTXO
	for _, utxo := range utxos {
		if _, ok := f.inscription[utxo.OutPoint]; ok {
			ordinals = append(ordinals, utxo)
		}
	}

	return ordinals, nil
}

// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package brc20 estimates and builds the commit and reveal transactions that
// inscribe a BRC-20 transfer.
package brc20

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/ordtx/wallet"
	"github.com/shopspring/decimal"
)

const (
	// protocolName is the protocol tag of every BRC-20 inscription.
	protocolName = "brc-20"

	// opTransfer is the operation of a transfer inscription.
	opTransfer = "transfer"

	// ContentType is the MIME type BRC-20 inscriptions are created with.
	ContentType = "text/plain;charset=utf-8"

	// maxDecimals is the highest precision a BRC-20 amount may carry.
	maxDecimals = 18
)

// transferBody is the JSON document of a transfer inscription. The field
// order is the canonical one indexers expect.
type transferBody struct {
	Protocol  string `json:"p"`
	Operation string `json:"op"`
	Tick      string `json:"tick"`
	Amount    string `json:"amt"`
}

// TransferInscription is a validated BRC-20 transfer.
type TransferInscription struct {
	// Tick is the token ticker, four or five bytes long.
	Tick string

	// Amount is the number of tokens moved.
	Amount decimal.Decimal
}

// NewTransferInscription validates a ticker and amount.
func NewTransferInscription(tick, amount string) (*TransferInscription,
	error) {

	if n := len(tick); n != 4 && n != 5 {
		return nil, fmt.Errorf("%w: tick %q must be 4 or 5 bytes",
			wallet.ErrMalformedInput, tick)
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v",
			wallet.ErrMalformedInput, amount, err)
	}

	if !amt.IsPositive() {
		return nil, fmt.Errorf("%w: amount %v must be positive",
			wallet.ErrMalformedInput, amt)
	}

	if amt.Exponent() < -maxDecimals {
		return nil, fmt.Errorf("%w: amount %v has more than %d "+
			"decimals", wallet.ErrMalformedInput, amt, maxDecimals)
	}

	return &TransferInscription{Tick: tick, Amount: amt}, nil
}

// Body returns the inscription content. Tickers are written verbatim, HTML
// characters included.
func (t *TransferInscription) Body() []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	// Encoding a struct of strings cannot fail.
	_ = enc.Encode(transferBody{
		Protocol:  protocolName,
		Operation: opTransfer,
		Tick:      t.Tick,
		Amount:    t.Amount.String(),
	})

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/btcsuite/ordtx/wallet"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/shopspring/decimal"
)

// satsPerBTC converts whole bitcoin into satoshis.
var satsPerBTC = decimal.NewFromInt(btcutil.SatoshiPerBitcoin)

// parseBTC converts a decimal bitcoin amount such as 0.0015 into satoshis.
// Amounts finer than one satoshi are rejected rather than rounded.
func parseBTC(s string) (btcutil.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %w",
			wallet.ErrMalformedInput, s, err)
	}

	sats := d.Mul(satsPerBTC)
	if !sats.IsInteger() {
		return 0, fmt.Errorf("%w: amount %q is not a whole number of "+
			"satoshis", wallet.ErrMalformedInput, s)
	}

	if !sats.IsPositive() || sats.GreaterThan(
		decimal.NewFromInt(btcutil.MaxSatoshi),
	) {
		return 0, fmt.Errorf("%w: amount %q out of range",
			wallet.ErrMalformedInput, s)
	}

	return btcutil.Amount(sats.IntPart()), nil
}

// parseRecipient parses address:amount with the amount in bitcoin.
func parseRecipient(s string) (wallet.Recipient, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return wallet.Recipient{}, fmt.Errorf("%w: recipient %q is "+
			"not address:amount", wallet.ErrMalformedInput, s)
	}

	amount, err := parseBTC(s[i+1:])
	if err != nil {
		return wallet.Recipient{}, err
	}

	return wallet.Recipient{Address: s[:i], Amount: amount}, nil
}

// parseRecipients parses every recipient argument in order.
func parseRecipients(args []string) ([]wallet.Recipient, error) {
	recipients := make([]wallet.Recipient, 0, len(args))
	for _, arg := range args {
		r, err := parseRecipient(arg)
		if err != nil {
			return nil, err
		}

		recipients = append(recipients, r)
	}

	return recipients, nil
}

// parseOutPoints parses txid:vout arguments.
func parseOutPoints(args []string) ([]wire.OutPoint, error) {
	ops := make([]wire.OutPoint, 0, len(args))
	for _, arg := range args {
		op, err := wire.NewOutPointFromString(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: outpoint %q: %w",
				wallet.ErrMalformedInput, arg, err)
		}

		ops = append(ops, *op)
	}

	return ops, nil
}

// feeOptions are the fee flags shared by the send commands.
type feeOptions struct {
	FeeRate  float64 `long:"feerate" description:"Fee rate in sat/vB, overrides the recommended rate"`
	Fee      int64   `long:"fee" description:"Absolute fee in satoshis, the fee rate source is not queried"`
	Priority bool    `long:"priority" description:"Pay the next block rate instead of the regular rate"`
}

// parse converts the flags into the request fields. Zero values mean unset.
func (o *feeOptions) parse() (wallet.FeeTier,
	fn.Option[btcunit.SatPerVByte], fn.Option[btcutil.Amount], error) {

	tier := wallet.FeeTierRegular
	if o.Priority {
		tier = wallet.FeeTierPriority
	}

	rate := fn.None[btcunit.SatPerVByte]()
	customFee := fn.None[btcutil.Amount]()

	switch {
	case o.FeeRate != 0 && o.Fee != 0:
		return tier, rate, customFee, fmt.Errorf("%w: --feerate and "+
			"--fee are exclusive", wallet.ErrMalformedInput)

	case o.FeeRate != 0:
		r, err := btcunit.ParseSatPerVByte(o.FeeRate)
		if err != nil {
			return tier, rate, customFee, fmt.Errorf("%w: %w",
				wallet.ErrMalformedInput, err)
		}
		rate = fn.Some(r)

	case o.Fee < 0:
		return tier, rate, customFee, fmt.Errorf("%w: negative fee",
			wallet.ErrMalformedInput)

	case o.Fee > 0:
		customFee = fn.Some(btcutil.Amount(o.Fee))
	}

	return tier, rate, customFee, nil
}

// decodeKey decodes a WIF private key for params.
func decodeKey(name, s string, params *chaincfg.Params) (*btcec.PrivateKey,
	error) {

	if s == "" {
		return nil, fmt.Errorf("%w: no %s key given",
			wallet.ErrMalformedInput, name)
	}

	wif, err := btcutil.DecodeWIF(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s key: %w",
			wallet.ErrMalformedInput, name, err)
	}

	if !wif.IsForNet(params) {
		return nil, fmt.Errorf("%w: %s key is not for %s",
			wallet.ErrMalformedInput, name, params.Name)
	}

	return wif.PrivKey, nil
}

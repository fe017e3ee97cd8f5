package main

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/btcsuite/ordtx/wallet"
	"github.com/stretchr/testify/require"
)

// TestParseBTC checks the conversion of bitcoin amounts.
func TestParseBTC(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in      string
		want    btcutil.Amount
		wantErr bool
	}{
		{in: "1", want: 100_000_000},
		{in: "0.0015", want: 150_000},
		{in: "0.00000546", want: 546},
		{in: "21000000", want: btcutil.MaxSatoshi},
		{in: "0.000000001", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "21000000.00000001", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			got, err := parseBTC(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, wallet.ErrMalformedInput)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// TestParseRecipients checks that recipients keep their order.
func TestParseRecipients(t *testing.T) {
	t.Parallel()

	recipients, err := parseRecipients([]string{
		"bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4:0.002",
		"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2:0.001",
	})
	require.NoError(t, err)
	require.Equal(t, []wallet.Recipient{
		{
			Address: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
			Amount:  200_000,
		},
		{
			Address: "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2",
			Amount:  100_000,
		},
	}, recipients)

	for _, bad := range []string{"noamount", ":1", "addr:", "addr:x"} {
		_, err := parseRecipient(bad)
		require.ErrorIs(t, err, wallet.ErrMalformedInput, bad)
	}
}

// TestFeeOptions checks the mutually exclusive fee flags.
func TestFeeOptions(t *testing.T) {
	t.Parallel()

	tier, rate, fee, err := (&feeOptions{}).parse()
	require.NoError(t, err)
	require.Equal(t, wallet.FeeTierRegular, tier)
	require.True(t, rate.IsNone())
	require.True(t, fee.IsNone())

	tier, rate, _, err = (&feeOptions{
		FeeRate: 2.5, Priority: true,
	}).parse()
	require.NoError(t, err)
	require.Equal(t, wallet.FeeTierPriority, tier)
	require.True(t, rate.UnwrapOr(btcunit.ZeroSatPerVByte).Equal(
		btcunit.CalcSatPerVByte(5, btcunit.NewVByte(2)),
	))

	_, _, fee, err = (&feeOptions{Fee: 1_000}).parse()
	require.NoError(t, err)
	require.Equal(t, btcutil.Amount(1_000), fee.UnwrapOr(0))

	_, _, _, err = (&feeOptions{FeeRate: 2, Fee: 1_000}).parse()
	require.ErrorIs(t, err, wallet.ErrMalformedInput)

	_, _, _, err = (&feeOptions{Fee: -1}).parse()
	require.ErrorIs(t, err, wallet.ErrMalformedInput)

	_, _, _, err = (&feeOptions{FeeRate: -1}).parse()
	require.ErrorIs(t, err, wallet.ErrMalformedInput)
}

// TestDecodeKey checks network matching of WIF keys.
func TestDecodeKey(t *testing.T) {
	t.Parallel()

	key, _ := btcec.NewPrivateKey()
	wif, err := btcutil.NewWIF(key, &chaincfg.MainNetParams, true)
	require.NoError(t, err)

	decoded, err := decodeKey("test", wif.String(), &chaincfg.MainNetParams)
	require.NoError(t, err)
	require.Equal(t, key.Serialize(), decoded.Serialize())

	_, err = decodeKey("test", wif.String(), &chaincfg.TestNet3Params)
	require.ErrorIs(t, err, wallet.ErrMalformedInput)

	_, err = decodeKey("test", "", &chaincfg.MainNetParams)
	require.ErrorIs(t, err, wallet.ErrMalformedInput)

	_, err = decodeKey("test", "garbage", &chaincfg.MainNetParams)
	require.ErrorIs(t, err, wallet.ErrMalformedInput)
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/ordtx/wallet"
	"github.com/stretchr/testify/require"
)

const (
	fileTxID  = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
	fileAddrA = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	fileAddrB = "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"
)

const testUTXOFile = `
utxos:
  - outpoint: "` + fileTxID + `:0"
    value: 546
    address: ` + fileAddrA + `
    confirmed: true
    block_height: 800000
  - outpoint: "` + fileTxID + `:1"
    value: 50000
    address: ` + fileAddrA + `
    confirmed: true
  - outpoint: "` + fileTxID + `:2"
    value: 70000
    address: ` + fileAddrB + `
inscriptions:
  - "` + fileTxID + `:0"
`

// TestFileSource checks that snapshot UTXOs are served per address and that
// inscriptions are reported.
func TestFileSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "utxos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testUTXOFile), 0o600))

	src, err := loadUTXOFile(path)
	require.NoError(t, err)

	ctx := context.Background()

	utxos, err := src.FetchUnspentOutputs(ctx, fileAddrA)
	require.NoError(t, err)
	require.Len(t, utxos, 2)
	require.Equal(t, btcutil.Amount(546), utxos[0].Value)
	require.True(t, utxos[0].Confirmation.Confirmed)
	require.EqualValues(t, 800_000, utxos[0].Confirmation.BlockHeight)
	require.EqualValues(t, 1, utxos[1].OutPoint.Index)

	ordinals, err := src.FetchOrdinalOutputs(ctx, fileAddrA)
	require.NoError(t, err)
	require.Len(t, ordinals, 1)
	require.Equal(t, utxos[0], ordinals[0])

	utxos, err = src.FetchUnspentOutputs(ctx, fileAddrB)
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	require.False(t, utxos[0].Confirmation.Confirmed)

	ordinals, err = src.FetchOrdinalOutputs(ctx, fileAddrB)
	require.NoError(t, err)
	require.Empty(t, ordinals)
}

// TestParseUTXOFileErrors checks that malformed snapshots are rejected.
func TestParseUTXOFileErrors(t *testing.T) {
	t.Parallel()

	for _, data := range []string{
		"utxos: [",
		"utxos:\n  - outpoint: nope\n",
		"inscriptions:\n  - nope\n",
	} {
		_, err := parseUTXOFile([]byte(data))
		require.ErrorIs(t, err, wallet.ErrMalformedInput, data)
	}

	_, err := loadUTXOFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

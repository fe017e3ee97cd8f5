package brc20

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/btcsuite/ordtx/wallet"
	"github.com/stretchr/testify/require"
)

var chainParams = &chaincfg.RegressionNetParams

// testKey returns a deterministic private key derived from seed.
func testKey(seed byte) *btcec.PrivateKey {
	key, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
	return key
}

// testAddress returns the address of the given type controlled by key.
func testAddress(t *testing.T, scriptType wallet.ScriptType,
	key *btcec.PrivateKey) string {

	t.Helper()

	addr, err := wallet.AddressFor(scriptType, key.PubKey(), chainParams)
	require.NoError(t, err)

	return addr.EncodeAddress()
}

// testPool creates confirmed UTXOs at address with the given values.
func testPool(address string, values ...btcutil.Amount) []wallet.UTXO {
	pool := make([]wallet.UTXO, 0, len(values))
	for i, v := range values {
		pool = append(pool, wallet.UTXO{
			OutPoint: wire.OutPoint{
				Hash: chainhash.DoubleHashH(
					[]byte(fmt.Sprintf("funding-%d", i)),
				),
			},
			Value:        v,
			Address:      address,
			Confirmation: wallet.Confirmation{Confirmed: true},
		})
	}

	return pool
}

// utxoSourceFunc adapts a function to wallet.UTXOSource.
type utxoSourceFunc func(ctx context.Context,
	address string) ([]wallet.UTXO, error)

// FetchUnspentOutputs implements wallet.UTXOSource.
func (f utxoSourceFunc) FetchUnspentOutputs(ctx context.Context,
	address string) ([]wallet.UTXO, error) {

	return f(ctx, address)
}

// staticSource returns a source that always reports pool.
func staticSource(pool []wallet.UTXO) utxoSourceFunc {
	return func(context.Context, string) ([]wallet.UTXO, error) {
		return pool, nil
	}
}

// fundingAddress returns the native segwit address of key 1.
func fundingAddress(t *testing.T) string {
	t.Helper()

	return testAddress(t, wallet.ScriptP2WPKH, testKey(1))
}

// testConfig returns a configuration whose funding address is the native
// segwit address of key 1 and whose UTXOs come from source.
func testConfig(t *testing.T, source wallet.UTXOSource) Config {
	t.Helper()

	sender, err := wallet.NewSender(wallet.SenderConfig{
		UTXOs:  source,
		Params: chainParams,
	})
	require.NoError(t, err)

	return Config{
		Sender:         sender,
		FundingAddress: fundingAddress(t),
		Params:         chainParams,
	}
}

// testRequest returns a transfer request revealing to the taproot address
// of key 2.
func testRequest(t *testing.T) *TransferRequest {
	t.Helper()

	return &TransferRequest{
		Tick:          "ordi",
		Amount:        "1000",
		FeeRate:       btcunit.NewSatPerVByte(10),
		RevealAddress: testAddress(t, wallet.ScriptP2TR, testKey(2)),
	}
}

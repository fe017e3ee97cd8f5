package wallet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	errMock    = errors.New("mock error")
	errFeeMock = errors.New("fee source down")
)

var (
	// chainParams are the chain parameters used throughout the wallet
	// tests.
	chainParams = &chaincfg.MainNetParams
)

// testKey returns a deterministic private key derived from seed.
func testKey(seed byte) *btcec.PrivateKey {
	key, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
	return key
}

// testAddress returns the address of the given type controlled by key.
func testAddress(t *testing.T, scriptType ScriptType,
	key *btcec.PrivateKey) string {

	t.Helper()

	addr, err := AddressFor(scriptType, key.PubKey(), chainParams)
	require.NoError(t, err)

	return addr.EncodeAddress()
}

// testOutPoint returns a distinct outpoint for every index.
func testOutPoint(idx int) wire.OutPoint {
	return wire.OutPoint{
		Hash:  chainhash.DoubleHashH([]byte(fmt.Sprintf("utxo-%d", idx))),
		Index: uint32(idx % 4),
	}
}

// testUTXO creates a UTXO at address.
func testUTXO(address string, idx int, value btcutil.Amount,
	confirmed bool) UTXO {

	return UTXO{
		OutPoint: testOutPoint(idx),
		Value:    value,
		Address:  address,
		Confirmation: Confirmation{
			Confirmed: confirmed,
		},
	}
}

// testPool creates confirmed UTXOs at address with the given values.
func testPool(address string, values ...btcutil.Amount) []UTXO {
	pool := make([]UTXO, 0, len(values))
	for i, v := range values {
		pool = append(pool, testUTXO(address, i, v, true))
	}

	return pool
}

// selectedValues returns the values of the selected coins in order.
func selectedValues(s *Selection) []btcutil.Amount {
	values := make([]btcutil.Amount, 0, len(s.Coins))
	for _, c := range s.Coins {
		values = append(values, c.Value)
	}

	return values
}

// mockUTXOSource is a mock implementation of UTXOSource.
type mockUTXOSource struct {
	mock.Mock
}

// FetchUnspentOutputs implements UTXOSource.
func (m *mockUTXOSource) FetchUnspentOutputs(ctx context.Context,
	address string) ([]UTXO, error) {

	args := m.Called(ctx, address)
	utxos, _ := args.Get(0).([]UTXO)

	return utxos, args.Error(1)
}

// mockOrdinalSource is a mock implementation of OrdinalSource.
type mockOrdinalSource struct {
	mock.Mock
}

// FetchOrdinalOutputs implements OrdinalSource.
func (m *mockOrdinalSource) FetchOrdinalOutputs(ctx context.Context,
	address string) ([]UTXO, error) {

	args := m.Called(ctx, address)
	utxos, _ := args.Get(0).([]UTXO)

	return utxos, args.Error(1)
}

// mockFeeRateSource is a mock implementation of FeeRateSource.
type mockFeeRateSource struct {
	mock.Mock
}

// FetchRecommendedFeeRate implements FeeRateSource.
func (m *mockFeeRateSource) FetchRecommendedFeeRate(
	ctx context.Context) (*btcunit.FeeRates, error) {

	args := m.Called(ctx)
	rates, _ := args.Get(0).(*btcunit.FeeRates)

	return rates, args.Error(1)
}

// mockBroadcaster is a mock implementation of Broadcaster.
type mockBroadcaster struct {
	mock.Mock
}

// Broadcast implements Broadcaster.
func (m *mockBroadcaster) Broadcast(ctx context.Context,
	tx *wire.MsgTx) (*chainhash.Hash, error) {

	args := m.Called(ctx, tx)
	hash, _ := args.Get(0).(*chainhash.Hash)

	return hash, args.Error(1)
}

// A compile time check to ensure the mocks implement the interfaces.
var (
	_ UTXOSource    = (*mockUTXOSource)(nil)
	_ OrdinalSource = (*mockOrdinalSource)(nil)
	_ FeeRateSource = (*mockFeeRateSource)(nil)
	_ Broadcaster   = (*mockBroadcaster)(nil)
)

package wallet

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/stretchr/testify/require"
)

// TestSelectCoinsScenarios walks the greedy selector through wrapped segwit
// pools of mixed confirmation state and fee rates.
func TestSelectCoinsScenarios(t *testing.T) {
	t.Parallel()

	addr := testAddress(t, ScriptNestedP2WPKH, testKey(1))

	confirmedPool := []UTXO{
		testUTXO(addr, 0, 10_000, true),
		testUTXO(addr, 1, 20_000, true),
	}
	mixedPool := []UTXO{
		testUTXO(addr, 0, 10_000, true),
		testUTXO(addr, 1, 20_000, true),
		testUTXO(addr, 2, 30_000, false),
	}

	testCases := []struct {
		name     string
		pool     []UTXO
		target   btcutil.Amount
		rate     int64
		expected []btcutil.Amount
	}{
		{
			name:     "largest coin covers target",
			pool:     confirmedPool,
			target:   10_000,
			rate:     22,
			expected: []btcutil.Amount{20_000},
		},
		{
			name:     "both coins larger first",
			pool:     confirmedPool,
			target:   25_000,
			rate:     22,
			expected: []btcutil.Amount{20_000, 10_000},
		},
		{
			name:     "unconfirmed coin not needed",
			pool:     mixedPool,
			target:   10_000,
			rate:     22,
			expected: []btcutil.Amount{20_000},
		},
		{
			name:     "unconfirmed coin after confirmed ones",
			pool:     mixedPool,
			target:   40_000,
			rate:     22,
			expected: []btcutil.Amount{20_000, 10_000, 30_000},
		},
		{
			// At 150 sat/vb the 10k coin is worth less than the
			// fee its own input adds and is skipped.
			name:     "high rate skips uneconomical coin",
			pool:     mixedPool,
			target:   30_000,
			rate:     150,
			expected: []btcutil.Amount{20_000, 30_000},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := &CoinSelectionRequest{
				Target: tc.target,
				FeeRate: btcunit.NewSatPerVByte(
					btcutil.Amount(tc.rate),
				),
				Pool:       tc.pool,
				Outputs:    []ScriptType{ScriptNestedP2WPKH},
				ChangeType: ScriptNestedP2WPKH,
				Params:     chainParams,
			}

			selection, err := SelectCoins(req)
			require.NoError(t, err)
			require.Equal(t, tc.expected, selectedValues(selection))

			// The walk stops at the first coin that reaches the
			// target.
			last := selection.Coins[len(selection.Coins)-1]
			require.GreaterOrEqual(t, selection.Total, tc.target)
			require.Less(t, selection.Total-last.Value, tc.target)
		})
	}
}

// TestSelectCoinsInsufficient checks that an exhausted pool reports what the
// walk gathered, without the coins it skipped as uneconomical.
func TestSelectCoinsInsufficient(t *testing.T) {
	t.Parallel()

	addr := testAddress(t, ScriptNestedP2WPKH, testKey(1))
	pool := []UTXO{
		testUTXO(addr, 0, 10_000, true),
		testUTXO(addr, 1, 20_000, true),
		testUTXO(addr, 2, 30_000, false),
	}

	_, err := SelectCoins(&CoinSelectionRequest{
		Target:     55_000,
		FeeRate:    btcunit.NewSatPerVByte(150),
		Pool:       pool,
		Outputs:    []ScriptType{ScriptNestedP2WPKH},
		ChangeType: ScriptNestedP2WPKH,
		Params:     chainParams,
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	var fundsErr *InsufficientFundsError
	require.True(t, errors.As(err, &fundsErr))
	require.Equal(
		t, []btcutil.Amount{20_000, 30_000},
		selectedValues(fundsErr.Selection),
	)
	require.Equal(t, btcutil.Amount(55_000), fundsErr.Required)
	require.Equal(t, btcutil.Amount(50_000), fundsErr.Available)
}

// TestSelectCoinsExcluded checks that protected outputs are never selected,
// even when they are the only way to fund the request.
func TestSelectCoinsExcluded(t *testing.T) {
	t.Parallel()

	addr := testAddress(t, ScriptP2WPKH, testKey(1))
	pool := testPool(addr, 100_000, 5_000)

	req := &CoinSelectionRequest{
		Target:     3_000,
		FeeRate:    btcunit.NewSatPerVByte(5),
		Pool:       pool,
		Outputs:    []ScriptType{ScriptP2WPKH},
		ChangeType: ScriptP2WPKH,
		Excluded:   []wire.OutPoint{pool[0].OutPoint},
		Params:     chainParams,
	}

	selection, err := SelectCoins(req)
	require.NoError(t, err)
	require.Equal(t, []btcutil.Amount{5_000}, selectedValues(selection))

	req.Target = 10_000
	_, err = SelectCoins(req)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

// TestSelectCoinsPinned checks that a pinned coin is spent first and does
// not count towards the funding total.
func TestSelectCoinsPinned(t *testing.T) {
	t.Parallel()

	payment := testAddress(t, ScriptNestedP2WPKH, testKey(1))
	ordinals := testAddress(t, ScriptP2TR, testKey(2))

	ordinal := testUTXO(ordinals, 100, 10_000, true)

	// The pool also reports the ordinal, which must not be selected a
	// second time.
	pool := append(testPool(payment, 4_000, 50_000), ordinal)

	selection, err := SelectCoins(&CoinSelectionRequest{
		Target:     3_000,
		FeeRate:    btcunit.NewSatPerVByte(10),
		Pool:       pool,
		Outputs:    []ScriptType{ScriptP2TR},
		ChangeType: ScriptNestedP2WPKH,
		Pinned:     &ordinal,
		Params:     chainParams,
	})
	require.NoError(t, err)
	require.Equal(
		t, []btcutil.Amount{10_000, 50_000}, selectedValues(selection),
	)
	require.Equal(t, ordinal.OutPoint, selection.Coins[0].OutPoint)
	require.Equal(t, btcutil.Amount(10_000), selection.PinnedValue)
	require.Equal(t, btcutil.Amount(50_000), selection.FundingTotal())

	// With nothing to fund the pinned coin is spent alone.
	selection, err = SelectCoins(&CoinSelectionRequest{
		Pool:       pool,
		Outputs:    []ScriptType{ScriptP2TR},
		ChangeType: ScriptNestedP2WPKH,
		Pinned:     &ordinal,
		Params:     chainParams,
	})
	require.NoError(t, err)
	require.Len(t, selection.Coins, 1)
}

// TestSelectCoinsDeterministic checks that ties keep pool order and that
// unusable and duplicate entries are ignored.
func TestSelectCoinsDeterministic(t *testing.T) {
	t.Parallel()

	addr := testAddress(t, ScriptP2WPKH, testKey(1))

	first := testUTXO(addr, 7, 20_000, true)
	second := testUTXO(addr, 3, 20_000, true)
	foreign := testUTXO("tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", 9,
		90_000, true)

	pool := []UTXO{foreign, first, second, first}

	req := &CoinSelectionRequest{
		Target:     30_000,
		FeeRate:    btcunit.NewSatPerVByte(2),
		Pool:       pool,
		Outputs:    []ScriptType{ScriptP2WPKH},
		ChangeType: ScriptP2WPKH,
		Params:     chainParams,
	}

	for i := 0; i < 3; i++ {
		selection, err := SelectCoins(req)
		require.NoError(t, err)
		require.Equal(
			t, []wire.OutPoint{first.OutPoint, second.OutPoint},
			selection.OutPoints(),
		)
	}
}

// TestSelectCoinsInvalidTarget checks that a negative target is rejected.
func TestSelectCoinsInvalidTarget(t *testing.T) {
	t.Parallel()

	_, err := SelectCoins(&CoinSelectionRequest{
		Target: -1,
		Params: chainParams,
	})
	require.ErrorIs(t, err, ErrMalformedInput)
}

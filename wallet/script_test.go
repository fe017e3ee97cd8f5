package wallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/stretchr/testify/require"
)

// TestDustThreshold checks the dust limit of every script type against the
// relay policy's own dust test.
func TestDustThreshold(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		scriptType ScriptType
		threshold  btcutil.Amount
	}{
		{scriptType: ScriptP2PKH, threshold: 546},
		{scriptType: ScriptNestedP2WPKH, threshold: 540},
		{scriptType: ScriptP2WPKH, threshold: 294},
		{scriptType: ScriptP2TR, threshold: 330},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.scriptType.String(), func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.threshold, tc.scriptType.DustThreshold())

			// The threshold is measured on a real script of the type.
			addr, err := AddressFor(
				tc.scriptType, testKey(1).PubKey(), chainParams,
			)
			require.NoError(t, err)
			pkScript, err := txscript.PayToAddrScript(addr)
			require.NoError(t, err)
			require.Len(t, pkScript, tc.scriptType.PkScriptSize())

			below := wire.NewTxOut(int64(tc.threshold)-1, pkScript)
			require.True(t, txrules.IsDustOutput(
				below, txrules.DefaultRelayFeePerKb,
			))

			at := wire.NewTxOut(int64(tc.threshold), pkScript)
			require.False(t, txrules.IsDustOutput(
				at, txrules.DefaultRelayFeePerKb,
			))
		})
	}
}

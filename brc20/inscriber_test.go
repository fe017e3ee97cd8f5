package brc20

import (
	"bytes"
	"context"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/btcsuite/ordtx/wallet"
	"github.com/stretchr/testify/require"
)

// TestBuildTransfer checks that the commit funds the envelope and that the
// reveal spends it into the inscription and service outputs.
func TestBuildTransfer(t *testing.T) {
	t.Parallel()

	source := staticSource(testPool(fundingAddress(t), 60_000))

	cfg := testConfig(t, source)
	cfg.ServiceFee = 1_500
	cfg.ServiceAddress = testAddress(t, wallet.ScriptP2WPKH, testKey(9))

	inscriber, err := NewInscriber(cfg)
	require.NoError(t, err)

	req := testRequest(t)
	transfer, err := inscriber.BuildTransfer(
		context.Background(), req, testKey(1),
	)
	require.NoError(t, err)

	b := transfer.Breakdown
	commit, reveal := transfer.Commit.Tx, transfer.Reveal

	// The commit pays the envelope address in its first output.
	commitAddr, err := btcutil.DecodeAddress(
		transfer.CommitAddress, chainParams,
	)
	require.NoError(t, err)
	commitScript, err := txscript.PayToAddrScript(commitAddr)
	require.NoError(t, err)
	require.Equal(t, commitScript, commit.TxOut[0].PkScript)
	require.Equal(t, b.CommitChainFee, transfer.Commit.Fee)

	commitValue := btcutil.Amount(commit.TxOut[0].Value)
	require.Equal(t, b.Total()-b.CommitChainFee, commitValue)

	// The reveal spends that output.
	require.Len(t, reveal.TxIn, 1)
	require.Equal(t, commit.TxHash(), reveal.TxIn[0].PreviousOutPoint.Hash)
	require.Zero(t, reveal.TxIn[0].PreviousOutPoint.Index)

	require.Len(t, reveal.TxOut, 2)
	require.EqualValues(
		t, b.TransferUtxoValue+b.TransferChainFee, reveal.TxOut[0].Value,
	)
	require.EqualValues(t, b.RevealServiceFee, reveal.TxOut[1].Value)

	var revealOut btcutil.Amount
	for _, out := range reveal.TxOut {
		revealOut += btcutil.Amount(out.Value)
	}
	require.Equal(t, b.RevealChainFee, commitValue-revealOut)

	// The fee covers the signed reveal at the requested rate.
	weight := blockchain.GetTransactionWeight(btcutil.NewTx(reveal))
	vsize := btcunit.NewWeightUnit(uint64(weight)).ToVB()
	require.Equal(t, wallet.ComputeFee(vsize, req.FeeRate), b.RevealChainFee)

	// The witness reveals the inscription body.
	witness := reveal.TxIn[0].Witness
	require.Len(t, witness, 3)
	require.True(t, bytes.Contains(witness[1], []byte(
		`{"p":"brc-20","op":"transfer","tick":"ordi","amt":"1000"}`,
	)))

	raw, err := hex.DecodeString(transfer.RevealHex)
	require.NoError(t, err)
	var decoded wire.MsgTx
	require.NoError(t, decoded.Deserialize(bytes.NewReader(raw)))
	require.Equal(t, reveal.TxHash(), decoded.TxHash())
}

// TestBuildTransferFreshKeys checks that every transfer uses a new
// inscription key.
func TestBuildTransferFreshKeys(t *testing.T) {
	t.Parallel()

	source := staticSource(testPool(fundingAddress(t), 60_000))

	inscriber, err := NewInscriber(testConfig(t, source))
	require.NoError(t, err)

	a, err := inscriber.BuildTransfer(
		context.Background(), testRequest(t), testKey(1),
	)
	require.NoError(t, err)
	b, err := inscriber.BuildTransfer(
		context.Background(), testRequest(t), testKey(1),
	)
	require.NoError(t, err)

	require.NotEqual(t, a.CommitAddress, b.CommitAddress)
	require.Equal(t, a.Breakdown, b.Breakdown)
}

// TestBuildTransferErrors checks that failures stop before signing.
func TestBuildTransferErrors(t *testing.T) {
	t.Parallel()

	source := staticSource(testPool(fundingAddress(t), 1_000))

	inscriber, err := NewInscriber(testConfig(t, source))
	require.NoError(t, err)

	_, err = inscriber.BuildTransfer(
		context.Background(), testRequest(t), testKey(1),
	)
	require.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	rich := staticSource(testPool(fundingAddress(t), 60_000))
	inscriber, err = NewInscriber(testConfig(t, rich))
	require.NoError(t, err)

	_, err = inscriber.BuildTransfer(
		context.Background(), testRequest(t), testKey(7),
	)
	require.ErrorIs(t, err, wallet.ErrMissingKey)
}

package chain

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/ordtx/wallet"
	"github.com/stretchr/testify/require"
)

// newTestOrd returns an Ord client backed by handler.
func newTestOrd(t *testing.T, handler http.Handler) *Ord {
	t.Helper()

	ord, err := NewOrd(OrdConfig{
		ClientConfig: testServer(t, handler),
		Params:       chainParams,
	})
	require.NoError(t, err)

	return ord
}

// TestOrdFetchOrdinalOutputs checks that only unspent outputs holding
// inscriptions are reported.
func TestOrdFetchOrdinalOutputs(t *testing.T) {
	t.Parallel()

	address := testAddress(t, 2)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/outputs/"+address,
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "application/json",
				r.Header.Get("Accept"))

			_, _ = io.WriteString(w, `[
				{"address":"`+address+`","indexed":true,
				 "inscriptions":["`+testTxID+`i0"],
				 "outpoint":"`+testTxID+`:0","spent":false,
				 "value":546},
				{"address":"`+address+`","indexed":true,
				 "inscriptions":[],
				 "outpoint":"`+testTxID+`:1","spent":false,
				 "value":90000},
				{"address":"`+address+`","indexed":true,
				 "inscriptions":["`+testTxID+`i1"],
				 "outpoint":"`+testTxID+`:2","spent":true,
				 "value":10000}
			]`)
		})

	utxos, err := newTestOrd(t, mux).FetchOrdinalOutputs(
		context.Background(), address,
	)
	require.NoError(t, err)
	require.Len(t, utxos, 1)

	require.Equal(t, testTxID, utxos[0].OutPoint.Hash.String())
	require.Zero(t, utxos[0].OutPoint.Index)
	require.Equal(t, btcutil.Amount(546), utxos[0].Value)
	require.Equal(t, address, utxos[0].Address)
	require.True(t, utxos[0].Confirmation.Confirmed)
}

// TestOrdErrors checks the classification of bad responses.
func TestOrdErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		status int
		body   string
		kind   wallet.ErrorKind
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   "not found",
			kind:   wallet.KindServer,
		},
		{
			name:   "bad outpoint",
			status: http.StatusOK,
			body:   `[{"inscriptions":["x"],"outpoint":"nope"}]`,
			kind:   wallet.KindNetwork,
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   "<html></html>",
			kind:   wallet.KindNetwork,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler := http.HandlerFunc(
				func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(tc.status)
					_, _ = io.WriteString(w, tc.body)
				})

			_, err := newTestOrd(t, handler).FetchOrdinalOutputs(
				context.Background(), testAddress(t, 2),
			)
			require.Equal(t, tc.kind, wallet.KindOf(err), err)
		})
	}
}

// TestOrdSharedLimiter checks that clients can share one rate limiter.
func TestOrdSharedLimiter(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter,
		_ *http.Request) {

		_, _ = io.WriteString(w, `[]`)
	})

	limiter := NewRateLimiter(1000, 10)

	cfg := testServer(t, handler)
	cfg.RateLimiter = limiter

	ord, err := NewOrd(OrdConfig{ClientConfig: cfg, Params: chainParams})
	require.NoError(t, err)
	esplora, err := NewEsplora(EsploraConfig{
		ClientConfig: cfg,
		Params:       chainParams,
	})
	require.NoError(t, err)

	_, err = ord.FetchOrdinalOutputs(context.Background(),
		testAddress(t, 2))
	require.NoError(t, err)
	_, err = esplora.FetchUnspentOutputs(context.Background(),
		testAddress(t, 2))
	require.NoError(t, err)

	limiter.mu.RLock()
	defer limiter.mu.RUnlock()
	require.Len(t, limiter.limiters, 1)
}

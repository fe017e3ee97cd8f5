package chain

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

var chainParams = &chaincfg.RegressionNetParams

// testAddress returns a native segwit regtest address derived from seed.
func testAddress(t *testing.T, seed byte) string {
	t.Helper()

	_, pub := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(pub.SerializeCompressed()), chainParams,
	)
	require.NoError(t, err)

	return addr.EncodeAddress()
}

// testServer starts a server for handler and returns a client config
// pointing at it with fast retries.
func testServer(t *testing.T, handler http.Handler) ClientConfig {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return ClientConfig{
		URL:        server.URL + "/api",
		HTTPClient: server.Client(),
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    2 * time.Millisecond,
		},
	}
}

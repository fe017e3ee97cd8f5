package brc20

import (
	"testing"

	"github.com/btcsuite/ordtx/wallet"
	"github.com/stretchr/testify/require"
)

// TestNewTransferInscription checks ticker and amount validation and the
// rendered body.
func TestNewTransferInscription(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		tick   string
		amount string
		body   string
		valid  bool
	}{
		{
			name:   "four byte tick",
			tick:   "ordi",
			amount: "1000",
			body: `{"p":"brc-20","op":"transfer","tick":"ordi",` +
				`"amt":"1000"}`,
			valid: true,
		},
		{
			name:   "five byte tick with fraction",
			tick:   "sats5",
			amount: "0.25",
			body: `{"p":"brc-20","op":"transfer","tick":"sats5",` +
				`"amt":"0.25"}`,
			valid: true,
		},
		{
			name:   "html characters stay verbatim",
			tick:   "<&>a",
			amount: "1",
			body: `{"p":"brc-20","op":"transfer","tick":"<&>a",` +
				`"amt":"1"}`,
			valid: true,
		},
		{
			name:   "eighteen decimals",
			tick:   "ordi",
			amount: "0.000000000000000001",
			body: `{"p":"brc-20","op":"transfer","tick":"ordi",` +
				`"amt":"0.000000000000000001"}`,
			valid: true,
		},
		{name: "short tick", tick: "abc", amount: "1"},
		{name: "long tick", tick: "abcdef", amount: "1"},
		{name: "zero amount", tick: "ordi", amount: "0"},
		{name: "negative amount", tick: "ordi", amount: "-5"},
		{name: "not a number", tick: "ordi", amount: "ten"},
		{
			name:   "nineteen decimals",
			tick:   "ordi",
			amount: "0.0000000000000000001",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			inscription, err := NewTransferInscription(
				tc.tick, tc.amount,
			)
			if !tc.valid {
				require.ErrorIs(t, err, wallet.ErrMalformedInput)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.body, string(inscription.Body()))
		})
	}
}

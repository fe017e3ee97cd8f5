// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/ordtx/brc20"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/btcsuite/ordtx/wallet"
	"github.com/jessevdk/go-flags"
)

// app is the state shared by all commands.
type app struct {
	ctx context.Context
	cfg *config
}

// addCommands registers every command with parser.
func addCommands(ctx context.Context, parser *flags.Parser,
	cfg *config) error {

	a := &app{ctx: ctx, cfg: cfg}

	commands := []struct {
		name, short, long string
		data              any
	}{
		{
			name:  "estimate",
			short: "Estimate the fee of a bitcoin send",
			long: "Selects coins for the recipients and prints the " +
				"resulting fee without signing anything.",
			data: &estimateCmd{app: a},
		},
		{
			name:  "send",
			short: "Sign and optionally broadcast a bitcoin send",
			long: "Builds and signs a send to one or more " +
				"recipients. With --psbt an unsigned PSBT is " +
				"printed instead.",
			data: &sendCmd{app: a},
		},
		{
			name:  "send-ordinal",
			short: "Transfer an inscription",
			long: "Moves an inscription output to a new owner, " +
				"paying the fee from a separate address.",
			data: &sendOrdinalCmd{app: a},
		},
		{
			name:  "brc20-estimate",
			short: "Estimate the cost of a BRC-20 transfer inscription",
			long: "Prints what inscribing a BRC-20 transfer costs. " +
				"An underfunded address gets an advisory " +
				"estimate.",
			data: &brc20EstimateCmd{app: a},
		},
		{
			name:  "brc20-inscribe",
			short: "Inscribe a BRC-20 transfer",
			long: "Builds and signs the commit and reveal " +
				"transactions of a BRC-20 transfer inscription.",
			data: &brc20InscribeCmd{app: a},
		},
	}

	for _, c := range commands {
		_, err := parser.AddCommand(c.name, c.short, c.long, c.data)
		if err != nil {
			return err
		}
	}

	return nil
}

// paymentOptions describe a plain send.
type paymentOptions struct {
	From    string   `long:"from" required:"true" description:"Address whose UTXOs fund the send"`
	Change  string   `long:"change" description:"Change address (default: --from)"`
	To      []string `long:"to" required:"true" description:"Recipient as address:btc, repeat for more recipients"`
	Exclude []string `long:"exclude" description:"Outpoint txid:vout that must not be spent, may be repeated"`

	feeOptions
}

// request converts the flags into a send request.
func (o *paymentOptions) request() (*wallet.SendRequest, error) {
	recipients, err := parseRecipients(o.To)
	if err != nil {
		return nil, err
	}

	excluded, err := parseOutPoints(o.Exclude)
	if err != nil {
		return nil, err
	}

	tier, rate, customFee, err := o.feeOptions.parse()
	if err != nil {
		return nil, err
	}

	return &wallet.SendRequest{
		Recipients:    recipients,
		FromAddress:   o.From,
		ChangeAddress: o.Change,
		FeeTier:       tier,
		FeeRate:       rate,
		CustomFee:     customFee,
		Excluded:      excluded,
	}, nil
}

// estimateCmd prints the fee of a send.
type estimateCmd struct {
	app *app

	paymentOptions
}

// Execute implements flags.Commander.
func (c *estimateCmd) Execute(_ []string) error {
	req, err := c.request()
	if err != nil {
		return err
	}

	collab, err := connect(c.app.cfg)
	if err != nil {
		return err
	}

	estimate, err := collab.sender.EstimateFee(c.app.ctx, req)
	if err != nil {
		return describe(err)
	}

	printPlan(estimate.Plan)

	return nil
}

// sendCmd signs a send.
type sendCmd struct {
	app *app

	paymentOptions

	WIF       string `long:"wif" env:"ORDTXCTL_WIF" description:"WIF private key of --from"`
	PSBT      bool   `long:"psbt" description:"Print an unsigned PSBT instead of signing"`
	Broadcast bool   `long:"broadcast" description:"Broadcast the signed transaction"`
}

// Execute implements flags.Commander.
func (c *sendCmd) Execute(_ []string) error {
	req, err := c.request()
	if err != nil {
		return err
	}

	collab, err := connect(c.app.cfg)
	if err != nil {
		return err
	}

	if c.PSBT {
		plan, err := collab.sender.PlanPayment(c.app.ctx, req)
		if err != nil {
			return describe(err)
		}

		var pubKeys []*btcec.PublicKey
		if c.WIF != "" {
			key, err := decodeKey("--wif", c.WIF, c.app.cfg.params)
			if err != nil {
				return err
			}
			pubKeys = append(pubKeys, key.PubKey())
		}

		packet, err := plan.PSBT(pubKeys...)
		if err != nil {
			return err
		}

		encoded, err := packet.B64Encode()
		if err != nil {
			return err
		}

		printPlan(plan)
		fmt.Println(encoded)

		return nil
	}

	key, err := decodeKey("--wif", c.WIF, c.app.cfg.params)
	if err != nil {
		return err
	}
	defer key.Zero()

	signed, err := collab.sender.SendBTC(c.app.ctx, req, key)
	if err != nil {
		return describe(err)
	}

	return c.app.publish(collab, signed, c.Broadcast)
}

// sendOrdinalCmd signs an inscription transfer.
type sendOrdinalCmd struct {
	app *app

	Ordinal         string   `long:"ordinal" required:"true" description:"Outpoint txid:vout of the inscription"`
	OrdinalsAddress string   `long:"ordinals-address" required:"true" description:"Address holding the inscription"`
	To              string   `long:"to" required:"true" description:"Recipient of the inscription"`
	From            string   `long:"from" required:"true" description:"Address whose UTXOs pay the fee"`
	Change          string   `long:"change" description:"Change address (default: --from)"`
	Exclude         []string `long:"exclude" description:"Further inscription outpoint to protect, may be repeated"`

	feeOptions

	PaymentWIF  string `long:"wif" env:"ORDTXCTL_WIF" description:"WIF private key of --from"`
	OrdinalsWIF string `long:"ordinals-wif" env:"ORDTXCTL_ORDINALS_WIF" description:"WIF private key of --ordinals-address"`
	DryRun      bool   `long:"dryrun" description:"Only print the fee"`
	Broadcast   bool   `long:"broadcast" description:"Broadcast the signed transaction"`
}

// Execute implements flags.Commander.
func (c *sendOrdinalCmd) Execute(_ []string) error {
	ops, err := parseOutPoints(append([]string{c.Ordinal}, c.Exclude...))
	if err != nil {
		return err
	}

	tier, rate, customFee, err := c.feeOptions.parse()
	if err != nil {
		return err
	}

	collab, err := connect(c.app.cfg)
	if err != nil {
		return err
	}

	ordinal, err := c.app.findUTXO(collab, c.OrdinalsAddress, ops[0])
	if err != nil {
		return err
	}

	req := &wallet.OrdinalTransferRequest{
		Ordinal:          ordinal,
		RecipientAddress: c.To,
		PaymentAddress:   c.From,
		ChangeAddress:    c.Change,
		FeeTier:          tier,
		FeeRate:          rate,
		CustomFee:        customFee,
		Excluded:         ops[1:],
	}

	if c.DryRun {
		estimate, err := collab.sender.EstimateOrdinalFee(c.app.ctx, req)
		if err != nil {
			return describe(err)
		}

		printPlan(estimate.Plan)

		return nil
	}

	paymentKey, err := decodeKey("--wif", c.PaymentWIF, c.app.cfg.params)
	if err != nil {
		return err
	}
	defer paymentKey.Zero()

	ordinalsKey, err := decodeKey(
		"--ordinals-wif", c.OrdinalsWIF, c.app.cfg.params,
	)
	if err != nil {
		return err
	}
	defer ordinalsKey.Zero()

	signed, err := collab.sender.SendOrdinal(
		c.app.ctx, req, paymentKey, ordinalsKey,
	)
	if err != nil {
		return describe(err)
	}

	return c.app.publish(collab, signed, c.Broadcast)
}

// findUTXO looks up outpoint among the UTXOs of address.
func (a *app) findUTXO(collab *collaborators, address string,
	outpoint wire.OutPoint) (wallet.UTXO, error) {

	utxos, err := collab.utxos.FetchUnspentOutputs(a.ctx, address)
	if err != nil {
		return wallet.UTXO{}, describe(err)
	}

	for _, utxo := range utxos {
		if utxo.OutPoint == outpoint {
			return utxo, nil
		}
	}

	return wallet.UTXO{}, fmt.Errorf("%w: %v is not an unspent output "+
		"of %s", wallet.ErrMalformedInput, outpoint, address)
}

// brc20Options describe a BRC-20 transfer inscription.
type brc20Options struct {
	From     string  `long:"from" required:"true" description:"Address whose UTXOs fund the commit transaction"`
	Tick     string  `long:"tick" required:"true" description:"Token ticker"`
	Amount   string  `long:"amount" required:"true" description:"Number of tokens to transfer"`
	Reveal   string  `long:"reveal" description:"Address receiving the inscription (default: --from)"`
	FeeRate  float64 `long:"feerate" description:"Fee rate in sat/vB (default: the recommended rate)"`
	Priority bool    `long:"priority" description:"Pay the next block rate instead of the regular rate"`
}

// request converts the flags into a transfer request, fetching the fee rate
// when none is given.
func (o *brc20Options) request(ctx context.Context,
	collab *collaborators) (*brc20.TransferRequest, error) {

	reveal := o.Reveal
	if reveal == "" {
		reveal = o.From
	}

	var (
		rate btcunit.SatPerVByte
		err  error
	)
	if o.FeeRate != 0 {
		rate, err = btcunit.ParseSatPerVByte(o.FeeRate)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", wallet.ErrMalformedInput,
				err)
		}
	} else {
		tier := wallet.FeeTierRegular
		if o.Priority {
			tier = wallet.FeeTierPriority
		}

		rate, err = collab.recommendedRate(ctx, tier)
		if err != nil {
			return nil, describe(err)
		}
	}

	return &brc20.TransferRequest{
		Tick:          o.Tick,
		Amount:        o.Amount,
		FeeRate:       rate,
		RevealAddress: reveal,
	}, nil
}

// brc20EstimateCmd prints the cost of a transfer inscription.
type brc20EstimateCmd struct {
	app *app

	brc20Options
}

// Execute implements flags.Commander.
func (c *brc20EstimateCmd) Execute(_ []string) error {
	collab, err := connect(c.app.cfg)
	if err != nil {
		return err
	}

	req, err := c.request(c.app.ctx, collab)
	if err != nil {
		return err
	}

	estimator, err := brc20.NewEstimator(
		collab.brc20Config(c.app.cfg, c.From),
	)
	if err != nil {
		return err
	}

	outcome := estimator.Run(c.app.ctx, req)
	switch outcome.State {
	case brc20.StateDone:
		printEstimate(outcome.Estimate)
		return nil

	case brc20.StateCancelled:
		log.Infof("Estimation cancelled")
		return nil

	default:
		return describe(outcome.Err)
	}
}

// brc20InscribeCmd signs a transfer inscription.
type brc20InscribeCmd struct {
	app *app

	brc20Options

	WIF       string `long:"wif" env:"ORDTXCTL_WIF" description:"WIF private key of --from"`
	Broadcast bool   `long:"broadcast" description:"Broadcast the commit and reveal transactions"`
}

// Execute implements flags.Commander.
func (c *brc20InscribeCmd) Execute(_ []string) error {
	key, err := decodeKey("--wif", c.WIF, c.app.cfg.params)
	if err != nil {
		return err
	}
	defer key.Zero()

	collab, err := connect(c.app.cfg)
	if err != nil {
		return err
	}

	req, err := c.request(c.app.ctx, collab)
	if err != nil {
		return err
	}

	inscriber, err := brc20.NewInscriber(
		collab.brc20Config(c.app.cfg, c.From),
	)
	if err != nil {
		return err
	}

	transfer, err := inscriber.BuildTransfer(c.app.ctx, req, key)
	if err != nil {
		return describe(err)
	}

	fmt.Printf("commit address: %s\n", transfer.CommitAddress)
	printBreakdown(transfer.Breakdown)

	err = c.app.publish(collab, transfer.Commit, c.Broadcast)
	if err != nil {
		return err
	}

	fmt.Printf("reveal txid: %v\n", transfer.Reveal.TxHash())
	if !c.Broadcast {
		fmt.Println(transfer.RevealHex)
		return nil
	}

	if collab.esplora == nil {
		return wallet.ErrNoBroadcaster
	}

	txid, err := collab.esplora.Broadcast(c.app.ctx, transfer.Reveal)
	if err != nil {
		return fmt.Errorf("reveal not broadcast, commit %v is "+
			"unconfirmed: %w", transfer.Commit.TxHash(), describe(err))
	}
	fmt.Printf("broadcast reveal: %v\n", txid)

	return nil
}

// publish prints a signed transaction and broadcasts it if asked to.
func (a *app) publish(collab *collaborators,
	signed *wallet.SignedTransaction, broadcast bool) error {

	fmt.Printf("txid: %s\nfee: %v\nvsize: %v\n", signed.TxHash(),
		signed.Fee, signed.SignedVSize)
	if signed.FoldedChange > 0 {
		fmt.Printf("dust added to fee: %v\n", signed.FoldedChange)
	}

	if !broadcast {
		fmt.Println(signed.SignedTx)
		return nil
	}

	txid, err := collab.sender.Broadcast(a.ctx, signed)
	if err != nil {
		return describe(err)
	}

	fmt.Printf("broadcast: %v\n", txid)

	return nil
}

// printPlan writes a summary of plan to standard output.
func printPlan(plan *wallet.TransactionPlan) {
	fmt.Printf("fee: %v\nvsize: %v\nfee rate: %v\n", plan.Fee,
		plan.VSize, plan.FeeRate())

	for _, coin := range plan.Inputs.Coins {
		fmt.Printf("input: %v %v\n", coin.OutPoint, coin.Value)
	}
	for _, out := range plan.Outputs {
		fmt.Printf("output: %s %v\n", out.Address, out.Amount)
	}
	if plan.Change != nil {
		fmt.Printf("change: %s %v\n", plan.Change.Address,
			plan.ChangeAmount())
	}
	if plan.FoldedChange > 0 {
		fmt.Printf("dust added to fee: %v\n", plan.FoldedChange)
	}
}

// printEstimate writes a BRC-20 estimate to standard output.
func printEstimate(estimate *brc20.Estimate) {
	fmt.Printf("commit value: %v\n", estimate.CommitValue)
	printBreakdown(estimate.Breakdown)

	if estimate.Advisory {
		fmt.Fprintln(os.Stderr, "warning: the funding address cannot "+
			"pay for this transfer, the estimate is advisory")
	}
}

// printBreakdown itemizes a BRC-20 cost.
func printBreakdown(b brc20.CommitValueBreakdown) {
	fmt.Printf("  commit chain fee:   %v\n", b.CommitChainFee)
	fmt.Printf("  reveal chain fee:   %v\n", b.RevealChainFee)
	fmt.Printf("  reveal service fee: %v\n", b.RevealServiceFee)
	fmt.Printf("  transfer chain fee: %v\n", b.TransferChainFee)
	fmt.Printf("  transfer postage:   %v\n", b.TransferUtxoValue)
}

// describe prefixes err with its kind so that scripts can tell failures
// apart.
func describe(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%v: %w", wallet.KindOf(err), err)
}

// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/ordtx/brc20"
	"github.com/btcsuite/ordtx/chain"
	"github.com/btcsuite/ordtx/pkg/btcunit"
	"github.com/btcsuite/ordtx/wallet"
)

const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 4 * time.Second
)

// collaborators are the sources a command talks to.
type collaborators struct {
	utxos    wallet.UTXOSource
	fees     wallet.FeeRateSource
	sender   *wallet.Sender
	esplora  *chain.Esplora
	ordinals wallet.OrdinalSource
}

// connect creates the collaborators selected by cfg.
func connect(cfg *config) (*collaborators, error) {
	limiter := chain.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	httpClient := &http.Client{Timeout: cfg.Timeout}

	clientConfig := func(url string) chain.ClientConfig {
		return chain.ClientConfig{
			URL:         url,
			HTTPClient:  httpClient,
			RateLimiter: limiter,
			Retry: chain.RetryConfig{
				MaxAttempts: cfg.Retries,
				BaseDelay:   retryBaseDelay,
				MaxDelay:    retryMaxDelay,
			},
		}
	}

	c := &collaborators{}
	senderCfg := wallet.SenderConfig{Params: cfg.params}

	if cfg.EsploraURL != "" {
		maxRate, err := btcunit.ParseSatPerVByte(cfg.MaxFeeRate)
		if err != nil {
			return nil, fmt.Errorf("maxfeerate: %w", err)
		}

		esplora, err := chain.NewEsplora(chain.EsploraConfig{
			ClientConfig: clientConfig(cfg.EsploraURL),
			Params:       cfg.params,
			MaxFeeRate:   maxRate,
		})
		if err != nil {
			return nil, fmt.Errorf("esplora: %w", err)
		}

		c.esplora = esplora
		c.utxos = esplora
		c.fees = esplora
		senderCfg.FeeRates = esplora
		senderCfg.Broadcaster = esplora
	}

	if cfg.UTXOFile != "" {
		file, err := loadUTXOFile(cfg.UTXOFile)
		if err != nil {
			return nil, err
		}

		log.Infof("Reading UTXOs from %s", cfg.UTXOFile)

		c.utxos = file
		c.ordinals = file
	}

	if cfg.OrdURL != "" {
		ord, err := chain.NewOrd(chain.OrdConfig{
			ClientConfig: clientConfig(cfg.OrdURL),
			Params:       cfg.params,
		})
		if err != nil {
			return nil, fmt.Errorf("ord: %w", err)
		}

		c.ordinals = ord
	}

	if c.ordinals != nil {
		senderCfg.Ordinals = c.ordinals
	} else {
		log.Warnf("No ord server configured for %s, inscription "+
			"outputs are not protected from being spent",
			cfg.params.Name)
	}

	senderCfg.UTXOs = c.utxos

	sender, err := wallet.NewSender(senderCfg)
	if err != nil {
		return nil, err
	}
	c.sender = sender

	return c, nil
}

// recommendedRate fetches the recommended rate of tier.
func (c *collaborators) recommendedRate(ctx context.Context,
	tier wallet.FeeTier) (btcunit.SatPerVByte, error) {

	if c.fees == nil {
		return btcunit.ZeroSatPerVByte, fmt.Errorf("%w: no fee rate "+
			"source, pass --feerate", wallet.ErrInvalidFeeRate)
	}

	rates, err := c.fees.FetchRecommendedFeeRate(ctx)
	if err != nil {
		return btcunit.ZeroSatPerVByte, err
	}

	if err := rates.Validate(); err != nil {
		return btcunit.ZeroSatPerVByte, err
	}

	if tier == wallet.FeeTierPriority {
		return rates.Priority, nil
	}

	return rates.Regular, nil
}

// brc20Config returns the BRC-20 policy of cfg funded from address.
func (c *collaborators) brc20Config(cfg *config,
	fundingAddress string) brc20.Config {

	return brc20.Config{
		Sender:         c.sender,
		FundingAddress: fundingAddress,
		Postage:        btcutil.Amount(cfg.Postage),
		ServiceFee:     btcutil.Amount(cfg.ServiceFee),
		ServiceAddress: cfg.ServiceAddress,
		Params:         cfg.params,
	}
}

// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// ordtxctl estimates, builds, signs and broadcasts plain bitcoin sends,
// inscription transfers and BRC-20 transfer inscriptions against an esplora
// API and an ord server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/jessevdk/go-flags"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses the configuration and executes the selected command.
func run(args []string) error {
	preCfg, err := preParse(args)
	if err != nil {
		return err
	}

	cfg := defaultConfig()
	parser := flags.NewParser(
		&cfg, flags.HelpFlag|flags.PassDoubleDash,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := addCommands(ctx, parser, &cfg); err != nil {
		return err
	}

	configFile := cleanAndExpandPath(preCfg.ConfigFile)
	explicit := preCfg.ConfigFile != defaultConfigFile
	if err := loadConfigFile(parser, configFile, explicit); err != nil {
		return err
	}

	// Command line options override the config file. The config and the
	// loggers are set up once the command is known, right before it runs.
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil {
			return nil
		}

		if err := cfg.validate(); err != nil {
			return err
		}

		if err := cfg.initLogging(); err != nil {
			return err
		}
		defer func() {
			if logRotator != nil {
				_ = logRotator.Close()
			}
		}()

		log.Debugf("Using network %s, esplora %q, ord %q",
			cfg.params.Name, cfg.EsploraURL, cfg.OrdURL)

		return cmd.Execute(args)
	}

	_, err = parser.ParseArgs(args)

	return err
}

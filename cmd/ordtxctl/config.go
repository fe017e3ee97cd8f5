// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btclog"
	"github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "ordtxctl.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "ordtxctl.log"
	defaultRateLimit      = 5
	defaultRateBurst      = 10
	defaultTimeout        = 30 * time.Second
	defaultRetries        = 4
)

var (
	defaultAppDataDir = btcutil.AppDataDir("ordtxctl", false)
	defaultConfigFile = filepath.Join(defaultAppDataDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultAppDataDir, defaultLogDirname)

	// errNoEsplora is returned on networks without a public esplora
	// instance when none is configured.
	errNoEsplora = errors.New("no esplora url configured for network")
)

// defaultEsploraURLs are the public esplora instances per network.
var defaultEsploraURLs = map[string]string{
	chaincfg.MainNetParams.Name:  "https://mempool.space/api",
	chaincfg.TestNet3Params.Name: "https://mempool.space/testnet/api",
	chaincfg.SigNetParams.Name:   "https://mempool.space/signet/api",
}

// defaultOrdURLs are the public ord servers per network.
var defaultOrdURLs = map[string]string{
	chaincfg.MainNetParams.Name: "https://ordinals.com",
}

type config struct {
	// General application behavior
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	AppDataDir  string `short:"A" long:"appdata" description:"Application data directory for logs and config"`
	TestNet3    bool   `long:"testnet" description:"Use the test Bitcoin network (version 3)"`
	SigNet      bool   `long:"signet" description:"Use the default signet Bitcoin network"`
	RegTest     bool   `long:"regtest" description:"Use the regression test Bitcoin network"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical} or <subsystem>=<level>,... to set per subsystem"`
	LogDir      string `long:"logdir" description:"Directory to log output."`
	NoFileLog   bool   `long:"nofilelog" description:"Only log to standard error"`

	// Collaborators
	EsploraURL string        `long:"esplora" description:"Base URL of the esplora API (default: mempool.space for the active network)"`
	OrdURL     string        `long:"ord" description:"Base URL of the ord server used to protect inscriptions (default: ordinals.com on mainnet)"`
	UTXOFile   string        `long:"utxofile" description:"Read UTXOs from this YAML file instead of esplora"`
	RateLimit  float64       `long:"ratelimit" description:"Maximum requests per second to each API host, 0 disables"`
	RateBurst  int           `long:"rateburst" description:"Maximum burst of requests to each API host"`
	Timeout    time.Duration `long:"timeout" description:"Timeout of a single HTTP request"`
	Retries    int           `long:"retries" description:"Attempts made for a request that fails transiently"`
	MaxFeeRate float64       `long:"maxfeerate" description:"Cap on recommended fee rates in sat/vB, 0 disables"`

	// BRC-20 policy
	Postage        int64  `long:"postage" description:"Value in satoshis of a BRC-20 inscription output"`
	ServiceFee     int64  `long:"servicefee" description:"Service fee in satoshis paid by BRC-20 reveal transactions"`
	ServiceAddress string `long:"serviceaddress" description:"Address receiving the BRC-20 service fee"`

	params *chaincfg.Params
}

// defaultConfig returns the configuration before any file or flag is parsed.
func defaultConfig() config {
	return config{
		ConfigFile: defaultConfigFile,
		AppDataDir: defaultAppDataDir,
		DebugLevel: defaultLogLevel,
		LogDir:     defaultLogDir,
		RateLimit:  defaultRateLimit,
		RateBurst:  defaultRateBurst,
		Timeout:    defaultTimeout,
		Retries:    defaultRetries,
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string

		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)

	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") &&
		!strings.Contains(debugLevel, "=") {

		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while
	// detecting issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return fmt.Errorf("the specified debug level contains "+
				"an invalid subsystem/level pair [%v]",
				logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is "+
				"invalid -- supported subsystems %v", subsysID,
				supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// preParse reads the configuration file location from args without failing
// on the command and its options.
func preParse(args []string) (config, error) {
	preCfg := defaultConfig()
	preParser := flags.NewParser(
		&preCfg, flags.HelpFlag|flags.IgnoreUnknown,
	)

	_, err := preParser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			return preCfg, nil
		}

		return preCfg, err
	}

	return preCfg, nil
}

// loadConfigFile reads the INI configuration file into cfg through the
// parser's option groups. A missing default file is not an error.
func loadConfigFile(parser *flags.Parser, path string,
	explicit bool) error {

	err := flags.NewIniParser(parser).ParseFile(path)
	if err == nil {
		return nil
	}

	if !explicit && errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("error parsing config file %s: %w", path, err)
}

// validate checks the parsed configuration, selects the network and fills in
// the network dependent defaults.
func (c *config) validate() error {
	numNets := 0
	c.params = &chaincfg.MainNetParams

	if c.TestNet3 {
		numNets++
		c.params = &chaincfg.TestNet3Params
	}
	if c.SigNet {
		numNets++
		c.params = &chaincfg.SigNetParams
	}
	if c.RegTest {
		numNets++
		c.params = &chaincfg.RegressionNetParams
	}
	if numNets > 1 {
		return errors.New("the testnet, signet and regtest params " +
			"can't be used together -- choose one")
	}

	if c.EsploraURL == "" {
		c.EsploraURL = defaultEsploraURLs[c.params.Name]
	}
	if c.EsploraURL == "" && c.UTXOFile == "" {
		return fmt.Errorf("%w %s", errNoEsplora, c.params.Name)
	}

	if c.OrdURL == "" {
		c.OrdURL = defaultOrdURLs[c.params.Name]
	}

	switch {
	case c.RateBurst < 1:
		return fmt.Errorf("rateburst must be positive, got %d",
			c.RateBurst)

	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)

	case c.Retries < 1:
		return fmt.Errorf("retries must be positive, got %d", c.Retries)

	case c.MaxFeeRate < 0:
		return fmt.Errorf("maxfeerate must not be negative, got %v",
			c.MaxFeeRate)

	case c.Postage < 0 || c.ServiceFee < 0:
		return errors.New("postage and servicefee must not be negative")
	}

	c.AppDataDir = cleanAndExpandPath(c.AppDataDir)
	c.LogDir = cleanAndExpandPath(c.LogDir)
	if c.UTXOFile != "" {
		c.UTXOFile = cleanAndExpandPath(c.UTXOFile)
	}

	return nil
}

// initLogging sets up the log rotator and the log levels.
func (c *config) initLogging() error {
	if !c.NoFileLog {
		logFile := filepath.Join(
			c.LogDir, c.params.Name, defaultLogFilename,
		)
		if err := initLogRotator(logFile); err != nil {
			return err
		}
	}

	return parseAndSetDebugLevels(c.DebugLevel)
}

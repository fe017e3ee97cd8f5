package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"
)

// TestConfigValidate checks network selection and defaults.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	require.NoError(t, cfg.validate())
	require.Equal(t, &chaincfg.MainNetParams, cfg.params)
	require.Equal(t, "https://mempool.space/api", cfg.EsploraURL)
	require.Equal(t, "https://ordinals.com", cfg.OrdURL)

	cfg = defaultConfig()
	cfg.SigNet = true
	require.NoError(t, cfg.validate())
	require.Equal(t, &chaincfg.SigNetParams, cfg.params)
	require.Empty(t, cfg.OrdURL)

	cfg = defaultConfig()
	cfg.TestNet3 = true
	cfg.RegTest = true
	require.Error(t, cfg.validate())

	// Regtest has no public esplora.
	cfg = defaultConfig()
	cfg.RegTest = true
	require.ErrorIs(t, cfg.validate(), errNoEsplora)

	cfg.UTXOFile = "utxos.yaml"
	require.NoError(t, cfg.validate())

	cfg = defaultConfig()
	cfg.Retries = 0
	require.Error(t, cfg.validate())

	cfg = defaultConfig()
	cfg.Postage = -1
	require.Error(t, cfg.validate())
}

// TestLoadConfigFile checks that the INI file fills the options and that
// only a missing default file is tolerated.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, defaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(
		"[Application Options]\n"+
			"regtest=true\n"+
			"esplora=http://127.0.0.1:3002\n"+
			"postage=330\n",
	), 0o600))

	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.HelpFlag)
	require.NoError(t, loadConfigFile(parser, path, true))
	require.True(t, cfg.RegTest)
	require.Equal(t, "http://127.0.0.1:3002", cfg.EsploraURL)
	require.EqualValues(t, 330, cfg.Postage)

	missing := filepath.Join(dir, "missing.conf")
	require.NoError(t, loadConfigFile(parser, missing, false))
	require.Error(t, loadConfigFile(parser, missing, true))
}

// TestParseAndSetDebugLevels checks the debug level syntax.
func TestParseAndSetDebugLevels(t *testing.T) {
	require.NoError(t, parseAndSetDebugLevels("debug"))
	require.NoError(t, parseAndSetDebugLevels("BTWL=trace,CHIO=info"))
	require.Error(t, parseAndSetDebugLevels("loud"))
	require.Error(t, parseAndSetDebugLevels("NOPE=debug"))
	require.Error(t, parseAndSetDebugLevels("BTWL=debug,CHIO"))
	require.NoError(t, parseAndSetDebugLevels(defaultLogLevel))
}

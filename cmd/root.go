// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/bitbus/internal/config"
	"github.com/Thermoquad/bitbus/internal/logging"
	"github.com/Thermoquad/bitbus/pkg/bitbus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// annotationTUI marks commands that own the terminal
const annotationTUI = "tui"

var (
	// Values as given on the command line
	flagCfg    = config.Default()
	configFile string

	// Effective settings after merging the config file
	cfg    = config.Default()
	logger = zerolog.Nop()

	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "bitbus",
	Short: "BitBus GamePad Protocol Analyzer",
	Long: `bitbus - A CLI tool for decoding, monitoring and emulating the BitBus
game-pad protocol.

The controller app sends single-letter button commands (S, C, A, B, X, Y) and
analog frames of the form L..R..F..B.. with 2 hex or 3 decimal digits per
field. bitbus decodes the stream into button presses and joystick state.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

Settings may also come from a YAML or TOML file given with --config or
$BITBUS_CONFIG. Flags set on the command line take precedence.

For WebSocket authentication, the password is read from the BITBUS_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()

	// Serial connection flags
	pf.StringVarP(&flagCfg.Port, config.FlagPort, "p", "", "Serial port device")
	pf.IntVarP(&flagCfg.Baud, config.FlagBaud, "b", bitbus.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	pf.StringVarP(&flagCfg.URL, config.FlagURL, "u", "", "WebSocket URL (ws:// or wss://)")
	pf.StringVar(&flagCfg.Username, config.FlagUsername, flagCfg.Username, "Username for HTTP Basic auth")
	pf.BoolVar(&flagCfg.NoSSLVerify, config.FlagNoSSLVerify, false, "Skip TLS certificate verification (wss:// only)")

	// Encoding used when sending analog frames
	pf.StringVar(&flagCfg.Mode, config.FlagMode, flagCfg.Mode, "Analog field encoding for sent frames: hex or decimal")

	// Logging and config
	pf.StringVar(&flagCfg.LogLevel, config.FlagLogLevel, flagCfg.LogLevel, "Log level: trace, debug, info, warn, error")
	pf.StringVar(&flagCfg.LogFile, config.FlagLogFile, "", "Write JSON logs to this file instead of stderr")
	pf.StringVar(&configFile, "config", "", "Config file (.yaml or .toml), defaults to $"+config.EnvConfig)
}

// setup merges the config file under the command line flags and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	file := config.Default()
	path := config.Path(configFile)
	if path != "" {
		var err error
		file, err = config.Load(path)
		if err != nil {
			return err
		}
	}

	cfg = config.Merge(file, flagCfg, cmd.Flags().Changed)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	var console io.Writer = os.Stderr
	if usesTUI(cmd) {
		console = nil
	}

	var err error
	logger, logCloser, err = logging.New(cfg.LogLevel, cfg.LogFile, console)
	if err != nil {
		return err
	}

	if path != "" {
		logger.Debug().Str("path", path).Msg("loaded config")
	}
	return nil
}

// usesTUI reports whether the command will take over the terminal
func usesTUI(cmd *cobra.Command) bool {
	if cmd.Annotations[annotationTUI] == "true" {
		return true
	}
	tui, err := cmd.Flags().GetBool("tui")
	return err == nil && tui
}

// sendMode returns the configured analog field encoding
func sendMode() bitbus.Mode {
	mode, err := bitbus.ParseMode(cfg.Mode)
	if err != nil {
		return bitbus.ModeHex
	}
	return mode
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

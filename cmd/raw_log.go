// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/bitbus/pkg/bitbus"
	"github.com/spf13/cobra"
)

var rawLogRecord string

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded messages in human-readable format",
	Long: `Continuously decode and display BitBus messages as they arrive.

Every completed message is printed with a timestamp, button name or analog
values. Parse errors are printed inline and the decoder resynchronizes on the
next command letter.

With --record FILE, decoded messages are also appended to a CBOR capture
that can be played back with the replay command.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().StringVar(&rawLogRecord, "record", "", "Append decoded messages to a CBOR capture file")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	var capture *bitbus.CaptureWriter
	if rawLogRecord != "" {
		f, err := os.OpenFile(rawLogRecord, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %w", err)
		}
		defer f.Close()
		capture = bitbus.NewCaptureWriter(f)
		logger.Info().Str("file", rawLogRecord).Msg("recording capture")
	}

	fmt.Printf("BitBus - Raw Message Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := bitbus.NewDecoder()
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if errors.Is(err, ErrConnectionClosed) {
				logger.Info().Msg("connection closed")
				return nil
			}
			logger.Warn().Err(err).Msg("read error")
			continue
		}

		for i := 0; i < n; i++ {
			msg, err := decoder.DecodeByte(buf[i])
			if err != nil {
				fmt.Printf("[%s] [ERROR] %v\n", time.Now().Format("15:04:05.000"), err)
				continue
			}
			if msg == nil {
				continue
			}

			now := time.Now()
			fmt.Print(bitbus.FormatMessage(*msg, now))
			if capture != nil {
				if err := capture.Write(bitbus.NewCaptureRecord(*msg, now)); err != nil {
					return err
				}
			}
		}
	}
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/bitbus/pkg/bitbus"
	"github.com/spf13/cobra"
)

var (
	replaySpeed  float64
	replayDryRun bool
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Play back a capture recorded with raw_log --record",
	Long: `Re-encode every message in a CBOR capture and write it to the link,
keeping the original spacing between messages.

--speed scales the timing (2 plays twice as fast, 0 sends as fast as
possible). Analog frames are encoded with the configured --mode.

With --dry-run nothing is sent; the decoded capture is printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 for no delay)")
	replayCmd.Flags().BoolVar(&replayDryRun, "dry-run", false, "Print the capture instead of sending it")
}

// replayDelay returns how long to wait before sending a record captured at
// ts, given the previous record's timestamp
func replayDelay(prev, ts time.Time, speed float64) time.Duration {
	if speed <= 0 || prev.IsZero() || !ts.After(prev) {
		return 0
	}
	return time.Duration(float64(ts.Sub(prev)) / speed)
}

func runReplay(cmd *cobra.Command, args []string) error {
	if replaySpeed < 0 {
		return fmt.Errorf("--speed must not be negative")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	reader := bitbus.NewCaptureReader(f)

	var conn Connection
	if !replayDryRun {
		var connInfo string
		conn, connInfo, err = OpenConnection()
		if err != nil {
			return err
		}
		defer conn.Close()
		fmt.Printf("BitBus - Replay\n")
		fmt.Printf("Connection: %s\n", connInfo)
		fmt.Printf("Capture: %s (speed %.2fx)\n\n", args[0], replaySpeed)
	}

	enc := bitbus.NewEncoder(sendMode())
	var prev time.Time
	sent := 0

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		msg := rec.Message()
		if replayDryRun {
			fmt.Print(bitbus.FormatMessage(msg, rec.Timestamp))
			continue
		}

		time.Sleep(replayDelay(prev, rec.Timestamp, replaySpeed))
		prev = rec.Timestamp

		data, err := enc.Encode(msg)
		if err != nil {
			return err
		}
		if _, err := conn.Write(data); err != nil {
			return fmt.Errorf("write failed after %d messages: %w", sent, err)
		}
		sent++
		logger.Trace().Str("data", string(data)).Msg("replayed")
	}

	if !replayDryRun {
		fmt.Printf("Replayed %d messages\n", sent)
	}
	return nil
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/bitbus/pkg/bitbus"
	"github.com/spf13/cobra"
)

var (
	frameTestTimeout int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test connection by waiting for a valid BitBus message",
	Long: `Wait for a valid BitBus message on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any
complete message: a button command or a full analog frame. Bytes that do not
parse are skipped.

Exit codes:
  0 - Message received before timeout
  1 - Timeout reached without receiving a valid message
  2 - Connection error

Useful for checking that the controller app is paired and sending.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a message")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("BitBus - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for a valid BitBus message...\n\n")

	decoder := bitbus.NewDecoder()
	readChan, errChan := readChunks(conn, 128)
	timeout := time.After(time.Duration(frameTestTimeout) * time.Second)
	skipped := 0

	for {
		select {
		case data := <-readChan:
			for _, b := range data {
				msg, decodeErr := decoder.DecodeByte(b)
				if decodeErr != nil {
					skipped++
					logger.Debug().Err(decodeErr).Msg("skipping")
					continue
				}
				if msg == nil {
					continue
				}

				if skipped > 0 {
					fmt.Printf("(skipped %d invalid bytes before sync)\n", skipped)
				}
				fmt.Printf("SUCCESS: Received valid message\n")
				fmt.Printf("  Kind: %s\n", bitbus.FormatMessageKind(msg.Kind))
				if msg.IsAnalog() {
					fmt.Printf("  Position: left=%d right=%d up=%d down=%d\n", msg.Left, msg.Right, msg.Up, msg.Down)
					if decoder.IsHex() {
						fmt.Printf("  Encoding: hex\n")
					} else {
						fmt.Printf("  Encoding: decimal\n")
					}
				}
				os.Exit(0)
			}

		case err := <-errChan:
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)

		case <-timeout:
			fmt.Fprintf(os.Stderr, "TIMEOUT: No valid message received within %d seconds\n", frameTestTimeout)
			os.Exit(1)
		}
	}
}

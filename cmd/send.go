// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/bitbus/pkg/bitbus"
	"github.com/spf13/cobra"
)

var (
	sendAnalog string
	sendHex    bool
	sendRaw    bool
)

var sendCmd = &cobra.Command{
	Use:   "send [BUTTONS]",
	Short: "Send button commands or an analog frame",
	Long: `Encode messages and write them to the link.

Buttons are given as letters: S (Start), C (Select), A, B, X, Y.
  bitbus send -p /dev/ttyUSB0 SAB

An analog frame is given as four comma-separated values 0-255 in the
order left, right, up, down:
  bitbus send -p /dev/ttyUSB0 --analog 0,0,200,0

Analog fields use the configured --mode (hex by default). --hex is a
shorthand for --mode hex.

With --raw the argument is written verbatim, which is useful for testing
how a receiver handles malformed input:
  bitbus send -p /dev/ttyUSB0 --raw LA1R123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendAnalog, "analog", "", "Analog frame as LEFT,RIGHT,UP,DOWN (0-255 each)")
	sendCmd.Flags().BoolVar(&sendHex, "hex", false, "Encode analog fields as hex (same as --mode hex)")
	sendCmd.Flags().BoolVar(&sendRaw, "raw", false, "Write the argument verbatim without validation")
}

// parseAnalog parses "L,R,U,D" into an analog message
func parseAnalog(s string) (bitbus.Message, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return bitbus.Message{}, fmt.Errorf("analog frame needs 4 values, got %d", len(parts))
	}

	var values [4]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return bitbus.Message{}, fmt.Errorf("analog value %q: must be 0-255", p)
		}
		values[i] = uint8(v)
	}
	return bitbus.NewAnalogMessage(values[0], values[1], values[2], values[3]), nil
}

// parseButtons maps command letters to button messages
func parseButtons(s string) ([]bitbus.Message, error) {
	msgs := make([]bitbus.Message, 0, len(s))
	for i := 0; i < len(s); i++ {
		var kind bitbus.MessageKind
		switch s[i] {
		case bitbus.CmdStart:
			kind = bitbus.KindStart
		case bitbus.CmdSelect:
			kind = bitbus.KindSelect
		case bitbus.CmdButtonA:
			kind = bitbus.KindButtonA
		case bitbus.CmdButtonB:
			kind = bitbus.KindButtonB
		case bitbus.CmdButtonX:
			kind = bitbus.KindButtonX
		case bitbus.CmdButtonY:
			kind = bitbus.KindButtonY
		default:
			return nil, fmt.Errorf("unknown button %q (use S, C, A, B, X, Y)", s[i])
		}
		msgs = append(msgs, bitbus.NewButtonMessage(kind))
	}
	return msgs, nil
}

// buildSendPayload turns the command arguments into wire bytes
func buildSendPayload(arg, analog string, raw bool, mode bitbus.Mode) ([]byte, error) {
	if raw {
		if arg == "" {
			return nil, fmt.Errorf("--raw needs an argument")
		}
		return []byte(arg), nil
	}

	var msgs []bitbus.Message
	if arg != "" {
		buttons, err := parseButtons(strings.ToUpper(arg))
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, buttons...)
	}
	if analog != "" {
		m, err := parseAnalog(analog)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("nothing to send: give button letters or --analog")
	}

	enc := bitbus.NewEncoder(mode)
	var out []byte
	for _, m := range msgs {
		data, err := enc.Encode(m)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}

	mode := sendMode()
	if sendHex {
		mode = bitbus.ModeHex
	}

	payload, err := buildSendPayload(arg, sendAnalog, sendRaw, mode)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	logger.Debug().Str("connection", connInfo).Int("bytes", len(payload)).Msg("sent")
	fmt.Printf("Sent %d bytes: %s\n", len(payload), payload)
	return nil
}

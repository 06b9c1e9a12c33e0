// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/bitbus/pkg/bitbus"
	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the decoder state table",
	Long: `Print every transition of the decoder state machine in match order.

Within a state, exact characters are tried before DIGIT, so the field letters
F and B win over the hex digits F and B.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("%-16s %-6s %-26s %-16s %s\n", "STATE", "INPUT", "ACTION", "NEXT", "KIND")
		for _, r := range bitbus.Rules() {
			fmt.Println(bitbus.FormatRule(r))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tableCmd)
}

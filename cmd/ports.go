// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long: `List the serial ports available on this machine. USB adapters (the usual
HC-05 / HC-06 Bluetooth bridge wiring) are shown with their VID:PID.`,
	Args: cobra.NoArgs,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("failed to list serial ports: %w", err)
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	for _, p := range ports {
		if p.IsUSB {
			fmt.Printf("%-20s USB %s:%s", p.Name, p.VID, p.PID)
			if p.Product != "" {
				fmt.Printf(" %s", p.Product)
			}
			if p.SerialNumber != "" {
				fmt.Printf(" (serial %s)", p.SerialNumber)
			}
			fmt.Println()
		} else {
			fmt.Printf("%-20s\n", p.Name)
		}
	}
	logger.Debug().Int("count", len(ports)).Msg("listed serial ports")
	return nil
}

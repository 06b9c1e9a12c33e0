// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// bitbus - BitBus GamePad Protocol Analyzer
//
// A CLI tool for decoding, monitoring and emulating the BitBus game-pad
// protocol over serial or WebSocket links.

package main

import (
	"os"

	"github.com/Thermoquad/bitbus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

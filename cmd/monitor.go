// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/bitbus/pkg/bitbus"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Show live game-pad state, parse errors and statistics",
	Long: `Feed the link into a GamePad and show what a sketch would see.

Button presses, direction changes and parse errors are displayed as they
happen, together with message and error rates:
  - No transition (unexpected character for the parser state)
  - Invalid digit (hex letter in a decimal field)
  - Digit in hex mode (3-digit field after a hex field)
  - Out of range (decimal field above 255)

Errors before the first complete message are counted as sync noise, not
reported. By default analog frames are only shown when the emulated
direction changes. Use --show-all to display every frame.

The terminal UI is used when stdout is a terminal; --tui=false forces
text mode with periodic statistics summaries.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show every analog frame (not just direction changes)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", term.IsTerminal(int(os.Stdout.Fd())), "Use terminal UI (false for text mode)")
}

// monitorEvent is one decode result worth reporting
type monitorEvent struct {
	msg      *bitbus.Message
	err      error
	snapshot bitbus.Snapshot
	// Set on the first message; skipped counts the errors before it
	synced  bool
	skipped int
}

// monitorFeed drives a GamePad and tracks stream synchronization
type monitorFeed struct {
	pad          *bitbus.GamePad
	synchronized bool
	invalidBytes int
}

func newMonitorFeed() *monitorFeed {
	return &monitorFeed{pad: bitbus.NewGamePad()}
}

// feed consumes one byte. It returns false when there is nothing to report.
func (f *monitorFeed) feed(b byte) (monitorEvent, bool) {
	status, err := f.pad.Consume(b)

	if err != nil {
		if !f.synchronized {
			// Not synced yet, just count invalid bytes
			f.invalidBytes++
			return monitorEvent{}, false
		}
		return monitorEvent{err: err, snapshot: f.pad.Snapshot()}, true
	}
	if status != bitbus.StatusMessageComplete {
		return monitorEvent{}, false
	}

	msg := f.pad.Decoder().Message()
	ev := monitorEvent{msg: &msg, snapshot: f.pad.Snapshot()}
	if !f.synchronized {
		f.synchronized = true
		ev.synced = true
		ev.skipped = f.invalidBytes
	}
	return ev, true
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTUI {
		return runMonitorTUI(conn, connInfo)
	}
	return runMonitorText(conn, connInfo)
}

// runMonitorTUI runs the monitor in TUI mode
func runMonitorTUI(conn Connection, connInfo string) error {
	feed := newMonitorFeed()

	m := initialModel(connInfo, statsInterval, showAll)
	p := tea.NewProgram(m)

	go func() {
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				logger.Warn().Err(err).Msg("read error")
				if errors.Is(err, ErrConnectionClosed) {
					p.Send(linkClosedMsg{err: err})
					return
				}
				continue
			}
			p.Send(bytesReadMsg(n))

			for i := 0; i < n; i++ {
				if ev, ok := feed.feed(buf[i]); ok {
					p.Send(ev)
				}
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runMonitorText runs the monitor in text mode
func runMonitorText(conn Connection, connInfo string) error {
	fmt.Printf("BitBus - Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Changes only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	feed := newMonitorFeed()
	stats := bitbus.NewStatistics()
	lastDirection := uint8(0)

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	readChan, errChan := readChunks(conn, 128)

	for {
		select {
		case data := <-readChan:
			stats.CountBytes(len(data))
			for _, b := range data {
				ev, ok := feed.feed(b)
				if !ok {
					continue
				}

				if ev.err != nil {
					stats.Update(nil, ev.err)
					printDecodeError(ev.err)
					continue
				}

				if ev.synced {
					if ev.skipped > 0 {
						fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", ev.skipped)
					} else {
						fmt.Printf("[SYNC] Synchronized\n\n")
					}
				}

				stats.Update(ev.msg, nil)
				now := time.Now()
				switch {
				case ev.msg.IsButton():
					fmt.Printf("[%s] \033[1;32mPRESS:\033[0m %s\n", now.Format("15:04:05.000"), bitbus.FormatButtons(ev.snapshot))
				case ev.snapshot.PositionButtons != lastDirection:
					dir := bitbus.FormatDirection(ev.snapshot.PositionButtons)
					if dir == "" {
						dir = "STOP"
					}
					fmt.Printf("[%s] \033[1;36mDIRECTION:\033[0m %s (left=%d right=%d up=%d down=%d)\n",
						now.Format("15:04:05.000"), dir, ev.msg.Left, ev.msg.Right, ev.msg.Up, ev.msg.Down)
				case showAll:
					fmt.Print(bitbus.FormatMessage(*ev.msg, now))
				}
				lastDirection = ev.snapshot.PositionButtons
			}

		case err := <-errChan:
			fmt.Println()
			fmt.Print(stats.String())
			if errors.Is(err, ErrConnectionClosed) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}

// printDecodeError prints a decode error in highlighted format
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mPARSE ERROR:\033[0m %v\n", timestamp, err)
}

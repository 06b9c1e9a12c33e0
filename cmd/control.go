// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/bitbus/pkg/bitbus"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	controlRate int
	controlStep int
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI that emulates the controller app",
	Long: `Drive a BitBus receiver from the keyboard.

This command plays the role of the phone app: it encodes key presses as
BitBus messages and writes them to the serial port or WebSocket.

Keys:
  s c a b x y   Start, Select and the four action buttons
  arrow keys    Move the stick (each press is one step)
  space         Center the stick
  m             Toggle hex / decimal analog encoding
  tab           Switch to the raw input line (enter sends it verbatim)
  q, ctrl+c     Quit

Analog frames are sent on every stick change, and repeated at --rate frames
per second like the app does. Anything received on the link is decoded and
shown in the event log, which makes loopback testing easy.

The connection is re-established automatically if it drops.`,
	Annotations: map[string]string{annotationTUI: "true"},
	RunE:        runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.Flags().IntVar(&controlRate, "rate", 5, "Analog frames per second while the stick is off center (0 to send on change only)")
	controlCmd.Flags().IntVar(&controlStep, "step", 32, "Stick travel per arrow key press (1-255)")
}

// connectionManager handles connection lifecycle and reconnection
type connectionManager struct {
	conn     Connection
	connInfo string
	mu       sync.RWMutex
	writeMu  sync.Mutex
	p        *tea.Program
	done     chan struct{}
}

func (cm *connectionManager) getConn() Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn
}

func (cm *connectionManager) setConn(conn Connection, connInfo string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.conn = conn
	cm.connInfo = connInfo
}

// send writes data to the current connection
func (cm *connectionManager) send(data []byte) error {
	conn := cm.getConn()
	if conn == nil {
		return errors.New("not connected")
	}

	cm.writeMu.Lock()
	defer cm.writeMu.Unlock()
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	logger.Trace().Str("data", quoteASCII(data)).Msg("sent")
	return nil
}

func runControl(cmd *cobra.Command, args []string) error {
	if controlStep < 1 || controlStep > 255 {
		return fmt.Errorf("--step must be between 1 and 255, got %d", controlStep)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	cm := &connectionManager{
		conn:     conn,
		connInfo: connInfo,
		done:     make(chan struct{}),
	}

	m := initialControlModel(cm, connInfo, sendMode(), controlRate, controlStep)

	p := tea.NewProgram(m, tea.WithAltScreen())
	cm.p = p

	go cm.readerLoop()

	_, err = p.Run()
	close(cm.done) // Signal goroutines to stop
	cm.getConn().Close()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// readerLoop handles reading from connection with automatic reconnection
func (cm *connectionManager) readerLoop() {
	for {
		select {
		case <-cm.done:
			return
		default:
		}

		if cm.readFromConnection() {
			cm.p.Send(connectionLostMsg{})
			logger.Warn().Msg("connection lost")

			if !cm.reconnect() {
				return // Shutdown requested during reconnect
			}
		}
	}
}

// readFromConnection decodes incoming bytes until the connection fails.
// Returns true if connection was lost, false if shutdown requested.
func (cm *connectionManager) readFromConnection() bool {
	feed := newMonitorFeed()

	// Buffered channel for batching updates
	eventChan := make(chan monitorEvent, 100)
	readerDone := make(chan struct{})

	// Reader goroutine - decodes bytes and queues events
	go func() {
		defer close(readerDone)
		buf := make([]byte, 128)
		for {
			select {
			case <-cm.done:
				return
			default:
			}

			conn := cm.getConn()
			if conn == nil {
				return
			}

			n, err := conn.Read(buf)
			if err != nil {
				select {
				case <-cm.done:
					return
				default:
					if errors.Is(err, ErrConnectionClosed) {
						return
					}
					// Brief pause before retry on transient errors (e.g., serial)
					time.Sleep(10 * time.Millisecond)
					continue
				}
			}

			for i := 0; i < n; i++ {
				ev, ok := feed.feed(buf[i])
				if !ok {
					continue
				}
				select {
				case eventChan <- ev:
				default:
				}
			}
		}
	}()

	// Batch sender goroutine - sends batched updates to TUI at fixed rate
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-cm.done:
				return
			case <-readerDone:
				return
			case <-ticker.C:
				var batch controlBatchMsg

			drainLoop:
				for {
					select {
					case ev := <-eventChan:
						batch.events = append(batch.events, ev)
					default:
						break drainLoop
					}
				}

				if len(batch.events) > 0 {
					cm.p.Send(batch)
				}
			}
		}
	}()

	<-readerDone

	select {
	case <-cm.done:
		return false
	default:
		return true // Connection lost
	}
}

// reconnect attempts to reconnect with exponential backoff.
// Returns false if shutdown was requested during reconnection.
func (cm *connectionManager) reconnect() bool {
	if conn := cm.getConn(); conn != nil {
		conn.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		conn, connInfo, err := OpenConnection()
		if err == nil {
			cm.setConn(conn, connInfo)
			logger.Info().Str("connection", connInfo).Msg("reconnected")
			cm.p.Send(reconnectedMsg{connInfo: connInfo})
			return true
		}
		logger.Debug().Err(err).Dur("backoff", backoff).Msg("reconnect failed")

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// stick is the emulated joystick position. x grows to the right and y grows
// upwards, both in -255..255.
type stick struct {
	x, y int
}

func clampAxis(v int) int {
	if v > 255 {
		return 255
	}
	if v < -255 {
		return -255
	}
	return v
}

// move shifts the stick by dx, dy, clamped to the travel range
func (s stick) move(dx, dy int) stick {
	return stick{x: clampAxis(s.x + dx), y: clampAxis(s.y + dy)}
}

// centered reports whether the stick is at rest
func (s stick) centered() bool {
	return s.x == 0 && s.y == 0
}

// axes splits the position into the four unsigned frame fields
func (s stick) axes() (left, right, up, down uint8) {
	if s.x < 0 {
		left = uint8(-s.x)
	} else {
		right = uint8(s.x)
	}
	if s.y < 0 {
		down = uint8(-s.y)
	} else {
		up = uint8(s.y)
	}
	return left, right, up, down
}

// frame encodes the stick position as an analog message
func (s stick) frame(mode bitbus.Mode) []byte {
	left, right, up, down := s.axes()
	return bitbus.EncodeAnalog(left, right, up, down, mode)
}

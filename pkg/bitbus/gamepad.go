// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bitbus

// GamePad aggregates decoded messages into controller state.
//
// Action buttons are edge-triggered: a button reads as pressed only after
// the Consume call that completed its message. The analog position and the
// emulated direction buttons persist until the next analog frame.
type GamePad struct {
	decoder *Decoder

	actionButtons   uint8
	positionButtons uint8

	posLeft  uint8
	posRight uint8
	posUp    uint8
	posDown  uint8
}

// Snapshot is a copy of the GamePad state
type Snapshot struct {
	ActionButtons   uint8
	PositionButtons uint8
	Left            uint8
	Right           uint8
	Up              uint8
	Down            uint8
}

// NewGamePad creates a GamePad with its own decoder
func NewGamePad() *GamePad {
	return NewGamePadWithDecoder(NewDecoder())
}

// NewGamePadWithDecoder creates a GamePad fed by d
func NewGamePadWithDecoder(d *Decoder) *GamePad {
	return &GamePad{decoder: d}
}

// Decoder returns the decoder feeding this GamePad
func (g *GamePad) Decoder() *Decoder {
	return g.decoder
}

// Consume feeds one byte from the link. Errors are *ParseError values; the
// persisted position state is never touched on an error.
func (g *GamePad) Consume(c byte) (Status, error) {
	g.actionButtons = 0

	status, err := g.decoder.ProcessInput(c)
	if err != nil || status != StatusMessageComplete {
		return status, err
	}

	if err := g.apply(g.decoder.Message()); err != nil {
		return StatusParseError, err
	}
	return status, nil
}

func (g *GamePad) apply(m Message) error {
	switch m.Kind {
	case KindStart:
		g.actionButtons |= 1 << BitStart
	case KindSelect:
		g.actionButtons |= 1 << BitSelect
	case KindButtonB:
		g.actionButtons |= 1 << BitTriangle
	case KindButtonY:
		g.actionButtons |= 1 << BitCircle
	case KindButtonX:
		g.actionButtons |= 1 << BitCross
	case KindButtonA:
		g.actionButtons |= 1 << BitSquare
	case KindAnalogPosition:
		g.posLeft = m.Left
		g.posRight = m.Right
		g.posUp = m.Up
		g.posDown = m.Down
		g.positionButtons = emulateDirection(m.Left, m.Right, m.Up, m.Down)
	default:
		return &ParseError{Kind: ErrorUnhandledMessageKind, State: StateMessageReady}
	}
	return nil
}

// emulateDirection picks the single largest axis. Ties go to the first of
// up, down, left, right. All zero is the stop position.
func emulateDirection(left, right, up, down uint8) uint8 {
	if up == 0 && down == 0 && left == 0 && right == 0 {
		return 0
	}

	largest := up
	buttons := uint8(1 << BitUp)
	if down > largest {
		largest = down
		buttons = 1 << BitDown
	}
	if left > largest {
		largest = left
		buttons = 1 << BitLeft
	}
	if right > largest {
		buttons = 1 << BitRight
	}
	return buttons
}

func (g *GamePad) action(bit uint) bool {
	return g.actionButtons&(1<<bit) != 0
}

func (g *GamePad) position(bit uint) bool {
	return g.positionButtons&(1<<bit) != 0
}

// IsStartPressed returns true if Start was decoded by the last Consume
func (g *GamePad) IsStartPressed() bool { return g.action(BitStart) }

// IsSelectPressed returns true if Select was decoded by the last Consume
func (g *GamePad) IsSelectPressed() bool { return g.action(BitSelect) }

func (g *GamePad) IsAPressed() bool { return g.action(BitSquare) }
func (g *GamePad) IsBPressed() bool { return g.action(BitTriangle) }
func (g *GamePad) IsXPressed() bool { return g.action(BitCross) }
func (g *GamePad) IsYPressed() bool { return g.action(BitCircle) }

// Shape names used by Dabble-style sketches
func (g *GamePad) IsTrianglePressed() bool { return g.action(BitTriangle) }
func (g *GamePad) IsCirclePressed() bool   { return g.action(BitCircle) }
func (g *GamePad) IsCrossPressed() bool    { return g.action(BitCross) }
func (g *GamePad) IsSquarePressed() bool   { return g.action(BitSquare) }

// IsUpPressed returns true if the stick points up. Emulated from analog frames.
func (g *GamePad) IsUpPressed() bool { return g.position(BitUp) }

// IsDownPressed returns true if the stick points down. Emulated from analog frames.
func (g *GamePad) IsDownPressed() bool { return g.position(BitDown) }

// IsLeftPressed returns true if the stick points left. Emulated from analog frames.
func (g *GamePad) IsLeftPressed() bool { return g.position(BitLeft) }

// IsRightPressed returns true if the stick points right. Emulated from analog frames.
func (g *GamePad) IsRightPressed() bool { return g.position(BitRight) }

// LeftPosition returns the last analog left value
func (g *GamePad) LeftPosition() uint8 { return g.posLeft }

// RightPosition returns the last analog right value
func (g *GamePad) RightPosition() uint8 { return g.posRight }

// UpPosition returns the last analog up value
func (g *GamePad) UpPosition() uint8 { return g.posUp }

// DownPosition returns the last analog down value
func (g *GamePad) DownPosition() uint8 { return g.posDown }

// ActionButtons returns the raw action button bits
func (g *GamePad) ActionButtons() uint8 { return g.actionButtons }

// PositionButtons returns the raw direction button bits
func (g *GamePad) PositionButtons() uint8 { return g.positionButtons }

// Snapshot returns a copy of the current state
func (g *GamePad) Snapshot() Snapshot {
	return Snapshot{
		ActionButtons:   g.actionButtons,
		PositionButtons: g.positionButtons,
		Left:            g.posLeft,
		Right:           g.posRight,
		Up:              g.posUp,
		Down:            g.posDown,
	}
}

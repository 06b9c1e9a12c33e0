// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bitbus

import (
	"fmt"
	"strings"
	"time"
)

// FormatMessage formats a message into a human-readable line
func FormatMessage(m Message, ts time.Time) string {
	timestamp := ts.Format("15:04:05.000")
	kind := FormatMessageKind(m.Kind)

	if m.IsAnalog() {
		return fmt.Sprintf("[%s] %s left=%d right=%d up=%d down=%d\n",
			timestamp, kind, m.Left, m.Right, m.Up, m.Down)
	}
	return fmt.Sprintf("[%s] %s\n", timestamp, kind)
}

// FormatMessageKind returns the human-readable name for a message kind
func FormatMessageKind(kind MessageKind) string {
	switch kind {
	case KindStart:
		return "START"
	case KindSelect:
		return "SELECT"
	case KindButtonA:
		return "BUTTON_A"
	case KindButtonB:
		return "BUTTON_B"
	case KindButtonX:
		return "BUTTON_X"
	case KindButtonY:
		return "BUTTON_Y"
	case KindAnalogPosition:
		return "ANALOG_POSITION"
	default:
		return "UNKNOWN"
	}
}

// FormatState returns the name of a parser state
func FormatState(s State) string {
	switch s {
	case StateStart:
		return "START"
	case StateError:
		return "ERROR"
	case StateWaitingForLDigit1:
		return "L_DIGIT_1"
	case StateWaitingForLDigit2:
		return "L_DIGIT_2"
	case StateWaitingForLDigit3OrR:
		return "L_DIGIT_3_OR_R"
	case StateWaitingForR:
		return "WAIT_R"
	case StateWaitingForRDigit1:
		return "R_DIGIT_1"
	case StateWaitingForRDigit2:
		return "R_DIGIT_2"
	case StateWaitingForRDigit3OrF:
		return "R_DIGIT_3_OR_F"
	case StateWaitingForF:
		return "WAIT_F"
	case StateWaitingForFDigit1:
		return "F_DIGIT_1"
	case StateWaitingForFDigit2:
		return "F_DIGIT_2"
	case StateWaitingForFDigit3OrB:
		return "F_DIGIT_3_OR_B"
	case StateWaitingForB:
		return "WAIT_B"
	case StateWaitingForBDigit1:
		return "B_DIGIT_1"
	case StateWaitingForBDigit2:
		return "B_DIGIT_2"
	case StateWaitingForBDigit3:
		return "B_DIGIT_3"
	case StateMessageReady:
		return "MESSAGE_READY"
	default:
		return fmt.Sprintf("STATE_%d", uint8(s))
	}
}

func formatTransform(t transform) string {
	switch t {
	case transformStoreDigit0:
		return "store-digit-0"
	case transformStoreDigit1:
		return "store-digit-1"
	case transformStoreDigit1Final:
		return "store-digit-1-final"
	case transformHex:
		return "field-hex"
	case transformDecimal:
		return "field-decimal"
	default:
		return "-"
	}
}

func formatField(f Field) string {
	switch f {
	case FieldLeft:
		return "left"
	case FieldRight:
		return "right"
	case FieldUp:
		return "up"
	case FieldDown:
		return "down"
	default:
		return "?"
	}
}

// FormatRule formats one state table entry
func FormatRule(r TransitionRule) string {
	var input string
	switch r.Match {
	case MatchExact:
		input = formatInput(r.Char)
	case MatchDigit:
		input = "DIGIT"
	case MatchAny:
		input = "ANY"
	}

	action := formatTransform(r.transform)
	if r.transform == transformHex || r.transform == transformDecimal || r.transform == transformStoreDigit1Final {
		action += "(" + formatField(r.Field) + ")"
	}

	kind := ""
	if r.Kind != KindUnknown {
		kind = FormatMessageKind(r.Kind)
	}

	return fmt.Sprintf("%-16s %-6s %-26s %-16s %s", FormatState(r.State), input, action, FormatState(r.Next), kind)
}

// FormatButtons renders the pressed buttons and direction of a snapshot
func FormatButtons(s Snapshot) string {
	var parts []string
	names := []struct {
		bit  uint
		name string
	}{
		{BitStart, "START"},
		{BitSelect, "SELECT"},
		{BitSquare, "A"},
		{BitTriangle, "B"},
		{BitCross, "X"},
		{BitCircle, "Y"},
	}
	for _, n := range names {
		if s.ActionButtons&(1<<n.bit) != 0 {
			parts = append(parts, n.name)
		}
	}

	if d := FormatDirection(s.PositionButtons); d != "" {
		parts = append(parts, d)
	}

	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, " ")
}

// FormatDirection returns the emulated direction name, or "" when stopped
func FormatDirection(positionButtons uint8) string {
	switch {
	case positionButtons&(1<<BitUp) != 0:
		return "UP"
	case positionButtons&(1<<BitDown) != 0:
		return "DOWN"
	case positionButtons&(1<<BitLeft) != 0:
		return "LEFT"
	case positionButtons&(1<<BitRight) != 0:
		return "RIGHT"
	default:
		return ""
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bitbus

// Message is a decoded BitBus message: either a button event or an analog
// joystick position. Left, Right, Up and Down are only meaningful when Kind
// is KindAnalogPosition.
type Message struct {
	Kind  MessageKind
	Left  uint8
	Right uint8
	Up    uint8
	Down  uint8
}

// NewButtonMessage creates a button event message
func NewButtonMessage(kind MessageKind) Message {
	return Message{Kind: kind}
}

// NewAnalogMessage creates an analog position message
func NewAnalogMessage(left, right, up, down uint8) Message {
	return Message{Kind: KindAnalogPosition, Left: left, Right: right, Up: up, Down: down}
}

// IsAnalog returns true for analog position messages
func (m Message) IsAnalog() bool {
	return m.Kind == KindAnalogPosition
}

// IsButton returns true for button event messages
func (m Message) IsButton() bool {
	return m.Kind.IsButton()
}

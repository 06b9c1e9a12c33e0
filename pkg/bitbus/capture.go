// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bitbus

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CaptureRecord is one decoded message in a capture file
type CaptureRecord struct {
	Timestamp time.Time `cbor:"0,keyasint"`
	Kind      uint8     `cbor:"1,keyasint"`
	Left      uint8     `cbor:"2,keyasint,omitempty"`
	Right     uint8     `cbor:"3,keyasint,omitempty"`
	Up        uint8     `cbor:"4,keyasint,omitempty"`
	Down      uint8     `cbor:"5,keyasint,omitempty"`
}

// NewCaptureRecord creates a record for a message decoded at ts
func NewCaptureRecord(m Message, ts time.Time) CaptureRecord {
	return CaptureRecord{
		Timestamp: ts,
		Kind:      uint8(m.Kind),
		Left:      m.Left,
		Right:     m.Right,
		Up:        m.Up,
		Down:      m.Down,
	}
}

// Message returns the recorded message
func (r CaptureRecord) Message() Message {
	return Message{
		Kind:  MessageKind(r.Kind),
		Left:  r.Left,
		Right: r.Right,
		Up:    r.Up,
		Down:  r.Down,
	}
}

var captureEncMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("bitbus: capture encoder: %v", err))
	}
	return em
}()

// CaptureWriter writes records as a CBOR sequence
type CaptureWriter struct {
	enc *cbor.Encoder
}

// NewCaptureWriter creates a writer appending records to w
func NewCaptureWriter(w io.Writer) *CaptureWriter {
	return &CaptureWriter{enc: captureEncMode.NewEncoder(w)}
}

// Write appends one record
func (c *CaptureWriter) Write(rec CaptureRecord) error {
	if err := c.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	return nil
}

// CaptureReader reads records from a CBOR sequence
type CaptureReader struct {
	dec *cbor.Decoder
}

// NewCaptureReader creates a reader over r
func NewCaptureReader(r io.Reader) *CaptureReader {
	return &CaptureReader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the capture
func (c *CaptureReader) Next() (CaptureRecord, error) {
	var rec CaptureRecord
	if err := c.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return rec, io.EOF
		}
		return rec, fmt.Errorf("failed to read capture record: %w", err)
	}
	if MessageKind(rec.Kind) == KindUnknown || MessageKind(rec.Kind) > KindAnalogPosition {
		return rec, fmt.Errorf("capture record: %w: %d", ErrUnhandledMessageKind, rec.Kind)
	}
	return rec, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bitbus

import (
	"fmt"
	"time"
)

// Statistics tracks decoded messages and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalMessages   uint64
	ButtonEvents    uint64
	AnalogFrames    uint64
	TotalErrors     uint64
	NoTransition    uint64
	InvalidDigits   uint64
	HexModeDigits   uint64
	UnhandledKinds  uint64
	OutOfRange      uint64
	KindCounts      [KindAnalogPosition + 1]uint64
	InputBytes      uint64

	// Rates (calculated)
	MessageRate float64 // messages/sec
	ErrorRate   float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// CountBytes records n bytes read from the link
func (s *Statistics) CountBytes(n int) {
	s.InputBytes += uint64(n)
}

// Update records one decode result: a completed message or an error
func (s *Statistics) Update(msg *Message, decodeErr error) {
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		s.TotalErrors++
		kind, ok := ErrorKindOf(decodeErr)
		if !ok {
			return
		}
		switch kind {
		case ErrorNoTransition:
			s.NoTransition++
		case ErrorInvalidDigit:
			s.InvalidDigits++
		case ErrorUnexpectedDigitInHexMode:
			s.HexModeDigits++
		case ErrorUnhandledMessageKind:
			s.UnhandledKinds++
		case ErrorValueOutOfRange:
			s.OutOfRange++
		}
		return
	}

	if msg == nil {
		return
	}
	s.TotalMessages++
	if int(msg.Kind) < len(s.KindCounts) {
		s.KindCounts[msg.Kind]++
	}
	if msg.IsAnalog() {
		s.AnalogFrames++
	} else {
		s.ButtonEvents++
	}
}

// CalculateRates calculates message and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.MessageRate = float64(s.TotalMessages) / elapsed
		s.ErrorRate = float64(s.TotalErrors) / elapsed
	}
}

// SuccessPercent returns the share of decode results that were messages
func (s *Statistics) SuccessPercent() float64 {
	total := s.TotalMessages + s.TotalErrors
	if total == 0 {
		return 0
	}
	return float64(s.TotalMessages) * 100.0 / float64(total)
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Bytes Read:      %8d\n", s.InputBytes)
	result += fmt.Sprintf("Messages:        %8d (%.1f%%)\n", s.TotalMessages, s.SuccessPercent())
	result += fmt.Sprintf("  Buttons:          %5d\n", s.ButtonEvents)
	result += fmt.Sprintf("  Analog Frames:    %5d\n", s.AnalogFrames)

	if s.TotalErrors > 0 {
		result += fmt.Sprintf("Parse Errors:    %8d\n", s.TotalErrors)
		if s.NoTransition > 0 {
			result += fmt.Sprintf("  No Transition:    %5d\n", s.NoTransition)
		}
		if s.InvalidDigits > 0 {
			result += fmt.Sprintf("  Invalid Digit:    %5d\n", s.InvalidDigits)
		}
		if s.HexModeDigits > 0 {
			result += fmt.Sprintf("  Digit In Hex:     %5d\n", s.HexModeDigits)
		}
		if s.OutOfRange > 0 {
			result += fmt.Sprintf("  Out Of Range:     %5d\n", s.OutOfRange)
		}
		if s.UnhandledKinds > 0 {
			result += fmt.Sprintf("  Unhandled Kind:   %5d\n", s.UnhandledKinds)
		}
	}

	result += fmt.Sprintf("Message Rate:    %8.1f msgs/sec\n", s.MessageRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}

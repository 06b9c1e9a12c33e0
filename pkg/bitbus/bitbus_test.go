// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bitbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Test Helpers
// ============================================================

// feed sends every byte of input and returns the status and error of the last one
func feed(t *testing.T, d *Decoder, input string) (Status, error) {
	t.Helper()
	var status Status
	var err error
	for i := 0; i < len(input); i++ {
		status, err = d.ProcessInput(input[i])
		if err != nil && i != len(input)-1 {
			t.Fatalf("unexpected error at byte %d of %q: %v", i, input, err)
		}
	}
	return status, err
}

// decodeAll feeds input and collects every completed message
func decodeAll(d *Decoder, input string) ([]Message, []error) {
	var msgs []Message
	var errs []error
	for i := 0; i < len(input); i++ {
		m, err := d.DecodeByte(input[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if m != nil {
			msgs = append(msgs, *m)
		}
	}
	return msgs, errs
}

// ============================================================
// Digit Codec Tests
// ============================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		c    byte
		want DigitClass
	}{
		{'0', ClassDecimal},
		{'5', ClassDecimal},
		{'9', ClassDecimal},
		{'A', ClassHexOnly},
		{'F', ClassHexOnly},
		{'G', ClassOther},
		{'a', ClassOther},
		{'f', ClassOther},
		{'/', ClassOther},
		{':', ClassOther},
		{'@', ClassOther},
		{0x00, ClassOther},
		{0xFF, ClassOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.c), "Classify(%q)", tt.c)
		assert.Equal(t, tt.want != ClassOther, IsDigit(tt.c), "IsDigit(%q)", tt.c)
		assert.Equal(t, tt.want == ClassDecimal, IsDecimal(tt.c), "IsDecimal(%q)", tt.c)
	}
}

func TestToNybble(t *testing.T) {
	for i, c := range []byte("0123456789ABCDEF") {
		v, err := ToNybble(c)
		require.NoError(t, err)
		assert.Equal(t, uint8(i), v, "ToNybble(%q)", c)
	}

	for _, c := range []byte("GZaf /:@\x00") {
		_, err := ToNybble(c)
		assert.ErrorIs(t, err, ErrInvalidDigit, "ToNybble(%q)", c)
	}
}

func TestFromNybble(t *testing.T) {
	for v := uint8(0); v < 16; v++ {
		c, err := FromNybble(v)
		require.NoError(t, err)
		back, err := ToNybble(c)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}

	_, err := FromNybble(16)
	assert.ErrorIs(t, err, ErrInvalidDigit)
}

// ============================================================
// State Table Tests
// ============================================================

func TestStateTable_Valid(t *testing.T) {
	require.NoError(t, validateTable(stateTable[:]))
}

func TestStateTable_Deterministic(t *testing.T) {
	// The first matching rule is the only effective one: no later rule for
	// the same state may match the same input as an earlier exact rule
	// unless the exact rule precedes it.
	for s := StateStart; s < stateCount; s++ {
		for c := 0; c < 256; c++ {
			first := lookup(s, byte(c))
			if first == nil {
				continue
			}
			exactMatches := 0
			for _, r := range stateTable {
				if r.State == s && r.Match == MatchExact && r.Char == byte(c) {
					exactMatches++
				}
			}
			assert.LessOrEqual(t, exactMatches, 1, "state %s input %q", FormatState(s), c)
			if exactMatches == 1 {
				assert.Equal(t, MatchExact, first.Match, "state %s input %q must hit the exact rule", FormatState(s), c)
			}
		}
	}
}

func TestValidateTable_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		rules []TransitionRule
	}{
		{
			name: "duplicate exact",
			rules: []TransitionRule{
				exact(StateStart, 'S', transformNone, 0, StateMessageReady, KindStart),
				exact(StateStart, 'S', transformNone, 0, StateMessageReady, KindSelect),
			},
		},
		{
			name: "exact digit shadowed by digit rule",
			rules: []TransitionRule{
				digit(StateWaitingForRDigit3OrF, transformDecimal, FieldRight, StateWaitingForF),
				exact(StateWaitingForRDigit3OrF, 'F', transformHex, FieldRight, StateWaitingForFDigit1, KindUnknown),
			},
		},
		{
			name: "two digit rules",
			rules: []TransitionRule{
				digit(StateWaitingForLDigit1, transformStoreDigit0, 0, StateWaitingForLDigit2),
				digit(StateWaitingForLDigit1, transformStoreDigit1, 0, StateWaitingForLDigit3OrR),
			},
		},
		{
			name: "rule after wildcard",
			rules: []TransitionRule{
				{State: StateStart, Match: MatchAny, Next: StateStart},
				exact(StateStart, 'S', transformNone, 0, StateMessageReady, KindStart),
			},
		},
		{
			name: "transition out of terminal state",
			rules: []TransitionRule{
				exact(StateMessageReady, 'S', transformNone, 0, StateMessageReady, KindStart),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, validateTable(tt.rules))
		})
	}
}

func TestTransitionRule_Matches(t *testing.T) {
	r := TransitionRule{Match: MatchExact, Char: 'R'}
	assert.True(t, r.Matches('R'))
	assert.False(t, r.Matches('r'))

	r = TransitionRule{Match: MatchDigit}
	assert.True(t, r.Matches('7'))
	assert.True(t, r.Matches('E'))
	assert.False(t, r.Matches('G'))

	r = TransitionRule{Match: MatchAny}
	assert.True(t, r.Matches(0x00))
	assert.True(t, r.Matches('Z'))
}

func TestRules_ReturnsCopy(t *testing.T) {
	rules := Rules()
	require.Len(t, rules, len(stateTable))
	rules[0].Next = StateError
	assert.Equal(t, StateMessageReady, stateTable[0].Next)
}

// ============================================================
// Decoder Tests
// ============================================================

func TestDecoder_ButtonCommands(t *testing.T) {
	tests := []struct {
		input byte
		kind  MessageKind
	}{
		{'S', KindStart},
		{'C', KindSelect},
		{'A', KindButtonA},
		{'B', KindButtonB},
		{'X', KindButtonX},
		{'Y', KindButtonY},
	}

	d := NewDecoder()
	for _, tt := range tests {
		status, err := d.ProcessInput(tt.input)
		require.NoError(t, err)
		assert.Equal(t, StatusMessageComplete, status, "input %q", tt.input)
		assert.Equal(t, tt.kind, d.Kind())
		assert.Equal(t, NewButtonMessage(tt.kind), d.Message())
	}
}

func TestDecoder_DecimalFrame(t *testing.T) {
	d := NewDecoder()
	status, err := feed(t, d, "L010R020F030B040")
	require.NoError(t, err)
	assert.Equal(t, StatusMessageComplete, status)
	assert.Equal(t, NewAnalogMessage(10, 20, 30, 40), d.Message())
	assert.False(t, d.IsHex())
}

func TestDecoder_HexFrame(t *testing.T) {
	d := NewDecoder()
	status, err := feed(t, d, "LA1RB2FC3BD4")
	require.NoError(t, err)
	assert.Equal(t, StatusMessageComplete, status)
	assert.Equal(t, NewAnalogMessage(161, 178, 195, 212), d.Message())
	assert.True(t, d.IsHex())
}

func TestDecoder_NeedMoreInputUntilComplete(t *testing.T) {
	d := NewDecoder()
	input := "L255R000F128B001"
	for i := 0; i < len(input)-1; i++ {
		status, err := d.ProcessInput(input[i])
		require.NoError(t, err)
		assert.Equal(t, StatusNeedMoreInput, status, "byte %d", i)
	}
	status, err := d.ProcessInput(input[len(input)-1])
	require.NoError(t, err)
	assert.Equal(t, StatusMessageComplete, status)
	assert.Equal(t, NewAnalogMessage(255, 0, 128, 1), d.Message())
}

func TestDecoder_Idempotent(t *testing.T) {
	for _, frame := range []string{"L010R020F030B040", "LA1RB2FC3BD4"} {
		d := NewDecoder()
		msgs, errs := decodeAll(d, frame+frame)
		require.Empty(t, errs)
		require.Len(t, msgs, 2, "frame %s", frame)
		assert.Equal(t, msgs[0], msgs[1])
	}
}

func TestDecoder_MixedModes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Message
	}{
		{
			name:  "decimal left then hex",
			input: "L010RA1FC3BD4",
			want:  NewAnalogMessage(10, 0xA1, 0xC3, 0xD4),
		},
		{
			name:  "field letter wins over hex digit",
			input: "L010R020F03B40",
			want:  NewAnalogMessage(10, 20, 0x03, 0x40),
		},
		{
			name:  "hex digits F and B inside fields",
			input: "LFFRBFFBBBBF",
			want:  NewAnalogMessage(0xFF, 0xBF, 0xBB, 0xBF),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			msgs, errs := decodeAll(d, tt.input)
			require.Empty(t, errs)
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.want, msgs[0])
		})
	}
}

func TestDecoder_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sentinel error
		kind     ErrorKind
		state    State
		badInput byte
	}{
		{"unknown command", "Z", ErrNoTransition, ErrorNoTransition, StateStart, 'Z'},
		{"lower case hex", "L0a", ErrNoTransition, ErrorNoTransition, StateWaitingForLDigit2, 'a'},
		{"missing separator", "L010F", ErrNoTransition, ErrorNoTransition, StateWaitingForR, 'F'},
		{"hex letter in ones place", "L01A", ErrInvalidDigit, ErrorInvalidDigit, StateWaitingForLDigit3OrR, 'A'},
		{"hex letter in tens place", "L1A0", ErrInvalidDigit, ErrorInvalidDigit, StateWaitingForLDigit3OrR, '0'},
		{"hex letter in last field", "L010R020F030B04E", ErrInvalidDigit, ErrorInvalidDigit, StateWaitingForBDigit3, 'E'},
		{"third digit after hex", "LA1R123", ErrUnexpectedDigitInHexMode, ErrorUnexpectedDigitInHexMode, StateWaitingForRDigit3OrF, '3'},
		{"third digit after hex in up field", "LA1RB2F123", ErrUnexpectedDigitInHexMode, ErrorUnexpectedDigitInHexMode, StateWaitingForFDigit3OrB, '3'},
		{"decimal above 255", "L256", ErrValueOutOfRange, ErrorValueOutOfRange, StateWaitingForLDigit3OrR, '6'},
		{"decimal 999", "L010R999", ErrValueOutOfRange, ErrorValueOutOfRange, StateWaitingForRDigit3OrF, '9'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			status, err := feed(t, d, tt.input)
			assert.Equal(t, StatusParseError, status)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.state, pe.State)
			assert.Equal(t, tt.badInput, pe.Input)

			// Parser is back at the start
			assert.Equal(t, StateStart, d.State())
			assert.Equal(t, KindUnknown, d.Kind())
			assert.False(t, d.IsHex())
		})
	}
}

func TestDecoder_RecoversAfterError(t *testing.T) {
	d := NewDecoder()
	_, err := d.ProcessInput('Z')
	require.ErrorIs(t, err, ErrNoTransition)

	status, err := feed(t, d, "L010R020F030B040")
	require.NoError(t, err)
	assert.Equal(t, StatusMessageComplete, status)
	assert.Equal(t, NewAnalogMessage(10, 20, 30, 40), d.Message())
}

func TestDecoder_ErrorDiscardsPartialFrame(t *testing.T) {
	d := NewDecoder()
	msgs, errs := decodeAll(d, "LA1RB2FZ"+"L001R002F003B004")
	require.Len(t, errs, 1)
	require.Len(t, msgs, 1)
	assert.Equal(t, NewAnalogMessage(1, 2, 3, 4), msgs[0])
}

func TestDecoder_LazyReset(t *testing.T) {
	d := NewDecoder()
	_, err := feed(t, d, "LA1RB2FC3BD4")
	require.NoError(t, err)

	// The completed message stays readable until the next byte
	assert.Equal(t, StateMessageReady, d.State())
	assert.Equal(t, KindAnalogPosition, d.Kind())
	assert.Equal(t, uint8(0xA1), d.Message().Left)

	status, err := d.ProcessInput('L')
	require.NoError(t, err)
	assert.Equal(t, StatusNeedMoreInput, status)
	assert.Equal(t, StateWaitingForLDigit1, d.State())
	assert.False(t, d.IsHex(), "hex mode must not leak into the next message")
	assert.Equal(t, uint8(0), d.Message().Left)
}

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder()
	_, err := feed(t, d, "LA1RB")
	require.NoError(t, err)
	require.True(t, d.IsHex())

	d.Reset()
	assert.Equal(t, StateStart, d.State())
	assert.Equal(t, KindUnknown, d.Kind())
	assert.False(t, d.IsHex())
}

func TestDecoder_DecodeByte(t *testing.T) {
	d := NewDecoder()
	m, err := d.DecodeByte('L')
	assert.NoError(t, err)
	assert.Nil(t, m)

	d.Reset()
	m, err = d.DecodeByte('Y')
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, KindButtonY, m.Kind)
	assert.True(t, m.IsButton())

	m, err = d.DecodeByte('!')
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrNoTransition)
}

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Kind: ErrorNoTransition, State: StateWaitingForR, Input: 'Q'}
	assert.Equal(t, "no transition: input 'Q' in state WAIT_R", err.Error())

	err = &ParseError{Kind: ErrorInvalidDigit, State: StateStart, Input: 0x01}
	assert.Contains(t, err.Error(), "0x01")

	kind, ok := ErrorKindOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrorInvalidDigit, kind)

	_, ok = ErrorKindOf(errors.New("other"))
	assert.False(t, ok)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bitbus

import "fmt"

// State is a position in the message grammar
type State uint8

// Parser states
const (
	StateStart State = iota
	StateError
	StateWaitingForLDigit1
	StateWaitingForLDigit2
	StateWaitingForLDigit3OrR
	StateWaitingForR
	StateWaitingForRDigit1
	StateWaitingForRDigit2
	StateWaitingForRDigit3OrF
	StateWaitingForF
	StateWaitingForFDigit1
	StateWaitingForFDigit2
	StateWaitingForFDigit3OrB
	StateWaitingForB
	StateWaitingForBDigit1
	StateWaitingForBDigit2
	StateWaitingForBDigit3
	StateMessageReady
	stateCount
)

// MatchClass selects which inputs a rule accepts
type MatchClass uint8

const (
	MatchExact MatchClass = iota // input == Char
	MatchDigit                   // [0-9A-F]
	MatchAny                     // any byte
)

type transform uint8

const (
	transformNone transform = iota
	transformStoreDigit0
	transformStoreDigit1
	// Stores the second digit of the last field. In hex mode the field is
	// complete and the frame ends here.
	transformStoreDigit1Final
	transformHex
	transformDecimal
)

// TransitionRule is one entry in the state table
type TransitionRule struct {
	State     State
	Match     MatchClass
	Char      byte // only for MatchExact
	transform transform
	Field     Field // target of transformHex / transformDecimal
	Next      State
	Kind      MessageKind // KindUnknown leaves the pending kind alone
}

// Matches reports whether the rule accepts input c
func (r *TransitionRule) Matches(c byte) bool {
	switch r.Match {
	case MatchExact:
		return c == r.Char
	case MatchDigit:
		return IsDigit(c)
	case MatchAny:
		return true
	}
	return false
}

func exact(state State, c byte, t transform, f Field, next State, kind MessageKind) TransitionRule {
	return TransitionRule{State: state, Match: MatchExact, Char: c, transform: t, Field: f, Next: next, Kind: kind}
}

func digit(state State, t transform, f Field, next State) TransitionRule {
	return TransitionRule{State: state, Match: MatchDigit, transform: t, Field: f, Next: next}
}

// stateTable drives the Decoder. Within a state, exact-character rules come
// before class rules: 'F' and 'B' are field letters and hex digits at once.
var stateTable = [...]TransitionRule{
	exact(StateStart, CmdStart, transformNone, 0, StateMessageReady, KindStart),
	exact(StateStart, CmdSelect, transformNone, 0, StateMessageReady, KindSelect),
	exact(StateStart, CmdButtonA, transformNone, 0, StateMessageReady, KindButtonA),
	exact(StateStart, CmdButtonB, transformNone, 0, StateMessageReady, KindButtonB),
	exact(StateStart, CmdButtonX, transformNone, 0, StateMessageReady, KindButtonX),
	exact(StateStart, CmdButtonY, transformNone, 0, StateMessageReady, KindButtonY),
	exact(StateStart, CmdAnalog, transformNone, 0, StateWaitingForLDigit1, KindAnalogPosition),

	digit(StateWaitingForLDigit1, transformStoreDigit0, 0, StateWaitingForLDigit2),
	digit(StateWaitingForLDigit2, transformStoreDigit1, 0, StateWaitingForLDigit3OrR),
	exact(StateWaitingForLDigit3OrR, FieldLetterRight, transformHex, FieldLeft, StateWaitingForRDigit1, KindUnknown),
	digit(StateWaitingForLDigit3OrR, transformDecimal, FieldLeft, StateWaitingForR),
	exact(StateWaitingForR, FieldLetterRight, transformNone, 0, StateWaitingForRDigit1, KindUnknown),

	digit(StateWaitingForRDigit1, transformStoreDigit0, 0, StateWaitingForRDigit2),
	digit(StateWaitingForRDigit2, transformStoreDigit1, 0, StateWaitingForRDigit3OrF),
	exact(StateWaitingForRDigit3OrF, FieldLetterUp, transformHex, FieldRight, StateWaitingForFDigit1, KindUnknown),
	digit(StateWaitingForRDigit3OrF, transformDecimal, FieldRight, StateWaitingForF),
	exact(StateWaitingForF, FieldLetterUp, transformNone, 0, StateWaitingForFDigit1, KindUnknown),

	digit(StateWaitingForFDigit1, transformStoreDigit0, 0, StateWaitingForFDigit2),
	digit(StateWaitingForFDigit2, transformStoreDigit1, 0, StateWaitingForFDigit3OrB),
	exact(StateWaitingForFDigit3OrB, FieldLetterDown, transformHex, FieldUp, StateWaitingForBDigit1, KindUnknown),
	digit(StateWaitingForFDigit3OrB, transformDecimal, FieldUp, StateWaitingForB),
	exact(StateWaitingForB, FieldLetterDown, transformNone, 0, StateWaitingForBDigit1, KindUnknown),

	digit(StateWaitingForBDigit1, transformStoreDigit0, 0, StateWaitingForBDigit2),
	digit(StateWaitingForBDigit2, transformStoreDigit1Final, FieldDown, StateWaitingForBDigit3),
	digit(StateWaitingForBDigit3, transformDecimal, FieldDown, StateMessageReady),
}

func init() {
	if err := validateTable(stateTable[:]); err != nil {
		panic("bitbus: " + err.Error())
	}
}

// Rules returns a copy of the decoder's state table
func Rules() []TransitionRule {
	rules := make([]TransitionRule, len(stateTable))
	copy(rules, stateTable[:])
	return rules
}

// lookup returns the first rule for state that accepts c, or nil
func lookup(state State, c byte) *TransitionRule {
	for i := range stateTable {
		r := &stateTable[i]
		if r.State == state && r.Matches(c) {
			return r
		}
	}
	return nil
}

// validateTable checks that every (state, input) pair has at most one
// effective rule: no duplicate exact characters, at most one rule per class,
// and exact rules ahead of class rules in the same state.
func validateTable(rules []TransitionRule) error {
	type stateInfo struct {
		exacts   map[byte]int
		hasDigit bool
		hasAny   bool
	}
	seen := make(map[State]*stateInfo)

	for i, r := range rules {
		if r.State >= stateCount || r.Next >= stateCount {
			return fmt.Errorf("rule %d: state out of range", i)
		}
		if r.State == StateMessageReady || r.State == StateError {
			return fmt.Errorf("rule %d: terminal state %s has transitions", i, FormatState(r.State))
		}
		if (r.transform == transformHex || r.transform == transformDecimal || r.transform == transformStoreDigit1Final) && r.Field >= fieldCount {
			return fmt.Errorf("rule %d: field %d out of range", i, r.Field)
		}

		info := seen[r.State]
		if info == nil {
			info = &stateInfo{exacts: make(map[byte]int)}
			seen[r.State] = info
		}
		if info.hasAny {
			return fmt.Errorf("rule %d: unreachable after wildcard in state %s", i, FormatState(r.State))
		}

		switch r.Match {
		case MatchExact:
			if prev, dup := info.exacts[r.Char]; dup {
				return fmt.Errorf("rule %d: duplicates rule %d for %s in state %s", i, prev, formatInput(r.Char), FormatState(r.State))
			}
			if info.hasDigit && IsDigit(r.Char) {
				return fmt.Errorf("rule %d: %s shadowed by digit rule in state %s", i, formatInput(r.Char), FormatState(r.State))
			}
			info.exacts[r.Char] = i
		case MatchDigit:
			if info.hasDigit {
				return fmt.Errorf("rule %d: second digit rule in state %s", i, FormatState(r.State))
			}
			info.hasDigit = true
		case MatchAny:
			info.hasAny = true
		default:
			return fmt.Errorf("rule %d: unknown match class %d", i, r.Match)
		}
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bitbus

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomMessage(rng *rand.Rand) Message {
	if rng.Intn(3) == 0 {
		return NewButtonMessage(MessageKind(1 + rng.Intn(int(KindButtonY))))
	}
	return NewAnalogMessage(uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)))
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

// Encoded messages in either mode decode back to themselves
func TestFuzz_EncodeDecodeRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	d := NewDecoder()

	for i := 0; i < rounds; i++ {
		want := randomMessage(rng)
		mode := Mode(rng.Intn(2))
		data, err := EncodeMessage(want, mode)
		if err != nil {
			t.Fatalf("round %d: encode %+v: %v", i, want, err)
		}

		var got *Message
		for j, b := range data {
			m, err := d.DecodeByte(b)
			if err != nil {
				t.Fatalf("round %d: %q byte %d: %v", i, data, j, err)
			}
			if m != nil && j != len(data)-1 {
				t.Fatalf("round %d: %q completed early at byte %d", i, data, j)
			}
			got = m
		}
		if got == nil {
			t.Fatalf("round %d: %q did not complete", i, data)
		}
		if *got != want {
			t.Fatalf("round %d: %q decoded to %+v, want %+v", i, data, *got, want)
		}
	}
}

// Random bytes never panic, always leave a valid state, and a 'Z' always resyncs
func TestFuzz_RandomInput(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	alphabet := []byte("0123456789ABCDEFLRSXYZ")

	for i := 0; i < rounds; i++ {
		g := NewGamePad()
		n := 1 + rng.Intn(64)
		for j := 0; j < n; j++ {
			var b byte
			if rng.Intn(4) == 0 {
				b = byte(rng.Intn(256))
			} else {
				b = alphabet[rng.Intn(len(alphabet))]
			}

			status, err := g.Consume(b)
			if (err != nil) != (status == StatusParseError) {
				t.Fatalf("round %d: status %s with error %v", i, status, err)
			}
			if err != nil {
				if _, ok := ErrorKindOf(err); !ok {
					t.Fatalf("round %d: error is not a *ParseError: %v", i, err)
				}
				if g.Decoder().State() != StateStart {
					t.Fatalf("round %d: state %s after error", i, FormatState(g.Decoder().State()))
				}
			}
			if s := g.Decoder().State(); s >= stateCount {
				t.Fatalf("round %d: invalid state %d", i, s)
			}
			if bits := g.PositionButtons(); bits&(bits-1) != 0 {
				t.Fatalf("round %d: more than one direction set: %04b", i, bits)
			}
		}

		// 'Z' never has a transition, so the decoder always ends up at the start
		_, _ = g.Consume('Z')
		if g.Decoder().State() != StateStart {
			t.Fatalf("round %d: 'Z' did not resync", i)
		}
		status, err := consumeAll(g, "L001R002F003B004")
		if err != nil || status != StatusMessageComplete {
			t.Fatalf("round %d: frame after resync: %s %v", i, status, err)
		}
	}
}

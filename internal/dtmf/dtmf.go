// Package dtmf implements the in-band DTMF decoder: an 8-bin Goertzel
// filter bank over fixed-size frames, group selection against a
// noise-floor threshold, 3-frame hysteresis debouncing, and a bounded
// digit output buffer.
package dtmf

import (
	"encoding/binary"
	"log/slog"
	"math"

	"github.com/flowpbx/cmx/internal/companding"
)

// NPoints is the Goertzel frame length in samples: 102 samples, about
// 12.75ms at 8kHz.
const NPoints = 102

// Thresh is the squared-magnitude floor below which no tone is
// considered present.
const Thresh = 200000

// MaxPendingDigits bounds the decoded-digit output buffer.
const MaxPendingDigits = 32

const sampleRate = 8000.0
const numTones = 8

// toneHz holds the 8 standard DTMF frequencies: the 4 row tones
// (indices 0..3) followed by the 4 column tones (indices 4..7).
var toneHz = [numTones]float64{697, 770, 852, 941, 1209, 1336, 1477, 1633}

// coef holds 2*cos(2*pi*k/NPoints) in Q15 fixed point for each tone,
// precomputed once at package init the same way the companding tables
// are built.
var coef [numTones]int32

func init() {
	for i, hz := range toneHz {
		k := float64(NPoints) * hz / sampleRate
		c := 2.0 * math.Cos(2.0*math.Pi*k/float64(NPoints))
		coef[i] = int32(c * 32768)
	}
}

// digitMatrix maps (low-group row, high-group column) to its digit,
// per the standard DTMF keypad layout.
var digitMatrix = [4][4]byte{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// State is one channel's decoder state, carried across successive
// Decode calls.
type State struct {
	law    companding.Law
	logger *slog.Logger

	buffer [NPoints]int16
	size   int

	lastWhat  byte
	lastDigit byte
	count     int

	digits []byte

	// hfcPartial holds an incomplete hardware-coefficient chunk until
	// a later DecodeHardwareFrame call completes it.
	hfcPartial []byte

	digitsEmitted uint64
	digitsDropped uint64
}

// Option configures a State at construction.
type Option func(*State)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewState creates a decoder for a channel encoded with law.
func NewState(law companding.Law, opts ...Option) *State {
	s := &State{
		law:    law,
		logger: slog.Default().With("subsystem", "dtmf"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Decode absorbs an encoded PCM frame, decoding each byte through the
// channel's companding law before accumulating it. It returns the
// digits newly emitted during this call; they also remain buffered for
// Drain, so callers may use either surface.
func (s *State) Decode(frame []byte) string {
	before := len(s.digits)
	for _, b := range frame {
		s.accumulate(s.law.Decode(b))
	}
	return string(s.digits[before:])
}

// DecodeSamples absorbs already-linear samples, for callers that share
// decoded PCM with the mixer's receive path instead of re-decoding.
func (s *State) DecodeSamples(samples []int16) string {
	before := len(s.digits)
	for _, sample := range samples {
		s.accumulate(sample)
	}
	return string(s.digits[before:])
}

// DecodePowers runs group selection and debouncing directly against a
// hardware decoder's pre-computed Goertzel power values, bypassing the
// sample accumulation and recurrence steps.
func (s *State) DecodePowers(powers [numTones]int64) string {
	before := len(s.digits)
	s.selectAndDebounce(powers)
	return string(s.digits[before:])
}

// hfcChunkSize is the wire size of one HfcCoefficients chunk: eight
// big-endian uint32 magnitudes, one per Goertzel bin.
const hfcChunkSize = numTones * 4

// DecodeHardwareFrame absorbs the HfcCoefficients wire encoding: raw
// 32-byte chunks, each packing the eight pre-computed Q-format magnitudes
// a hardware Goertzel decoder already produced for one frame. It feeds
// each chunk through the same selectAndDebounce path DecodePowers uses,
// so hardware- and software-sourced digits share one decode surface.
// Trailing bytes short of a full chunk are held back and completed by a
// later call, mirroring how Decode accumulates a partial sample frame.
func (s *State) DecodeHardwareFrame(data []byte) string {
	before := len(s.digits)
	if len(s.hfcPartial) > 0 {
		need := hfcChunkSize - len(s.hfcPartial)
		if need > len(data) {
			need = len(data)
		}
		s.hfcPartial = append(s.hfcPartial, data[:need]...)
		data = data[need:]
		if len(s.hfcPartial) < hfcChunkSize {
			return ""
		}
		var powers [numTones]int64
		for k := 0; k < numTones; k++ {
			powers[k] = int64(binary.BigEndian.Uint32(s.hfcPartial[k*4 : k*4+4]))
		}
		s.selectAndDebounce(powers)
		s.hfcPartial = s.hfcPartial[:0]
	}
	for len(data) >= hfcChunkSize {
		var powers [numTones]int64
		for k := 0; k < numTones; k++ {
			powers[k] = int64(binary.BigEndian.Uint32(data[k*4 : k*4+4]))
		}
		s.selectAndDebounce(powers)
		data = data[hfcChunkSize:]
	}
	if len(data) > 0 {
		s.hfcPartial = append(s.hfcPartial, data...)
	}
	return string(s.digits[before:])
}

func (s *State) accumulate(sample int16) {
	s.buffer[s.size] = sample
	s.size++
	if s.size == NPoints {
		s.runFrame()
		s.size = 0
	}
}

// runFrame executes the eight Goertzel recurrences over the
// accumulated frame and derives each bin's power.
func (s *State) runFrame() {
	var q1, q2 [numTones]int32

	for _, sample := range s.buffer {
		xn := int32(sample)
		for k := 0; k < numTones; k++ {
			sn := int32((int64(coef[k])*int64(q1[k]))>>15) - q2[k] + xn
			if sn > 32767 || sn < -32767 {
				s.logger.Warn("dtmf: goertzel intermediate overflow", "bin", k, "value", sn)
			}
			q2[k] = q1[k]
			q1[k] = sn
		}
	}

	var powers [numTones]int64
	for k := 0; k < numTones; k++ {
		s1, s2 := int64(q1[k]), int64(q2[k])
		powers[k] = s1*s1 + s2*s2 - ((int64(coef[k])*s1)>>15)*s2
	}

	s.selectAndDebounce(powers)
}

// selectAndDebounce runs peak/group selection against the noise floor,
// the keypad matrix lookup, and the 3-frame hysteresis debounce.
func (s *State) selectAndDebounce(powers [numTones]int64) {
	var what byte

	peak := int64(-1)
	havePeak := false
	for _, p := range powers {
		if p < 0 {
			continue
		}
		if !havePeak || p > peak {
			peak = p
			havePeak = true
		}
	}

	if havePeak && peak >= Thresh {
		tr := peak / 4
		trl := peak / 8

		lowIdx, highIdx := -1, -1
		rejected := false

		for k, p := range powers {
			if p < trl {
				continue
			}
			if p < tr {
				rejected = true
				continue
			}
			if k < 4 {
				if lowIdx >= 0 {
					rejected = true
				} else {
					lowIdx = k
				}
			} else {
				if highIdx >= 0 {
					rejected = true
				} else {
					highIdx = k - 4
				}
			}
		}

		if !rejected && lowIdx >= 0 && highIdx >= 0 {
			what = digitMatrix[lowIdx][highIdx]
		}
	}

	s.debounce(what)
}

// debounce requires three consecutive frames with the same decision
// before a digit is emitted, and will not re-emit the digit already
// reported until the decision changes.
func (s *State) debounce(what byte) {
	if what != s.lastWhat {
		s.count = 0
	}

	if s.count == 2 && what != s.lastDigit {
		s.emit(what)
		s.lastDigit = what
	} else {
		s.count++
	}

	s.lastWhat = what
}

func (s *State) emit(what byte) {
	if what == 0 {
		return
	}
	if len(s.digits) >= MaxPendingDigits {
		s.digitsDropped++
		s.logger.Warn("dtmf: digit buffer full, digit dropped", "digit", string(what))
		return
	}
	s.digits = append(s.digits, what)
	s.digitsEmitted++
}

// Drain returns and clears the pending decoded digits.
func (s *State) Drain() []byte {
	out := s.digits
	s.digits = nil
	return out
}

// Pending returns the number of digits currently buffered, without
// draining them.
func (s *State) Pending() int { return len(s.digits) }

// Size returns the current fill level of the sample accumulator, for
// tests and diagnostics. It is always strictly less than NPoints
// between calls.
func (s *State) Size() int { return s.size }

// DigitsEmitted implements cmxmetrics.DTMFStatsProvider.
func (s *State) DigitsEmitted() uint64 { return s.digitsEmitted }

// DigitsDroppedFull implements cmxmetrics.DTMFStatsProvider.
func (s *State) DigitsDroppedFull() uint64 { return s.digitsDropped }

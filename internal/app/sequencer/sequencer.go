// Package sequencer maintains playback order over a set of filler segments.
package sequencer

import (
	"math/rand"

	"github.com/mkrause/retrocast/internal/domain/segment"
)

// Sequencer holds the filler segment list for the active channel and a
// cursor into an order array. The order is either the identity (sequential
// mode) or a random permutation (shuffled mode). The permutation is always
// a bijection over [0, n).
type Sequencer struct {
	segments []segment.Segment
	order    []int
	pos      int
	shuffled bool
	rng      *rand.Rand
}

// New creates a sequencer over the given segments. A nil rng falls back to
// a time-seeded source.
func New(segments []segment.Segment, shuffled bool, rng *rand.Rand) *Sequencer {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	s := &Sequencer{
		segments: segments,
		shuffled: shuffled,
		rng:      rng,
	}
	s.buildOrder()
	return s
}

// Len returns the number of segments under management.
func (s *Sequencer) Len() int {
	return len(s.segments)
}

// Shuffled reports whether shuffle mode is active.
func (s *Sequencer) Shuffled() bool {
	return s.shuffled
}

// Current returns the segment at the cursor. ok is false when the
// sequencer is empty.
func (s *Sequencer) Current() (segment.Segment, bool) {
	if len(s.order) == 0 {
		return segment.Segment{}, false
	}
	return s.segments[s.order[s.pos]], true
}

// StepNext advances the cursor, wrapping at the end of the order.
func (s *Sequencer) StepNext() {
	if len(s.order) == 0 {
		return
	}
	s.pos = (s.pos + 1) % len(s.order)
}

// StepPrev moves the cursor back, wrapping at the start of the order.
func (s *Sequencer) StepPrev() {
	if len(s.order) == 0 {
		return
	}
	s.pos = (s.pos - 1 + len(s.order)) % len(s.order)
}

// ToggleShuffle flips the order mode and regenerates the order. The
// currently-referenced segment stays current, so toggling never interrupts
// whatever is loaded in the engine; only subsequent StepNext results change.
func (s *Sequencer) ToggleShuffle() bool {
	s.shuffled = !s.shuffled
	s.Reshuffle()
	return s.shuffled
}

// Reshuffle regenerates the order, then repositions the cursor so the
// segment that was current before remains current after.
func (s *Sequencer) Reshuffle() {
	if len(s.segments) == 0 {
		return
	}
	cur := s.order[s.pos]
	s.buildOrder()
	for i, idx := range s.order {
		if idx == cur {
			s.pos = i
			return
		}
	}
	s.pos = 0
}

func (s *Sequencer) buildOrder() {
	n := len(s.segments)
	if n == 0 {
		s.order = nil
		s.pos = 0
		return
	}
	s.order = make([]int, n)
	for i := range s.order {
		s.order[i] = i
	}
	if s.shuffled {
		s.rng.Shuffle(n, func(i, j int) {
			s.order[i], s.order[j] = s.order[j], s.order[i]
		})
	}
	s.pos %= n
}

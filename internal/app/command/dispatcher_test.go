package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests control the dispatcher's notion of time.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestDispatcher(cooldown time.Duration) (*Dispatcher, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
	d := NewDispatcher(cooldown, 8)
	d.now = clock.now
	return d, clock
}

func TestDispatcher_DebounceDropsRapidEvents(t *testing.T) {
	d, clock := newTestDispatcher(400 * time.Millisecond)

	assert.True(t, d.Offer(NextFiller))

	// A second event inside the cooldown is dropped, whatever its kind.
	clock.advance(100 * time.Millisecond)
	assert.False(t, d.Offer(Exit))

	// After the cooldown has fully elapsed the next event is accepted.
	clock.advance(301 * time.Millisecond)
	assert.True(t, d.Offer(Exit))

	got := drain(d)
	assert.Equal(t, []Command{NextFiller, Exit}, got)
}

func TestDispatcher_CooldownCountsFromAcceptedEvents(t *testing.T) {
	d, clock := newTestDispatcher(400 * time.Millisecond)

	assert.True(t, d.Offer(NextFiller))

	// Dropped events must not reset the cooldown window.
	clock.advance(300 * time.Millisecond)
	assert.False(t, d.Offer(NextFiller))
	clock.advance(150 * time.Millisecond)
	assert.True(t, d.Offer(NextFiller))
}

func TestDispatcher_SpacedEventsAllAccepted(t *testing.T) {
	d, clock := newTestDispatcher(400 * time.Millisecond)

	for i := 0; i < 5; i++ {
		assert.True(t, d.Offer(Reshuffle))
		clock.advance(500 * time.Millisecond)
	}
	assert.Len(t, drain(d), 5)
}

func TestDispatcher_FullChannelDoesNotBlock(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	d := NewDispatcher(time.Millisecond, 2)
	d.now = clock.now

	for i := 0; i < 4; i++ {
		clock.advance(10 * time.Millisecond)
		d.Offer(NextFeature)
	}

	// Only the channel capacity worth of commands is retained.
	require.Len(t, drain(d), 2)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "next_filler", NextFiller.String())
	assert.Equal(t, "exit", Exit.String())
	assert.Equal(t, "unknown", Command(99).String())
}

func drain(d *Dispatcher) []Command {
	var out []Command
	for {
		select {
		case c := <-d.Commands():
			out = append(out, c)
		default:
			return out
		}
	}
}

package command

import (
	"time"

	zlog "github.com/rs/zerolog/log"
)

// DefaultCooldown is the debounce interval between accepted input events.
const DefaultCooldown = 400 * time.Millisecond

// Dispatcher debounces raw input events into commands and delivers them
// over a bounded channel. An event is accepted only if the cooldown has
// elapsed since the last accepted event of any kind; events inside the
// cooldown are dropped, not queued.
//
// The dispatcher is single-producer/single-consumer: Offer is called from
// the input-reading goroutine and Commands is drained by the controller.
type Dispatcher struct {
	cooldown     time.Duration
	lastAccepted time.Time
	now          func() time.Time
	ch           chan Command
}

// NewDispatcher creates a dispatcher with the given cooldown and channel
// capacity. A non-positive cooldown falls back to DefaultCooldown.
func NewDispatcher(cooldown time.Duration, capacity int) *Dispatcher {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if capacity <= 0 {
		capacity = 8
	}
	return &Dispatcher{
		cooldown: cooldown,
		now:      time.Now,
		ch:       make(chan Command, capacity),
	}
}

// Commands returns the channel the controller drains.
func (d *Dispatcher) Commands() <-chan Command {
	return d.ch
}

// Offer submits an input event. It returns true when the event passed the
// debounce and was delivered. Delivery never blocks: if the channel is
// full the command is dropped.
func (d *Dispatcher) Offer(cmd Command) bool {
	now := d.now()
	if !d.lastAccepted.IsZero() && now.Sub(d.lastAccepted) <= d.cooldown {
		zlog.Debug().Stringer("command", cmd).Msg("input event dropped by debounce")
		return false
	}
	d.lastAccepted = now

	select {
	case d.ch <- cmd:
		return true
	default:
		zlog.Warn().Stringer("command", cmd).Msg("command channel full, dropping")
		return false
	}
}

// Close closes the command channel. Call only after the producer is done.
func (d *Dispatcher) Close() {
	close(d.ch)
}

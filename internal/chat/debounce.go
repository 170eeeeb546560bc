package chat

import "time"

// DefaultTypingIdle is how long the local user may pause before typing:false
// goes out.
const DefaultTypingIdle = time.Second

// Debouncer turns keystrokes into typing signals: one true when typing
// starts, one false after the idle window or when forced. Redundant signals
// are never sent.
type Debouncer struct {
	clock Clock
	idle  time.Duration
	send  func(typing bool)

	typing   bool
	timer    Timer
	deadline time.Time
}

// NewDebouncer creates a debouncer that reports transitions through send.
func NewDebouncer(clock Clock, idle time.Duration, send func(typing bool)) *Debouncer {
	if idle <= 0 {
		idle = DefaultTypingIdle
	}
	return &Debouncer{clock: clock, idle: idle, send: send}
}

// Keystroke records an input change. Non-empty input raises the signal and
// re-arms the idle timer; empty input drops the signal at once.
func (d *Debouncer) Keystroke(nonEmpty bool) {
	if !nonEmpty {
		d.Stop()
		return
	}
	if !d.typing {
		d.typing = true
		d.send(true)
	}
	d.arm()
}

// Stop cancels the idle timer and sends typing:false if the signal is up.
func (d *Debouncer) Stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.typing {
		d.typing = false
		d.send(false)
	}
}

// Reset cancels the idle timer and lowers the signal without sending
// anything. Used when the room or the connection goes away.
func (d *Debouncer) Reset() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.typing = false
}

// Typing reports whether the local typing signal is up.
func (d *Debouncer) Typing() bool {
	return d.typing
}

func (d *Debouncer) arm() {
	d.deadline = d.clock.Now().Add(d.idle)
	if d.timer == nil {
		d.timer = d.clock.AfterFunc(d.idle, d.fire)
		return
	}
	d.timer.Stop()
	d.timer.Reset(d.idle)
}

// fire runs when the idle timer expires. A firing queued before a re-arm or
// a reset sees a later deadline or a lowered signal and does nothing.
func (d *Debouncer) fire() {
	if !d.typing || d.clock.Now().Before(d.deadline) {
		return
	}
	d.typing = false
	d.send(false)
}

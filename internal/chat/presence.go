package chat

import (
	"slices"
	"time"
)

// Presence is the set of remote participants currently flagged as typing,
// in the order they started. Entries are cleared by the sender's own
// typing:false; when a TTL is configured an entry also expires on its own,
// which covers peers that drop mid-type.
type Presence struct {
	clock    Clock
	ttl      time.Duration
	onExpire func(username string)

	users   []string
	expires map[string]*expiry
}

type expiry struct {
	timer    Timer
	deadline time.Time
}

// NewPresence creates an empty tracker. A zero ttl disables expiry.
func NewPresence(clock Clock, ttl time.Duration, onExpire func(username string)) *Presence {
	return &Presence{
		clock:    clock,
		ttl:      ttl,
		onExpire: onExpire,
		expires:  make(map[string]*expiry),
	}
}

// Set records a remote typing event.
func (p *Presence) Set(username string, typing bool) {
	p.users = slices.DeleteFunc(p.users, func(u string) bool { return u == username })
	if !typing {
		p.cancel(username)
		return
	}
	p.users = append(p.users, username)
	p.arm(username)
}

// Users returns the typing participants, oldest first.
func (p *Presence) Users() []string {
	return slices.Clone(p.users)
}

// IsTyping reports whether username is flagged as typing.
func (p *Presence) IsTyping(username string) bool {
	return slices.Contains(p.users, username)
}

// Reset drops every entry and cancels pending expiries.
func (p *Presence) Reset() {
	for name := range p.expires {
		p.cancel(name)
	}
	p.users = nil
}

func (p *Presence) arm(username string) {
	if p.ttl <= 0 {
		return
	}
	deadline := p.clock.Now().Add(p.ttl)
	if e, ok := p.expires[username]; ok {
		e.timer.Stop()
		e.deadline = deadline
		e.timer.Reset(p.ttl)
		return
	}
	p.expires[username] = &expiry{
		timer:    p.clock.AfterFunc(p.ttl, func() { p.expire(username) }),
		deadline: deadline,
	}
}

func (p *Presence) cancel(username string) {
	if e, ok := p.expires[username]; ok {
		e.timer.Stop()
		delete(p.expires, username)
	}
}

// expire runs when a TTL timer fires. A firing queued before the entry was
// cleared or re-armed finds no entry or a later deadline and does nothing.
func (p *Presence) expire(username string) {
	e, ok := p.expires[username]
	if !ok || p.clock.Now().Before(e.deadline) {
		return
	}
	delete(p.expires, username)
	p.users = slices.DeleteFunc(p.users, func(u string) bool { return u == username })
	if p.onExpire != nil {
		p.onExpire(username)
	}
}

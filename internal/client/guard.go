package client

import "sync/atomic"

// Guard discards responses that arrive after the view that asked for them
// has moved on. Every Begin invalidates earlier tickets.
type Guard struct {
	gen atomic.Uint64
}

type Ticket struct {
	g   *Guard
	gen uint64
}

func (g *Guard) Begin() Ticket {
	return Ticket{g: g, gen: g.gen.Add(1)}
}

// Invalidate drops every outstanding ticket, e.g. when the view goes away.
func (g *Guard) Invalidate() {
	g.gen.Add(1)
}

// Current reports whether no newer Begin or Invalidate happened.
func (t Ticket) Current() bool {
	return t.g != nil && t.g.gen.Load() == t.gen
}

// Apply runs fn only if the ticket is still current.
func (t Ticket) Apply(fn func()) bool {
	if !t.Current() {
		return false
	}
	fn()
	return true
}

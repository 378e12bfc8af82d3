package tasks

import "sync"

// Notifier is a level-triggered broadcast: Broadcast wakes every waiter that
// obtained its channel before the call. It carries no payload; woken
// observers re-read the state cells to find out what changed.
type Notifier struct {
	mu sync.Mutex
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{})}
}

// Wait returns a channel that is closed by the next Broadcast. Callers must
// obtain the channel before reading state, then block on it after deciding
// to wait, so a change between read and block is never missed.
func (n *Notifier) Wait() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch
}

// Broadcast wakes all current waiters by closing the generation's channel
// and installing a fresh one.
func (n *Notifier) Broadcast() {
	n.mu.Lock()
	close(n.ch)
	n.ch = make(chan struct{})
	n.mu.Unlock()
}

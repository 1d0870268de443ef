package containers

import (
	"github.com/spaghettifunk/efvk/engine/core"
)

// Ticket identifies an entry in a DeletionQueue. It is only valid until the
// next Flush: slots are reused afterwards, so the epoch tells them apart.
type Ticket struct {
	index int
	epoch uint64
}

type deletionEntry struct {
	name string
	fn   func()
}

// DeletionQueue records teardown actions and runs them in reverse order of
// registration, so a resource created after another is destroyed before it.
// Entries live in an index-addressed list; a released entry leaves a tombstone
// and is skipped by Flush.
//
// Not safe for concurrent use.
type DeletionQueue struct {
	name     string
	entries  []*deletionEntry
	live     int
	epoch    uint64
	flushing bool
}

func NewDeletionQueue(name string) *DeletionQueue {
	return &DeletionQueue{name: name}
}

// Enqueue appends a teardown action. Actions are assumed infallible.
func (dq *DeletionQueue) Enqueue(name string, fn func()) Ticket {
	if dq.flushing {
		panic(core.Misusef("deletion queue %q: enqueue of %q during flush", dq.name, name))
	}
	dq.entries = append(dq.entries, &deletionEntry{name: name, fn: fn})
	dq.live++
	return Ticket{index: len(dq.entries) - 1, epoch: dq.epoch}
}

// Release runs a single entry ahead of the rest and removes it from the queue.
// Releasing a ticket twice, or one issued before the last Flush, is misuse.
func (dq *DeletionQueue) Release(t Ticket) error {
	if dq.flushing {
		panic(core.Misusef("deletion queue %q: release during flush", dq.name))
	}
	if t.epoch != dq.epoch {
		return core.Misusef("deletion queue %q: ticket from epoch %d released in epoch %d", dq.name, t.epoch, dq.epoch)
	}
	if t.index < 0 || t.index >= len(dq.entries) {
		return core.Misusef("deletion queue %q: unknown ticket %d", dq.name, t.index)
	}
	e := dq.entries[t.index]
	if e == nil {
		return core.Misusef("deletion queue %q: ticket %d already released", dq.name, t.index)
	}
	dq.entries[t.index] = nil
	dq.live--
	core.LogDebug("deletion queue %q: releasing %q", dq.name, e.name)
	e.fn()
	return nil
}

// Flush pops and invokes every live action from the back until empty.
func (dq *DeletionQueue) Flush() {
	dq.flushing = true
	defer func() { dq.flushing = false }()

	for i := len(dq.entries) - 1; i >= 0; i-- {
		e := dq.entries[i]
		dq.entries = dq.entries[:i]
		if e == nil {
			continue
		}
		dq.live--
		core.LogDebug("deletion queue %q: destroying %q", dq.name, e.name)
		e.fn()
	}
	dq.entries = dq.entries[:0]
	dq.epoch++
}

// Len returns the number of pending actions.
func (dq *DeletionQueue) Len() int {
	return dq.live
}

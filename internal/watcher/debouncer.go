package watcher

import (
	"sort"
	"sync"
	"time"
)

// debouncer coalesces rapid file events into batches. A batch is
// emitted once the window has passed with no further events, sorted by
// path so consumers see deterministic order.
type debouncer struct {
	window time.Duration
	out    chan []FileEvent

	mu      sync.Mutex
	pending map[string]FileEvent
	first   map[string]Op
	timer   *time.Timer
	closed  bool
}

func newDebouncer(window time.Duration, buffer int) *debouncer {
	return &debouncer{
		window:  window,
		out:     make(chan []FileEvent, buffer),
		pending: make(map[string]FileEvent),
		first:   make(map[string]Op),
	}
}

// coalesce merges a later event into the pending one for the same
// path. The first operation seen for the path decides the rule:
//
//	CREATE then MODIFY -> CREATE (the file is still new)
//	CREATE then DELETE -> dropped (the file never really existed)
//	MODIFY then DELETE -> DELETE
//	DELETE then CREATE -> MODIFY (the file was replaced)
//
// ok is false when the events cancel out and the path has no pending
// change left.
func coalesce(first Op, prev, next FileEvent) (merged FileEvent, ok bool) {
	switch {
	case first == OpCreate && next.Op == OpModify:
		return prev, true
	case first == OpCreate && next.Op == OpDelete:
		return FileEvent{}, false
	case first == OpDelete && next.Op == OpCreate:
		next.Op = OpModify
		return next, true
	default:
		return next, true
	}
}

// add records an event and restarts the flush timer, so the batch goes
// out only after a quiet period.
func (d *debouncer) add(ev FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if prev, seen := d.pending[ev.Path]; seen {
		merged, ok := coalesce(d.first[ev.Path], prev, ev)
		if !ok {
			delete(d.pending, ev.Path)
			delete(d.first, ev.Path)
		} else {
			d.pending[ev.Path] = merged
		}
	} else {
		d.pending[ev.Path] = ev
		d.first[ev.Path] = ev.Op
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush emits the pending events as one sorted batch. When the
// consumer has not drained the channel, the batch stays pending and
// keeps coalescing; another flush is scheduled a window later.
func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || len(d.pending) == 0 {
		return
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, ev := range d.pending {
		batch = append(batch, ev)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	select {
	case d.out <- batch:
		d.pending = make(map[string]FileEvent)
		d.first = make(map[string]Op)
	default:
		d.timer = time.AfterFunc(d.window, d.flush)
	}
}

// batches returns the output channel. Closed when the debouncer closes.
func (d *debouncer) batches() <-chan []FileEvent {
	return d.out
}

// close stops the debouncer and closes the output channel. Safe to
// call more than once.
func (d *debouncer) close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.out)
}

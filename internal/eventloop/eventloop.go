// Package eventloop runs Go-backed timers for a single JS runtime.
package eventloop

import (
	"fmt"
	"sync"
	"time"

	"github.com/cryguy/scripthost/internal/core"
)

// minInterval is the shortest period a setInterval callback repeats at.
const minInterval = 10 * time.Millisecond

// timerEntry represents a pending setTimeout or setInterval callback.
// The actual callback is stored in globalThis.__timerCallbacks[id] on the
// JS side. Go only tracks scheduling metadata.
type timerEntry struct {
	deadline time.Time
	interval time.Duration // 0 for setTimeout, >0 for setInterval
	id       int
	cleared  bool
}

// EventLoop manages Go-backed timers for setTimeout/setInterval.
// Provides real wall-clock delays backed by Go timers.
type EventLoop struct {
	mu     sync.Mutex
	timers map[int]*timerEntry
	nextID int
}

// New creates a new EventLoop.
func New() *EventLoop {
	return &EventLoop{
		timers: make(map[int]*timerEntry),
	}
}

// RegisterTimer creates a timer entry and returns its ID.
// The actual JS callback is stored in globalThis.__timerCallbacks[id].
func (el *EventLoop) RegisterTimer(delay time.Duration, isInterval bool) int {
	el.mu.Lock()
	defer el.mu.Unlock()
	if delay < 0 {
		delay = 0
	}
	el.nextID++
	id := el.nextID
	entry := &timerEntry{
		deadline: time.Now().Add(delay),
		id:       id,
	}
	if isInterval {
		if delay < minInterval {
			delay = minInterval
		}
		entry.interval = delay
	}
	el.timers[id] = entry
	return id
}

// ClearTimer cancels a timer by ID.
func (el *EventLoop) ClearTimer(id int) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if t, ok := el.timers[id]; ok {
		t.cleared = true
		delete(el.timers, id)
	}
}

// fireTimer fires a timer callback by invoking the JS-side callback map.
func (el *EventLoop) fireTimer(rt core.JSRuntime, id int) error {
	js := fmt.Sprintf(`(function() {
		var entry = globalThis.__timerCallbacks[%d];
		if (!entry) return;
		if (!entry.interval) delete globalThis.__timerCallbacks[%d];
		entry.fn.apply(null, entry.args || []);
	})()`, id, id)
	return rt.Eval(js)
}

// next returns the earliest live timer, or nil.
func (el *EventLoop) next() *timerEntry {
	el.mu.Lock()
	defer el.mu.Unlock()
	var next *timerEntry
	for _, t := range el.timers {
		if t.cleared {
			continue
		}
		if next == nil || t.deadline.Before(next.deadline) {
			next = t
		}
	}
	return next
}

// Drain fires timers in deadline order while they fall due no later than
// limit, sleeping until each is due. It stops early once done (which may be
// nil) reports true. A repeating timer is rescheduled past the current time,
// so with limit set to now only overdue callbacks run. Errors thrown by
// callbacks are passed to onError, which may be nil. Must be called on the
// runtime's goroutine.
func (el *EventLoop) Drain(rt core.JSRuntime, limit time.Time, done func() bool, onError func(error)) {
	for {
		if done != nil && done() {
			return
		}
		next := el.next()
		if next == nil || next.deadline.After(limit) {
			return
		}
		if wait := time.Until(next.deadline); wait > 0 {
			time.Sleep(wait)
		}

		el.mu.Lock()
		if next.cleared {
			el.mu.Unlock()
			continue
		}
		timerID := next.id
		if next.interval > 0 {
			next.deadline = time.Now().Add(next.interval)
		} else {
			delete(el.timers, next.id)
		}
		el.mu.Unlock()

		if err := el.fireTimer(rt, timerID); err != nil && onError != nil {
			onError(err)
		}
		rt.RunMicrotasks()
	}
}

// HasPending returns true if there are any active timers.
func (el *EventLoop) HasPending() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.timers) > 0
}

// Reset clears all timers.
func (el *EventLoop) Reset() {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.timers = make(map[int]*timerEntry)
	el.nextID = 0
}

package webapi

import (
	"time"

	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/eventloop"
)

// timersJS installs the timer globals. Callbacks live in
// __timerCallbacks keyed by the id the event loop hands out; the loop fires
// them by id when their deadline passes.
const timersJS = `
(function() {
	var callbacks = {};
	Object.defineProperty(globalThis, '__timerCallbacks', { value: callbacks });

	function delayOf(v) {
		var n = Math.floor(Number(v));
		return isFinite(n) && n > 0 ? n : 0;
	}

	function schedule(name, fn, delay, extra, repeat) {
		if (typeof fn !== 'function') {
			throw new TypeError(name + ': callback must be a function');
		}
		var id = __timerRegister(delayOf(delay), repeat);
		callbacks[id] = { fn: fn, args: extra, interval: repeat };
		return id;
	}

	function cancel(id) {
		if (typeof id !== 'number' || !(id in callbacks)) return;
		__timerClear(id);
		delete callbacks[id];
	}

	globalThis.setTimeout = function setTimeout(fn, delay) {
		return schedule('setTimeout', fn, delay, Array.prototype.slice.call(arguments, 2), false);
	};
	globalThis.setInterval = function setInterval(fn, delay) {
		return schedule('setInterval', fn, delay, Array.prototype.slice.call(arguments, 2), true);
	};
	globalThis.clearTimeout = function clearTimeout(id) { cancel(id); };
	globalThis.clearInterval = function clearInterval(id) { cancel(id); };
	if (typeof globalThis.queueMicrotask !== 'function') {
		globalThis.queueMicrotask = function queueMicrotask(fn) {
			if (typeof fn !== 'function') {
				throw new TypeError('queueMicrotask: callback must be a function');
			}
			Promise.resolve().then(fn);
		};
	}
})();
`

// SetupTimers installs setTimeout, setInterval, their clear functions and
// queueMicrotask, scheduled on el.
func SetupTimers(rt core.JSRuntime, el *eventloop.EventLoop) error {
	register := func(delayMs int, repeat bool) int {
		return el.RegisterTimer(time.Duration(delayMs)*time.Millisecond, repeat)
	}
	if err := rt.RegisterFunc("__timerRegister", register); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__timerClear", el.ClearTimer); err != nil {
		return err
	}
	return rt.Eval(timersJS)
}

package webapi

import (
	"context"
	"log/slog"

	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/eventloop"
)

// consoleJS builds a console object over __console.
const consoleJS = `
(function() {
	function format(v) {
		if (typeof v === 'string') return v;
		if (v instanceof Error) return v.stack || String(v);
		if (typeof v === 'object' && v !== null) {
			try { return JSON.stringify(v); } catch (e) { return String(v); }
		}
		return String(v);
	}
	var levels = ['log', 'info', 'warn', 'error', 'debug'];
	var con = {};
	levels.forEach(function(lvl) {
		con[lvl] = function() {
			var parts = [];
			for (var j = 0; j < arguments.length; j++) parts.push(format(arguments[j]));
			__console(lvl, parts.join(' '));
		};
	});
	globalThis.console = con;
})();
`

// consoleExtJS adds extended console methods (time, count, assert, etc.)
const consoleExtJS = `
(function() {
var __timers = {};
var __counters = {};

console.time = function(label) {
	__timers[label || 'default'] = Date.now();
};
console.timeEnd = function(label) {
	var l = label || 'default';
	var start = __timers[l];
	if (start === undefined) { console.warn('Timer "' + l + '" does not exist'); return; }
	delete __timers[l];
	console.log(l + ': ' + (Date.now() - start) + 'ms');
};
console.count = function(label) {
	var l = label || 'default';
	__counters[l] = (__counters[l] || 0) + 1;
	console.log(l + ': ' + __counters[l]);
};
console.countReset = function(label) {
	__counters[label || 'default'] = 0;
};
console.assert = function(cond) {
	if (!cond) {
		var args = Array.prototype.slice.call(arguments, 1);
		if (args.length > 0) {
			console.error('Assertion failed:', args.join(' '));
		} else {
			console.error('Assertion failed');
		}
	}
};
console.dir = function(obj) {
	console.log(JSON.stringify(obj, null, 2));
};
})();
`

// Console returns a SetupFunc that routes console output to the sink of
// src. warn and error lines carry a level prefix. Every call is also logged
// at debug level.
func Console(src OutputSource, logger *slog.Logger) SetupFunc {
	return func(rt core.JSRuntime, _ *eventloop.EventLoop) error {
		if err := rt.RegisterFunc("__console", func(level, message string) {
			logger.Debug("script console", "level", level, "message", message)
			line := message
			switch level {
			case "warn", "error":
				line = level + ": " + message
			}
			w, err := src.Output(context.Background())
			if err == nil {
				err = w.WriteLine(line)
			}
			if err != nil {
				logger.Warn("dropping console output", "level", level, "error", err)
			}
		}); err != nil {
			return err
		}
		if err := rt.Eval(consoleJS); err != nil {
			return err
		}
		return rt.Eval(consoleExtJS)
	}
}

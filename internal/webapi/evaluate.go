package webapi

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cryguy/scripthost/internal/core"
)

// ErrUnsettled is returned by Settle when the promise produced by an
// evaluation is still pending.
var ErrUnsettled = errors.New("promise did not settle before the deadline")

// completionGlobal receives the completion value of the last script.
const completionGlobal = "__eval_completion"

// inspectJS reports the completion value left in __eval_completion as JSON.
// A thenable is parked in __eval_pending for Settle.
const inspectJS = `
(function() {
	function fault(e) {
		if (e !== null && typeof e === 'object' && 'message' in e) {
			return { name: String(e.name || 'Error'), message: String(e.message), stack: String(e.stack || '') };
		}
		return { name: '', message: String(e), stack: '' };
	}
	function show(v) { return v === undefined ? '' : String(v); }

	var v = globalThis.__eval_completion;
	delete globalThis.__eval_completion;
	try {
		if (v !== null && (typeof v === 'object' || typeof v === 'function') && typeof v.then === 'function') {
			var box = globalThis.__eval_pending = { state: 'pending' };
			Promise.resolve(v).then(
				function(r) {
					box.state = 'fulfilled';
					try { box.value = show(r); } catch (e) { box.state = 'rejected'; box.fault = fault(e); }
				},
				function(e) { box.state = 'rejected'; box.fault = fault(e); });
			return JSON.stringify({ pending: true });
		}
		return JSON.stringify({ value: show(v) });
	} catch (e) {
		return JSON.stringify({ fault: fault(e) });
	}
})()
`

const settleJS = `
(function() {
	var box = globalThis.__eval_pending;
	if (!box) return JSON.stringify({ value: '' });
	if (box.state === 'pending') return JSON.stringify({ pending: true });
	delete globalThis.__eval_pending;
	if (box.state === 'rejected') return JSON.stringify({ fault: box.fault });
	return JSON.stringify({ value: box.value });
})()
`

type evalOutcome struct {
	Value   string      `json:"value"`
	Pending bool        `json:"pending"`
	Fault   *core.Fault `json:"fault"`
}

// Evaluate runs src as a global script; origin names it in stack traces.
// A script exception is returned as *core.Fault; any other error comes from
// the engine itself. When the script produced a promise, pending is true
// and the caller must pump the runtime and call Settle.
func Evaluate(rt core.JSRuntime, src, origin string) (value string, pending bool, err error) {
	if origin != "" {
		src += "\n//# sourceURL=" + origin
	}
	if err := rt.RunScript(src, origin, completionGlobal); err != nil {
		return "", false, err
	}
	raw, err := rt.EvalString(inspectJS)
	if err != nil {
		return "", false, err
	}
	out, err := decodeOutcome(raw)
	if err != nil {
		return "", false, err
	}
	return out.Value, out.Pending, nil
}

// Pending reports whether the promise left by Evaluate is still unsettled.
func Pending(rt core.JSRuntime) bool {
	v, err := rt.EvalString(`String(!!globalThis.__eval_pending && globalThis.__eval_pending.state === 'pending')`)
	return err == nil && v == "true"
}

// Settle reads the outcome of the promise left by Evaluate.
func Settle(rt core.JSRuntime) (string, error) {
	raw, err := rt.EvalString(settleJS)
	if err != nil {
		return "", err
	}
	out, err := decodeOutcome(raw)
	if err != nil {
		return "", err
	}
	if out.Pending {
		_ = rt.Eval("delete globalThis.__eval_pending;")
		return "", ErrUnsettled
	}
	return out.Value, nil
}

func decodeOutcome(raw string) (*evalOutcome, error) {
	var out evalOutcome
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decoding evaluation result: %w", err)
	}
	if out.Fault != nil {
		return nil, out.Fault
	}
	return &out, nil
}

package scripthost

import (
	"errors"
	"sync"
	"time"

	"github.com/cryguy/scripthost/internal/core"
)

// errBudgetSpent is returned for script work requested after the execution
// budget of an evaluation ran out.
var errBudgetSpent = errors.New("execution budget spent")

// watchdog wraps a runtime for the length of one evaluation. When the budget
// runs out it interrupts the runtime only if a script is running at that
// moment; from then on it refuses to start more script work.
type watchdog struct {
	core.JSRuntime
	timer *time.Timer

	mu          sync.Mutex
	running     bool
	expired     bool
	interrupted bool
}

func newWatchdog(rt core.JSRuntime, budget time.Duration) *watchdog {
	w := &watchdog{JSRuntime: rt}
	w.timer = time.AfterFunc(budget, w.expire)
	return w
}

func (w *watchdog) expire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expired = true
	if w.running {
		w.interrupted = true
		w.JSRuntime.Interrupt()
	}
}

func (w *watchdog) enter() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expired {
		return false
	}
	w.running = true
	return true
}

func (w *watchdog) exit() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// stop disarms the timer and reports whether a running script was
// interrupted.
func (w *watchdog) stop() bool {
	w.timer.Stop()
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interrupted
}

func (w *watchdog) Eval(js string) error {
	if !w.enter() {
		return errBudgetSpent
	}
	defer w.exit()
	return w.JSRuntime.Eval(js)
}

func (w *watchdog) EvalString(js string) (string, error) {
	if !w.enter() {
		return "", errBudgetSpent
	}
	defer w.exit()
	return w.JSRuntime.EvalString(js)
}

func (w *watchdog) RunScript(src, origin, result string) error {
	if !w.enter() {
		return errBudgetSpent
	}
	defer w.exit()
	return w.JSRuntime.RunScript(src, origin, result)
}

func (w *watchdog) RunMicrotasks() {
	if !w.enter() {
		return
	}
	defer w.exit()
	w.JSRuntime.RunMicrotasks()
}

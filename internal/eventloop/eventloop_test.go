package eventloop

import (
	"errors"
	"regexp"
	"strconv"
	"testing"
	"time"
)

// recordingRuntime records the timer IDs fired through it.
type recordingRuntime struct {
	fired      []int
	microtasks int
	failOn     int
}

var firedID = regexp.MustCompile(`__timerCallbacks\[(\d+)\]`)

func (r *recordingRuntime) Eval(js string) error {
	m := firedID.FindStringSubmatch(js)
	if m == nil {
		return nil
	}
	id, _ := strconv.Atoi(m[1])
	r.fired = append(r.fired, id)
	if id == r.failOn {
		return errors.New("callback threw")
	}
	return nil
}

func (r *recordingRuntime) EvalString(string) (string, error) { return "", nil }
func (r *recordingRuntime) RunScript(string, string, string) error { return nil }
func (r *recordingRuntime) RegisterFunc(string, any) error    { return nil }
func (r *recordingRuntime) SetGlobal(string, any) error       { return nil }
func (r *recordingRuntime) RunMicrotasks()                    { r.microtasks++ }
func (r *recordingRuntime) Interrupt()                        {}
func (r *recordingRuntime) Close() error                      { return nil }

func TestEventLoop_New(t *testing.T) {
	el := New()
	if el.timers == nil {
		t.Error("timers map should be initialized")
	}
	if el.HasPending() {
		t.Error("new event loop should have no pending timers")
	}
}

func TestEventLoop_RegisterAndClear(t *testing.T) {
	el := New()
	id1 := el.RegisterTimer(100*time.Millisecond, false)
	id2 := el.RegisterTimer(100*time.Millisecond, true)
	if id1 != 1 || id2 != 2 {
		t.Fatalf("ids = %d, %d; want 1, 2", id1, id2)
	}
	if el.timers[id2].interval != 100*time.Millisecond {
		t.Errorf("interval = %v", el.timers[id2].interval)
	}

	el.ClearTimer(id1)
	el.ClearTimer(id2)
	el.ClearTimer(99)
	if el.HasPending() {
		t.Error("cleared timers should not be pending")
	}
}

func TestEventLoop_MinimumInterval(t *testing.T) {
	el := New()
	id := el.RegisterTimer(0, true)
	if got := el.timers[id].interval; got != minInterval {
		t.Errorf("interval = %v, want %v", got, minInterval)
	}
}

func TestEventLoop_DrainFiresInDeadlineOrder(t *testing.T) {
	el := New()
	late := el.RegisterTimer(20*time.Millisecond, false)
	early := el.RegisterTimer(0, false)

	rt := &recordingRuntime{}
	el.Drain(rt, time.Now().Add(time.Second), nil, nil)

	if len(rt.fired) != 2 || rt.fired[0] != early || rt.fired[1] != late {
		t.Fatalf("fired = %v, want [%d %d]", rt.fired, early, late)
	}
	if rt.microtasks != 2 {
		t.Errorf("microtasks = %d, want 2", rt.microtasks)
	}
	if el.HasPending() {
		t.Error("one-shot timers should be gone after firing")
	}
}

func TestEventLoop_DrainStopsAtDeadline(t *testing.T) {
	el := New()
	el.RegisterTimer(time.Hour, false)

	rt := &recordingRuntime{}
	start := time.Now()
	el.Drain(rt, start.Add(10*time.Millisecond), nil, nil)

	if time.Since(start) > time.Second {
		t.Error("Drain should not wait for a timer past the deadline")
	}
	if len(rt.fired) != 0 {
		t.Errorf("fired = %v, want none", rt.fired)
	}
	if !el.HasPending() {
		t.Error("timer past the deadline should stay pending")
	}
}

func TestEventLoop_DrainReportsCallbackErrors(t *testing.T) {
	el := New()
	id := el.RegisterTimer(0, false)
	el.RegisterTimer(0, false)

	rt := &recordingRuntime{failOn: id}
	var errs []error
	el.Drain(rt, time.Now().Add(time.Second), nil, func(err error) { errs = append(errs, err) })

	if len(rt.fired) != 2 {
		t.Errorf("fired = %v, want both timers", rt.fired)
	}
	if len(errs) != 1 {
		t.Errorf("errors = %v, want one", errs)
	}
}

func TestEventLoop_Reset(t *testing.T) {
	el := New()
	el.RegisterTimer(time.Hour, false)
	el.Reset()
	if el.HasPending() {
		t.Error("Reset should clear timers")
	}
	if id := el.RegisterTimer(0, false); id != 1 {
		t.Errorf("id after reset = %d, want 1", id)
	}
}

func TestEventLoop_DrainStopsWhenDone(t *testing.T) {
	el := New()
	el.RegisterTimer(0, false)
	el.RegisterTimer(0, false)

	rt := &recordingRuntime{}
	el.Drain(rt, time.Now().Add(time.Second), func() bool { return len(rt.fired) == 1 }, nil)

	if len(rt.fired) != 1 {
		t.Fatalf("fired = %v, want one timer", rt.fired)
	}
	if !el.HasPending() {
		t.Error("the second timer should stay pending")
	}
}

func TestEventLoop_DrainAtNowRunsOnlyOverdue(t *testing.T) {
	el := New()
	interval := el.RegisterTimer(minInterval, true)
	el.RegisterTimer(time.Hour, false)
	time.Sleep(2 * minInterval)

	rt := &recordingRuntime{}
	start := time.Now()
	el.Drain(rt, start, nil, nil)

	if time.Since(start) > 100*time.Millisecond {
		t.Errorf("Drain at now took %v, want no waiting", time.Since(start))
	}
	if len(rt.fired) != 1 || rt.fired[0] != interval {
		t.Fatalf("fired = %v, want the overdue interval once", rt.fired)
	}
	if !el.HasPending() {
		t.Error("interval and future timer should stay pending")
	}
}

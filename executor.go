package scripthost

import "github.com/cryguy/scripthost/internal/task"

// Executor runs submitted functions asynchronously. Host initialization,
// output channel creation and every evaluation are submitted to one.
type Executor = task.Executor

// SerialExecutor runs submitted functions one at a time in submission
// order on a dedicated goroutine. It is the executor a Host expects.
type SerialExecutor = task.SerialExecutor

// ErrExecutorClosed is returned when work is submitted to a closed
// SerialExecutor.
var ErrExecutorClosed = task.ErrClosed

// NewSerialExecutor starts a SerialExecutor. Close it after the hosts
// using it are closed.
func NewSerialExecutor() *SerialExecutor {
	return task.NewSerialExecutor()
}

package platform

import "sync"

// RunLoop executes scheduled tasks one at a time on a dedicated goroutine,
// modeling the host's main/UI execution context. Scheduling never blocks.
type RunLoop struct {
	mu      sync.Mutex
	tasks   chan func()
	stopped bool
	done    chan struct{}
}

// NewRunLoop creates and starts a run loop.
func NewRunLoop() *RunLoop {
	rl := &RunLoop{
		tasks: make(chan func(), 128),
		done:  make(chan struct{}),
	}
	go rl.run()

	return rl
}

// Schedule queues a task. Tasks scheduled after Stop (or beyond the queue
// capacity) are dropped.
func (rl *RunLoop) Schedule(task func()) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.stopped {
		return
	}

	select {
	case rl.tasks <- task:
	default:
	}
}

// Stop ends the loop after the already queued tasks have run. Idempotent.
func (rl *RunLoop) Stop() {
	rl.mu.Lock()
	if rl.stopped {
		rl.mu.Unlock()
		return
	}
	rl.stopped = true
	close(rl.tasks)
	rl.mu.Unlock()

	<-rl.done
}

func (rl *RunLoop) run() {
	defer close(rl.done)

	for task := range rl.tasks {
		task()
	}
}

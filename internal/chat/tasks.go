package chat

import (
	tea "github.com/charmbracelet/bubbletea"
)

// taskMsg carries a scheduler callback onto the bubbletea event loop.
type taskMsg struct {
	fn func()
}

// taskQueue hands timer callbacks from timer goroutines to Update. Bubbletea
// owns the loop, so callbacks are drained one per message by waitForTask.
type taskQueue struct {
	ch   chan func()
	done chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		ch:   make(chan func(), 64),
		done: make(chan struct{}),
	}
}

// dispatch is the LoopScheduler hook. It never blocks the timer goroutine
// for long: a full queue spills into a goroutine.
func (q *taskQueue) dispatch(fn func()) {
	select {
	case q.ch <- fn:
	case <-q.done:
	default:
		go func() {
			select {
			case q.ch <- fn:
			case <-q.done:
			}
		}()
	}
}

func (q *taskQueue) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case fn := <-q.ch:
			return taskMsg{fn: fn}
		case <-q.done:
			return nil
		}
	}
}

func (q *taskQueue) close() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}

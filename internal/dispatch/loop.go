// Package dispatch provides the execution contexts of the backing store.
//
// A Loop owns one goroutine and accepts work on two channels:
//
//   - Post appends to an unbounded mailbox and returns at once. It carries
//     ordinary invalidation and repaint requests.
//   - Call hands a function to the loop and blocks until it has run. It is
//     reserved for rendezvous, such as editing state the other goroutine may
//     be reading.
//
// Calls are served before mailbox messages. Between messages the loop runs
// an optional idle hook, which is how the paint loop drains its render
// queue one job at a time without starving incoming requests.
package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Call after Close.
var ErrClosed = errors.New("dispatch: loop closed")

// IdleFunc runs when the mailbox is empty. It returns true to be run again
// before the loop blocks.
type IdleFunc func() (more bool)

type call struct {
	fn   func()
	done chan struct{}
}

// Loop is a single-goroutine execution context.
//
// Thread safety: Post, Call, Wake and Close are safe for concurrent use.
// Work running on the loop may Post to it but must not Call or Close it.
type Loop struct {
	name string

	// mu guards mailbox.
	mu      sync.Mutex
	mailbox []func()

	// wake has capacity one; a pending token means "look at the mailbox".
	wake  chan struct{}
	calls chan call
	done  chan struct{}

	idle    IdleFunc
	running atomic.Bool
	wg      sync.WaitGroup
	closing sync.Once
}

// New starts a loop. idle may be nil.
func New(name string, idle IdleFunc) *Loop {
	l := &Loop{
		name:  name,
		wake:  make(chan struct{}, 1),
		calls: make(chan call),
		done:  make(chan struct{}),
		idle:  idle,
	}
	l.running.Store(true)
	l.wg.Add(1)
	go l.run()
	return l
}

// Name returns the loop name.
func (l *Loop) Name() string {
	return l.name
}

// Post queues fn on the mailbox. It never blocks. Work posted after Close is
// dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil || !l.running.Load() {
		return
	}
	l.mu.Lock()
	l.mailbox = append(l.mailbox, fn)
	l.mu.Unlock()
	l.Wake()
}

// Wake makes the loop run its idle hook even if no message arrives.
func (l *Loop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for it to finish. It must not be
// called from the loop's own goroutine.
func (l *Loop) Call(fn func()) error {
	if fn == nil {
		return nil
	}
	if !l.running.Load() {
		return ErrClosed
	}
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case l.calls <- c:
	case <-l.done:
		return ErrClosed
	}
	<-c.done
	return nil
}

// Close drains the mailbox, stops the loop and waits for it to exit.
// Calls not yet accepted return ErrClosed. Close must not be called from
// the loop's own goroutine.
func (l *Loop) Close() {
	l.closing.Do(func() {
		l.running.Store(false)
		close(l.done)
	})
	l.wg.Wait()
}

func (l *Loop) run() {
	defer l.wg.Done()

	for {
		// Calls first.
		select {
		case c := <-l.calls:
			l.serve(c)
			continue
		default:
		}

		if fn := l.pop(); fn != nil {
			fn()
			continue
		}

		if l.idle != nil && l.idle() {
			select {
			case <-l.done:
				l.drain()
				return
			default:
			}
			continue
		}

		select {
		case c := <-l.calls:
			l.serve(c)
		case <-l.wake:
		case <-l.done:
			l.drain()
			return
		}
	}
}

func (l *Loop) serve(c call) {
	defer close(c.done)
	c.fn()
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.mailbox) == 0 {
		return nil
	}
	fn := l.mailbox[0]
	l.mailbox[0] = nil
	l.mailbox = l.mailbox[1:]
	return fn
}

// drain executes all remaining mailbox work before exiting.
func (l *Loop) drain() {
	for {
		fn := l.pop()
		if fn == nil {
			return
		}
		fn()
	}
}

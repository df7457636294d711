package tilestore

import (
	"context"
	"sync"
	"sync/atomic"
)

// ResumeOp is the work requested when a suspended store resumes.
// Stronger operations include the weaker ones.
type ResumeOp int32

const (
	// ResumeNone resumes queue draining only.
	ResumeNone ResumeOp = iota

	// ResumeBlit blits the visible contents.
	ResumeBlit

	// ResumeRenderAndBlit renders the visible rect and then blits it.
	ResumeRenderAndBlit
)

// String returns the operation name.
func (op ResumeOp) String() string {
	switch op {
	case ResumeNone:
		return "None"
	case ResumeBlit:
		return "Blit"
	case ResumeRenderAndBlit:
		return "RenderAndBlit"
	default:
		return "Unknown"
	}
}

// suspender is a nesting suspend counter.
//
// depth and the strongest pending op are atomics. mu orders the innermost
// leave against raiseIfSuspended, so an op raised during a span is never
// carried into the next one; cond is used by wait.
type suspender struct {
	depth   atomic.Int32
	pending atomic.Int32

	mu   sync.Mutex
	cond *sync.Cond
}

func newSuspender() *suspender {
	p := &suspender{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *suspender) enter() {
	p.depth.Add(1)
}

// suspended reports whether at least one Suspend is outstanding.
func (p *suspender) suspended() bool {
	return p.depth.Load() > 0
}

// raise records op if it is stronger than the pending one.
func (p *suspender) raise(op ResumeOp) {
	for {
		cur := p.pending.Load()
		if int32(op) <= cur || p.pending.CompareAndSwap(cur, int32(op)) {
			return
		}
	}
}

// raiseIfSuspended records op for the current span and reports true, or
// reports false when no Suspend is outstanding.
func (p *suspender) raiseIfSuspended(op ResumeOp) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.suspended() {
		return false
	}
	p.raise(op)
	return true
}

// leave records op and decrements the depth. On the innermost leave it
// returns the strongest op recorded during the span and true.
func (p *suspender) leave(op ResumeOp) (ResumeOp, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := p.depth.Add(-1)
	switch {
	case d > 0:
		p.raise(op)
		return ResumeNone, false
	case d < 0:
		p.depth.CompareAndSwap(d, 0)
		Logger().Warn("tilestore: unbalanced Resume")
		return ResumeNone, false
	}

	final := max(op, ResumeOp(p.pending.Swap(int32(ResumeNone))))
	p.cond.Broadcast()
	return final, true
}

// wait blocks until the depth drops to zero or ctx is done.
func (p *suspender) wait(ctx context.Context) error {
	if !p.suspended() {
		return nil
	}
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.suspended() {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.cond.Wait()
	}
	return nil
}

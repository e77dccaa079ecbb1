package rnnoise

import (
	"context"
	"sync"
)

// pool runs jobs on a fixed set of goroutines fed by a bounded queue.
type pool struct {
	jobs chan job
	quit chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

type job struct {
	ctx  context.Context
	fn   func(context.Context) ([]byte, error)
	done chan result
}

type result struct {
	out []byte
	err error
}

func newPool(workers, queue int) *pool {
	p := &pool{
		jobs: make(chan job, max(0, queue)),
		quit: make(chan struct{}),
	}
	for range max(1, workers) {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

func (p *pool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case j := <-p.jobs:
			// The submitter may have given up while the job sat in the queue.
			if err := j.ctx.Err(); err != nil {
				j.done <- result{err: err}
				continue
			}
			out, err := j.fn(j.ctx)
			j.done <- result{out: out, err: err}
		}
	}
}

// submit queues fn and waits for its result. It returns early when ctx is
// done or the pool is closed.
func (p *pool) submit(ctx context.Context, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	j := job{ctx: ctx, fn: fn, done: make(chan result, 1)}

	select {
	case <-p.quit:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		return nil, ErrPoolClosed
	}

	select {
	case r := <-j.done:
		return r.out, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		// A worker may still deliver; prefer a finished result.
		select {
		case r := <-j.done:
			return r.out, r.err
		default:
			return nil, ErrPoolClosed
		}
	}
}

// close stops the workers after their current job and waits for them.
// Submitters of jobs that never started get ErrPoolClosed.
func (p *pool) close() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

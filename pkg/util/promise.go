package util

import (
	"context"
	"errors"
)

var ErrResolve = errors.New("promise resolved")

// Promise settles once, either resolved or rejected with a cause.
type Promise struct {
	context.Context
	context.CancelCauseFunc
}

func NewPromise(ctx context.Context) *Promise {
	p := &Promise{}
	p.Context, p.CancelCauseFunc = context.WithCancelCause(ctx)
	return p
}

func (p *Promise) Resolve() {
	p.Fulfill(nil)
}

func (p *Promise) Reject(err error) {
	p.Fulfill(err)
}

func (p *Promise) Fulfill(err error) {
	p.CancelCauseFunc(Conditional(err == nil, ErrResolve, err))
}

func (p *Promise) IsPending() bool {
	return context.Cause(p.Context) == nil
}

func (p *Promise) IsRejected() bool {
	return !p.IsPending() && context.Cause(p.Context) != ErrResolve
}

func (p *Promise) Await() (err error) {
	<-p.Done()
	err = context.Cause(p.Context)
	if errors.Is(err, ErrResolve) {
		err = nil
	}
	return
}

package pool

import (
	"context"
)

// QueryKind distinguishes read and write statements in the middleware chain.
type QueryKind int

const (
	KindQuery QueryKind = iota
	KindExec
)

// Query describes one statement travelling through the middleware chain.
type Query struct {
	SQL  string
	Args []any
	Kind QueryKind
}

// QueryFunc is the next step in the middleware chain.
type QueryFunc func(ctx context.Context, q *Query) (*Result, error)

// Middleware intercepts the pool's Query/Exec path. Init runs when the
// middleware is installed; Shutdown runs when the pool drains.
type Middleware interface {
	Name() string
	Init(p *Pool) error
	Shutdown() error
	Process(ctx context.Context, q *Query, next QueryFunc) (*Result, error)
}

// Use installs a middleware at the end of the chain. Not safe to call
// concurrently with Query/Exec; install middlewares before serving traffic.
func (p *Pool) Use(mw Middleware) error {
	if err := mw.Init(p); err != nil {
		return err
	}
	p.middlewares = append(p.middlewares, mw)
	return nil
}

// chain wraps the terminal executor with the installed middlewares,
// outermost first.
func (p *Pool) chain(final QueryFunc) QueryFunc {
	next := final
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		mw := p.middlewares[i]
		inner := next
		next = func(ctx context.Context, q *Query) (*Result, error) {
			return mw.Process(ctx, q, inner)
		}
	}
	return next
}

func (p *Pool) shutdownMiddlewares() {
	for _, mw := range p.middlewares {
		if err := mw.Shutdown(); err != nil {
			p.log.Warn("middleware %s shutdown: %v", mw.Name(), err)
		}
	}
}

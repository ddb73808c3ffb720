package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx carries the LogCtx of the place where an error happened
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string {
	return e.err.Error()
}

func (e *errorWithLogCtx) Unwrap() error {
	return e.err
}

// Error wraps err with the current LogCtx from ctx.
// An already wrapped error keeps its chain and only has its LogCtx refreshed.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	lc := FromContext(ctx)

	var e *errorWithLogCtx
	if errors.As(err, &e) {
		return &errorWithLogCtx{err: err, logCtx: lc}
	}

	return &errorWithLogCtx{
		err:    err,
		logCtx: lc,
	}
}

// ErrorCtx restores the LogCtx stored in err into ctx so the log line
// points at where the error happened, not where it was logged.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if errors.As(err, &e) && e != nil {
		return context.WithValue(ctx, LogCtxKey, e.logCtx)
	}
	return ctx
}

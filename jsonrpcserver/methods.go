package jsonrpcserver

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrMissingArgument  = errors.New("missing argument")
	ErrTooManyArguments = errors.New("too many arguments")
)

// MethodHandler decodes positional JSON params and invokes the wrapped
// function. Implementations come from the Method constructors below.
type MethodHandler interface {
	call(ctx context.Context, params []json.RawMessage) (any, error)
}

type method1[P, R any] struct {
	fn func(context.Context, P) (R, error)
}

type method0[R any] struct {
	fn func(context.Context) (R, error)
}

// Method wraps a single-argument function into a MethodHandler.
func Method[P, R any](fn func(context.Context, P) (R, error)) MethodHandler {
	return method1[P, R]{fn: fn}
}

// Method0 wraps an argument-less function into a MethodHandler.
func Method0[R any](fn func(context.Context) (R, error)) MethodHandler {
	return method0[R]{fn: fn}
}

func (m method1[P, R]) call(ctx context.Context, params []json.RawMessage) (any, error) {
	if len(params) < 1 {
		return nil, ErrMissingArgument
	}
	if len(params) > 1 {
		return nil, ErrTooManyArguments
	}
	var arg P
	if err := json.Unmarshal(params[0], &arg); err != nil {
		return nil, err
	}
	return m.fn(ctx, arg)
}

func (m method0[R]) call(ctx context.Context, params []json.RawMessage) (any, error) {
	if len(params) > 0 {
		return nil, ErrTooManyArguments
	}
	return m.fn(ctx)
}

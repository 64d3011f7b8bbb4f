package nif

import (
	goerrors "errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/atom"
	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/term"
	"github.com/wippyai/nif-runtime/transcoder"
)

// UnknownMessage is raised for panics that carry no error.
const UnknownMessage = "unknown exception thrown within NIF"

// ArgumentError is raised when arguments cannot be decoded.
type ArgumentError struct {
	Message string
}

func (ArgumentError) TermStruct() atom.Atom { return argumentErrorTag }
func (ArgumentError) TermException()        {}

// RuntimeError is raised for every other failure.
type RuntimeError struct {
	Message string
}

func (RuntimeError) TermStruct() atom.Atom { return runtimeErrorTag }
func (RuntimeError) TermException()        {}

var (
	argumentErrorTag = atom.New("Elixir.ArgumentError")
	runtimeErrorTag  = atom.New("Elixir.RuntimeError")
)

// RaisedError carries a term to raise as is.
type RaisedError struct {
	Reason term.Term
}

func (e *RaisedError) Error() string {
	return "raised " + e.Reason.String()
}

// Raise encodes v and returns it as an error the dispatcher raises
// unchanged. Return it from a function or panic with it. When v cannot be
// encoded the encode error is returned instead.
func Raise(env nifruntime.Env, v any) error {
	reason, err := transcoder.EncodeValue(env, v)
	if err != nil {
		return err
	}
	return &RaisedError{Reason: reason}
}

// Classify maps a failure, either a returned error or a recovered panic
// value, to the exception reason the host should raise.
func Classify(env nifruntime.Env, failure any) term.Term {
	switch f := failure.(type) {
	case *RaisedError:
		return f.Reason
	case runtime.Error:
		return exception(env, RuntimeError{Message: UnknownMessage})
	case error:
		return classifyError(env, f)
	}
	return exception(env, RuntimeError{Message: UnknownMessage})
}

func classifyError(env nifruntime.Env, err error) term.Term {
	var raised *RaisedError
	if goerrors.As(err, &raised) {
		return raised.Reason
	}

	var e *errors.Error
	if !goerrors.As(err, &e) {
		return exception(env, RuntimeError{Message: err.Error()})
	}

	switch {
	case e.Kind == errors.KindArity:
		return message(env, e.Message())
	case e.Phase == errors.PhaseDecode:
		return exception(env, ArgumentError{Message: e.Message()})
	}
	return exception(env, RuntimeError{Message: e.Message()})
}

// exception builds the exception map, falling back to the bare message
// binary when the map cannot be built.
func exception(env nifruntime.Env, exc transcoder.Exception) term.Term {
	t, err := transcoder.EncodeValue(env, exc)
	if err == nil {
		return t
	}
	Logger().Warn("building exception failed, raising message",
		zap.String("exception", exc.TermStruct().Name()),
		zap.Error(err))
	return message(env, messageOf(exc))
}

func message(env nifruntime.Env, msg string) term.Term {
	t, err := env.MakeBinary([]byte(msg))
	if err == nil {
		return t
	}
	Logger().Error("raising message failed", zap.String("message", msg), zap.Error(err))
	if a, err := atom.Resolve(env, atom.Error); err == nil {
		return a
	}
	return term.NewAtom(atom.Error.Name())
}

func messageOf(exc transcoder.Exception) string {
	switch e := exc.(type) {
	case ArgumentError:
		return e.Message
	case RuntimeError:
		return e.Message
	}
	return fmt.Sprint(exc)
}

package nif

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/atom"
	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/term"
	"github.com/wippyai/nif-runtime/transcoder"
)

var (
	envType   = reflect.TypeFor[nifruntime.Env]()
	errorType = reflect.TypeFor[error]()
)

// Handler adapts a Go function to the host call entry.
//
// Accepted shapes, with an optional leading nifruntime.Env:
//
//	func(args...)
//	func(args...) R
//	func(args...) error
//	func(args...) (R, error)
//
// Arguments are decoded with their compiled plans, the function runs, and
// R is encoded as the result. A function without R returns the atom ok.
// Every failure along the way, panics included, is raised as an exception.
// Resource handles decoded from arguments, and those in R once it is
// encoded, are released when the call returns. Clone an argument handle to
// keep it or to return it.
type Handler struct {
	argsPool  sync.Pool
	compiler  *transcoder.Compiler
	fn        reflect.Value
	name      string
	params    []*transcoder.CompiledType
	result    *transcoder.CompiledType
	arity     int
	hasEnv    bool
	hasResult bool
	hasErr    bool
}

// NewHandler compiles fn for dispatch under name.
func NewHandler(name string, fn any) (*Handler, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Path(name).
			GoType(fmt.Sprintf("%T", fn)).
			Detail("handler must be a function").
			Build()
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return nil, errors.New(errors.PhaseRegister, errors.KindUnsupported).
			Path(name).
			GoType(ft.String()).
			Detail("variadic handlers are not supported").
			Build()
	}

	h := &Handler{
		compiler: transcoder.Default,
		fn:       fv,
		name:     name,
		hasEnv:   ft.NumIn() > 0 && ft.In(0) == envType,
	}

	first := 0
	if h.hasEnv {
		first = 1
	}
	for i := first; i < ft.NumIn(); i++ {
		ct, err := h.compiler.Compile(ft.In(i))
		if err == nil {
			err = ct.CanDecode()
		}
		if err != nil {
			return nil, notDispatchable(name, fmt.Sprintf("argument %d", i-first), err)
		}
		h.params = append(h.params, ct)
	}
	h.arity = len(h.params)

	if err := h.compileResults(ft); err != nil {
		return nil, err
	}

	numIn := ft.NumIn()
	h.argsPool = sync.Pool{
		New: func() any {
			s := make([]reflect.Value, numIn)
			return &s
		},
	}
	return h, nil
}

func (h *Handler) compileResults(ft reflect.Type) error {
	bad := func(detail string) error {
		return errors.New(errors.PhaseRegister, errors.KindUnsupported).
			Path(h.name).
			GoType(ft.String()).
			Detail("%s", detail).
			Build()
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			h.hasErr = true
			return nil
		}
		h.hasResult = true
	case 2:
		if ft.Out(1) != errorType {
			return bad("second result must be error")
		}
		h.hasResult, h.hasErr = true, true
	default:
		return bad("handlers return at most a value and an error")
	}

	if h.hasResult {
		ct, err := h.compiler.Compile(ft.Out(0))
		if err == nil {
			err = ct.CanEncode()
		}
		if err != nil {
			return notDispatchable(h.name, "result", err)
		}
		h.result = ct
	}
	return nil
}

func notDispatchable(name, what string, cause error) error {
	return errors.New(errors.PhaseRegister, errors.KindRegistration).
		Path(name).
		Cause(cause).
		Detail("%s cannot be marshalled", what).
		Build()
}

func (h *Handler) Name() string { return h.name }
func (h *Handler) Arity() int   { return h.arity }

// Entry returns the raw host entry point.
func (h *Handler) Entry() nifruntime.EntryPoint {
	return h.Call
}

// Call runs the handler for one host call.
func (h *Handler) Call(env nifruntime.Env, argv []term.Term) (result term.Term) {
	if len(argv) != h.arity {
		Logger().Debug("wrong number of arguments",
			zap.String("func", h.name),
			zap.Int("want", h.arity),
			zap.Int("got", len(argv)))
		return env.RaiseException(Classify(env, errors.Arity(h.name, h.arity, len(argv))))
	}

	argsPtr := h.argsPool.Get().(*[]reflect.Value)
	args := *argsPtr
	decoded := 0
	first := 0
	if h.hasEnv {
		args[0] = reflect.ValueOf(env)
		first = 1
	}

	defer func() {
		r := recover()
		for i := 0; i < decoded; i++ {
			h.compiler.Release(args[first+i])
		}
		var zero reflect.Value
		for i := range args {
			args[i] = zero
		}
		h.argsPool.Put(argsPtr)

		if r != nil {
			Logger().Error("panic in native function",
				zap.String("func", h.name),
				zap.Any("panic", r),
				zap.Stack("stack"))
			result = env.RaiseException(Classify(env, r))
		}
	}()

	for i, ct := range h.params {
		slot := reflect.New(ct.GoType).Elem()
		if err := h.compiler.Decode(env, argv[i], slot); err != nil {
			return h.fail(env, err, i)
		}
		args[first+i] = slot
		decoded++
	}

	out := h.fn.Call(args)

	if h.hasErr {
		if errv := out[len(out)-1]; !errv.IsNil() {
			return h.fail(env, errv.Interface().(error), -1)
		}
	}
	if !h.hasResult {
		ok, err := atom.Resolve(env, atom.OK)
		if err != nil {
			return h.fail(env, errors.AllocationFailed(errors.PhaseEncode, "atom ok", err), -1)
		}
		return ok
	}

	res := out[0]
	if h.result.HasResource {
		res = reflect.New(h.result.GoType).Elem()
		res.Set(out[0])
		defer h.compiler.Release(res)
	}
	t, err := h.compiler.Encode(env, res)
	if err != nil {
		return h.fail(env, err, -1)
	}
	return t
}

func (h *Handler) fail(env nifruntime.Env, err error, arg int) term.Term {
	fields := []zap.Field{zap.String("func", h.name), zap.Error(err)}
	if arg >= 0 {
		fields = append(fields, zap.Int("arg", arg))
	}
	Logger().Debug("native function raised", fields...)
	return env.RaiseException(Classify(env, err))
}

// Wrap compiles fn into a host entry point. It panics when fn cannot be
// dispatched.
func Wrap(name string, fn any) nifruntime.EntryPoint {
	h, err := NewHandler(name, fn)
	if err != nil {
		panic(err)
	}
	return h.Entry()
}

package main

import (
	"context"
	"strings"
	"sync"

	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/runtime"
	"github.com/wippyai/nif-runtime/term"
)

// call is one parsed module:fn(args) expression.
type call struct {
	module string
	fn     string
	args   []term.Term
}

// session runs calls against a runtime and keeps variable bindings that
// later calls reference as $name. The last result is bound to $_.
type session struct {
	rt   *runtime.Runtime
	vars map[string]term.Term
	mu   sync.Mutex
}

func newSession(rt *runtime.Runtime) *session {
	return &session{rt: rt, vars: make(map[string]term.Term)}
}

func (s *session) lookup(name string) (term.Term, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.vars[name]
	return t, ok
}

func (s *session) bind(name string, t term.Term) {
	s.mu.Lock()
	s.vars[name] = t
	s.mu.Unlock()
}

// parse reads module:fn(arg, ...). The parentheses may be omitted for a
// call without arguments.
func (s *session) parse(expr string) (call, error) {
	expr = strings.TrimSpace(expr)
	colon := strings.IndexByte(expr, ':')
	if colon <= 0 {
		return call{}, errors.InvalidInput(errors.PhaseParse, "expected module:function(args), got "+quote(expr))
	}
	c := call{module: expr[:colon]}
	rest := expr[colon+1:]

	open := strings.IndexByte(rest, '(')
	if open < 0 {
		c.fn = strings.TrimSpace(rest)
	} else {
		if !strings.HasSuffix(rest, ")") {
			return call{}, errors.InvalidInput(errors.PhaseParse, "missing ')' in "+quote(expr))
		}
		c.fn = strings.TrimSpace(rest[:open])
		args, err := term.ParseArgs(rest[open+1:len(rest)-1], s.lookup)
		if err != nil {
			return call{}, err
		}
		c.args = args
	}
	if c.fn == "" {
		return call{}, errors.InvalidInput(errors.PhaseParse, "missing function name in "+quote(expr))
	}
	return c, nil
}

func (s *session) run(ctx context.Context, expr string) (term.Term, error) {
	c, err := s.parse(expr)
	if err != nil {
		return nil, err
	}
	out, err := s.rt.Call(ctx, c.module, c.fn, c.args...)
	if err != nil {
		return nil, err
	}
	s.bind("_", out)
	return out, nil
}

func quote(s string) string {
	return "\"" + s + "\""
}

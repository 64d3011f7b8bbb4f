package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/nif-runtime/errors"
	"github.com/wippyai/nif-runtime/runtime"
	"github.com/wippyai/nif-runtime/term"
)

// script is a YAML list of steps:
//
//	steps:
//	  - call: kvstore:new("users")
//	    as: store
//	  - call: kvstore:put($store, "a", "1")
//	  - batch:
//	      - kvstore:get($store, "a")
//	      - kvstore:keys($store)
//	  - call: kvstore:fetch($store, "b")
//	    expect_error: true
type script struct {
	Steps []step `yaml:"steps"`
}

type step struct {
	Call        string   `yaml:"call"`
	As          string   `yaml:"as"`
	Batch       []string `yaml:"batch"`
	ExpectError bool     `yaml:"expect_error"`
}

func loadScript(path string) (*script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.ParseFailed("script "+path, err)
	}
	for i, st := range s.Steps {
		if (st.Call == "") == (len(st.Batch) == 0) {
			return nil, errors.InvalidInput(errors.PhaseParse, fmt.Sprintf("step %d needs exactly one of call or batch", i+1))
		}
	}
	return &s, nil
}

// runScript executes the steps in order and prints each result. It stops
// at the first unexpected failure.
func runScript(ctx context.Context, sess *session, s *script, out io.Writer, log *zap.Logger) error {
	for i, st := range s.Steps {
		if len(st.Batch) > 0 {
			if err := runBatch(ctx, sess, st.Batch, out); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			continue
		}

		res, err := sess.run(ctx, st.Call)
		switch {
		case err != nil && st.ExpectError:
			fmt.Fprintf(out, "%s ! %v\n", st.Call, err)
			continue
		case err != nil:
			return fmt.Errorf("step %d: %s: %w", i+1, st.Call, err)
		case st.ExpectError:
			return fmt.Errorf("step %d: %s succeeded with %s, expected an error", i+1, st.Call, res)
		}
		if st.As != "" {
			sess.bind(st.As, res)
		}
		fmt.Fprintf(out, "%s = %s\n", st.Call, res)
		log.Debug("step done", zap.Int("step", i+1), zap.String("call", st.Call))
	}
	return nil
}

func runBatch(ctx context.Context, sess *session, exprs []string, out io.Writer) error {
	reqs := make([]runtime.Request, len(exprs))
	for i, expr := range exprs {
		c, err := sess.parse(expr)
		if err != nil {
			return err
		}
		reqs[i] = runtime.Request{Module: c.module, Func: c.fn, Args: c.args}
	}

	var failed int
	for i, r := range sess.rt.CallBatch(ctx, reqs) {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "%s ! %v\n", exprs[i], r.Err)
			continue
		}
		fmt.Fprintf(out, "%s = %s\n", exprs[i], r.Value)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d batch calls failed", failed, len(exprs))
	}
	return nil
}

func formatResult(t term.Term, err error) string {
	if err != nil {
		return "! " + err.Error()
	}
	return t.String()
}

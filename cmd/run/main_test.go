package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/wippyai/nif-runtime/runtime"
	"github.com/wippyai/nif-runtime/term"
)

func testRuntime(t *testing.T) *runtime.Runtime {
	t.Helper()
	cfg := runtime.DefaultConfig()
	rt, err := startRuntime(&cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("startRuntime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestSession_Parse(t *testing.T) {
	sess := newSession(nil)
	sess.bind("x", term.Int(9))

	tests := []struct {
		expr   string
		module string
		fn     string
		args   string
		err    bool
	}{
		{expr: "host:node", module: "host", fn: "node", args: "[]"},
		{expr: "host:node()", module: "host", fn: "node", args: "[]"},
		{expr: ` host:echo({a, "b", 1}) `, module: "host", fn: "echo", args: `[{a, "b", 1}]`},
		{expr: "kvstore:put($x, 2)", module: "kvstore", fn: "put", args: "[9, 2]"},
		{expr: "echo(1)", err: true},
		{expr: ":echo(1)", err: true},
		{expr: "host:(1)", err: true},
		{expr: "host:echo(1", err: true},
		{expr: "host:echo($missing)", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := sess.parse(tt.expr)
			if tt.err {
				if err == nil {
					t.Fatalf("parse(%q) succeeded", tt.expr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse(%q): %v", tt.expr, err)
			}
			if c.module != tt.module || c.fn != tt.fn {
				t.Errorf("parsed %s:%s, want %s:%s", c.module, c.fn, tt.module, tt.fn)
			}
			if got := term.List(c.args).String(); got != tt.args {
				t.Errorf("args = %s, want %s", got, tt.args)
			}
		})
	}
}

func TestSession_Run(t *testing.T) {
	sess := newSession(testRuntime(t))
	ctx := context.Background()

	got, err := sess.run(ctx, `host:echo([1, 2])`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.String() != "[1, 2]" {
		t.Errorf("echo = %s", got)
	}
	got, err = sess.run(ctx, `host:echo($_)`)
	if err != nil || got.String() != "[1, 2]" {
		t.Errorf("echo($_) = %v, %v", got, err)
	}
	if _, err := sess.run(ctx, "host:missing()"); err == nil {
		t.Error("call to a missing function succeeded")
	}
}

func TestScript(t *testing.T) {
	sess := newSession(testRuntime(t))
	path := filepath.Join(t.TempDir(), "steps.yaml")
	src := `steps:
  - call: kvstore:new("users")
    as: store
  - call: kvstore:put($store, "a", "1")
  - batch:
      - kvstore:get($store, "a")
      - kvstore:keys($store)
      - host:sleep(1)
  - call: kvstore:fetch($store, "b")
    expect_error: true
`
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := loadScript(path)
	if err != nil {
		t.Fatalf("loadScript: %v", err)
	}
	var out bytes.Buffer
	if err := runScript(context.Background(), sess, s, &out, zap.NewNop()); err != nil {
		t.Fatalf("runScript: %v\n%s", err, out.String())
	}

	for _, want := range []string{
		`kvstore:get($store, "a") = "1"`,
		`kvstore:keys($store) = ["a"]`,
		`host:sleep(1) = ok`,
		`kvstore:fetch($store, "b") ! `,
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestScript_Failures(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(src), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}

	if _, err := loadScript(write("both.yaml", "steps:\n  - call: host:node\n    batch: [host:node]\n")); err == nil {
		t.Error("step with call and batch accepted")
	}
	if _, err := loadScript(write("bad.yaml", "steps: [")); err == nil {
		t.Error("malformed yaml accepted")
	}

	sess := newSession(testRuntime(t))
	tests := []string{
		"steps:\n  - call: host:nope()\n",
		"steps:\n  - call: host:node()\n    expect_error: true\n",
		"steps:\n  - batch: [host:node(), host:nope()]\n",
	}
	for i, src := range tests {
		s, err := loadScript(write("s.yaml", src))
		if err != nil {
			t.Fatalf("script %d: %v", i, err)
		}
		if err := runScript(context.Background(), sess, s, &bytes.Buffer{}, zap.NewNop()); err == nil {
			t.Errorf("script %d succeeded", i)
		}
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("NIF_NODE", "env@host")
	t.Setenv("NIF_BATCH_CONCURRENCY", "3")

	cfg, err := loadConfig("", "", "debug")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Node != "env@host" || cfg.BatchConcurrency != 3 || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}

	cfg, err = loadConfig("", "flag@host", "")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Node != "flag@host" {
		t.Errorf("flag did not win over env: %s", cfg.Node)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger("warn"); err != nil {
		t.Errorf("newLogger(warn): %v", err)
	}
	if _, err := newLogger("loud"); err == nil {
		t.Error("newLogger accepted an unknown level")
	}
}

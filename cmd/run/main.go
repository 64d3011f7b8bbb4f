package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/xyproto/env/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/nif-runtime/examples/kvstore"
	"github.com/wippyai/nif-runtime/nif"
	"github.com/wippyai/nif-runtime/resource"
	"github.com/wippyai/nif-runtime/runtime"
)

func main() {
	var (
		configFile  = flag.String("config", env.Str("NIF_CONFIG"), "Host configuration file (yaml, toml or json)")
		node        = flag.String("node", "", "Node name, overrides the config")
		logLevel    = flag.String("log-level", "", "Log level: debug, info, warn or error")
		callExpr    = flag.String("call", "", `Call to run, e.g. 'kvstore:new("users")'`)
		scriptFile  = flag.String("script", "", "YAML script of calls to run")
		list        = flag.Bool("list", false, "List loaded modules and functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *callExpr == "" && *scriptFile == "" && !*list && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: run [-config host.yaml] -call 'module:fn(args)'")
		fmt.Fprintln(os.Stderr, "       run -script steps.yaml")
		fmt.Fprintln(os.Stderr, "       run -list")
		fmt.Fprintln(os.Stderr, "       run -i  (interactive mode)")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile, *node, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		// The TUI owns the terminal; keep logs off it.
		cfg.LogLevel = "error"
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	rt, err := startRuntime(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	if err := run(rt, log, *callExpr, *scriptFile, *list, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		rt.Close()
		os.Exit(1)
	}
}

// loadConfig reads the config file, then applies NIF_* environment
// variables, then flags.
func loadConfig(path, node, level string) (*runtime.Config, error) {
	cfg, err := runtime.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.Node = env.Str("NIF_NODE", cfg.Node)
	cfg.LogLevel = env.Str("NIF_LOG_LEVEL", cfg.LogLevel)
	cfg.AtomEncoding = env.Str("NIF_ATOM_ENCODING", cfg.AtomEncoding)
	cfg.BatchConcurrency = env.Int("NIF_BATCH_CONCURRENCY", cfg.BatchConcurrency)
	if node != "" {
		cfg.Node = node
	}
	if level != "" {
		cfg.LogLevel = level
	}
	return cfg, cfg.Validate()
}

// newLogger writes colored console logs to a terminal and JSON otherwise.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zc.Build()
}

func startRuntime(cfg *runtime.Config, log *zap.Logger) (*runtime.Runtime, error) {
	nif.SetLogger(log.Named("nif"))
	resource.SetLogger(log.Named("resource"))

	rt, err := runtime.New(*cfg, runtime.WithLogger(log))
	if err != nil {
		return nil, err
	}
	for _, m := range []*nif.Module{hostModule(rt), kvstore.Module()} {
		if _, err := rt.Load(m.Entry()); err != nil {
			rt.Close()
			return nil, fmt.Errorf("load %s: %w", m.Name(), err)
		}
	}
	return rt, nil
}

func run(rt *runtime.Runtime, log *zap.Logger, callExpr, scriptFile string, list, interactive bool) error {
	ctx := context.Background()
	sess := newSession(rt)

	switch {
	case interactive:
		return runInteractive(sess)
	case list:
		listModules(rt)
		return nil
	case scriptFile != "":
		s, err := loadScript(scriptFile)
		if err != nil {
			return err
		}
		return runScript(ctx, sess, s, os.Stdout, log)
	}

	res, err := sess.run(ctx, callExpr)
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func listModules(rt *runtime.Runtime) {
	for _, name := range rt.Modules() {
		m, _ := rt.Module(name)
		fmt.Printf("%s:\n", name)
		for _, f := range m.Funcs() {
			flags := ""
			if f.Flags.Dirty() {
				flags = " [" + f.Flags.String() + "]"
			}
			fmt.Printf("  %s/%d%s\n", f.Name, f.Arity, flags)
		}
	}
	if locks := rt.Locks(); len(locks) > 0 {
		var names []string
		for _, l := range locks {
			names = append(names, l.Name)
		}
		fmt.Printf("locks: %s\n", strings.Join(names, ", "))
	}
}

package main

import (
	"time"

	nifruntime "github.com/wippyai/nif-runtime"
	"github.com/wippyai/nif-runtime/nif"
	"github.com/wippyai/nif-runtime/runtime"
	"github.com/wippyai/nif-runtime/term"
)

// hostModule exposes a few functions for poking at the runtime.
func hostModule(rt *runtime.Runtime) *nif.Module {
	return nif.NewModule("host").
		Export("echo", nifruntime.FlagNone, func(t term.Term) term.Term { return t }).
		Export("node", nifruntime.FlagNone, func(env nifruntime.Env) string { return env.SelfNode() }).
		Export("stats", nifruntime.FlagNone, func() runtime.Stats { return rt.Stats() }).
		Export("sleep", nifruntime.FlagDirtyIO, func(ms uint32) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// runCmd tree-walk-interprets a file, following cmd_run.go's Name/
// Synopsis/Usage/Execute shape generalized to loom/runtime.Runtime.
type runCmd struct {
	verbose bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute a Loom source file with the tree-walk interpreter" }
func (*runCmd) Usage() string    { return "run [-v] <file>\n" }
func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.verbose, "v", false, "log module loads and panics as structured fields")
}

func (r *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, text, ok := readSourceArg(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	rt := newRuntime(r.verbose)
	mod, diags := rt.Compile(path, text)
	for _, d := range diags.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if diags.HasErrors() {
		return subcommands.ExitFailure
	}
	if err := rt.Run(mod); err != nil {
		fmt.Fprintf(os.Stderr, "💥 %s\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// runCompiledCmd compiles to bytecode and executes on the VM, following
// cmd_run_compiled.go's shape.
type runCompiledCmd struct {
	verbose bool
}

func (*runCompiledCmd) Name() string { return "runc" }
func (*runCompiledCmd) Synopsis() string {
	return "Execute a Loom source file with the bytecode VM"
}
func (*runCompiledCmd) Usage() string { return "runc [-v] <file>\n" }
func (r *runCompiledCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.verbose, "v", false, "log compiled-module runs as structured fields")
}

func (r *runCompiledCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, text, ok := readSourceArg(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	rt := newRuntime(r.verbose)
	mod, diags := rt.Compile(path, text)
	for _, d := range diags.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if diags.HasErrors() {
		return subcommands.ExitFailure
	}
	if err := rt.RunCompiled(mod); err != nil {
		fmt.Fprintf(os.Stderr, "💥 %s\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// Command embervm is the runtime's front end: the conventional
// build/run/test/version/help commands named in spec.md §6, dispatched
// by hand rather than through a CLI-framework dependency — the pack
// carries none suitable for the teacher (spf13/cobra appears only in an
// unrelated example repo; see DESIGN.md).
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joeycumines/stumpy"

	"github.com/embervm/embervm/internal/vm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches a single subcommand and returns the process exit code,
// kept separate from main so tests can drive it without an os.Exit.
func run(args []string) int {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return 1
	}

	switch args[0] {
	case "version":
		fmt.Println(version)
		return 0
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return 0
	case "build":
		fmt.Fprintln(os.Stderr, "embervm: build is not implemented by this runtime — compile with the separate front-end compiler, then run its .ivmc output")
		return 1
	case "run":
		return runImage(args[1:])
	case "test":
		return testImage(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "embervm: unknown command %q\n", args[0])
		printUsage(os.Stderr)
		return 1
	}
}

// version is the runtime's own version string, independent of the
// bytecode format version a loaded image declares (bytecode.CurrentVersion).
const version = "embervm 0.1.0"

func printUsage(w *os.File) {
	fmt.Fprintln(w, "usage: embervm <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  build    compile source into a bytecode image (not implemented by this runtime)")
	fmt.Fprintln(w, "  run      load and execute a compiled bytecode image")
	fmt.Fprintln(w, "  test     load a compiled bytecode image and run its test entry point")
	fmt.Fprintln(w, "  version  print the runtime version")
	fmt.Fprintln(w, "  help     print this message")
}

// runImage loads path as a bytecode image and drives its module-index
// entry point to completion, per spec.md §6's exit-code contract: 0 on
// success, 1 on any user-visible error, or whatever the program itself
// wrote as its exit status.
func runImage(args []string) int {
	logger := stumpy.L.New(stumpy.L.WithStumpy())

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: embervm run <image>")
		return 1
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "embervm: reading %s: %v\n", path, err)
		return 1
	}

	prog, err := vm.Load(data, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "embervm: %v\n", err)
		return 1
	}

	state, err := vm.New(vm.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "embervm: starting runtime: %v\n", err)
		return 1
	}
	defer state.Shutdown()

	state.Install(prog)

	code, err := state.RunEntryPoint(prog, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "embervm: %v\n", err)
		printTrace(os.Stderr, err)
	}
	return code
}

// testImage loads path and runs its entry point the same way runImage
// does; the test/run split lives at the compiler-frontend level (a
// program's test entry point is a distinct module-index record in a
// `.ivmc` built with `--test`), which is out of scope absent a compiler
// front end in this repository (spec.md §1's Non-goals).
func testImage(args []string) int {
	return runImage(args)
}

func printTrace(w *os.File, err error) {
	var rerr *vm.RuntimeError
	if !errors.As(err, &rerr) {
		return
	}
	for _, frame := range rerr.Trace {
		fmt.Fprintf(w, "  at %s (%s:%d)\n", frame.MethodName, frame.SourceFile, frame.Line)
	}
}

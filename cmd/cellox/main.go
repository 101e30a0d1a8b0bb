// cmd/cellox/main.go
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/FrederikTobner/cellox/internal/chunkfile"
	"github.com/FrederikTobner/cellox/internal/compiler"
	"github.com/FrederikTobner/cellox/internal/errors"
	"github.com/FrederikTobner/cellox/internal/intern"
	"github.com/FrederikTobner/cellox/internal/optimizer"
	"github.com/FrederikTobner/cellox/internal/vm"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run implements the CLI surface of spec.md §6: REPL with no arguments,
// run a .clx or .cxcf file, -c/--compile to emit a .cxcf next to the
// source, -h/--help and -v/--version. Mutually exclusive options may not
// be combined: -h and -v must stand alone, and -c takes exactly one
// non-flag path, so any other combination is a usage error.
func run(args []string) int {
	switch {
	case len(args) == 0:
		return exitCode(repl())
	case len(args) == 1 && isFlag(args[0], "-h", "--help"):
		printUsage(os.Stdout)
		return 0
	case len(args) == 1 && isFlag(args[0], "-v", "--version"):
		fmt.Println("cellox " + version)
		return 0
	case isFlag(args[0], "-c", "--compile"):
		if len(args) != 2 || strings.HasPrefix(args[1], "-") {
			return usageError("-c/--compile takes exactly one source path")
		}
		return exitCode(compileToFile(args[1]))
	case len(args) == 1 && !strings.HasPrefix(args[0], "-"):
		return exitCode(runFile(args[0]))
	default:
		return usageError(fmt.Sprintf("unrecognized arguments: %s", strings.Join(args, " ")))
	}
}

func isFlag(arg string, short, long string) bool {
	return arg == short || arg == long
}

func usageError(message string) int {
	fmt.Fprintln(os.Stderr, message)
	printUsage(os.Stderr)
	return errors.UsageErrorKind.ExitCode()
}

func printUsage(w *os.File) {
	fmt.Fprint(w, `cellox                                       start REPL
cellox PATH                                  run PATH (.clx source or .cxcf precompiled)
cellox (-c | --compile) PATH                 compile PATH to PATH's directory as .cxcf
cellox (-h | --help)                         usage
cellox (-v | --version)                      version
`)
}

// exitCode maps a CelloxError (possibly nil) to the process exit code of
// spec.md §6, printing the error message first.
func exitCode(err *errors.CelloxError) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, err.Error())
	return err.Kind.ExitCode()
}

// repl implements spec.md §6's "line-oriented: prints a prompt, reads one
// line, evaluates it as a whole program; an empty line terminates the
// session." The prompt is only printed when stdin is a TTY.
func repl() *errors.CelloxError {
	machine := vm.New()
	interactive := isatty.IsTerminal(os.Stdin.Fd())
	scanner := bufio.NewScanner(os.Stdin)

	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			return nil
		}
		line := scanner.Text()
		if line == "" {
			return nil
		}
		if _, err := machine.Interpret(line); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
		}
	}
}

// runFile loads and executes path, dispatching on extension per spec.md
// §6's "source file recognition."
func runFile(path string) *errors.CelloxError {
	machine := vm.New()

	if strings.HasSuffix(path, ".cxcf") {
		f, err := os.Open(path)
		if err != nil {
			return errors.NewIOError("failed to open chunk file", err)
		}
		defer f.Close()
		fn, err := chunkfile.Read(f, machine.Interner())
		if err != nil {
			return errors.NewIOError("failed to load chunk file", err)
		}
		_, errv := machine.Run(fn)
		return errv
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return errors.NewIOError("failed to read source file", err)
	}
	_, errv := machine.Interpret(string(source))
	return errv
}

// compileToFile compiles a .clx source file, runs the peephole optimizer
// over the result, and writes it as a .cxcf file alongside the source
// (spec.md §6: "compile PATH to PATH's directory as .cxcf"). Per
// spec.md §4.6, the writer never sets an unimplemented chunk-file flag
// bit.
func compileToFile(path string) *errors.CelloxError {
	source, err := os.ReadFile(path)
	if err != nil {
		return errors.NewIOError("failed to read source file", err)
	}

	fn, errs := compiler.Compile(string(source), intern.New())
	if errs != nil {
		return errs[0]
	}
	optimizer.Optimize(fn.Chunk)

	outPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".cxcf"
	out, err := os.Create(outPath)
	if err != nil {
		return errors.NewIOError("failed to create chunk file", err)
	}
	defer out.Close()

	if err := chunkfile.Write(out, fn, 0); err != nil {
		return errors.NewIOError("failed to write chunk file", err)
	}
	return nil
}

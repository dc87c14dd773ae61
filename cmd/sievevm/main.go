// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

// Command sievevm is the engine's tooling surface: it assembles a
// diagnostic text listing into a binary, disassembles and runs saved
// binaries and offers an interactive single-step debugger. It is not a
// Sieve language compiler; the listing format exists for testing and
// inspection only.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sievevm/sievevm"
	"github.com/sievevm/sievevm/encoder"
)

var (
	msgFile      string
	outFile      string
	traceEnabled bool
)

func usage(fs *flag.FlagSet) func() {
	return func() {
		out := fs.Output()
		fmt.Fprintln(out, "Usage: sievevm [flags] <command> <file>")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  asm    assemble a listing into a binary (-o output)")
		fmt.Fprintln(out, "  dump   disassemble a binary")
		fmt.Fprintln(out, "  run    execute a binary (-m message, -trace)")
		fmt.Fprintln(out, "  debug  step through a binary interactively")
		fmt.Fprintln(out)
		fs.PrintDefaults()
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("sievevm", flag.ExitOnError)
	fs.StringVar(&msgFile, "m", "", "message file to run the script against")
	fs.StringVar(&outFile, "o", "", "output file for asm")
	fs.BoolVar(&traceEnabled, "trace", false, "write a runtime trace to stderr")
	fs.Usage = usage(fs)
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 2 {
		fs.Usage()
		return fmt.Errorf("expected a command and a file")
	}
	command, path := rest[0], rest[1]

	switch command {
	case "asm":
		return asmCommand(path)
	case "dump":
		return dumpCommand(path)
	case "run":
		return runCommand(path)
	case "debug":
		return debugCommand(path)
	}
	fs.Usage()
	return fmt.Errorf("unknown command %q", command)
}

func asmCommand(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bin, err := assemble(f)
	if err != nil {
		return err
	}

	out := outFile
	if out == "" {
		out = strings.TrimSuffix(path, ".svasm") + ".svb"
	}
	w, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := encoder.Encode(w, bin); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func dumpCommand(path string) error {
	itp, err := newInterpreter(path)
	if err != nil {
		return err
	}
	itp.Dump(os.Stdout)
	return nil
}

func runCommand(path string) error {
	itp, err := newInterpreter(path)
	if err != nil {
		return err
	}
	msg, err := readMessage()
	if err != nil {
		return err
	}
	return itp.Run(msg, &printResult{out: os.Stdout})
}

func newInterpreter(path string) (*sievevm.Interpreter, error) {
	bin, err := loadBinary(path)
	if err != nil {
		return nil, err
	}
	opts := &sievevm.InterpreterOptions{}
	if traceEnabled {
		opts.Trace = os.Stderr
	}
	return sievevm.NewInterpreter(bin, opts)
}

func loadBinary(path string) (*sievevm.Binary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	// the CLI knows no extensions; saved binaries referencing any will
	// refuse to load
	return encoder.Decode(f, sievevm.NewRegistry())
}

func readMessage() (*sievevm.MessageData, error) {
	if msgFile == "" {
		return nil, nil
	}
	f, err := os.Open(msgFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sievevm.ReadMessageData(f)
}

// printResult prints each recorded action; it stands in for a mail
// delivery backend.
type printResult struct {
	out io.Writer
}

func (p *printResult) AddKeep(effects sievevm.SideEffectsList, line int) error {
	fmt.Fprintf(p.out, "action: keep (line %d)\n", line)
	for _, se := range effects {
		fmt.Fprintf(p.out, "  + side effect: %s %s\n", se.Ext.Name, se.Name)
	}
	return nil
}

func (p *printResult) AddDiscard(line int) error {
	fmt.Fprintf(p.out, "action: discard (line %d)\n", line)
	return nil
}

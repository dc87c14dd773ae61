// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/sievevm/sievevm"
)

const promptPrefix = "(svm) "

// Sentinel error for the debugger loop.
var errExit = errors.New("exit")

type debugger struct {
	itp      *sievevm.Interpreter
	msg      *sievevm.MessageData
	out      io.Writer
	commands map[string]func() error
	done     bool
}

func debugCommand(path string) error {
	itp, err := newInterpreter(path)
	if err != nil {
		return err
	}
	msg, err := readMessage()
	if err != nil {
		return err
	}

	d := &debugger{itp: itp, msg: msg, out: os.Stdout}
	d.commands = map[string]func() error{
		".step":  d.cmdStep,
		".run":   d.cmdRun,
		".dump":  d.cmdDump,
		".pc":    d.cmdPC,
		".reset": d.cmdReset,
		".exit":  func() error { return errExit },
	}
	d.itp.Start(d.msg, &printResult{out: d.out})
	return d.repl()
}

func (d *debugger) printInfo() {
	fmt.Fprintln(d.out, "sievevm debugger")
	fmt.Fprintln(d.out, "Commands: .step .run .dump .pc .reset .exit")
	fmt.Fprintln(d.out, "Press Ctrl+D or write .exit to exit")
	fmt.Fprintln(d.out)
}

func (d *debugger) repl() error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCompleter(d.complete)
	d.printInfo()

	for {
		str, err := line.Prompt(promptPrefix)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			continue
		}
		line.AppendHistory(str)

		cmd, ok := d.commands[str]
		if !ok {
			fmt.Fprintf(d.out, "unknown command %q\n", str)
			continue
		}
		if err := cmd(); err != nil {
			if err == errExit {
				return nil
			}
			fmt.Fprintln(d.out, err)
		}
	}
}

func (d *debugger) complete(line string) (completions []string) {
	for name := range d.commands {
		if strings.HasPrefix(name, line) {
			completions = append(completions, name)
		}
	}
	return
}

func (d *debugger) cmdStep() error {
	if d.done {
		fmt.Fprintln(d.out, "program finished; .reset to start over")
		return nil
	}
	done, err := d.itp.Step()
	d.done = done
	if err != nil {
		return err
	}
	if done {
		fmt.Fprintln(d.out, "program finished")
	} else {
		fmt.Fprintf(d.out, "pc: %08x\n", d.itp.PC())
	}
	return nil
}

func (d *debugger) cmdRun() error {
	for !d.done {
		if err := d.cmdStep(); err != nil {
			return err
		}
	}
	return nil
}

func (d *debugger) cmdDump() error {
	// dump with a second interpreter over the shared binary so the
	// debugged run's program counter stays put
	itp, err := sievevm.NewInterpreter(d.itp.Binary(), nil)
	if err != nil {
		return err
	}
	itp.Dump(d.out)
	return nil
}

func (d *debugger) cmdPC() error {
	fmt.Fprintf(d.out, "pc: %08x of %08x\n", d.itp.PC(), d.itp.Binary().Len())
	return nil
}

func (d *debugger) cmdReset() error {
	d.itp.Start(d.msg, &printResult{out: d.out})
	d.done = false
	fmt.Fprintln(d.out, "reset")
	return nil
}

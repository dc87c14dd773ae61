// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

import (
	"fmt"
	"io"
)

// Interpreter executes one committed Binary. It owns a single cursor into
// the code (the program counter), the stopped and last-test-result flags
// and one opaque context slot per extension. An Interpreter instance runs
// at most one run at a time; create one instance per concurrent run and
// share the Binary, which is immutable after commit.
type Interpreter struct {
	bin *Binary
	r   *Reader

	stopped    bool
	testResult bool

	// extContexts is sparse, indexed by Extension.ID. Contexts are
	// extension-owned and survive Reset.
	extContexts []interface{}

	renv  RunEnv
	trace io.Writer
}

// InterpreterOptions configures interpreter construction.
type InterpreterOptions struct {
	// Preload lists extensions whose InterpreterLoad hook runs even when
	// the binary does not reference them, mirroring core language features
	// that are implemented as extensions.
	Preload []*Extension

	// Trace receives runtime trace lines when set.
	Trace io.Writer
}

// NewInterpreter creates an Interpreter for the binary, committing it if
// the caller has not done so, and runs the interpreter-load hooks of the
// preloaded extensions and of every extension the binary references.
func NewInterpreter(bin *Binary, opts *InterpreterOptions) (*Interpreter, error) {
	bin.Commit()

	itp := &Interpreter{bin: bin, r: bin.ReaderAt(0)}
	itp.renv.Interp = itp
	itp.renv.Binary = bin

	var preload []*Extension
	if opts != nil {
		itp.trace = opts.Trace
		preload = opts.Preload
	}
	for _, ext := range preload {
		if ext.InterpreterLoad != nil {
			if err := ext.InterpreterLoad(itp); err != nil {
				return nil, err
			}
		}
	}
	for _, ext := range bin.Extensions() {
		if ext.InterpreterLoad != nil {
			if err := ext.InterpreterLoad(itp); err != nil {
				return nil, err
			}
		}
	}
	return itp, nil
}

// Binary returns the binary this interpreter executes.
func (itp *Interpreter) Binary() *Binary { return itp.bin }

// PC returns the program counter.
func (itp *Interpreter) PC() int { return itp.r.Pos() }

// Reset rewinds the program counter, clears the stopped and test-result
// flags and unbinds the per-run message and result. Extension contexts are
// left as-is; they belong to the extensions.
func (itp *Interpreter) Reset() {
	itp.r.SetPos(0)
	itp.stopped = false
	itp.testResult = false
	itp.renv.Message = nil
	itp.renv.Result = nil
	itp.renv.OpAddress = 0
}

// Stop requests clean termination; the run loop exits before the next
// operation. This is the explicit in-bytecode stop, not a fault.
func (itp *Interpreter) Stop() { itp.stopped = true }

// SetTestResult records the boolean outcome of the last test operation.
func (itp *Interpreter) SetTestResult(result bool) { itp.testResult = result }

// TestResult returns the outcome of the last test operation.
func (itp *Interpreter) TestResult() bool { return itp.testResult }

// SetContext stores an extension's opaque context in its slot.
func (itp *Interpreter) SetContext(extID int, ctx interface{}) {
	if extID < 0 {
		return
	}
	for len(itp.extContexts) <= extID {
		itp.extContexts = append(itp.extContexts, nil)
	}
	itp.extContexts[extID] = ctx
}

// Context returns the extension's context, or nil when the slot was never
// set. Extensions must tolerate an absent context on first use.
func (itp *Interpreter) Context(extID int) interface{} {
	if extID < 0 || extID >= len(itp.extContexts) {
		return nil
	}
	return itp.extContexts[extID]
}

// Jump decodes one offset operand and validates the jump. With the cursor
// at the offset field the candidate program counter is the field's address
// plus the offset; the jump is valid only when the candidate lands inside
// (0, code size]. When take is false the jump is validated and skipped
// without moving the program counter, which is how conditional jumps fall
// through. Invalid jumps fail and the program counter keeps pointing past
// the operand.
func (itp *Interpreter) Jump(take bool) error {
	pc := itp.r.Pos()
	offset, err := itp.r.ReadOffset()
	if err != nil {
		return err
	}
	target := pc + int(offset)
	if target <= 0 || target > itp.bin.Len() {
		return ErrInvalidJump.NewError(
			fmt.Sprintf("jump from %08x to %08x outside code", pc, target))
	}
	if take {
		itp.r.SetPos(target)
	}
	return nil
}

// Start resets the interpreter and binds the per-run message and result,
// leaving the interpreter ready for Step. Run is Start plus stepping to
// completion; Start exists for callers that single-step, like debuggers.
func (itp *Interpreter) Start(msg *MessageData, result Result) {
	itp.Reset()
	itp.renv.Message = msg
	itp.renv.Result = result
}

// Step fetches and executes a single operation. It reports done=true when
// the program finished: cleanly (end of code or an explicit stop) with a
// nil error, or faulted with the error that aborted the run.
func (itp *Interpreter) Step() (done bool, err error) {
	if itp.stopped || itp.r.Pos() >= itp.bin.Len() {
		return true, nil
	}
	addr := itp.r.Pos()
	op, err := readOperation(itp.r)
	if err != nil {
		return true, itp.abort(addr, err)
	}
	if op.Execute == nil {
		return true, itp.abort(addr, ErrUnknownOpcode.NewError(
			op.Mnemonic+" is not executable"))
	}
	itp.renv.OpAddress = addr
	if err := op.Execute(op, &itp.renv, itp.r); err != nil {
		return true, itp.abort(addr, err)
	}
	return itp.stopped || itp.r.Pos() >= itp.bin.Len(), nil
}

func (itp *Interpreter) abort(addr int, cause error) error {
	if itp.trace != nil {
		fmt.Fprintf(itp.trace, "%08x: execution aborted\n", addr)
	}
	return &Error{
		Name:    "ExecutionAbortedError",
		Message: fmt.Sprintf("execution aborted at %08x", addr),
		Cause:   cause,
	}
}

// Run executes the program against the given message, recording actions
// into the result collaborator. It returns nil when the program ran to the
// end of the code or stopped explicitly, and the fault otherwise. A faulted
// run is not resumable; a fresh run starts with the next Run or Start.
func (itp *Interpreter) Run(msg *MessageData, result Result) error {
	itp.Start(msg, result)
	for {
		done, err := itp.Step()
		if err != nil {
			return err
		}
		if done {
			itp.renv.Message = nil
			itp.renv.Result = nil
			return nil
		}
	}
}

// Dump writes a line-oriented disassembly of the whole code region to w,
// in lockstep with the binary's actual structure: each operation's dump
// hook consumes exactly the bytes its execute hook would. A binary that
// cannot be decoded is reported as corrupt on the output rather than as an
// error.
func (itp *Interpreter) Dump(w io.Writer) {
	itp.Reset()
	denv := &DumpEnv{Binary: itp.bin, Out: w}
	for itp.r.Pos() < itp.bin.Len() {
		addr := itp.r.Pos()
		op, err := readOperation(itp.r)
		if err != nil {
			fmt.Fprintln(w, "Binary is corrupt.")
			return
		}
		fmt.Fprintf(w, "%08x: ", addr)
		if op.Dump == nil {
			fmt.Fprintln(w, op.Mnemonic)
			continue
		}
		if err := op.Dump(op, denv, itp.r); err != nil {
			fmt.Fprintln(w, "Binary is corrupt.")
			return
		}
	}
	fmt.Fprintf(w, "%08x: [End of code]\n", itp.bin.Len())
}

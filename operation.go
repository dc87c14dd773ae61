// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

import (
	"fmt"
	"io"
	"strconv"
)

// RunEnv is the runtime environment passed to operation execute hooks.
type RunEnv struct {
	Interp  *Interpreter
	Binary  *Binary
	Message *MessageData
	Result  Result

	// OpAddress is the address of the executing operation's tag.
	OpAddress int
}

// SourceLine returns the script source line the executing operation was
// generated from, or 0 when the binary carries no source map.
func (renv *RunEnv) SourceLine() int {
	return renv.Binary.SourceLine(renv.OpAddress)
}

// Tracef writes a runtime trace line when the interpreter has a trace
// writer, and is a no-op otherwise.
func (renv *RunEnv) Tracef(format string, args ...interface{}) {
	if renv.Interp.trace == nil {
		return
	}
	fmt.Fprintf(renv.Interp.trace, "%08x: ", renv.OpAddress)
	fmt.Fprintf(renv.Interp.trace, format, args...)
	fmt.Fprintln(renv.Interp.trace)
}

// DumpEnv is the environment passed to operation dump hooks.
type DumpEnv struct {
	Binary *Binary
	Out    io.Writer
}

// OperationDef ties an opcode to its hooks. Each operation has a
// generate-time emitter (EmitOperation plus the operation's own operand
// emission), a dump hook that decodes and prints its operands, and an
// execute hook that decodes the same operands and performs the effect.
// Dump and Execute must consume exactly the same bytes so a disassembly
// stays in lockstep with execution.
type OperationDef struct {
	// Mnemonic is the dump name. Operations without a Dump hook are dumped
	// as the bare mnemonic.
	Mnemonic string

	// Code is the core opcode tag, or for an extension operation its
	// position in the extension's operation table.
	Code Opcode

	// Ext is nil for core operations; Registry.Register sets it for
	// extension operations.
	Ext *Extension

	Dump    func(op *OperationDef, denv *DumpEnv, r *Reader) error
	Execute func(op *OperationDef, renv *RunEnv, r *Reader) error
}

// EmitOperation emits the operation's tag: the core opcode itself, or an
// extension reference followed by the selector into the extension's
// operation table. It returns the tag's address.
func (b *Binary) EmitOperation(op *OperationDef) (int, error) {
	if op.Ext == nil {
		return b.EmitByte(op.Code), nil
	}
	addr, err := b.EmitExtension(op.Ext, OpCustom)
	if err != nil {
		return addr, err
	}
	// tags are read signed, so an extension reference used as an opcode
	// must stay in the positive half of the byte space
	if int(OpCustom)+b.extIndex[op.Ext.Name] > 0x7f {
		return addr, ErrTooManyExtensions
	}
	b.EmitExtensionObject(len(op.Ext.Operations), op.Code)
	return addr, nil
}

// readOperation fetches one operation at the cursor: the tag is read as a
// signed code, resolved against the core table below OpCustom and against
// the binary's extension index table at or above it.
func readOperation(r *Reader) (*OperationDef, error) {
	code, err := r.ReadCode()
	if err != nil {
		return nil, err
	}
	if code < 0 {
		return nil, ErrUnknownOpcode.NewError(
			"invalid opcode tag " + strconv.Itoa(int(code)))
	}
	if Opcode(code) < OpCustom {
		op := coreOperations[code]
		if op == nil {
			return nil, ErrUnknownOpcode.NewError(
				"unassigned core opcode " + strconv.Itoa(int(code)))
		}
		return op, nil
	}
	ext := r.bin.ExtensionByIndex(int(code) - int(OpCustom))
	if ext == nil {
		return nil, ErrUnknownExtension.NewError(
			"extension index not registered in binary")
	}
	idx, err := r.ReadExtensionObject(len(ext.Operations))
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, ErrUnknownOpcode.NewError(
			"extension " + ext.Name + " has no operations")
	}
	return ext.Operations[idx], nil
}

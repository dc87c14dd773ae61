// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

import "fmt"

// Core operations besides keep: unconditional and conditional jumps, the
// explicit stop, the discard action and the exists header test.

var (
	// JumpOperation jumps unconditionally.
	JumpOperation = &OperationDef{
		Mnemonic: OpcodeNames[OpJump],
		Code:     OpJump,
		Dump:     jumpDump,
		Execute: func(op *OperationDef, renv *RunEnv, r *Reader) error {
			return renv.Interp.Jump(true)
		},
	}

	// JumpTrueOperation jumps when the last test succeeded.
	JumpTrueOperation = &OperationDef{
		Mnemonic: OpcodeNames[OpJumpTrue],
		Code:     OpJumpTrue,
		Dump:     jumpDump,
		Execute: func(op *OperationDef, renv *RunEnv, r *Reader) error {
			return renv.Interp.Jump(renv.Interp.TestResult())
		},
	}

	// JumpFalseOperation jumps when the last test failed.
	JumpFalseOperation = &OperationDef{
		Mnemonic: OpcodeNames[OpJumpFalse],
		Code:     OpJumpFalse,
		Dump:     jumpDump,
		Execute: func(op *OperationDef, renv *RunEnv, r *Reader) error {
			return renv.Interp.Jump(!renv.Interp.TestResult())
		},
	}

	// StopOperation ends the run cleanly.
	StopOperation = &OperationDef{
		Mnemonic: OpcodeNames[OpStop],
		Code:     OpStop,
		Execute: func(op *OperationDef, renv *RunEnv, r *Reader) error {
			renv.Tracef("STOP")
			renv.Interp.Stop()
			return nil
		},
	}

	// DiscardOperation cancels the message's implicit keep.
	DiscardOperation = &OperationDef{
		Mnemonic: OpcodeNames[OpDiscard],
		Code:     OpDiscard,
		Execute:  discardExecute,
	}

	// ExistsOperation tests whether the message has a header field with
	// the given name.
	ExistsOperation = &OperationDef{
		Mnemonic: OpcodeNames[OpExists],
		Code:     OpExists,
		Dump:     existsDump,
		Execute:  existsExecute,
	}
)

// coreOperations is indexed by core opcode tag.
var coreOperations = [OpCustom]*OperationDef{
	OpJump:      JumpOperation,
	OpJumpTrue:  JumpTrueOperation,
	OpJumpFalse: JumpFalseOperation,
	OpStop:      StopOperation,
	OpKeep:      KeepOperation,
	OpDiscard:   DiscardOperation,
	OpExists:    ExistsOperation,
}

// EmitJump generates one of the jump operations followed by an offset
// placeholder and returns the placeholder's address, to be patched with
// ResolveOffset or UpdateData once the target is known.
func EmitJump(b *Binary, code Opcode) (int, error) {
	if code != OpJump && code != OpJumpTrue && code != OpJumpFalse {
		return 0, ErrUnknownOpcode.NewError("not a jump opcode")
	}
	if _, err := b.EmitOperation(coreOperations[code]); err != nil {
		return 0, err
	}
	return b.EmitOffset(0), nil
}

// EmitStop generates a stop operation.
func EmitStop(b *Binary) error {
	_, err := b.EmitOperation(StopOperation)
	return err
}

// EmitDiscard generates a discard operation, recording the script source
// line it came from.
func EmitDiscard(b *Binary, line int) error {
	b.MapSourceLine(line)
	_, err := b.EmitOperation(DiscardOperation)
	return err
}

// EmitExists generates an exists test for the given header field name.
func EmitExists(b *Binary, header string) error {
	if _, err := b.EmitOperation(ExistsOperation); err != nil {
		return err
	}
	b.EmitString([]byte(header))
	return nil
}

func jumpDump(op *OperationDef, denv *DumpEnv, r *Reader) error {
	pc := r.Pos()
	offset, err := r.ReadOffset()
	if err != nil {
		return err
	}
	fmt.Fprintf(denv.Out, "%s %d [%08x]\n", op.Mnemonic, offset, pc+int(offset))
	return nil
}

func discardExecute(op *OperationDef, renv *RunEnv, r *Reader) error {
	renv.Tracef("DISCARD action")

	if renv.Result == nil {
		return ErrNoResult
	}
	return renv.Result.AddDiscard(renv.SourceLine())
}

func existsDump(op *OperationDef, denv *DumpEnv, r *Reader) error {
	header, err := r.ReadString()
	if err != nil {
		return err
	}
	fmt.Fprintf(denv.Out, "%s %q\n", op.Mnemonic, header)
	return nil
}

func existsExecute(op *OperationDef, renv *RunEnv, r *Reader) error {
	header, err := r.ReadString()
	if err != nil {
		return err
	}

	// no message bound means nothing can match
	result := renv.Message != nil && renv.Message.HasHeader(string(header))
	renv.Tracef("EXISTS %q => %v", header, result)

	renv.Interp.SetTestResult(result)
	return nil
}

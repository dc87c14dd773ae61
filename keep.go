// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

import "fmt"

// Keep operation
//
// The minimal action: file the message into the default mailbox. It has no
// mandatory operands, only the optional side-effect region, which makes it
// the worked example of how an action plugs into the engine.

// KeepOperation is the core keep action.
var KeepOperation = &OperationDef{
	Mnemonic: OpcodeNames[OpKeep],
	Code:     OpKeep,
	Dump:     keepDump,
	Execute:  keepExecute,
}

// EmitKeep generates a keep operation with the given side effects,
// recording the script source line it came from.
func EmitKeep(b *Binary, effects SideEffectsList, line int) error {
	b.MapSourceLine(line)
	if _, err := b.EmitOperation(KeepOperation); err != nil {
		return err
	}
	return b.EmitSideEffects(effects)
}

func keepDump(op *OperationDef, denv *DumpEnv, r *Reader) error {
	fmt.Fprintln(denv.Out, op.Mnemonic)
	return dumpSideEffects(denv, r)
}

func keepExecute(op *OperationDef, renv *RunEnv, r *Reader) error {
	line := renv.SourceLine()

	effects, err := ReadSideEffects(r)
	if err != nil {
		return err
	}

	renv.Tracef("KEEP action")

	if renv.Result == nil {
		return ErrNoResult
	}
	return renv.Result.AddKeep(effects, line)
}

// dumpSideEffects decodes an optional-operand region the way execution
// does and prints one indented line per side effect.
func dumpSideEffects(denv *DumpEnv, r *Reader) error {
	effects, err := ReadSideEffects(r)
	if err != nil {
		return err
	}
	for _, se := range effects {
		fmt.Fprintf(denv.Out, "          + side effect: %s %s\n",
			se.Ext.Name, se.Name)
	}
	return nil
}

// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

import "fmt"

// SideEffectDef describes a side effect an extension can attach to an
// action operation, such as "also set a flag" on a keep.
type SideEffectDef struct {
	// Name is the dump name.
	Name string

	// Code is the side effect's position in its extension's side-effect
	// table; Registry.Register sets Ext.
	Code Opcode
	Ext  *Extension
}

// SideEffectsList is an ordered list of side effects decoded from an action
// operation's optional-operand region. The result collaborator takes
// ownership of the list.
type SideEffectsList []*SideEffectDef

// EmitSideEffects writes the optional-operand region for the given side
// effects. An empty list emits nothing at all; the region marker only
// appears when there is something in it.
func (b *Binary) EmitSideEffects(effects SideEffectsList) error {
	if len(effects) == 0 {
		return nil
	}
	b.EmitByte(operandOptional)
	for _, se := range effects {
		b.EmitInteger(optOperandSideEffect)
		if _, err := b.EmitExtension(se.Ext, 0); err != nil {
			return err
		}
		b.EmitExtensionObject(len(se.Ext.SideEffects), se.Code)
	}
	b.EmitInteger(optOperandEnd)
	return nil
}

// ReadSideEffects consumes an action operation's optional-operand region
// and collects the side effects in it. When no region is present it
// consumes nothing and returns an empty list; execute and dump hooks call
// it unconditionally before their mandatory operands.
func ReadSideEffects(r *Reader) (SideEffectsList, error) {
	c, ok := r.peekByte()
	if !ok || c != operandOptional {
		return nil, nil
	}
	r.pos++
	var effects SideEffectsList
	for {
		code, err := r.ReadInteger()
		if err != nil {
			return nil, err
		}
		switch code {
		case optOperandEnd:
			return effects, nil
		case optOperandSideEffect:
			se, err := readSideEffect(r)
			if err != nil {
				return nil, err
			}
			effects = append(effects, se)
		default:
			return nil, ErrUnknownOpcode.NewError(
				fmt.Sprintf("unknown optional operand code %d", code))
		}
	}
}

// readSideEffect decodes one side effect: an extension reference with base
// zero followed by the selector into the extension's side-effect table.
func readSideEffect(r *Reader) (*SideEffectDef, error) {
	_, ext, err := r.ReadExtension(0)
	if err != nil {
		return nil, err
	}
	idx, err := r.ReadExtensionObject(len(ext.SideEffects))
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, ErrInvalidSelector.NewError(
			"extension " + ext.Name + " has no side effects")
	}
	return ext.SideEffects[idx], nil
}

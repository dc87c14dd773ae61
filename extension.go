// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

// Extension describes an optional language feature. The engine treats the
// descriptor as opaque identity plus object tables: operations and side
// effects the extension contributes are referenced in the binary through
// small per-binary indices, never by name.
type Extension struct {
	// Name is the extension's stable identity, as stored in saved binaries.
	Name string

	// ID is the slot index for the extension's interpreter context. It is
	// assigned by Registry.Register.
	ID int

	// InterpreterLoad, when non-nil, is called once while an Interpreter is
	// constructed for a binary that references this extension, or when the
	// extension is preloaded. Extensions typically attach their context
	// here with Interpreter.SetContext.
	InterpreterLoad func(itp *Interpreter) error

	// Operations and SideEffects are the extension's object tables. An
	// operation's Code and a side effect's Code are positions in these
	// tables; with zero or one members no selector byte appears in the
	// binary.
	Operations  []*OperationDef
	SideEffects []*SideEffectDef
}

// Registry is the explicit configuration of known extensions. It replaces
// any notion of a process-wide extension list: whoever builds binaries or
// loads them from storage passes the registry in.
type Registry struct {
	exts   []*Extension
	byName map[string]*Extension
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Extension)}
}

// Register adds an extension, assigns its context slot ID and returns the
// registry for chaining. Registering the same name twice panics; extension
// sets are static configuration, not dynamic state.
func (reg *Registry) Register(ext *Extension) *Registry {
	if _, ok := reg.byName[ext.Name]; ok {
		panic("sievevm: extension registered twice: " + ext.Name)
	}
	ext.ID = len(reg.exts)
	for _, op := range ext.Operations {
		op.Ext = ext
	}
	for _, se := range ext.SideEffects {
		se.Ext = ext
	}
	reg.exts = append(reg.exts, ext)
	reg.byName[ext.Name] = ext
	return reg
}

// Lookup resolves an extension identity, returning nil when unknown.
func (reg *Registry) Lookup(name string) *Extension {
	return reg.byName[name]
}

// Extensions returns the registered extensions in registration order. The
// caller must not modify it.
func (reg *Registry) Extensions() []*Extension { return reg.exts }

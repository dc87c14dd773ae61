// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

// Binary is one compiled block of bytecode together with its per-binary
// metadata: the extension index table and the source-location map.
//
// A Binary is built by the emit functions in emit.go, then frozen with
// Commit before execution. After Commit the code and tables never change,
// so a single Binary may be shared by any number of Interpreter instances,
// including concurrently.
type Binary struct {
	code      []byte
	committed bool

	// extensions is dense and insertion ordered; an extension gets its
	// index on first emission and keeps it for the life of the binary.
	extensions []*Extension
	extIndex   map[string]int

	// srcMap maps a code address to the script source line the code at
	// that address was generated from.
	srcMap map[int]int
}

// NewBinary creates an empty Binary ready for emission.
func NewBinary() *Binary {
	return &Binary{extIndex: make(map[string]int)}
}

// Len returns the current code size.
func (b *Binary) Len() int { return len(b.code) }

// Committed reports whether the binary was frozen with Commit.
func (b *Binary) Committed() bool { return b.committed }

// Commit freezes the binary. Emitting into a committed binary panics.
// Commit is idempotent.
func (b *Binary) Commit() { b.committed = true }

// Bytes returns the code block. The caller must not modify it.
func (b *Binary) Bytes() []byte { return b.code }

// Extensions returns the extension index table in index order. The caller
// must not modify it.
func (b *Binary) Extensions() []*Extension { return b.extensions }

// ExtensionByIndex resolves an index from the binary back to the extension
// it was assigned to, or nil if the index was never assigned.
func (b *Binary) ExtensionByIndex(idx int) *Extension {
	if idx < 0 || idx >= len(b.extensions) {
		return nil
	}
	return b.extensions[idx]
}

// registerExtension returns the extension's index in this binary, assigning
// the next free index on first use.
func (b *Binary) registerExtension(ext *Extension) int {
	if idx, ok := b.extIndex[ext.Name]; ok {
		return idx
	}
	idx := len(b.extensions)
	b.extensions = append(b.extensions, ext)
	b.extIndex[ext.Name] = idx
	return idx
}

// MapSourceLine records that code emitted from here on originates from the
// given script source line.
func (b *Binary) MapSourceLine(line int) {
	if b.srcMap == nil {
		b.srcMap = make(map[int]int)
	}
	b.srcMap[len(b.code)] = line
}

// SourceLine returns the script source line recorded at or before the given
// code address, or 0 if none was recorded.
func (b *Binary) SourceLine(addr int) int {
	for addr >= 0 {
		if line, ok := b.srcMap[addr]; ok {
			return line
		}
		addr--
	}
	return 0
}

// SourceMap returns the recorded address to source line pairs. The caller
// must not modify it.
func (b *Binary) SourceMap() map[int]int { return b.srcMap }

// LoadBinary reconstructs a committed Binary from its stored parts: the raw
// code block, the extension index table in index order and the source map.
// It is used by the encoder package when loading a saved binary.
func LoadBinary(code []byte, exts []*Extension, srcMap map[int]int) *Binary {
	b := NewBinary()
	b.code = code
	for _, ext := range exts {
		b.registerExtension(ext)
	}
	b.srcMap = srcMap
	b.Commit()
	return b
}

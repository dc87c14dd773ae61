// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

import "encoding/binary"

// Writer primitives. Every emit appends to the code block and returns the
// address of the first byte written, so forward references can be patched
// later with UpdateData or ResolveOffset. Patches overwrite bytes in place
// and never change the code size.

func (b *Binary) grow(data []byte) int {
	if b.committed {
		panic("sievevm: emit into committed binary")
	}
	addr := len(b.code)
	b.code = append(b.code, data...)
	return addr
}

// EmitData appends an arbitrary byte sequence.
func (b *Binary) EmitData(data []byte) int {
	return b.grow(data)
}

// EmitByte appends a single byte.
func (b *Binary) EmitByte(c byte) int {
	return b.grow([]byte{c})
}

// UpdateData overwrites len(data) bytes in place starting at addr. The
// region must have been written before; UpdateData never grows the code.
func (b *Binary) UpdateData(addr int, data []byte) error {
	if b.committed {
		panic("sievevm: patch into committed binary")
	}
	if addr < 0 || addr+len(data) > len(b.code) {
		return ErrInvalidAddress
	}
	copy(b.code[addr:], data)
	return nil
}

// EmitOffset appends a fixed 4-byte big-endian signed offset, either final
// or as a placeholder for ResolveOffset.
func (b *Binary) EmitOffset(offset int32) int {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(offset))
	return b.grow(buf[:])
}

// ResolveOffset patches the offset field at addr with the distance from
// addr to the current end of the code. A jump reading this offset with its
// cursor at addr lands exactly on the first byte emitted after the call.
func (b *Binary) ResolveOffset(addr int) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(len(b.code)-addr))
	return b.UpdateData(addr, buf[:])
}

// EmitInteger appends an unsigned integer as a variable-length quantity:
// 7-bit groups, most significant group first, continuation bit 0x80 on
// every byte except the last. The encoding is minimal.
func (b *Binary) EmitInteger(v uint64) int {
	var buf [10]byte
	pos := len(buf) - 1
	buf[pos] = byte(v & 0x7f)
	v >>= 7
	for v > 0 {
		pos--
		buf[pos] = byte(v&0x7f) | 0x80
		v >>= 7
	}
	return b.grow(buf[pos:])
}

// EmitString appends a length-prefixed string: varint length, raw bytes,
// and a zero terminator the reader verifies as a consistency check.
func (b *Binary) EmitString(s []byte) int {
	addr := b.EmitInteger(uint64(len(s)))
	b.grow(s)
	b.EmitByte(0)
	return addr
}

// EmitExtension appends a one-byte extension reference: base plus the
// extension's index in this binary, assigned on first use. It fails when
// the reference does not fit the one-byte index space.
func (b *Binary) EmitExtension(ext *Extension, base Opcode) (int, error) {
	idx := b.registerExtension(ext)
	code := int(base) + idx
	if code > 0xff {
		return 0, ErrTooManyExtensions
	}
	return b.EmitByte(byte(code)), nil
}

// EmitExtensionObject appends the selector for one member of an extension
// object table. With zero or one members the reader can infer the member,
// so nothing is emitted.
func (b *Binary) EmitExtensionObject(numObjects int, code byte) {
	if numObjects > 1 {
		b.EmitByte(code)
	}
}

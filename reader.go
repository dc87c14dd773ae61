// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

import "encoding/binary"

// Reader is a bounds-checked cursor over a binary's code block. Every read
// checks the remaining length before touching the code; no read ever
// dereferences past the end, no matter how the binary was produced. A
// failed read leaves the cursor in an unspecified position and the caller
// must treat the failure as fatal to the current decode.
type Reader struct {
	bin  *Binary
	code []byte
	pos  int
}

// ReaderAt returns a cursor into the binary's code positioned at addr.
// The Reader views the code as of this call; commit the binary first when
// it is going to be executed.
func (b *Binary) ReaderAt(addr int) *Reader {
	return &Reader{bin: b, code: b.code, pos: addr}
}

// Pos returns the cursor position.
func (r *Reader) Pos() int { return r.pos }

// SetPos moves the cursor to the given address.
func (r *Reader) SetPos(addr int) { r.pos = addr }

// Remaining returns the number of bytes between the cursor and the end of
// the code.
func (r *Reader) Remaining() int { return len(r.code) - r.pos }

// ReadByte decodes one unsigned byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.code) {
		return 0, ErrEndOfCode
	}
	c := r.code[r.pos]
	r.pos++
	return c, nil
}

// ReadCode decodes one byte reinterpreted as signed. Opcode tags are read
// this way, which keeps the high half of the byte space free for in-band
// markers.
func (r *Reader) ReadCode() (int8, error) {
	c, err := r.ReadByte()
	return int8(c), err
}

// peekByte returns the byte at the cursor without advancing it.
func (r *Reader) peekByte() (byte, bool) {
	if r.pos >= len(r.code) {
		return 0, false
	}
	return r.code[r.pos], true
}

// ReadOffset decodes a fixed 4-byte big-endian signed offset.
func (r *Reader) ReadOffset() (int32, error) {
	if r.Remaining() < 4 {
		return 0, ErrEndOfCode
	}
	offset := int32(binary.BigEndian.Uint32(r.code[r.pos:]))
	r.pos += 4
	return offset, nil
}

// ReadInteger decodes a variable-length integer. It fails once the encoded
// bit-width exceeds 64 bits before the terminating byte, so a corrupt or
// malicious over-long encoding cannot keep the decoder spinning.
func (r *Reader) ReadInteger() (uint64, error) {
	if r.pos >= len(r.code) {
		return 0, ErrEndOfCode
	}
	var v uint64
	bits := 64
	for r.code[r.pos]&0x80 != 0 {
		if bits <= 0 {
			return 0, ErrIntegerOverflow
		}
		v |= uint64(r.code[r.pos] & 0x7f)
		v <<= 7
		bits -= 7
		r.pos++
		if r.pos >= len(r.code) {
			return 0, ErrEndOfCode
		}
	}
	v |= uint64(r.code[r.pos] & 0x7f)
	r.pos++
	return v, nil
}

// ReadString decodes a length-prefixed string and verifies its zero
// terminator. The returned slice aliases the code block and must be treated
// as read-only.
func (r *Reader) ReadString() ([]byte, error) {
	n, err := r.ReadInteger()
	if err != nil {
		return nil, err
	}
	// payload plus terminator must fit in the remaining code
	if uint64(r.Remaining()) <= n {
		return nil, ErrEndOfCode
	}
	s := r.code[r.pos : r.pos+int(n)]
	r.pos += int(n)
	if r.code[r.pos] != 0 {
		return nil, ErrCorruptString
	}
	r.pos++
	return s, nil
}

// ReadExtension decodes a one-byte extension reference emitted with the
// same base. Codes below the base are returned with a nil extension for
// the caller to interpret; codes at or above it must resolve against the
// binary's extension index table.
func (r *Reader) ReadExtension(base Opcode) (byte, *Extension, error) {
	code, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	if code < base {
		return code, nil, nil
	}
	ext := r.bin.ExtensionByIndex(int(code) - int(base))
	if ext == nil {
		return code, nil, ErrUnknownExtension.NewError(
			"extension index not registered in binary")
	}
	return code, ext, nil
}

// ReadExtensionObject decodes the selector for a member of an extension
// object table with numObjects members and returns the member's index.
// With one member no byte is consumed; with zero members it returns -1.
func (r *Reader) ReadExtensionObject(numObjects int) (int, error) {
	switch {
	case numObjects == 0:
		return -1, nil
	case numObjects == 1:
		return 0, nil
	}
	code, err := r.ReadByte()
	if err != nil {
		return -1, err
	}
	if int(code) >= numObjects {
		return -1, ErrInvalidSelector
	}
	return int(code), nil
}

// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm_test

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/sievevm/sievevm"
)

var seededRand = rand.New(rand.NewSource(1999))

// varintSize returns the minimal number of 7-bit groups encoding v.
func varintSize(v uint64) int {
	n := 1
	for v >>= 7; v > 0; v >>= 7 {
		n++
	}
	return n
}

func TestEmitData(t *testing.T) {
	b := NewBinary()
	require.Equal(t, 0, b.Len())

	addr := b.EmitByte(0x42)
	require.Equal(t, 0, addr)
	addr = b.EmitData([]byte{1, 2, 3})
	require.Equal(t, 1, addr)
	require.Equal(t, 4, b.Len())
	require.Equal(t, []byte{0x42, 1, 2, 3}, b.Bytes())

	require.NoError(t, b.UpdateData(1, []byte{9, 9}))
	require.Equal(t, []byte{0x42, 9, 9, 3}, b.Bytes())
	require.Equal(t, 4, b.Len(), "patches never change the code size")

	err := b.UpdateData(3, []byte{1, 2})
	require.ErrorIs(t, err, ErrInvalidAddress)
	err = b.UpdateData(-1, []byte{1})
	require.ErrorIs(t, err, ErrInvalidAddress)

	b.Commit()
	require.Panics(t, func() { b.EmitByte(1) })
}

func TestIntegerRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 0x7f, 0x80, 0x3fff, 0x4000, 1<<32 - 1, 1 << 32,
		1<<63 - 1, 1 << 63, math.MaxUint64,
	}
	for i := 0; i < 1000; i++ {
		values = append(values, seededRand.Uint64())
	}
	for _, v := range values {
		msg := fmt.Sprintf("value %d", v)
		b := NewBinary()
		addr := b.EmitInteger(v)
		require.Equal(t, 0, addr, msg)
		require.Equal(t, varintSize(v), b.Len(),
			"encoding must use the minimal number of groups: %s", msg)

		r := b.ReaderAt(0)
		got, err := r.ReadInteger()
		require.NoError(t, err, msg)
		require.Equal(t, v, got, msg)
		require.Equal(t, b.Len(), r.Pos(), msg)
	}
}

func TestReadIntegerOverlong(t *testing.T) {
	// eleven continuation groups encode more than 64 bits
	code := make([]byte, 0, 12)
	for i := 0; i < 11; i++ {
		code = append(code, 0x81)
	}
	code = append(code, 0x01)

	r := LoadBinary(code, nil, nil).ReaderAt(0)
	_, err := r.ReadInteger()
	require.ErrorIs(t, err, ErrIntegerOverflow)
}

func TestStringRoundTrip(t *testing.T) {
	values := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("INBOX.spam"),
		[]byte("héllo wörld"),
		[]byte{0x00, 0xff, 0x80},
		make([]byte, 300), // length prefix needs two groups
	}
	for i, v := range values {
		msg := fmt.Sprintf("case %d", i)
		b := NewBinary()
		b.EmitString(v)
		require.Equal(t, varintSize(uint64(len(v)))+len(v)+1, b.Len(), msg)

		r := b.ReaderAt(0)
		got, err := r.ReadString()
		require.NoError(t, err, msg)
		require.Equal(t, v, append([]byte{}, got...), msg)
		require.Equal(t, b.Len(), r.Pos(), msg)
	}
}

func TestStringCorruptTerminator(t *testing.T) {
	b := NewBinary()
	b.EmitString([]byte("frop"))
	require.NoError(t, b.UpdateData(b.Len()-1, []byte{0xaa}))

	r := b.ReaderAt(0)
	_, err := r.ReadString()
	require.ErrorIs(t, err, ErrCorruptString)
}

func TestOffsetPatching(t *testing.T) {
	const n = 17

	b := NewBinary()
	addr := b.EmitOffset(0)
	require.Equal(t, 0, addr)
	b.EmitData(make([]byte, n))
	require.NoError(t, b.ResolveOffset(addr))

	r := b.ReaderAt(addr)
	offset, err := r.ReadOffset()
	require.NoError(t, err)
	require.Equal(t, int32(n+4), offset)
	// the jump primitive adds the offset to the address of the offset
	// field itself, landing just past the emitted data
	require.Equal(t, b.Len(), addr+int(offset))
}

func TestOffsetNegative(t *testing.T) {
	b := NewBinary()
	b.EmitOffset(-9)
	r := b.ReaderAt(0)
	offset, err := r.ReadOffset()
	require.NoError(t, err)
	require.Equal(t, int32(-9), offset)
}

func TestReadBoundsSafety(t *testing.T) {
	empty := LoadBinary(nil, nil, nil)

	r := empty.ReaderAt(0)
	_, err := r.ReadByte()
	require.ErrorIs(t, err, ErrEndOfCode)
	_, err = empty.ReaderAt(0).ReadCode()
	require.ErrorIs(t, err, ErrEndOfCode)
	_, err = empty.ReaderAt(0).ReadInteger()
	require.ErrorIs(t, err, ErrEndOfCode)
	_, err = empty.ReaderAt(0).ReadOffset()
	require.ErrorIs(t, err, ErrEndOfCode)
	_, err = empty.ReaderAt(0).ReadString()
	require.ErrorIs(t, err, ErrEndOfCode)
	_, _, err = empty.ReaderAt(0).ReadExtension(0)
	require.ErrorIs(t, err, ErrEndOfCode)
	_, err = empty.ReaderAt(0).ReadExtensionObject(2)
	require.ErrorIs(t, err, ErrEndOfCode)

	// offset needs all four bytes
	_, err = LoadBinary([]byte{1, 2, 3}, nil, nil).ReaderAt(0).ReadOffset()
	require.ErrorIs(t, err, ErrEndOfCode)

	// integer ending on a continuation byte
	_, err = LoadBinary([]byte{0x81}, nil, nil).ReaderAt(0).ReadInteger()
	require.ErrorIs(t, err, ErrEndOfCode)

	// string length prefix promising more than remains
	_, err = LoadBinary([]byte{5, 'a', 'b'}, nil, nil).ReaderAt(0).ReadString()
	require.ErrorIs(t, err, ErrEndOfCode)

	// payload present but terminator past the end
	_, err = LoadBinary([]byte{2, 'a', 'b'}, nil, nil).ReaderAt(0).ReadString()
	require.ErrorIs(t, err, ErrEndOfCode)
}

func TestSourceLineWalkBack(t *testing.T) {
	b := NewBinary()
	b.MapSourceLine(3)
	b.EmitData([]byte{0, 1, 2})
	b.MapSourceLine(7)
	b.EmitData([]byte{3, 4})

	require.Equal(t, 3, b.SourceLine(0))
	require.Equal(t, 3, b.SourceLine(2))
	require.Equal(t, 7, b.SourceLine(3))
	require.Equal(t, 7, b.SourceLine(4))
	require.Equal(t, 0, NewBinary().SourceLine(5))
}

func TestResolveOffsetBytes(t *testing.T) {
	// the patched value is written big-endian in place
	b := NewBinary()
	addr := b.EmitOffset(0)
	b.EmitData(make([]byte, 256))
	require.NoError(t, b.ResolveOffset(addr))

	want := make([]byte, 4)
	binary.BigEndian.PutUint32(want, 260)
	require.Equal(t, want, b.Bytes()[:4])
}

// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/sievevm/sievevm"
)

func TestExtensionIndexing(t *testing.T) {
	extA := &Extension{Name: "vnd.example.a"}
	extB := &Extension{Name: "vnd.example.b"}
	extC := &Extension{Name: "vnd.example.c"}
	NewRegistry().Register(extA).Register(extB).Register(extC)

	const base Opcode = 0x10

	b := NewBinary()
	for _, ext := range []*Extension{extA, extB, extC, extA, extC} {
		_, err := b.EmitExtension(ext, base)
		require.NoError(t, err)
	}

	// indices are dense, insertion ordered and stable on re-emission
	require.Equal(t, []byte{0x10, 0x11, 0x12, 0x10, 0x12}, b.Bytes())
	require.Equal(t, []*Extension{extA, extB, extC}, b.Extensions())
	require.Equal(t, extB, b.ExtensionByIndex(1))
	require.Nil(t, b.ExtensionByIndex(3))
	require.Nil(t, b.ExtensionByIndex(-1))

	r := b.ReaderAt(0)
	for _, want := range []*Extension{extA, extB, extC, extA, extC} {
		_, ext, err := r.ReadExtension(base)
		require.NoError(t, err)
		require.Equal(t, want, ext)
	}
}

func TestReadExtensionBelowBase(t *testing.T) {
	// codes below the base belong to the caller, not the index table
	r := LoadBinary([]byte{0x03}, nil, nil).ReaderAt(0)
	code, ext, err := r.ReadExtension(0x10)
	require.NoError(t, err)
	require.Nil(t, ext)
	require.Equal(t, byte(0x03), code)
}

func TestReadExtensionUnknownIndex(t *testing.T) {
	// index 2 with only one registered extension is a decode failure,
	// not a silent default
	ext := &Extension{Name: "vnd.example.a"}
	b := NewBinary()
	_, err := b.EmitExtension(ext, 0)
	require.NoError(t, err)
	b.EmitByte(0x02)

	r := b.ReaderAt(1)
	_, _, err = r.ReadExtension(0)
	require.ErrorIs(t, err, ErrUnknownExtension)
}

func TestExtensionObjectTable(t *testing.T) {
	// a selector byte appears only for tables with more than one member
	b := NewBinary()
	b.EmitExtensionObject(0, 9)
	b.EmitExtensionObject(1, 9)
	require.Equal(t, 0, b.Len())
	b.EmitExtensionObject(3, 2)
	require.Equal(t, []byte{2}, b.Bytes())

	r := b.ReaderAt(0)
	idx, err := r.ReadExtensionObject(0)
	require.NoError(t, err)
	require.Equal(t, -1, idx)
	require.Equal(t, 0, r.Pos())

	idx, err = r.ReadExtensionObject(1)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.Equal(t, 0, r.Pos(), "sole member consumes no bytes")

	idx, err = r.ReadExtensionObject(3)
	require.NoError(t, err)
	require.Equal(t, 2, idx)
	require.Equal(t, 1, r.Pos())
}

func TestExtensionObjectBadSelector(t *testing.T) {
	r := LoadBinary([]byte{0x05}, nil, nil).ReaderAt(0)
	_, err := r.ReadExtensionObject(3)
	require.ErrorIs(t, err, ErrInvalidSelector)
}

func TestRegistry(t *testing.T) {
	extA := &Extension{Name: "vnd.example.a"}
	extB := &Extension{
		Name:        "vnd.example.b",
		SideEffects: []*SideEffectDef{{Name: "flag"}},
	}
	reg := NewRegistry().Register(extA).Register(extB)

	require.Equal(t, 0, extA.ID)
	require.Equal(t, 1, extB.ID)
	require.Equal(t, extA, reg.Lookup("vnd.example.a"))
	require.Nil(t, reg.Lookup("vnd.example.frop"))
	require.Equal(t, extB, extB.SideEffects[0].Ext)
	require.Panics(t, func() {
		reg.Register(&Extension{Name: "vnd.example.a"})
	})
}

// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

// Package encoder stores committed binaries in a versioned container so a
// compiled program can be executed or dumped again without recompilation.
// The container holds the extension identity table by name, the code block
// and the source map; extension identities are resolved against a Registry
// when loading.
package encoder

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/sievevm/sievevm"
)

// Binary signature and version are written to the header of an encoded
// binary. A binary is encoded with the current BinaryVersion and its
// format.
const (
	BinarySignature uint32 = 0x53564d42 // "SVMB"
	BinaryVersion   uint16 = 1
)

var (
	// ErrInvalidSignature is returned when the input does not start with
	// BinarySignature.
	ErrInvalidSignature = &sievevm.Error{
		Name:    "InvalidSignatureError",
		Message: "not a sievevm binary",
	}

	// ErrUnsupportedVersion is returned when the input was written by an
	// incompatible format version.
	ErrUnsupportedVersion = &sievevm.Error{
		Name:    "UnsupportedVersionError",
		Message: "unsupported binary format version",
	}

	// ErrTruncated is returned when the input ends before the encoded
	// binary does.
	ErrTruncated = &sievevm.Error{
		Name:    "TruncatedError",
		Message: "encoded binary is truncated",
	}
)

// Encode writes the committed binary to w.
func Encode(w io.Writer, bin *sievevm.Binary) error {
	if !bin.Committed() {
		return sievevm.ErrNotCommitted
	}

	exts := bin.Extensions()
	code := bin.Bytes()
	srcMap := bin.SourceMap()

	buf := make([]byte, 0, 64+len(code))
	buf = binary.BigEndian.AppendUint32(buf, BinarySignature)
	buf = binary.BigEndian.AppendUint16(buf, BinaryVersion)

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(exts)))
	for _, ext := range exts {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(ext.Name)))
		buf = append(buf, ext.Name...)
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(code)))
	buf = append(buf, code...)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(srcMap)))
	for addr, line := range srcMap {
		buf = binary.BigEndian.AppendUint32(buf, uint32(addr))
		buf = binary.BigEndian.AppendUint32(buf, uint32(line))
	}

	n, err := w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return errors.New("short write")
	}
	return nil
}

// Decode reads an encoded binary from r, resolving extension identities
// against the registry. An identity the registry does not know makes the
// whole load fail; a binary must never run with unresolved extensions.
// The returned binary is committed.
func Decode(r io.Reader, reg *sievevm.Registry) (*sievevm.Binary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	d := &decoder{data: data}

	sig, err := d.uint32()
	if err != nil {
		return nil, err
	}
	if sig != BinarySignature {
		return nil, ErrInvalidSignature
	}
	version, err := d.uint16()
	if err != nil {
		return nil, err
	}
	if version != BinaryVersion {
		return nil, ErrUnsupportedVersion
	}

	numExts, err := d.uint16()
	if err != nil {
		return nil, err
	}
	exts := make([]*sievevm.Extension, 0, numExts)
	for i := 0; i < int(numExts); i++ {
		n, err := d.uint16()
		if err != nil {
			return nil, err
		}
		name, err := d.bytes(int(n))
		if err != nil {
			return nil, err
		}
		ext := reg.Lookup(string(name))
		if ext == nil {
			return nil, sievevm.ErrUnknownExtension.NewError(string(name))
		}
		exts = append(exts, ext)
	}

	codeLen, err := d.uint32()
	if err != nil {
		return nil, err
	}
	code, err := d.bytes(int(codeLen))
	if err != nil {
		return nil, err
	}

	numPairs, err := d.uint32()
	if err != nil {
		return nil, err
	}
	var srcMap map[int]int
	if numPairs > 0 {
		srcMap = make(map[int]int, numPairs)
	}
	for i := 0; i < int(numPairs); i++ {
		addr, err := d.uint32()
		if err != nil {
			return nil, err
		}
		line, err := d.uint32()
		if err != nil {
			return nil, err
		}
		srcMap[int(addr)] = int(line)
	}

	return sievevm.LoadBinary(code, exts, srcMap), nil
}

// decoder is a bounds-checked cursor over the raw container bytes.
type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if n < 0 || len(d.data)-d.pos < n {
		return nil, ErrTruncated
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) uint16() (uint16, error) {
	b, err := d.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) uint32() (uint32, error) {
	b, err := d.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

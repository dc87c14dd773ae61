// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sievevm/sievevm"
)

// The listing format, one instruction per line:
//
//	; comment
//	loop:                 label
//	keep
//	discard
//	stop
//	exists "X-Spam-Flag"
//	jmptrue discard_it    jump targets are labels
//
// Labels may be used before they are defined; the assembler patches the
// offset fields once all addresses are known.

type fixup struct {
	addr  int // address of the offset field
	label string
	line  int
}

func assemble(r io.Reader) (*sievevm.Binary, error) {
	bin := sievevm.NewBinary()
	labels := make(map[string]int)
	var fixups []fixup

	sc := bufio.NewScanner(r)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := sc.Text()
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, ":") {
			labels[strings.TrimSpace(strings.TrimSuffix(line, ":"))] = bin.Len()
			continue
		}

		name, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		var err error
		switch strings.ToLower(name) {
		case "keep":
			err = sievevm.EmitKeep(bin, nil, lineno)
		case "discard":
			err = sievevm.EmitDiscard(bin, lineno)
		case "stop":
			err = sievevm.EmitStop(bin)
		case "exists":
			header := arg
			if strings.HasPrefix(header, `"`) {
				header, err = strconv.Unquote(header)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad string %s", lineno, arg)
				}
			}
			err = sievevm.EmitExists(bin, header)
		case "jmp", "jmptrue", "jmpfalse":
			if arg == "" {
				return nil, fmt.Errorf("line %d: %s needs a label", lineno, name)
			}
			code := map[string]sievevm.Opcode{
				"jmp":      sievevm.OpJump,
				"jmptrue":  sievevm.OpJumpTrue,
				"jmpfalse": sievevm.OpJumpFalse,
			}[strings.ToLower(name)]
			var addr int
			addr, err = sievevm.EmitJump(bin, code)
			if err == nil {
				fixups = append(fixups, fixup{addr: addr, label: arg, line: lineno})
			}
		default:
			return nil, fmt.Errorf("line %d: unknown instruction %q", lineno, name)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for _, f := range fixups {
		target, ok := labels[f.label]
		if !ok {
			return nil, fmt.Errorf("line %d: undefined label %q", f.line, f.label)
		}
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(target-f.addr))
		if err := bin.UpdateData(f.addr, buf[:]); err != nil {
			return nil, err
		}
	}

	bin.Commit()
	return bin, nil
}

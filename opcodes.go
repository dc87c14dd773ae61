// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

// Opcode represents a single byte operation code.
//
// Opcode tags are stored as signed bytes in the binary; values with the high
// bit set are reserved for in-band markers (see operandOptional) and can
// never name an operation.
type Opcode = byte

// List of core opcodes. Tags at OpCustom and above reference an
// extension-provided operation through the binary's extension index table.
const (
	OpJump Opcode = iota
	OpJumpTrue
	OpJumpFalse
	OpStop
	OpKeep
	OpDiscard
	OpExists
	OpCustom
)

// OpcodeNames are the dump mnemonics of the core opcodes.
var OpcodeNames = [...]string{
	OpJump:      "JMP",
	OpJumpTrue:  "JMPTRUE",
	OpJumpFalse: "JMPFALSE",
	OpStop:      "STOP",
	OpKeep:      "KEEP",
	OpDiscard:   "DISCARD",
	OpExists:    "EXISTS",
}

// operandOptional marks the start of an optional-operand region after an
// action opcode. Read as a signed opcode tag it is negative, so it cannot
// collide with any operation tag.
const operandOptional byte = 0xff

// Optional operand codes within an optional-operand region. The region is a
// sequence of varint codes, each followed by that operand's payload, ended
// by optOperandEnd.
const (
	optOperandEnd        uint64 = 0
	optOperandSideEffect uint64 = 1
)

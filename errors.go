// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

import (
	"fmt"
	"strings"
)

// Error represents an engine error. Sentinel errors below keep their Name
// and gain a Message and Cause when derived with NewError.
type Error struct {
	Name    string
	Message string
	Cause   error
}

// Error implements error interface.
func (e *Error) Error() string {
	name := e.Name
	if name == "" {
		name = "error"
	}
	return fmt.Sprintf("%s: %s", name, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error and sets the original Error as its cause
// which can be unwrapped.
func (e *Error) NewError(messages ...string) *Error {
	return &Error{
		Name:    e.Name,
		Message: strings.Join(messages, " "),
		Cause:   e,
	}
}

var (
	// ErrEndOfCode is returned when a decode would read past the end of the
	// code block.
	ErrEndOfCode = &Error{
		Name:    "EndOfCodeError",
		Message: "read past end of code",
	}

	// ErrIntegerOverflow is returned when a variable-length integer encodes
	// more bits than the engine's integer width.
	ErrIntegerOverflow = &Error{
		Name:    "IntegerOverflowError",
		Message: "over-long variable-length integer",
	}

	// ErrCorruptString is returned when a string operand is not followed by
	// its zero terminator.
	ErrCorruptString = &Error{
		Name:    "CorruptStringError",
		Message: "string operand lacks zero terminator",
	}

	// ErrInvalidSelector is returned when an extension object selector does
	// not index into the object table.
	ErrInvalidSelector = &Error{
		Name:    "InvalidSelectorError",
		Message: "extension object selector out of range",
	}

	// ErrUnknownExtension is returned when an extension reference in the
	// binary does not resolve against the extension index table.
	ErrUnknownExtension = &Error{Name: "UnknownExtensionError"}

	// ErrUnknownOpcode is returned when an opcode tag names no operation.
	ErrUnknownOpcode = &Error{Name: "UnknownOpcodeError"}

	// ErrInvalidJump is returned when a jump targets an address outside the
	// code block. Invalid jumps are rejected, never clamped.
	ErrInvalidJump = &Error{Name: "InvalidJumpError"}

	// ErrTooManyExtensions is returned by emission when a single binary
	// references more distinct extensions than the one-byte index space
	// can hold.
	ErrTooManyExtensions = &Error{
		Name:    "TooManyExtensionsError",
		Message: "distinct extension references exceed one-byte index space",
	}

	// ErrInvalidAddress is returned when an in-place patch addresses bytes
	// that were never written.
	ErrInvalidAddress = &Error{
		Name:    "InvalidAddressError",
		Message: "patch address out of written range",
	}

	// ErrNotCommitted is returned when encoding a binary that was not
	// committed.
	ErrNotCommitted = &Error{
		Name:    "NotCommittedError",
		Message: "binary is not committed",
	}

	// ErrNoResult is returned when an action operation executes with no
	// result collaborator bound to the run.
	ErrNoResult = &Error{
		Name:    "NoResultError",
		Message: "no result collaborator bound",
	}
)

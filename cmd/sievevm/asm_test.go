// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sievevm/sievevm"
)

const testListing = `
; file spam away, keep the rest
	exists "X-Spam-Flag"
	jmpfalse ham
	discard
	stop
ham:
	keep
`

func TestAssemble(t *testing.T) {
	bin, err := assemble(strings.NewReader(testListing))
	require.NoError(t, err)
	require.True(t, bin.Committed())

	itp, err := sievevm.NewInterpreter(bin, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	result := &printResult{out: &out}

	// no message: exists cannot match, fall through to keep
	require.NoError(t, itp.Run(nil, result))
	require.Equal(t, "action: keep (line 8)\n", out.String())

	out.Reset()
	msg, err := sievevm.ReadMessageData(strings.NewReader(
		"From: frop@example.com\r\nX-Spam-Flag: YES\r\n\r\nfrml\r\n"))
	require.NoError(t, err)
	require.NoError(t, itp.Run(msg, result))
	require.Equal(t, "action: discard (line 5)\n", out.String())
}

func TestAssembleErrors(t *testing.T) {
	_, err := assemble(strings.NewReader("frobnicate"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown instruction")

	_, err = assemble(strings.NewReader("jmp nowhere"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "undefined label")

	_, err = assemble(strings.NewReader("jmptrue"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "needs a label")
}

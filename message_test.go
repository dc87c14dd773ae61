// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/sievevm/sievevm"
)

func TestReadMessageData(t *testing.T) {
	msg, err := ReadMessageData(strings.NewReader(
		"From: stephan@example.org\r\n" +
			"To: sirius@example.com\r\n" +
			"Subject: Frop!\r\n" +
			"\r\n" +
			"Friep!\r\n"))
	require.NoError(t, err)

	require.Equal(t, "stephan@example.org", msg.EnvelopeFrom)
	require.Equal(t, "sirius@example.com", msg.EnvelopeTo)
	require.True(t, msg.HasHeader("Subject"))
	require.True(t, msg.HasHeader("subject"), "header names are case-insensitive")
	require.False(t, msg.HasHeader("X-Spam-Flag"))
}

func TestReadMessageDataEnvelopeHeaders(t *testing.T) {
	// explicit envelope headers win over From/To
	msg, err := ReadMessageData(strings.NewReader(
		"Return-Path: <bounce@example.org>\r\n" +
			"Envelope-To: <final@example.com>\r\n" +
			"From: stephan@example.org\r\n" +
			"To: sirius@example.com\r\n" +
			"\r\n" +
			"Frml.\r\n"))
	require.NoError(t, err)

	require.Equal(t, "bounce@example.org", msg.EnvelopeFrom)
	require.Equal(t, "final@example.com", msg.EnvelopeTo)
}

func TestReadMessageDataFallbacks(t *testing.T) {
	msg, err := ReadMessageData(strings.NewReader(
		"Subject: no addresses here\r\n\r\nFrop.\r\n"))
	require.NoError(t, err)

	require.Equal(t, "sender@example.com", msg.EnvelopeFrom)
	require.Equal(t, "recipient@example.com", msg.EnvelopeTo)
}

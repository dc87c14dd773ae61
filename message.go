// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

import (
	"io"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// MessageData carries the parts of an incoming message the engine exposes
// to test operations and to the host: the envelope addresses and the
// parsed header. The engine never touches the message body.
type MessageData struct {
	EnvelopeFrom string
	EnvelopeTo   string
	Header       mail.Header
}

// Fallback envelope addresses for messages that carry no usable
// sender or recipient headers.
const (
	defaultRecipient = "recipient@example.com"
	defaultSender    = "sender@example.com"
)

// ReadMessageData parses an RFC 5322 message and derives envelope data
// from its headers: the recipient from Envelope-To then To, the sender
// from Return-Path then Sender then From, with fixed fallbacks when none
// parse to an address.
func ReadMessageData(r io.Reader) (*MessageData, error) {
	ent, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, err
	}

	md := &MessageData{Header: mail.Header{Header: ent.Header}}

	md.EnvelopeTo = firstAddress(md.Header, "Envelope-To", "To")
	if md.EnvelopeTo == "" {
		md.EnvelopeTo = defaultRecipient
	}

	md.EnvelopeFrom = firstAddress(md.Header, "Return-Path", "Sender", "From")
	if md.EnvelopeFrom == "" {
		md.EnvelopeFrom = defaultSender
	}
	return md, nil
}

// HasHeader reports whether the message has at least one header field with
// the given name.
func (md *MessageData) HasHeader(name string) bool {
	return md.Header.Has(name)
}

// firstAddress returns the first parseable address found in the given
// header fields, tried in order.
func firstAddress(hdr mail.Header, fields ...string) string {
	for _, field := range fields {
		addrs, err := hdr.AddressList(field)
		if err != nil || len(addrs) == 0 {
			continue
		}
		if addrs[0].Address != "" {
			return addrs[0].Address
		}
	}
	return ""
}

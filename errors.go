// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"errors"
)

// Errors returned by the muc package.
// They all fail fast, before any stanza is put on the wire, and are therefore
// distinguishable from protocol errors (stanza.Error values decoded from the
// server's reply) and from timeouts (the context's error).
var (
	// ErrNotJoined is returned by operations that require current channel
	// membership.
	ErrNotJoined = errors.New("muc: not joined to the channel")

	// ErrJoined is returned when an operation requires that the channel not be
	// joined, for example closing it or creating the room it represents.
	ErrJoined = errors.New("muc: already joined to the channel")

	// ErrJoining is returned when a join, nickname change, or similar presence
	// exchange is attempted while another one is still in flight.
	ErrJoining = errors.New("muc: another presence exchange is in progress")

	// ErrNoNickname is returned when entering a channel without providing a
	// nickname as the address's resourcepart or through the Nick option.
	ErrNoNickname = errors.New("muc: no nickname provided")

	// ErrRoomExists is returned by Create when the room was already present on
	// the service instead of being newly created.
	ErrRoomExists = errors.New("muc: room already exists")

	// ErrNotService is returned when an address that was expected to host
	// multi-user chat does not advertise support for it.
	ErrNotService = errors.New("muc: address does not host a chat service")
)

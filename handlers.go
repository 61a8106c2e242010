// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

// SelfEvents bundles callbacks that fire when our own standing in a channel
// changes.
// Any callback that is nil is skipped.
type SelfEvents struct {
	VoiceGranted      func()
	VoiceRevoked      func()
	ModeratorGranted  func()
	ModeratorRevoked  func()
	MembershipGranted func()
	MembershipRevoked func()
	AdminGranted      func()
	AdminRevoked      func()
	OwnershipGranted  func()
	OwnershipRevoked  func()

	// Kicked and Banned fire after the channel state has been torn down.
	// The actor may be the zero value if the service does not disclose it.
	Kicked func(actor jid.JID, reason string)
	Banned func(actor jid.JID, reason string)

	// Destroyed fires when the channel is destroyed.
	// If the destruction names an alternate venue, alt is an unjoined channel
	// for it, otherwise alt is nil.
	Destroyed func(alt *Channel, reason string)
}

func (h SelfEvents) dispatch(ev EventType) {
	var f func()
	switch ev {
	case EventVoiceGranted:
		f = h.VoiceGranted
	case EventVoiceRevoked:
		f = h.VoiceRevoked
	case EventModeratorGranted:
		f = h.ModeratorGranted
	case EventModeratorRevoked:
		f = h.ModeratorRevoked
	case EventMembershipGranted:
		f = h.MembershipGranted
	case EventMembershipRevoked:
		f = h.MembershipRevoked
	case EventAdminGranted:
		f = h.AdminGranted
	case EventAdminRevoked:
		f = h.AdminRevoked
	case EventOwnershipGranted:
		f = h.OwnershipGranted
	case EventOwnershipRevoked:
		f = h.OwnershipRevoked
	}
	if f != nil {
		f()
	}
}

// OccupantEvents bundles callbacks that fire when another occupant's standing
// in a channel changes.
// Every callback receives the occupant's full in-channel address.
// Any callback that is nil is skipped.
type OccupantEvents struct {
	// Joined and Left fire for plain arrivals and departures.
	Joined func(occupant jid.JID)
	Left   func(occupant jid.JID)

	Kicked func(occupant, actor jid.JID, reason string)
	Banned func(occupant, actor jid.JID, reason string)

	// NicknameChanged fires when an occupant renames itself; nick is the new
	// nickname and the occupant address carries the old one.
	NicknameChanged func(occupant jid.JID, nick string)

	VoiceGranted      func(occupant jid.JID)
	VoiceRevoked      func(occupant jid.JID)
	ModeratorGranted  func(occupant jid.JID)
	ModeratorRevoked  func(occupant jid.JID)
	MembershipGranted func(occupant jid.JID)
	MembershipRevoked func(occupant jid.JID)
	AdminGranted      func(occupant jid.JID)
	AdminRevoked      func(occupant jid.JID)
	OwnershipGranted  func(occupant jid.JID)
	OwnershipRevoked  func(occupant jid.JID)
}

func (h OccupantEvents) dispatch(ev EventType, occupant jid.JID) {
	var f func(jid.JID)
	switch ev {
	case EventVoiceGranted:
		f = h.VoiceGranted
	case EventVoiceRevoked:
		f = h.VoiceRevoked
	case EventModeratorGranted:
		f = h.ModeratorGranted
	case EventModeratorRevoked:
		f = h.ModeratorRevoked
	case EventMembershipGranted:
		f = h.MembershipGranted
	case EventMembershipRevoked:
		f = h.MembershipRevoked
	case EventAdminGranted:
		f = h.AdminGranted
	case EventAdminRevoked:
		f = h.AdminRevoked
	case EventOwnershipGranted:
		f = h.OwnershipGranted
	case EventOwnershipRevoked:
		f = h.OwnershipRevoked
	}
	if f != nil {
		f(occupant)
	}
}

// Handlers bundles every callback a channel can invoke as stanzas for it
// arrive.
// Privilege change events are always delivered before the raw Presence
// callback runs for the same stanza.
type Handlers struct {
	Self     SelfEvents
	Occupant OccupantEvents

	// Subject fires when the channel subject changes.
	Subject func(from jid.JID, subject string)

	// Declined fires when an occupant declines an invitation sent through
	// this channel.
	Declined func(Decline)

	// Presence receives every channel presence after classification.
	Presence func(stanza.Presence)

	// Message receives every groupchat message body sent to the channel.
	Message func(m stanza.Message, body string)
}

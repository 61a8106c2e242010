// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

// Status codes defined by XEP-0045 that drive channel state transitions.
const (
	statusSelf    = 110
	statusCreated = 201
	statusBanned  = 301
	statusNewNick = 303
	statusKicked  = 307
	statusRemoved = 321
)

type mucUser struct {
	XMLName xml.Name `xml:"http://jabber.org/protocol/muc#user x"`
	Item    Item     `xml:"item"`
	Status  []struct {
		Code int `xml:"code,attr"`
	} `xml:"status"`
	Destroy *struct {
		JID    jid.JID `xml:"jid,attr"`
		Reason string  `xml:"reason"`
	} `xml:"destroy"`
}

func (u *mucUser) hasStatus(code int) bool {
	for _, s := range u.Status {
		if s.Code == code {
			return true
		}
	}
	return false
}

type mucPresence struct {
	stanza.Presence
	X mucUser `xml:"http://jabber.org/protocol/muc#user x"`
}

// HandlePresence satisfies mux.PresenceHandler.
// It is expected to be registered with a multiplexer by using HandleClient
// and is not meant to be used directly.
func (c *Client) HandlePresence(p stanza.Presence, r xmlstream.TokenReadEncoder) error {
	c.managedM.Lock()
	channel, ok := c.managed[p.From.Bare().String()]
	c.managedM.Unlock()
	if !ok {
		return nil
	}

	d := xml.NewTokenDecoder(r)
	var decoded mucPresence
	err := d.Decode(&decoded)
	if err != nil {
		return err
	}
	channel.handlePresence(p, decoded.X)
	return nil
}

// handlePresence updates the channel state for a single presence broadcast
// and then fires the matching callbacks.
// The state mutation is completed, and the channel lock released, before any
// callback runs.
func (c *Channel) handlePresence(p stanza.Presence, x mucUser) {
	c.mu.Lock()
	h := c.handlers
	// Whether the broadcast concerns our own occupant. The self status code
	// is not required here: services are not obligated to include it on
	// updates, but the sender address is always authoritative.
	self := p.From.Equal(c.addr)

	if x.Destroy != nil {
		altAddr := x.Destroy.JID
		reason := x.Destroy.Reason
		c.teardown()
		c.mu.Unlock()
		var alt *Channel
		if !altAddr.Equal(jid.JID{}) {
			alt = c.client.Channel(altAddr, c.session)
		}
		if h.Self.Destroyed != nil {
			h.Self.Destroyed(alt, reason)
		}
		if h.Presence != nil {
			h.Presence(p)
		}
		return
	}

	switch p.Type {
	case stanza.AvailablePresence:
		occ := Occupant{
			Addr:        p.From,
			JID:         x.Item.JID,
			Affiliation: x.Item.Affiliation,
			Role:        x.Item.Role,
			Presence:    p,
		}

		if c.join != nil && (x.hasStatus(statusSelf) || p.From.Equal(c.pending)) {
			// Confirmation of a join or nickname change we initiated.
			join := c.join
			c.join = nil
			c.pending = jid.JID{}
			c.addr = p.From
			c.nick = p.From.Resourcepart()
			c.joined = true
			c.created = x.hasStatus(statusCreated)
			c.occupants.put(occ)
			c.mu.Unlock()
			join <- p.From
			if h.Presence != nil {
				h.Presence(p)
			}
			return
		}

		prev, existed := c.occupants.put(occ)
		c.mu.Unlock()
		switch {
		case existed:
			role := roleEvents(prev.Role, occ.Role)
			affiliation := affiliationEvents(prev.Affiliation, occ.Affiliation)
			if self {
				for _, ev := range role {
					h.Self.dispatch(ev)
				}
				for _, ev := range affiliation {
					h.Self.dispatch(ev)
				}
			} else {
				for _, ev := range role {
					h.Occupant.dispatch(ev, p.From)
				}
				for _, ev := range affiliation {
					h.Occupant.dispatch(ev, p.From)
				}
			}
		case !self:
			if h.Occupant.Joined != nil {
				h.Occupant.Joined(p.From)
			}
		}
	case stanza.UnavailablePresence:
		c.occupants.remove(p.From)
		var actor jid.JID
		if x.Item.Actor != nil {
			actor = x.Item.Actor.JID
		}
		reason := x.Item.Reason

		switch {
		case x.hasStatus(statusNewNick):
			// The occupant is about to reappear under the nickname from the
			// item; our own rename is confirmed by the new available presence
			// instead.
			c.mu.Unlock()
			if !self && h.Occupant.NicknameChanged != nil {
				h.Occupant.NicknameChanged(p.From, x.Item.Nick)
			}
		case x.hasStatus(statusBanned):
			if self {
				c.teardown()
				c.mu.Unlock()
				if h.Self.Banned != nil {
					h.Self.Banned(actor, reason)
				}
			} else {
				c.mu.Unlock()
				if h.Occupant.Banned != nil {
					h.Occupant.Banned(p.From, actor, reason)
				}
			}
		case x.hasStatus(statusKicked):
			if self {
				c.teardown()
				c.mu.Unlock()
				if h.Self.Kicked != nil {
					h.Self.Kicked(actor, reason)
				}
			} else {
				c.mu.Unlock()
				if h.Occupant.Kicked != nil {
					h.Occupant.Kicked(p.From, actor, reason)
				}
			}
		case x.hasStatus(statusRemoved):
			// Removed because of an affiliation change, eg. losing membership
			// in a members-only channel.
			if self {
				c.teardown()
				c.mu.Unlock()
				if h.Self.MembershipRevoked != nil {
					h.Self.MembershipRevoked()
				}
			} else {
				c.mu.Unlock()
			}
		case self:
			c.teardown()
			c.mu.Unlock()
		default:
			c.mu.Unlock()
			if h.Occupant.Left != nil {
				h.Occupant.Left(p.From)
			}
		}
	default:
		c.mu.Unlock()
	}

	if h.Presence != nil {
		h.Presence(p)
	}
}

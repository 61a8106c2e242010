// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"testing"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

var (
	testRoom  = jid.MustParse("bridge@muc.example.net")
	testMe    = jid.MustParse("bridge@muc.example.net/me")
	testOther = jid.MustParse("bridge@muc.example.net/them")
)

// joinedChannel returns a channel in the joined state without going through
// the presence exchange.
func joinedChannel(client *Client) *Channel {
	ch := client.Channel(testRoom, nil)
	ch.addr = testMe
	ch.joined = true
	ch.nick = "me"
	ch.occupants.put(Occupant{Addr: testMe, Affiliation: AffiliationOwner, Role: RoleModerator})
	return ch
}

func statuses(codes ...int) []struct {
	Code int `xml:"code,attr"`
} {
	out := make([]struct {
		Code int `xml:"code,attr"`
	}, len(codes))
	for i, code := range codes {
		out[i].Code = code
	}
	return out
}

func available(from jid.JID, a Affiliation, r Role, codes ...int) (stanza.Presence, mucUser) {
	return stanza.Presence{From: from, Type: stanza.AvailablePresence}, mucUser{
		Item:   Item{Affiliation: a, Role: r},
		Status: statuses(codes...),
	}
}

func unavailable(from jid.JID, codes ...int) (stanza.Presence, mucUser) {
	return stanza.Presence{From: from, Type: stanza.UnavailablePresence}, mucUser{
		Status: statuses(codes...),
	}
}

func TestOccupantJoinNoPrivilegeEvents(t *testing.T) {
	ch := joinedChannel(&Client{})
	var events []string
	ch.Handle(Handlers{
		Occupant: OccupantEvents{
			Joined:       func(jid.JID) { events = append(events, "joined") },
			VoiceGranted: func(jid.JID) { events = append(events, "voice-granted") },
		},
	})

	ch.handlePresence(available(testOther, AffiliationNone, RoleVisitor))

	if len(events) != 1 || events[0] != "joined" {
		t.Errorf("wrong events for visitor arrival: got=%v", events)
	}
	if _, ok := ch.Occupant(testOther); !ok {
		t.Errorf("expected occupant in the directory after arrival")
	}
}

func TestVoiceGranted(t *testing.T) {
	ch := joinedChannel(&Client{})
	ch.handlePresence(available(testOther, AffiliationNone, RoleVisitor))

	var events []string
	ch.Handle(Handlers{
		Occupant: OccupantEvents{
			Joined:       func(jid.JID) { events = append(events, "joined") },
			VoiceGranted: func(jid.JID) { events = append(events, "voice-granted") },
		},
	})
	ch.handlePresence(available(testOther, AffiliationNone, RoleParticipant))

	if len(events) != 1 || events[0] != "voice-granted" {
		t.Errorf("wrong events for voice grant: got=%v", events)
	}
}

func TestOwnerDemotedToMember(t *testing.T) {
	ch := joinedChannel(&Client{})
	ch.handlePresence(available(testOther, AffiliationOwner, RoleModerator))

	var events []string
	ch.Handle(Handlers{
		Occupant: OccupantEvents{
			OwnershipRevoked:  func(jid.JID) { events = append(events, "ownership-revoked") },
			MembershipGranted: func(jid.JID) { events = append(events, "membership-granted") },
		},
	})
	ch.handlePresence(available(testOther, AffiliationMember, RoleModerator))

	if len(events) != 2 || events[0] != "ownership-revoked" || events[1] != "membership-granted" {
		t.Errorf("wrong event order for owner demotion: got=%v", events)
	}
}

func TestSelfEventsRouting(t *testing.T) {
	ch := joinedChannel(&Client{})
	var self, other int
	ch.Handle(Handlers{
		Self:     SelfEvents{AdminGranted: func() { self++ }},
		Occupant: OccupantEvents{AdminGranted: func(jid.JID) { other++ }},
	})

	ch.handlePresence(available(testMe, AffiliationAdmin, RoleModerator))

	if self != 1 || other != 0 {
		t.Errorf("own update routed to the wrong sink: self=%d, other=%d", self, other)
	}
}

func TestRedeliveredPresenceIsIdempotent(t *testing.T) {
	ch := joinedChannel(&Client{})
	ch.handlePresence(available(testOther, AffiliationMember, RoleParticipant))

	var events int
	ch.Handle(Handlers{
		Occupant: OccupantEvents{
			Joined:            func(jid.JID) { events++ },
			VoiceGranted:      func(jid.JID) { events++ },
			MembershipGranted: func(jid.JID) { events++ },
		},
	})
	ch.handlePresence(available(testOther, AffiliationMember, RoleParticipant))

	if events != 0 {
		t.Errorf("redelivered presence produced %d events", events)
	}
}

func TestSelfKickTearsDownAtomically(t *testing.T) {
	ch := joinedChannel(&Client{})
	ch.handlePresence(available(testOther, AffiliationNone, RoleParticipant))

	var gotActor jid.JID
	var gotReason string
	ch.Handle(Handlers{
		Self: SelfEvents{Kicked: func(actor jid.JID, reason string) {
			gotActor = actor
			gotReason = reason
			// State must already be torn down when the callback runs.
			if ch.Joined() {
				t.Errorf("still joined inside the kicked callback")
			}
			if len(ch.Occupants()) != 0 {
				t.Errorf("occupant directory not empty inside the kicked callback")
			}
		}},
	})

	p, x := unavailable(testMe, statusKicked)
	x.Item.Actor = &Actor{JID: jid.MustParse("mod@example.net")}
	x.Item.Reason = "flooding"
	ch.handlePresence(p, x)

	if gotReason != "flooding" || !gotActor.Equal(jid.MustParse("mod@example.net")) {
		t.Errorf("wrong kick details: actor=%v, reason=%q", gotActor, gotReason)
	}
	if ch.Joined() {
		t.Errorf("still joined after kick")
	}
	// The depart signal must have been raised for any in-flight leave.
	select {
	case <-ch.depart:
	default:
		t.Errorf("no depart signal after kick")
	}
}

func TestOtherKicked(t *testing.T) {
	ch := joinedChannel(&Client{})
	ch.handlePresence(available(testOther, AffiliationNone, RoleParticipant))

	var kicked, left int
	ch.Handle(Handlers{
		Occupant: OccupantEvents{
			Kicked: func(jid.JID, jid.JID, string) { kicked++ },
			Left:   func(jid.JID) { left++ },
		},
	})
	ch.handlePresence(unavailable(testOther, statusKicked))

	if kicked != 1 || left != 0 {
		t.Errorf("wrong events for occupant kick: kicked=%d, left=%d", kicked, left)
	}
	if _, ok := ch.Occupant(testOther); ok {
		t.Errorf("kicked occupant still in the directory")
	}
	if !ch.Joined() {
		t.Errorf("our own state torn down by another occupant's kick")
	}
}

func TestSelfBanned(t *testing.T) {
	ch := joinedChannel(&Client{})
	var banned int
	ch.Handle(Handlers{
		Self: SelfEvents{Banned: func(jid.JID, string) { banned++ }},
	})
	ch.handlePresence(unavailable(testMe, statusBanned))

	if banned != 1 {
		t.Errorf("wrong number of ban events: %d", banned)
	}
	if ch.Joined() {
		t.Errorf("still joined after ban")
	}
}

func TestNicknameChange(t *testing.T) {
	ch := joinedChannel(&Client{})
	ch.handlePresence(available(testOther, AffiliationNone, RoleParticipant))

	var renames, left int
	ch.Handle(Handlers{
		Occupant: OccupantEvents{
			NicknameChanged: func(occupant jid.JID, nick string) {
				renames++
				if !occupant.Equal(testOther) || nick != "fresh" {
					t.Errorf("wrong rename details: occupant=%v, nick=%q", occupant, nick)
				}
			},
			Left: func(jid.JID) { left++ },
		},
	})

	p, x := unavailable(testOther, statusNewNick)
	x.Item.Nick = "fresh"
	ch.handlePresence(p, x)

	if renames != 1 || left != 0 {
		t.Errorf("wrong events for rename: renames=%d, left=%d", renames, left)
	}
	if _, ok := ch.Occupant(testOther); ok {
		t.Errorf("renamed occupant still present under the old nickname")
	}
}

func TestMembershipRevokedRemoval(t *testing.T) {
	ch := joinedChannel(&Client{})
	var revoked int
	ch.Handle(Handlers{
		Self: SelfEvents{MembershipRevoked: func() { revoked++ }},
	})
	ch.handlePresence(unavailable(testMe, statusRemoved))

	if revoked != 1 {
		t.Errorf("wrong number of revocation events: %d", revoked)
	}
	if ch.Joined() {
		t.Errorf("still joined after members-only removal")
	}
}

func TestPlainDeparture(t *testing.T) {
	ch := joinedChannel(&Client{})
	ch.handlePresence(available(testOther, AffiliationNone, RoleParticipant))

	var left int
	ch.Handle(Handlers{
		Occupant: OccupantEvents{Left: func(jid.JID) { left++ }},
	})
	ch.handlePresence(unavailable(testOther))

	if left != 1 {
		t.Errorf("wrong number of departures: %d", left)
	}
}

func TestDestroyed(t *testing.T) {
	client := &Client{}
	ch := joinedChannel(client)

	var gotReason string
	var gotAlt *Channel
	ch.Handle(Handlers{
		Self: SelfEvents{Destroyed: func(alt *Channel, reason string) {
			gotAlt = alt
			gotReason = reason
		}},
	})

	p := stanza.Presence{From: testMe, Type: stanza.UnavailablePresence}
	x := mucUser{Destroy: &struct {
		JID    jid.JID `xml:"jid,attr"`
		Reason string  `xml:"reason"`
	}{
		JID:    jid.MustParse("lounge@muc.example.net"),
		Reason: "moving",
	}}
	ch.handlePresence(p, x)

	if gotReason != "moving" {
		t.Errorf("wrong destroy reason: %q", gotReason)
	}
	if gotAlt == nil {
		t.Fatalf("expected an alternate channel")
	}
	if !gotAlt.Addr().Equal(jid.MustParse("lounge@muc.example.net")) {
		t.Errorf("wrong alternate address: %v", gotAlt.Addr())
	}
	if gotAlt.Joined() {
		t.Errorf("alternate channel should start unjoined")
	}
	if ch.Joined() {
		t.Errorf("still joined after destroy")
	}
}

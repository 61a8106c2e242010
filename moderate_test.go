// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

func adminChannel(t *testing.T, capture *string) *Channel {
	t.Helper()
	client := &Client{}
	ch := joinedChannel(client)
	ch.session = &fakeSession{
		sendIQ: func(ctx context.Context, payload xml.TokenReader, iq stanza.IQ) (xmlstream.TokenReadCloser, error) {
			if iq.Type != stanza.SetIQ {
				t.Errorf("wrong iq type: %v", iq.Type)
			}
			if !iq.To.Equal(testRoom) {
				t.Errorf("wrong iq target: %v", iq.To)
			}
			*capture = encodeTokens(t, payload)
			return nopCloser{TokenReader: xmlstream.Wrap(
				nil,
				xml.StartElement{Name: xml.Name{Local: "iq"}},
			)}, nil
		},
	}
	return ch
}

func TestKick(t *testing.T) {
	var sent string
	ch := adminChannel(t, &sent)

	err := ch.Kick(testContext(t), "them", "spamming")
	if err != nil {
		t.Fatalf("unexpected error kicking: %v", err)
	}
	for _, want := range []string{
		`http://jabber.org/protocol/muc#admin`,
		`role="none"`,
		`nick="them"`,
		`<reason`,
		`spamming`,
	} {
		if !strings.Contains(sent, want) {
			t.Errorf("payload missing %s: %s", want, sent)
		}
	}
}

func TestSetRolesBatch(t *testing.T) {
	var sent string
	ch := adminChannel(t, &sent)

	err := ch.SetRoles(testContext(t), RoleParticipant, "", "alice", "bob")
	if err != nil {
		t.Fatalf("unexpected error setting roles: %v", err)
	}
	if strings.Count(sent, "<item") != 2 {
		t.Errorf("expected two items in one query: %s", sent)
	}
	if strings.Contains(sent, "<reason") {
		t.Errorf("unexpected reason element: %s", sent)
	}
}

func TestSetAffiliation(t *testing.T) {
	var sent string
	ch := adminChannel(t, &sent)

	err := ch.Ban(testContext(t), jid.MustParse("them@example.net/balcony"), "")
	if err != nil {
		t.Fatalf("unexpected error banning: %v", err)
	}
	if !strings.Contains(sent, `affiliation="outcast"`) {
		t.Errorf("payload missing outcast affiliation: %s", sent)
	}
	// Affiliations are keyed by bare JID.
	if strings.Contains(sent, "balcony") {
		t.Errorf("payload used the full JID: %s", sent)
	}
}

func TestModerationRequiresJoin(t *testing.T) {
	client := &Client{}
	ch := client.Channel(testRoom, &fakeSession{})
	err := ch.Kick(testContext(t), "them", "")
	if !errors.Is(err, ErrNotJoined) {
		t.Errorf("want=%v, got=%v", ErrNotJoined, err)
	}
	err = ch.GrantAdmin(testContext(t), jid.MustParse("them@example.net"), "")
	if !errors.Is(err, ErrNotJoined) {
		t.Errorf("want=%v, got=%v", ErrNotJoined, err)
	}
}

func TestAffiliates(t *testing.T) {
	client := &Client{}
	ch := joinedChannel(client)
	ch.session = &fakeSession{
		unmarshalIQ: func(ctx context.Context, payload xml.TokenReader, iq stanza.IQ, v interface{}) error {
			if iq.Type != stanza.GetIQ {
				t.Errorf("wrong iq type: %v", iq.Type)
			}
			if sent := encodeTokens(t, payload); !strings.Contains(sent, `affiliation="member"`) {
				t.Errorf("wrong list requested: %s", sent)
			}
			return xml.Unmarshal([]byte(`<query xmlns="http://jabber.org/protocol/muc#admin"><item affiliation="member" jid="them@example.net"/></query>`), v)
		},
	}

	members, err := ch.Members(testContext(t))
	if err != nil {
		t.Fatalf("unexpected error fetching members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("wrong number of members: %d", len(members))
	}
	if members[0].Affiliation != AffiliationMember || !members[0].JID.Equal(jid.MustParse("them@example.net")) {
		t.Errorf("wrong member: %+v", members[0])
	}
}

func TestDestroy(t *testing.T) {
	client := &Client{}
	var sent string
	ch := joinedChannel(client)
	ch.session = &fakeSession{
		sendIQ: func(ctx context.Context, payload xml.TokenReader, iq stanza.IQ) (xmlstream.TokenReadCloser, error) {
			sent = encodeTokens(t, payload)
			return nopCloser{TokenReader: xmlstream.Wrap(
				nil,
				xml.StartElement{Name: xml.Name{Local: "iq"}},
			)}, nil
		},
	}

	err := ch.Destroy(testContext(t), "moving", jid.MustParse("lounge@muc.example.net"))
	if err != nil {
		t.Fatalf("unexpected error destroying: %v", err)
	}
	for _, want := range []string{
		`http://jabber.org/protocol/muc#owner`,
		`<destroy`,
		`jid="lounge@muc.example.net"`,
		`moving`,
	} {
		if !strings.Contains(sent, want) {
			t.Errorf("payload missing %s: %s", want, sent)
		}
	}
}

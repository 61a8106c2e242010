// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"
	"strings"
	"testing"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/stanza"
)

func TestGetConfig(t *testing.T) {
	client := &Client{}
	ch := joinedChannel(client)
	ch.session = &fakeSession{
		unmarshalIQ: func(ctx context.Context, payload xml.TokenReader, iq stanza.IQ, v interface{}) error {
			if iq.Type != stanza.GetIQ {
				t.Errorf("wrong iq type: %v", iq.Type)
			}
			if sent := encodeTokens(t, payload); !strings.Contains(sent, NSOwner) {
				t.Errorf("wrong query namespace: %s", sent)
			}
			return xml.Unmarshal([]byte(`<query xmlns="http://jabber.org/protocol/muc#owner"><x xmlns="jabber:x:data" type="form"><title>Configuration</title><field type="boolean" var="muc#roomconfig_publicroom"><value>1</value></field></x></query>`), v)
		},
	}

	data, err := ch.Config(testContext(t))
	if err != nil {
		t.Fatalf("unexpected error fetching config: %v", err)
	}
	if data == nil {
		t.Fatalf("expected a config form")
	}
}

func TestAcceptDefaultConfig(t *testing.T) {
	client := &Client{}
	var sent string
	ch := joinedChannel(client)
	ch.session = &fakeSession{
		sendIQ: func(ctx context.Context, payload xml.TokenReader, iq stanza.IQ) (xmlstream.TokenReadCloser, error) {
			if iq.Type != stanza.SetIQ {
				t.Errorf("wrong iq type: %v", iq.Type)
			}
			sent = encodeTokens(t, payload)
			return nopCloser{TokenReader: xmlstream.Wrap(
				nil,
				xml.StartElement{Name: xml.Name{Local: "iq"}},
			)}, nil
		},
	}

	err := ch.AcceptDefaultConfig(testContext(t))
	if err != nil {
		t.Fatalf("unexpected error accepting defaults: %v", err)
	}
	for _, want := range []string{
		`http://jabber.org/protocol/muc#owner`,
		`jabber:x:data`,
		`type="submit"`,
	} {
		if !strings.Contains(sent, want) {
			t.Errorf("payload missing %s: %s", want, sent)
		}
	}
}

func TestRegistrationForm(t *testing.T) {
	client := &Client{}
	ch := joinedChannel(client)
	ch.session = &fakeSession{
		unmarshalIQ: func(ctx context.Context, payload xml.TokenReader, iq stanza.IQ, v interface{}) error {
			if sent := encodeTokens(t, payload); !strings.Contains(sent, NSRegister) {
				t.Errorf("wrong query namespace: %s", sent)
			}
			return xml.Unmarshal([]byte(`<query xmlns="jabber:iq:register"><x xmlns="jabber:x:data" type="form"><field type="text-single" var="muc#register_roomnick"/></x></query>`), v)
		},
	}

	data, err := ch.RegistrationForm(testContext(t))
	if err != nil {
		t.Fatalf("unexpected error fetching registration form: %v", err)
	}
	if data == nil {
		t.Fatalf("expected a registration form")
	}
}

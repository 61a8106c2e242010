// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/form"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

// NSRegister is the in-band registration namespace used for nickname
// registration with a channel.
const NSRegister = "jabber:iq:register"

// GetConfig requests a room config form.
func GetConfig(ctx context.Context, room jid.JID, s Session) (*form.Data, error) {
	return GetConfigIQ(ctx, stanza.IQ{
		To: room,
	}, s)
}

// GetConfigIQ is like GetConfig except that it lets you customize the IQ.
// Changing the type of the IQ has no effect.
func GetConfigIQ(ctx context.Context, iq stanza.IQ, s Session) (*form.Data, error) {
	if iq.Type != stanza.GetIQ {
		iq.Type = stanza.GetIQ
	}
	formResp := struct {
		XMLName  xml.Name  `xml:"http://jabber.org/protocol/muc#owner query"`
		DataForm form.Data `xml:"jabber:x:data x"`
	}{
		DataForm: form.Data{},
	}
	err := s.UnmarshalIQElement(ctx, xmlstream.Wrap(
		nil,
		xml.StartElement{Name: xml.Name{Space: NSOwner, Local: "query"}},
	), iq, &formResp)
	return &formResp.DataForm, err
}

// SetConfig sets the room config.
// The form should be the one provided by a call to GetConfig with various
// values set.
func SetConfig(ctx context.Context, room jid.JID, form *form.Data, s Session) error {
	return SetConfigIQ(ctx, stanza.IQ{
		To: room,
	}, form, s)
}

// SetConfigIQ is like SetConfig except that it lets you customize the IQ.
// Changing the type of the IQ has no effect.
func SetConfigIQ(ctx context.Context, iq stanza.IQ, form *form.Data, s Session) error {
	if iq.Type != stanza.SetIQ {
		iq.Type = stanza.SetIQ
	}
	submission, _ := form.Submit()
	r, err := s.SendIQElement(ctx, xmlstream.Wrap(
		submission,
		xml.StartElement{Name: xml.Name{Space: NSOwner, Local: "query"}},
	), iq)
	if err != nil {
		return err
	}
	return r.Close()
}

// Config requests the channel's config form.
// Requesting the config of a newly created room keeps it locked; submit the
// form with SetConfig or use AcceptDefaultConfig to open it.
func (c *Channel) Config(ctx context.Context) (*form.Data, error) {
	return GetConfig(ctx, c.Addr(), c.session)
}

// SetConfig submits a config form previously fetched with Config.
func (c *Channel) SetConfig(ctx context.Context, data *form.Data) error {
	return SetConfig(ctx, c.Addr(), data, c.session)
}

// Configure fetches the config form, sets the provided fields, and submits
// it.
// Field identifiers that the service did not offer are reported as an error
// by the underlying form.
func (c *Channel) Configure(ctx context.Context, values map[string]interface{}) error {
	data, err := c.Config(ctx)
	if err != nil {
		return err
	}
	for id, v := range values {
		_, err = data.Set(id, v)
		if err != nil {
			return err
		}
	}
	return c.SetConfig(ctx, data)
}

// AcceptDefaultConfig opens a newly created room with the service's default
// configuration, skipping the config form round trip entirely.
func (c *Channel) AcceptDefaultConfig(ctx context.Context) error {
	r, err := c.session.SendIQElement(ctx, xmlstream.Wrap(
		xmlstream.Wrap(
			nil,
			xml.StartElement{
				Name: xml.Name{Space: "jabber:x:data", Local: "x"},
				Attr: []xml.Attr{{Name: xml.Name{Local: "type"}, Value: "submit"}},
			},
		),
		xml.StartElement{Name: xml.Name{Space: NSOwner, Local: "query"}},
	), stanza.IQ{
		To:   c.Addr(),
		Type: stanza.SetIQ,
	})
	if err != nil {
		return err
	}
	return r.Close()
}

// RegistrationForm fetches the channel's nickname registration form.
// Channels that do not support registration reply with an error.
func (c *Channel) RegistrationForm(ctx context.Context) (*form.Data, error) {
	formResp := struct {
		XMLName  xml.Name  `xml:"jabber:iq:register query"`
		DataForm form.Data `xml:"jabber:x:data x"`
	}{
		DataForm: form.Data{},
	}
	err := c.session.UnmarshalIQElement(ctx, xmlstream.Wrap(
		nil,
		xml.StartElement{Name: xml.Name{Space: NSRegister, Local: "query"}},
	), stanza.IQ{
		To:   c.Addr(),
		Type: stanza.GetIQ,
	}, &formResp)
	if err != nil {
		return nil, err
	}
	return &formResp.DataForm, nil
}

// Register submits a registration form previously fetched with
// RegistrationForm, reserving the nickname it names with the channel.
func (c *Channel) Register(ctx context.Context, data *form.Data) error {
	submission, _ := data.Submit()
	r, err := c.session.SendIQElement(ctx, xmlstream.Wrap(
		submission,
		xml.StartElement{Name: xml.Name{Space: NSRegister, Local: "query"}},
	), stanza.IQ{
		To:   c.Addr(),
		Type: stanza.SetIQ,
	})
	if err != nil {
		return err
	}
	return r.Close()
}

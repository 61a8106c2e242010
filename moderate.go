// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

// itemToken builds a muc#admin <item/> with the given attributes and an
// optional reason child.
func itemToken(attr []xml.Attr, reason string) xml.TokenReader {
	var reasonEl xml.TokenReader
	if reason != "" {
		reasonEl = xmlstream.Wrap(
			xmlstream.Token(xml.CharData(reason)),
			xml.StartElement{Name: xml.Name{Local: "reason"}},
		)
	}
	return xmlstream.Wrap(
		reasonEl,
		xml.StartElement{Name: xml.Name{Local: "item"}, Attr: attr},
	)
}

// sendAdmin submits the items in a single muc#admin set query so that the
// service applies them as one batch.
func (c *Channel) sendAdmin(ctx context.Context, items ...xml.TokenReader) error {
	resp, err := c.session.SendIQElement(ctx, xmlstream.Wrap(
		xmlstream.MultiReader(items...),
		xml.StartElement{Name: xml.Name{Space: NSAdmin, Local: "query"}},
	), stanza.IQ{
		To:   c.Addr(),
		Type: stanza.SetIQ,
	})
	if err != nil {
		return err
	}
	return resp.Close()
}

// SetRole changes the role of the occupant with the given nickname.
// The resulting privilege changes are observed through the presence
// broadcasts the service sends in response, not through the IQ result.
func (c *Channel) SetRole(ctx context.Context, r Role, nick, reason string) error {
	return c.SetRoles(ctx, r, reason, nick)
}

// SetRoles is like SetRole except that it changes several occupants in a
// single query.
func (c *Channel) SetRoles(ctx context.Context, r Role, reason string, nicks ...string) error {
	if !c.Joined() {
		return ErrNotJoined
	}
	roleAttr, err := r.MarshalXMLAttr(xml.Name{Local: "role"})
	if err != nil {
		return err
	}
	items := make([]xml.TokenReader, 0, len(nicks))
	for _, nick := range nicks {
		items = append(items, itemToken([]xml.Attr{
			roleAttr,
			{Name: xml.Name{Local: "nick"}, Value: nick},
		}, reason))
	}
	return c.sendAdmin(ctx, items...)
}

// SetAffiliation changes the affiliation of the given real JID.
// Unlike roles, affiliations survive the user leaving the channel.
func (c *Channel) SetAffiliation(ctx context.Context, a Affiliation, j jid.JID, reason string) error {
	return c.SetAffiliations(ctx, a, reason, j)
}

// SetAffiliations is like SetAffiliation except that it changes several users
// in a single query.
func (c *Channel) SetAffiliations(ctx context.Context, a Affiliation, reason string, jids ...jid.JID) error {
	if !c.Joined() {
		return ErrNotJoined
	}
	affAttr, err := a.MarshalXMLAttr(xml.Name{Local: "affiliation"})
	if err != nil {
		return err
	}
	items := make([]xml.TokenReader, 0, len(jids))
	for _, j := range jids {
		items = append(items, itemToken([]xml.Attr{
			affAttr,
			{Name: xml.Name{Local: "jid"}, Value: j.Bare().String()},
		}, reason))
	}
	return c.sendAdmin(ctx, items...)
}

// Kick removes the occupant with the given nickname from the channel.
// The kicked user may rejoin unless also banned.
func (c *Channel) Kick(ctx context.Context, nick, reason string) error {
	return c.SetRole(ctx, RoleNone, nick, reason)
}

// GrantVoice makes the occupant a participant.
func (c *Channel) GrantVoice(ctx context.Context, nick, reason string) error {
	return c.SetRole(ctx, RoleParticipant, nick, reason)
}

// RevokeVoice makes the occupant a visitor.
func (c *Channel) RevokeVoice(ctx context.Context, nick, reason string) error {
	return c.SetRole(ctx, RoleVisitor, nick, reason)
}

// GrantModerator makes the occupant a moderator.
func (c *Channel) GrantModerator(ctx context.Context, nick, reason string) error {
	return c.SetRole(ctx, RoleModerator, nick, reason)
}

// RevokeModerator demotes the occupant back to participant.
func (c *Channel) RevokeModerator(ctx context.Context, nick, reason string) error {
	return c.SetRole(ctx, RoleParticipant, nick, reason)
}

// Ban makes the user an outcast, removing them from the channel if they are
// present and preventing them from rejoining.
func (c *Channel) Ban(ctx context.Context, j jid.JID, reason string) error {
	return c.SetAffiliation(ctx, AffiliationOutcast, j, reason)
}

// GrantMembership makes the user a member.
func (c *Channel) GrantMembership(ctx context.Context, j jid.JID, reason string) error {
	return c.SetAffiliation(ctx, AffiliationMember, j, reason)
}

// RevokeMembership strips the user of any affiliation.
// In a members-only channel this also removes them from the channel.
func (c *Channel) RevokeMembership(ctx context.Context, j jid.JID, reason string) error {
	return c.SetAffiliation(ctx, AffiliationNone, j, reason)
}

// GrantAdmin makes the user an admin.
func (c *Channel) GrantAdmin(ctx context.Context, j jid.JID, reason string) error {
	return c.SetAffiliation(ctx, AffiliationAdmin, j, reason)
}

// RevokeAdmin demotes the user back to member.
func (c *Channel) RevokeAdmin(ctx context.Context, j jid.JID, reason string) error {
	return c.SetAffiliation(ctx, AffiliationMember, j, reason)
}

// GrantOwnership makes the user an owner.
// A channel always has at least one owner; services refuse to demote the last
// one.
func (c *Channel) GrantOwnership(ctx context.Context, j jid.JID, reason string) error {
	return c.SetAffiliation(ctx, AffiliationOwner, j, reason)
}

// RevokeOwnership demotes the user back to admin.
func (c *Channel) RevokeOwnership(ctx context.Context, j jid.JID, reason string) error {
	return c.SetAffiliation(ctx, AffiliationAdmin, j, reason)
}

// Affiliates fetches the list of users holding the given affiliation.
// Which lists are visible depends on our own privileges in the channel.
func (c *Channel) Affiliates(ctx context.Context, a Affiliation) ([]Item, error) {
	affAttr, err := a.MarshalXMLAttr(xml.Name{Local: "affiliation"})
	if err != nil {
		return nil, err
	}
	resp := struct {
		XMLName xml.Name `xml:"http://jabber.org/protocol/muc#admin query"`
		Items   []Item   `xml:"item"`
	}{}
	err = c.session.UnmarshalIQElement(ctx, xmlstream.Wrap(
		itemToken([]xml.Attr{affAttr}, ""),
		xml.StartElement{Name: xml.Name{Space: NSAdmin, Local: "query"}},
	), stanza.IQ{
		To:   c.Addr(),
		Type: stanza.GetIQ,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// RoleList fetches the list of occupants holding the given role, for example
// the moderator or voice list.
func (c *Channel) RoleList(ctx context.Context, r Role) ([]Item, error) {
	roleAttr, err := r.MarshalXMLAttr(xml.Name{Local: "role"})
	if err != nil {
		return nil, err
	}
	resp := struct {
		XMLName xml.Name `xml:"http://jabber.org/protocol/muc#admin query"`
		Items   []Item   `xml:"item"`
	}{}
	err = c.session.UnmarshalIQElement(ctx, xmlstream.Wrap(
		itemToken([]xml.Attr{roleAttr}, ""),
		xml.StartElement{Name: xml.Name{Space: NSAdmin, Local: "query"}},
	), stanza.IQ{
		To:   c.Addr(),
		Type: stanza.GetIQ,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Owners fetches the owner list.
func (c *Channel) Owners(ctx context.Context) ([]Item, error) {
	return c.Affiliates(ctx, AffiliationOwner)
}

// Admins fetches the admin list.
func (c *Channel) Admins(ctx context.Context) ([]Item, error) {
	return c.Affiliates(ctx, AffiliationAdmin)
}

// Members fetches the member list.
func (c *Channel) Members(ctx context.Context) ([]Item, error) {
	return c.Affiliates(ctx, AffiliationMember)
}

// Outcasts fetches the ban list.
func (c *Channel) Outcasts(ctx context.Context) ([]Item, error) {
	return c.Affiliates(ctx, AffiliationOutcast)
}

// Destroy removes the channel from the service entirely.
// If alt is not the zero value it is advertised to the occupants as the new
// venue, and reason as the explanation.
// Occupants observe the destruction through their presence handlers, not
// through this call.
func (c *Channel) Destroy(ctx context.Context, reason string, alt jid.JID) error {
	var attr []xml.Attr
	if !alt.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{
			Name:  xml.Name{Local: "jid"},
			Value: alt.Bare().String(),
		})
	}
	var reasonEl xml.TokenReader
	if reason != "" {
		reasonEl = xmlstream.Wrap(
			xmlstream.Token(xml.CharData(reason)),
			xml.StartElement{Name: xml.Name{Local: "reason"}},
		)
	}
	resp, err := c.session.SendIQElement(ctx, xmlstream.Wrap(
		xmlstream.Wrap(
			reasonEl,
			xml.StartElement{Name: xml.Name{Local: "destroy"}, Attr: attr},
		),
		xml.StartElement{Name: xml.Name{Space: NSOwner, Local: "query"}},
	), stanza.IQ{
		To:   c.Addr(),
		Type: stanza.SetIQ,
	})
	if err != nil {
		return err
	}
	return resp.Close()
}

// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"encoding/xml"
	"errors"

	"mellium.im/xmpp/jid"
)

// Affiliation is a long-lived association with a channel that is keyed by the
// occupant's real bare JID and survives visits (where the channel keeps a
// member list).
//
// Affiliations other than AffiliationOutcast form a total order:
// none < member < admin < owner.
// AffiliationOutcast (banned) sits outside the order and is only entered or
// left through explicit ban and unban operations.
type Affiliation uint8

// A list of channel affiliations.
const (
	AffiliationNone Affiliation = iota // none

	// Support for these affiliations is recommended, but optional.
	AffiliationMember // member
	AffiliationAdmin  // admin

	// Support for the owner affiliation is required.
	AffiliationOwner // owner

	// Banned from the channel.
	AffiliationOutcast // outcast
)

// String satisfies fmt.Stringer.
func (a Affiliation) String() string {
	switch a {
	case AffiliationNone:
		return "none"
	case AffiliationMember:
		return "member"
	case AffiliationAdmin:
		return "admin"
	case AffiliationOwner:
		return "owner"
	case AffiliationOutcast:
		return "outcast"
	}
	return "none"
}

// UnmarshalXMLAttr satisfies xml.UnmarshalerAttr.
func (a *Affiliation) UnmarshalXMLAttr(attr xml.Attr) error {
	switch attr.Value {
	case AffiliationNone.String():
		*a = AffiliationNone
	case AffiliationMember.String():
		*a = AffiliationMember
	case AffiliationAdmin.String():
		*a = AffiliationAdmin
	case AffiliationOwner.String():
		*a = AffiliationOwner
	case AffiliationOutcast.String():
		*a = AffiliationOutcast
	default:
		return errors.New("muc: unrecognized affiliation")
	}
	return nil
}

// MarshalXMLAttr satisfies xml.MarshalerAttr.
func (a *Affiliation) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if a == nil {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: a.String()}, nil
}

// Role is a temporary position in a channel that lasts for at most the
// duration of a visit.
// Roles form a total order: none < visitor < participant < moderator.
type Role uint8

// A list of channel roles.
const (
	RoleNone Role = iota // none

	// Support for the visitor role is recommended, but optional.
	RoleVisitor // visitor

	// Support for these roles is required.
	RoleParticipant // participant
	RoleModerator   // moderator
)

// String satisfies fmt.Stringer.
func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleVisitor:
		return "visitor"
	case RoleParticipant:
		return "participant"
	case RoleModerator:
		return "moderator"
	}
	return "none"
}

// UnmarshalXMLAttr satisfies xml.UnmarshalerAttr.
func (r *Role) UnmarshalXMLAttr(attr xml.Attr) error {
	switch attr.Value {
	case RoleNone.String():
		*r = RoleNone
	case RoleVisitor.String():
		*r = RoleVisitor
	case RoleParticipant.String():
		*r = RoleParticipant
	case RoleModerator.String():
		*r = RoleModerator
	default:
		return errors.New("muc: unrecognized role")
	}
	return nil
}

// MarshalXMLAttr satisfies xml.MarshalerAttr.
func (r *Role) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if r == nil {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: r.String()}, nil
}

// Actor identifies the entity that performed a moderation action, for example
// the moderator that performed a kick.
type Actor struct {
	XMLName xml.Name `xml:"actor"`
	JID     jid.JID  `xml:"jid,attr"`
	Nick    string   `xml:"nick,attr"`
}

// Item describes the privileges of a single occupant as carried by muc#user
// presence payloads and muc#admin queries.
type Item struct {
	XMLName     xml.Name    `xml:"item"`
	Affiliation Affiliation `xml:"affiliation,attr"`
	Role        Role        `xml:"role,attr"`
	JID         jid.JID     `xml:"jid,attr"`
	Nick        string      `xml:"nick,attr"`
	Actor       *Actor      `xml:"actor"`
	Reason      string      `xml:"reason"`
}

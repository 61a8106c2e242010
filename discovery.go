// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"

	"mellium.im/xmpp"
	"mellium.im/xmpp/disco"
	"mellium.im/xmpp/disco/items"
	"mellium.im/xmpp/jid"
)

// Feature variables advertised by channels in service discovery.
const (
	FeatureHidden            = "muc_hidden"
	FeatureMembersOnly       = "muc_membersonly"
	FeatureModerated         = "muc_moderated"
	FeatureNonAnonymous      = "muc_nonanonymous"
	FeatureOpen              = "muc_open"
	FeaturePasswordProtected = "muc_passwordprotected"
	FeaturePersistent        = "muc_persistent"
	FeaturePublic            = "muc_public"
	FeatureSemiAnonymous     = "muc_semianonymous"
	FeatureTemporary         = "muc_temporary"
	FeatureUnmoderated       = "muc_unmoderated"
	FeatureUnsecured         = "muc_unsecured"
)

// RoomInfo is the discovery information advertised by a single channel.
type RoomInfo struct {
	// Addr is the channel address the info was fetched from.
	Addr jid.JID

	// Name is the channel's human readable name, if advertised.
	Name string

	// Features is the list of feature variables the channel advertises,
	// including the feature constants defined by this package.
	Features []string
}

// Supports reports whether the channel advertised the given feature variable.
func (i *RoomInfo) Supports(feature string) bool {
	for _, f := range i.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// GetRoomInfo fetches the discovery information advertised by a channel.
func GetRoomInfo(ctx context.Context, room jid.JID, s *xmpp.Session) (*RoomInfo, error) {
	info, err := disco.GetInfo(ctx, "", room.Bare(), s)
	if err != nil {
		return nil, err
	}
	ri := &RoomInfo{
		Addr: room.Bare(),
	}
	for _, ident := range info.Identity {
		if ident.Category == "conference" {
			ri.Name = ident.Name
			break
		}
	}
	for _, f := range info.Features {
		ri.Features = append(ri.Features, f.Var)
	}
	return ri, nil
}

// IsService reports whether the address hosts a multi-user chat service.
func IsService(ctx context.Context, addr jid.JID, s *xmpp.Session) (bool, error) {
	info, err := disco.GetInfo(ctx, "", addr, s)
	if err != nil {
		return false, err
	}
	for _, f := range info.Features {
		if f.Var == NS {
			return true, nil
		}
	}
	return false, nil
}

// Services returns the multi-user chat services hosted by the server, found
// by walking the server's advertised items.
// Items that cannot be queried are skipped.
func Services(ctx context.Context, server jid.JID, s *xmpp.Session) ([]jid.JID, error) {
	iter := disco.FetchItems(ctx, items.Item{
		JID: server,
	}, s)
	var found []jid.JID
	for iter.Next() {
		item := iter.Item()
		ok, err := IsService(ctx, item.JID, s)
		if err == nil && ok {
			found = append(found, item.JID)
		}
	}
	err := iter.Err()
	if closeErr := iter.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return found, err
	}
	return found, nil
}

// Rooms returns the public channels advertised by a multi-user chat service.
func Rooms(ctx context.Context, svc jid.JID, s *xmpp.Session) ([]items.Item, error) {
	ok, err := IsService(ctx, svc, s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotService
	}

	iter := disco.FetchItems(ctx, items.Item{
		JID: svc,
	}, s)
	var rooms []items.Item
	for iter.Next() {
		rooms = append(rooms, iter.Item())
	}
	err = iter.Err()
	if closeErr := iter.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return rooms, err
	}
	return rooms, nil
}

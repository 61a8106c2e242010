// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"sync"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

// Occupant is the last known state of a single channel occupant.
type Occupant struct {
	// Addr is the occupant's in-channel address (room@service/nick).
	Addr jid.JID

	// JID is the occupant's real bare JID.
	// It is the zero value unless the channel discloses real JIDs.
	JID jid.JID

	Affiliation Affiliation
	Role        Role

	// Presence is the presence stanza that last updated this record.
	Presence stanza.Presence
}

// occupantMap tracks the occupants currently present in a channel, keyed by
// their full in-channel address.
// A record exists if and only if an available presence has been seen for the
// address and no unavailable presence has followed it.
// Reads may happen from any goroutine while the presence handler mutates the
// map on the session's serve goroutine.
type occupantMap struct {
	sync.RWMutex
	m map[string]Occupant
}

// put stores occ, returning the previous record for the same address if one
// existed.
func (o *occupantMap) put(occ Occupant) (prev Occupant, ok bool) {
	o.Lock()
	defer o.Unlock()
	if o.m == nil {
		o.m = make(map[string]Occupant)
	}
	key := occ.Addr.String()
	prev, ok = o.m[key]
	o.m[key] = occ
	return prev, ok
}

// remove deletes the record for addr, returning it if it existed.
func (o *occupantMap) remove(addr jid.JID) (occ Occupant, ok bool) {
	o.Lock()
	defer o.Unlock()
	occ, ok = o.m[addr.String()]
	if ok {
		delete(o.m, addr.String())
	}
	return occ, ok
}

// get returns the record for addr.
func (o *occupantMap) get(addr jid.JID) (occ Occupant, ok bool) {
	o.RLock()
	defer o.RUnlock()
	occ, ok = o.m[addr.String()]
	return occ, ok
}

// len returns the number of occupants currently present.
func (o *occupantMap) len() int {
	o.RLock()
	defer o.RUnlock()
	return len(o.m)
}

// all returns a snapshot of every record for which keep returns true.
// A nil keep returns every record.
func (o *occupantMap) all(keep func(Occupant) bool) []Occupant {
	o.RLock()
	defer o.RUnlock()
	var occupants []Occupant
	for _, occ := range o.m {
		if keep == nil || keep(occ) {
			occupants = append(occupants, occ)
		}
	}
	return occupants
}

// clear removes every record.
func (o *occupantMap) clear() {
	o.Lock()
	defer o.Unlock()
	o.m = nil
}

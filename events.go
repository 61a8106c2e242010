// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

// EventType identifies a single semantic privilege change derived from a
// presence update.
type EventType uint8

// A list of privilege change events.
const (
	EventVoiceGranted EventType = iota
	EventVoiceRevoked
	EventModeratorGranted
	EventModeratorRevoked
	EventMembershipGranted
	EventMembershipRevoked
	EventAdminGranted
	EventAdminRevoked
	EventOwnershipGranted
	EventOwnershipRevoked
)

// String satisfies fmt.Stringer.
func (e EventType) String() string {
	switch e {
	case EventVoiceGranted:
		return "voice-granted"
	case EventVoiceRevoked:
		return "voice-revoked"
	case EventModeratorGranted:
		return "moderator-granted"
	case EventModeratorRevoked:
		return "moderator-revoked"
	case EventMembershipGranted:
		return "membership-granted"
	case EventMembershipRevoked:
		return "membership-revoked"
	case EventAdminGranted:
		return "admin-granted"
	case EventAdminRevoked:
		return "admin-revoked"
	case EventOwnershipGranted:
		return "ownership-granted"
	case EventOwnershipRevoked:
		return "ownership-revoked"
	}
	return "unknown"
}

// roleEvents maps a role transition onto the ordered list of events it
// implies.
// Voice events fire when an occupant crosses the visitor/participant boundary
// and moderator events when it crosses the participant/moderator boundary;
// a transition across both boundaries fires both events, voice first on the
// way up and voice first on the way down.
// A drop to RoleNone is not treated as a kick here: kicks are signaled by
// status code on an unavailable presence, not by the role diff.
func roleEvents(old, new Role) []EventType {
	switch {
	case old <= RoleVisitor && new == RoleParticipant:
		return []EventType{EventVoiceGranted}
	case old == RoleParticipant && new == RoleModerator:
		return []EventType{EventModeratorGranted}
	case old <= RoleVisitor && new == RoleModerator:
		return []EventType{EventVoiceGranted, EventModeratorGranted}
	case old == RoleModerator && new == RoleParticipant:
		return []EventType{EventModeratorRevoked}
	case old == RoleParticipant && new <= RoleVisitor:
		return []EventType{EventVoiceRevoked}
	case old == RoleModerator && new <= RoleVisitor:
		return []EventType{EventVoiceRevoked, EventModeratorRevoked}
	}
	return nil
}

// affiliationEvents maps an affiliation transition onto the ordered list of
// events it implies.
// At most one revocation and one grant fire per transition and the revocation
// always precedes the grant, so owner→member yields ownership-revoked then
// membership-granted.
// Bans (transitions to AffiliationOutcast) produce no grant: the ban itself
// is signaled by status code on an unavailable presence.
func affiliationEvents(old, new Affiliation) []EventType {
	if old == new {
		return nil
	}
	var events []EventType
	switch {
	case old == AffiliationOwner:
		events = append(events, EventOwnershipRevoked)
	case old == AffiliationAdmin:
		events = append(events, EventAdminRevoked)
	case old == AffiliationMember:
		events = append(events, EventMembershipRevoked)
	}
	switch {
	case new == AffiliationOwner:
		events = append(events, EventOwnershipGranted)
	case new == AffiliationAdmin:
		events = append(events, EventAdminGranted)
	case new == AffiliationMember:
		events = append(events, EventMembershipGranted)
	}
	return events
}

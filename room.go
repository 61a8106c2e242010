// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"context"
	"encoding/xml"
	"sync"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"
)

// Channel represents this client's view of a group chat, conference, or
// chatroom.
//
// Unlike a bare channel address, a Channel carries state: it tracks whether
// we are currently joined and under what nickname, the last known subject,
// and a directory of every occupant currently present, all of which are
// updated as presence broadcasts arrive on the session's serve loop.
// The joined flag, the nickname, and the occupant directory are torn down
// together: being kicked, banned, or losing the room never leaves them
// partially updated.
type Channel struct {
	addr    jid.JID
	pass    string
	client  *Client
	session Session

	mu          sync.Mutex
	joined      bool
	nick        string
	subject     string
	created     bool
	pending     jid.JID
	join        chan jid.JID
	subjectWait chan struct{}
	subjectWant string
	handlers    Handlers

	depart chan struct{}

	occupants occupantMap
}

// Addr returns the address of the channel.
func (c *Channel) Addr() jid.JID {
	return c.addr.Bare()
}

// Me returns our last-known address in the channel.
func (c *Channel) Me() jid.JID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Joined reports whether we are currently an occupant of the channel.
func (c *Channel) Joined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

// Nick returns the nickname confirmed by the service for the current visit,
// or the empty string if we are not joined.
func (c *Channel) Nick() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nick
}

// Subject returns the last subject broadcast seen for the channel.
func (c *Channel) Subject() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subject
}

// Created reports whether the last join created the room.
// A newly created room is locked until its configuration is acknowledged with
// Configure or AcceptDefaultConfig.
func (c *Channel) Created() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

// Handle registers the callbacks invoked as channel stanzas arrive.
// It replaces any previously registered set.
func (c *Channel) Handle(h Handlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = h
}

// Close removes the channel from its client's registry so that the next
// lookup of the same address starts from a fresh, empty session.
// It fails with ErrJoined while the channel is joined.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.joined {
		c.mu.Unlock()
		return ErrJoined
	}
	c.mu.Unlock()
	c.client.forget(c)
	return nil
}

// Occupants returns a snapshot of every occupant currently present in the
// channel, including ourselves.
func (c *Channel) Occupants() []Occupant {
	return c.occupants.all(nil)
}

// Occupant returns the last known state of the occupant with the given
// in-channel address.
func (c *Channel) Occupant(addr jid.JID) (Occupant, bool) {
	return c.occupants.get(addr)
}

// Moderators returns a snapshot of the occupants that currently hold the
// moderator role.
func (c *Channel) Moderators() []Occupant {
	return c.occupants.all(func(o Occupant) bool {
		return o.Role == RoleModerator
	})
}

// Participants returns a snapshot of the occupants that currently hold the
// participant role.
func (c *Channel) Participants() []Occupant {
	return c.occupants.all(func(o Occupant) bool {
		return o.Role == RoleParticipant
	})
}

// Join is like the Client.Join function except that it joins or
// re-synchronizes the current channel.
// Joining under a different nickname than the current one first leaves the
// channel and then enters it again.
func (c *Channel) Join(ctx context.Context, opt ...Option) error {
	return c.JoinPresence(ctx, stanza.Presence{}, opt...)
}

// JoinPresence is like Join except that it gives you more control over the
// presence.
// Changing the presence type has no effect.
func (c *Channel) JoinPresence(ctx context.Context, p stanza.Presence, opt ...Option) error {
	if p.Type != "" {
		p.Type = ""
	}
	if p.ID == "" {
		p.ID = randomID()
	}

	conf := config{}
	for _, o := range opt {
		o(&conf)
	}

	c.mu.Lock()
	target := c.addr
	if !p.To.Equal(jid.JID{}) {
		target = p.To
	}
	if conf.newNick != "" {
		var err error
		target, err = target.WithResource(conf.newNick)
		if err != nil {
			c.mu.Unlock()
			return err
		}
	}
	if target.Resourcepart() == "" {
		c.mu.Unlock()
		return ErrNoNickname
	}
	changingNick := c.joined && !target.Equal(c.addr)
	// Remember the password for later rejoins and invitations.
	if conf.password != "" {
		c.pass = conf.password
	} else {
		conf.password = c.pass
	}
	c.mu.Unlock()

	if changingNick {
		err := c.Leave(ctx, "")
		if err != nil {
			return err
		}
	}

	join, err := c.armJoin(target)
	if err != nil {
		return err
	}
	p.To = target

	errChan := c.errorReply(ctx, conf.TokenReader(), p)
	return c.awaitJoin(ctx, join, errChan)
}

// Leave exits the channel, causing Joined to begin to return false.
func (c *Channel) Leave(ctx context.Context, status string) error {
	return c.LeavePresence(ctx, status, stanza.Presence{})
}

// LeavePresence is like Leave except that it gives you more control over the
// presence.
// Changing the presence type or to attributes has no effect.
func (c *Channel) LeavePresence(ctx context.Context, status string, p stanza.Presence) error {
	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return ErrNotJoined
	}
	addr := c.addr
	c.mu.Unlock()

	if p.Type != stanza.UnavailablePresence {
		p.Type = stanza.UnavailablePresence
	}
	if !p.To.Equal(addr) {
		p.To = addr
	}
	if p.ID == "" {
		p.ID = randomID()
	}

	var inner xml.TokenReader
	if status != "" {
		inner = xmlstream.Wrap(
			xmlstream.Token(xml.CharData(status)),
			xml.StartElement{Name: xml.Name{Local: "status"}},
		)
	}

	errChan := c.errorReply(ctx, inner, p)
	select {
	case err := <-errChan:
		return err
	case <-c.depart:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rejoin leaves and then re-enters the channel under the current nickname,
// forcing the occupant directory back into sync with the service.
func (c *Channel) Rejoin(ctx context.Context, opt ...Option) error {
	c.mu.Lock()
	addr := c.addr
	joined := c.joined
	c.mu.Unlock()
	if joined {
		err := c.Leave(ctx, "")
		if err != nil {
			return err
		}
	}
	return c.JoinPresence(ctx, stanza.Presence{To: addr}, opt...)
}

// SetNick asks the service to change our nickname in the channel.
// It blocks until the service confirms the new in-channel address or the
// context is canceled.
func (c *Channel) SetNick(ctx context.Context, nick string) error {
	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return ErrNotJoined
	}
	target, err := c.addr.WithResource(nick)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if target.Equal(c.addr) {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	join, err := c.armJoin(target)
	if err != nil {
		return err
	}

	errChan := c.errorReply(ctx, nil, stanza.Presence{
		To: target,
		ID: randomID(),
	})
	return c.awaitJoin(ctx, join, errChan)
}

// SetStatus broadcasts a new availability state to the channel without
// leaving it.
// Like any other presence broadcast it is fire-and-forget; the update is
// observed through the occupant directory when the service reflects it.
func (c *Channel) SetStatus(ctx context.Context, show, status string) error {
	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return ErrNotJoined
	}
	addr := c.addr
	c.mu.Unlock()

	var payload xml.TokenReader
	switch {
	case show != "" && status != "":
		payload = xmlstream.MultiReader(
			xmlstream.Wrap(
				xmlstream.Token(xml.CharData(show)),
				xml.StartElement{Name: xml.Name{Local: "show"}},
			),
			xmlstream.Wrap(
				xmlstream.Token(xml.CharData(status)),
				xml.StartElement{Name: xml.Name{Local: "status"}},
			),
		)
	case show != "":
		payload = xmlstream.Wrap(
			xmlstream.Token(xml.CharData(show)),
			xml.StartElement{Name: xml.Name{Local: "show"}},
		)
	case status != "":
		payload = xmlstream.Wrap(
			xmlstream.Token(xml.CharData(status)),
			xml.StartElement{Name: xml.Name{Local: "status"}},
		)
	}

	return c.session.Send(ctx, stanza.Presence{
		To: addr,
		ID: randomID(),
	}.Wrap(payload))
}

// SetSubject attempts to change the channel subject.
// It blocks until the service broadcasts the new subject back to the channel
// or the context is canceled.
func (c *Channel) SetSubject(ctx context.Context, subject string) error {
	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return ErrNotJoined
	}
	if c.subjectWait != nil {
		c.mu.Unlock()
		return ErrJoining
	}
	wait := make(chan struct{})
	c.subjectWait = wait
	c.subjectWant = subject
	addr := c.addr.Bare()
	c.mu.Unlock()

	err := c.session.Send(ctx, stanza.Message{
		To:   addr,
		Type: stanza.GroupChatMessage,
		ID:   randomID(),
	}.Wrap(xmlstream.Wrap(
		xmlstream.Token(xml.CharData(subject)),
		xml.StartElement{Name: xml.Name{Local: "subject"}},
	)))
	if err != nil {
		c.abortSubject(wait)
		return err
	}

	select {
	case <-wait:
		return nil
	case <-ctx.Done():
		c.abortSubject(wait)
		return ctx.Err()
	}
}

// Invite sends a mediated invitation (an invitation sent from the channel
// itself) to the user.
//
// For direct invitations sent from your own account (ie. to avoid users who
// block all unrecognized JIDs) see the Invite function.
func (c *Channel) Invite(ctx context.Context, reason string, to jid.JID) error {
	c.mu.Lock()
	pass := c.pass
	c.mu.Unlock()
	return c.session.Send(ctx, stanza.Message{
		To:   c.addr.Bare(),
		Type: stanza.NormalMessage,
	}.Wrap(Invitation{
		JID:      to,
		Password: pass,
		Reason:   reason,
	}.MarshalMediated()))
}

// armJoin registers a pending presence exchange targeting the given
// in-channel address.
func (c *Channel) armJoin(target jid.JID) (chan jid.JID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.join != nil {
		return nil, ErrJoining
	}
	select {
	case <-c.depart:
	default:
	}
	join := make(chan jid.JID, 1)
	c.join = join
	c.pending = target
	return join, nil
}

// awaitJoin blocks until the pending presence exchange armed with join
// completes, fails with an error reply, or is canceled.
func (c *Channel) awaitJoin(ctx context.Context, join chan jid.JID, errChan <-chan error) error {
	select {
	case err := <-errChan:
		c.abortJoin(join)
		return err
	case <-join:
		return nil
	case <-ctx.Done():
		c.abortJoin(join)
		return ctx.Err()
	}
}

// abortJoin rolls back the pending exchange if it is still the one armed
// with join.
func (c *Channel) abortJoin(join chan jid.JID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.join == join {
		c.join = nil
		c.pending = jid.JID{}
	}
}

func (c *Channel) abortSubject(wait chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subjectWait == wait {
		c.subjectWait = nil
		c.subjectWant = ""
	}
}

// errorReply transmits the presence and forwards any error reply, decoded
// with stanza.UnmarshalError, on the returned channel.
// Successful presence exchanges are not acknowledged by the service, so a
// send that works simply blocks until the context expires.
func (c *Channel) errorReply(ctx context.Context, payload xml.TokenReader, p stanza.Presence) <-chan error {
	errChan := make(chan error, 1)
	go func() {
		resp, err := c.session.SendPresenceElement(ctx, payload, p)
		if err != nil {
			errChan <- err
			return
		}
		/* #nosec */
		defer resp.Close()
		// Pop the start presence token.
		_, err = resp.Token()
		if err != nil {
			errChan <- err
			return
		}
		stanzaError, err := stanza.UnmarshalError(resp)
		if err != nil {
			errChan <- err
			return
		}
		errChan <- stanzaError
	}()
	return errChan
}

// teardown clears the joined flag, the nickname, and the occupant directory
// together and releases any caller blocked in LeavePresence.
// Callers must hold c.mu.
func (c *Channel) teardown() {
	c.joined = false
	c.nick = ""
	c.created = false
	c.occupants.clear()
	select {
	case c.depart <- struct{}{}:
	default:
	}
}

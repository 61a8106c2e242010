// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package muc implements stateful multi-user chat rooms.
//
// Each room the client participates in is represented by a Channel that
// tracks membership, privileges, the subject, and a live directory of
// occupants, all kept in sync by classifying the presence broadcasts the
// service sends.
// A Client owns one Channel per room and routes incoming stanzas to it;
// registering the client on a multiplexer with HandleClient is all the
// wiring required.
package muc // import "mellium.im/muc"

import (
	"context"
	"encoding/xml"
	"log"
	"sync"

	"mellium.im/xmlstream"
	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/mux"
	"mellium.im/xmpp/stanza"
)

// Namespaces used by this package.
const (
	NS      = `http://jabber.org/protocol/muc`
	NSUser  = `http://jabber.org/protocol/muc#user`
	NSOwner = `http://jabber.org/protocol/muc#owner`
	NSAdmin = `http://jabber.org/protocol/muc#admin`

	// NSConf is the legacy conference namespace, now only used for direct
	// invitations and backwards compatibility.
	NSConf = `jabber:x:conference`
)

// Session is the subset of the xmpp session API consumed by channels.
// It is satisfied by *xmpp.Session.
type Session interface {
	Send(ctx context.Context, r xml.TokenReader) error
	SendPresenceElement(ctx context.Context, payload xml.TokenReader, p stanza.Presence) (xmlstream.TokenReadCloser, error)
	SendIQElement(ctx context.Context, payload xml.TokenReader, iq stanza.IQ) (xmlstream.TokenReadCloser, error)
	UnmarshalIQElement(ctx context.Context, payload xml.TokenReader, iq stanza.IQ, v interface{}) error
}

// HandleClient returns an option that registers the client for use with a
// multiplexer.
func HandleClient(h *Client) mux.Option {
	return func(m *mux.ServeMux) {
		userPayload := xml.Name{Space: NSUser, Local: "x"}

		mux.Presence(stanza.AvailablePresence, userPayload, h)(m)
		mux.Presence(stanza.UnavailablePresence, userPayload, h)(m)
		mux.Message(stanza.NormalMessage, userPayload, h)(m)
		mux.Message(stanza.GroupChatMessage, xml.Name{Local: "subject"}, h)(m)
		mux.Message(stanza.GroupChatMessage, xml.Name{Local: "body"}, h)(m)
	}
}

// Client is an xmpp.Handler that handles multi-user chat payloads.
// It keeps at most one Channel per room address; looking a room up twice
// yields the same channel and the same state.
type Client struct {
	managed  map[string]*Channel
	managedM sync.Mutex

	// HandleInvite is called when we receive a mediated channel invitation.
	HandleInvite func(Invitation)

	// HandleDecline is called when an invitation we sent is declined and no
	// channel handler consumed the decline.
	HandleDecline func(Decline)

	// RejoinSuccess and RejoinFailure report the outcome of each channel
	// attempted by Rejoin.
	RejoinSuccess func(*Channel)
	RejoinFailure func(*Channel, error)
}

// Channel returns the channel for the given room address, creating an empty,
// unjoined one if the client has not seen the address before.
// The address is stripped to its bare form before lookup.
func (c *Client) Channel(room jid.JID, s Session) *Channel {
	bare := room.Bare()
	c.managedM.Lock()
	defer c.managedM.Unlock()
	if channel, ok := c.managed[bare.String()]; ok {
		return channel
	}
	channel := &Channel{
		addr:    bare,
		client:  c,
		session: s,
		depart:  make(chan struct{}, 1),
	}
	if c.managed == nil {
		c.managed = make(map[string]*Channel)
	}
	c.managed[bare.String()] = channel
	return channel
}

// lookup returns the channel for the bare room address, if one is managed.
func (c *Client) lookup(room jid.JID) (*Channel, bool) {
	c.managedM.Lock()
	defer c.managedM.Unlock()
	channel, ok := c.managed[room.Bare().String()]
	return channel, ok
}

// forget drops the channel from the registry.
func (c *Client) forget(ch *Channel) {
	c.managedM.Lock()
	defer c.managedM.Unlock()
	key := ch.addr.Bare().String()
	if c.managed[key] == ch {
		delete(c.managed, key)
	}
}

// Join a room and begin routing events for it.
// The to address must include the nickname to join under as its resourcepart
// unless the Nick option is provided.
func (c *Client) Join(ctx context.Context, room jid.JID, s Session, opt ...Option) (*Channel, error) {
	return c.JoinPresence(ctx, stanza.Presence{To: room}, s, opt...)
}

// JoinPresence is like Join except that it gives you more control over the
// presence.
// Changing the presence type has no effect.
func (c *Client) JoinPresence(ctx context.Context, p stanza.Presence, s Session, opt ...Option) (*Channel, error) {
	c.managedM.Lock()
	_, fresh := c.managed[p.To.Bare().String()]
	fresh = !fresh
	c.managedM.Unlock()

	channel := c.Channel(p.To, s)
	err := channel.JoinPresence(ctx, p, opt...)
	if err != nil {
		if fresh {
			c.forget(channel)
		}
		return nil, err
	}
	return channel, nil
}

// Create joins a room, asserting that it does not exist yet.
// If the service reports that the room already existed the join is undone and
// ErrRoomExists is returned.
// The newly created room is locked until its configuration is submitted with
// Configure or AcceptDefaultConfig.
func (c *Client) Create(ctx context.Context, room jid.JID, s Session, opt ...Option) (*Channel, error) {
	if channel, ok := c.lookup(room); ok && channel.Joined() {
		return nil, ErrJoined
	}

	channel, err := c.JoinPresence(ctx, stanza.Presence{To: room}, s, opt...)
	if err != nil {
		return nil, err
	}
	if !channel.Created() {
		leaveErr := channel.Leave(ctx, "")
		if leaveErr != nil {
			return nil, leaveErr
		}
		return nil, ErrRoomExists
	}
	return channel, nil
}

// Joined returns the bare addresses of every channel that is currently
// joined.
func (c *Client) Joined() []jid.JID {
	c.managedM.Lock()
	channels := make([]*Channel, 0, len(c.managed))
	for _, channel := range c.managed {
		channels = append(channels, channel)
	}
	c.managedM.Unlock()

	var joined []jid.JID
	for _, channel := range channels {
		if channel.Joined() {
			joined = append(joined, channel.Addr())
		}
	}
	return joined
}

// Rejoin re-enters every currently joined channel, eg. after a stream
// resumption that may have missed presence broadcasts.
// It stops at the first channel that fails to rejoin; if RejoinFailure is
// nil the failure is logged instead.
func (c *Client) Rejoin(ctx context.Context) {
	c.managedM.Lock()
	channels := make([]*Channel, 0, len(c.managed))
	for _, channel := range c.managed {
		channels = append(channels, channel)
	}
	c.managedM.Unlock()

	for _, channel := range channels {
		if !channel.Joined() {
			continue
		}
		err := channel.Rejoin(ctx)
		if err != nil {
			if c.RejoinFailure != nil {
				c.RejoinFailure(channel, err)
			} else {
				log.Printf("muc: rejoining %s: %v", channel.Addr(), err)
			}
			return
		}
		if c.RejoinSuccess != nil {
			c.RejoinSuccess(channel)
		}
	}
}

// HandleMessage satisfies mux.MessageHandler.
// It is expected to be registered with a multiplexer by using HandleClient
// and is not meant to be used directly.
func (c *Client) HandleMessage(p stanza.Message, r xmlstream.TokenReadEncoder) error {
	d := xml.NewTokenDecoder(r)
	msg := struct {
		stanza.Message
		Subject *string         `xml:"subject"`
		Body    string          `xml:"body"`
		X       *mucUserMessage `xml:"http://jabber.org/protocol/muc#user x"`
	}{}
	err := d.Decode(&msg)
	if err != nil {
		return err
	}

	channel, managed := c.lookup(p.From)

	switch p.Type {
	case stanza.GroupChatMessage:
		if !managed {
			return nil
		}
		switch {
		case msg.Subject != nil && msg.Body == "":
			channel.updateSubject(p.From, *msg.Subject)
		case msg.Body != "":
			channel.incomingMessage(p, msg.Body)
		}
	default:
		if msg.X == nil {
			return nil
		}
		switch {
		case msg.X.Decline != nil:
			decline := Decline{
				Room:   p.From.Bare(),
				From:   msg.X.Decline.From,
				Reason: msg.X.Decline.Reason,
			}
			if managed && channel.incomingDecline(decline) {
				return nil
			}
			if c.HandleDecline != nil {
				c.HandleDecline(decline)
			}
		case msg.X.Invite != nil:
			if c.HandleInvite == nil {
				return nil
			}
			invite := Invitation{
				XMLName:  msg.X.XMLName,
				JID:      p.From,
				From:     msg.X.Invite.From,
				Password: msg.X.Password,
				Reason:   msg.X.Invite.Reason,
			}
			if msg.X.Invite.Continue != nil {
				invite.Continue = true
				invite.Thread = msg.X.Invite.Continue.Thread
			}
			c.HandleInvite(invite)
		}
	}
	return nil
}

// mucUserMessage is the muc#user payload as it appears on messages
// (invitations and declines) rather than on presence broadcasts.
type mucUserMessage struct {
	XMLName xml.Name        `xml:"http://jabber.org/protocol/muc#user x"`
	Invite  *mucUserRouting `xml:"invite"`
	Decline *mucUserRouting `xml:"decline"`

	Password string `xml:"password"`
}

type mucUserRouting struct {
	To       jid.JID `xml:"to,attr"`
	From     jid.JID `xml:"from,attr"`
	Reason   string  `xml:"reason"`
	Continue *struct {
		Thread string `xml:"thread,attr"`
	} `xml:"continue"`
}

// updateSubject records a subject broadcast, releasing any SetSubject call
// that is waiting on it.
func (c *Channel) updateSubject(from jid.JID, subject string) {
	c.mu.Lock()
	c.subject = subject
	h := c.handlers
	var wait chan struct{}
	if c.subjectWait != nil && subject == c.subjectWant {
		wait = c.subjectWait
		c.subjectWait = nil
		c.subjectWant = ""
	}
	c.mu.Unlock()

	if wait != nil {
		close(wait)
	}
	if h.Subject != nil {
		h.Subject(from, subject)
	}
}

func (c *Channel) incomingMessage(m stanza.Message, body string) {
	c.mu.Lock()
	h := c.handlers
	c.mu.Unlock()
	if h.Message != nil {
		h.Message(m, body)
	}
}

// incomingDecline reports whether a channel handler consumed the decline.
func (c *Channel) incomingDecline(d Decline) bool {
	c.mu.Lock()
	h := c.handlers
	c.mu.Unlock()
	if h.Declined == nil {
		return false
	}
	h.Declined(d)
	return true
}

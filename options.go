// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"encoding/xml"
	"math"
	"strconv"
	"time"

	"mellium.im/xmlstream"
)

// config is the muc join payload built up from the provided options.
type config struct {
	history  []xml.Attr
	password string
	newNick  string
}

// TokenReader satisfies the xmlstream.Marshaler interface.
// The muc <x/> element is always emitted, even when empty, to mark the
// presence as a join rather than a normal broadcast.
func (c config) TokenReader() xml.TokenReader {
	var inner []xml.TokenReader
	if len(c.history) > 0 {
		inner = append(inner, xmlstream.Wrap(
			nil,
			xml.StartElement{Name: xml.Name{Local: "history"}, Attr: c.history},
		))
	}
	if c.password != "" {
		inner = append(inner, xmlstream.Wrap(
			xmlstream.Token(xml.CharData(c.password)),
			xml.StartElement{Name: xml.Name{Local: "password"}},
		))
	}
	return xmlstream.Wrap(
		xmlstream.MultiReader(inner...),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "x"}},
	)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (c config) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	return xmlstream.Copy(w, c.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (c config) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := c.WriteXML(e)
	return err
}

func (c *config) historyAttr(local, value string) {
	c.history = append(c.history, xml.Attr{
		Name:  xml.Name{Local: local},
		Value: value,
	})
}

// Option is used to configure joining a channel.
type Option func(*config)

// MaxHistory configures the maximum number of messages that will be sent to
// the client when joining the room.
func MaxHistory(messages uint64) Option {
	return func(c *config) {
		c.historyAttr("maxstanzas", strconv.FormatUint(messages, 10))
	}
}

// MaxBytes configures the maximum number of bytes of XML that will be sent to
// the client when joining the room.
func MaxBytes(b uint64) Option {
	return func(c *config) {
		c.historyAttr("maxchars", strconv.FormatUint(b, 10))
	}
}

// Duration configures the room to send history received within a window of
// time.
func Duration(d time.Duration) Option {
	return func(c *config) {
		s := uint64(math.Abs(math.Round(d.Seconds())))
		c.historyAttr("seconds", strconv.FormatUint(s, 10))
	}
}

// Since configures the room to send history received since the provided time.
func Since(t time.Time) Option {
	return func(c *config) {
		c.historyAttr("since", t.UTC().Format(time.RFC3339Nano))
	}
}

// Password is used to join password protected rooms.
func Password(p string) Option {
	return func(c *config) {
		c.password = p
	}
}

// Nick overrides the resourcepart of the JID and joins under a different
// nickname.
// It is mostly useful to avoid building a full room JID when the channel is
// already known.
func Nick(n string) Option {
	return func(c *config) {
		c.newNick = n
	}
}

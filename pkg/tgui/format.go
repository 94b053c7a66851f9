package tgui

import (
	"strconv"
	"strings"

	"lassbot/internal/transport"
)

// Format is the transport.Formatter for Telegram HTML.
type Format struct{}

var _ transport.Formatter = Format{}

func (Format) Bold(s string) string   { return B(s).String() }
func (Format) Code(s string) string   { return Code(s).String() }
func (Format) Escape(s string) string { return Esc(s).String() }

func (Format) UserMention(id int64) string {
	return Mention(strconv.FormatInt(id, 10), id).String()
}

func (Format) ChannelMention(id int64) string {
	return Code(strconv.FormatInt(id, 10)).String()
}

const (
	maxCardTitle = 256
	maxCardField = 1024
)

// RenderCard lays a card out as an HTML block: bold title, description,
// one "name: value" line per field, then the footer in italics. The image
// link goes first so Telegram's link preview shows it.
func RenderCard(c transport.Card) H {
	var parts []H
	if c.Title != "" {
		parts = append(parts, B(TruncRunes(c.Title, maxCardTitle)))
	}
	if c.Description != "" {
		parts = append(parts, Esc(c.Description))
	}
	if len(c.Fields) > 0 {
		lines := make([]H, 0, len(c.Fields))
		for _, f := range c.Fields {
			lines = append(lines, B(f.Name)+": "+Esc(TruncRunes(f.Value, maxCardField)))
		}
		parts = append(parts, JoinH("\n", lines...))
	}
	if c.Footer != "" {
		parts = append(parts, I(c.Footer))
	}
	out := JoinH("\n\n", parts...)
	if u := strings.TrimSpace(c.ImageURL); u != "" {
		out = Link("\u200b", u) + out
	}
	return out
}

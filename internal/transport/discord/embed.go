package discord

import (
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"lassbot/internal/transport"
)

// Embed limits enforced by Discord.
const (
	embedTitle       = 256
	embedDescription = 4096
	embedFields      = 25
	embedFieldName   = 256
	embedFieldValue  = 1024
	embedFooter      = 2048
)

func toEmbed(c transport.Card) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       clip(c.Title, embedTitle),
		Description: clip(c.Description, embedDescription),
		Color:       c.Color,
	}
	for i, f := range c.Fields {
		if i == embedFields {
			break
		}
		name, value := clip(f.Name, embedFieldName), clip(f.Value, embedFieldValue)
		// Discord rejects empty field names or values.
		if name == "" {
			name = "\u200b"
		}
		if value == "" {
			value = "\u200b"
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: name, Value: value, Inline: f.Inline})
	}
	if c.ImageURL != "" {
		e.Image = &discordgo.MessageEmbedImage{URL: c.ImageURL}
	}
	if c.ThumbnailURL != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: c.ThumbnailURL}
	}
	if c.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: clip(c.Footer, embedFooter)}
	}
	return e
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

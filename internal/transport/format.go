package transport

import (
	"strconv"
	"strings"
)

// Markdown is the Discord-flavoured Formatter. Test fakes embed it too.
type Markdown struct{}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "~", `\~`, "|", `\|`, ">", `\>`,
)

func (Markdown) Bold(s string) string           { return "**" + mdEscaper.Replace(s) + "**" }
func (Markdown) Code(s string) string           { return "`" + strings.ReplaceAll(s, "`", "'") + "`" }
func (Markdown) Escape(s string) string         { return mdEscaper.Replace(s) }
func (Markdown) UserMention(id int64) string    { return "<@" + strconv.FormatInt(id, 10) + ">" }
func (Markdown) ChannelMention(id int64) string { return "<#" + strconv.FormatInt(id, 10) + ">" }

// ParseUserRef accepts a raw id or a Discord mention (<@id>, <@!id>).
func ParseUserRef(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimPrefix(strings.TrimSuffix(s[2:], ">"), "!")
	}
	return parseID(s)
}

// ParseChannelRef accepts a raw id (Telegram chat ids may be negative) or a
// Discord channel mention (<#id>).
func ParseChannelRef(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<#") && strings.HasSuffix(s, ">") {
		s = s[2 : len(s)-1]
	}
	return parseID(s)
}

func parseID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

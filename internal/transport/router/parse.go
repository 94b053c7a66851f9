package router

import (
	"strings"

	"github.com/google/uuid"
)

func newReqID() string {
	id := uuid.New()
	// first 8 hex chars are enough to correlate log lines
	return id.String()[:8]
}

// Tokenize is the argument splitter used for every command.
func Tokenize(s string) []string { return tokenizeCommandLine(s) }

// tokenizeCommandLine splits command text into tokens while supporting quotes.
// Examples:
//
//	$addpower "Fire Ball" "burns things" "+2 dmg" "-1 def"
func tokenizeCommandLine(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		out   []string
		buf   strings.Builder
		inQ   bool
		qChar rune
		esc   bool
		had   bool
	)
	flush := func() {
		if buf.Len() > 0 || had {
			out = append(out, buf.String())
			buf.Reset()
		}
		had = false
	}
	for _, ch := range s {
		if esc {
			buf.WriteRune(ch)
			esc = false
			continue
		}
		if ch == '\\' {
			esc = true
			continue
		}
		if inQ {
			if ch == qChar {
				inQ = false
				continue
			}
			buf.WriteRune(ch)
			continue
		}
		switch ch {
		case '"', '“', '”':
			inQ = true
			had = true
			qChar = ch
			if ch == '“' {
				qChar = '”'
			}
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			buf.WriteRune(ch)
		}
	}
	flush()
	return out
}

// splitCommand strips the prefix and returns the lower-cased command name and
// the text after it. ok is false when text is not a command.
func splitCommand(text string, prefixes ...string) (name, rest string, ok bool) {
	text = strings.TrimSpace(text)
	matched := ""
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(text, p) && len(p) > len(matched) {
			matched = p
		}
	}
	if matched == "" {
		return "", "", false
	}
	body := text[len(matched):]
	if body == "" || body[0] == ' ' {
		return "", "", false
	}
	name = body
	if i := strings.IndexAny(body, " \t\n"); i >= 0 {
		name, rest = body[:i], strings.TrimSpace(body[i+1:])
	}
	// Telegram appends the bot username in groups: /help@lassbot
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(name), rest, true
}

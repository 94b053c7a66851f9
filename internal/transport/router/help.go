package router

import (
	"context"
	"strings"

	"lassbot/internal/i18n"
	"lassbot/internal/transport"
)

func (m *CommandManager) handleHelp(ctx context.Context, req *Request) error {
	return req.Reply(ctx, m.helpText(req.Adapter, req.Tr, req.Prefix, req.Arg(0)))
}

// helpText renders the command list, or the details of one command when
// name is set, in the adapter's markup.
func (m *CommandManager) helpText(f transport.Formatter, tr *i18n.Translator, prefix, name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), prefix)
	if name != "" {
		c, ok := m.Lookup(name)
		if !ok || c.Hidden {
			return tr.T(i18n.MsgHelpUnknown, f.Code(name))
		}
		return helpDetail(f, tr, prefix, c)
	}

	lines := []string{f.Bold(tr.T(i18n.MsgHelpHeader))}
	for _, c := range m.Commands() {
		if c.Hidden {
			continue
		}
		lines = append(lines, helpLine(f, tr, prefix, c))
	}
	return strings.Join(lines, "\n")
}

func helpLine(f transport.Formatter, tr *i18n.Translator, prefix string, c Command) string {
	usage := strings.TrimSpace(c.Usage)
	if usage == "" {
		usage = c.Name
	}
	line := f.Code(prefix + usage)
	if c.Description != "" {
		line += " - " + f.Escape(tr.T(c.Description))
	}
	if c.Access == AccessOwnerOnly {
		line = "🔒 " + line
	}
	return line
}

func helpDetail(f transport.Formatter, tr *i18n.Translator, prefix string, c Command) string {
	lines := []string{helpLine(f, tr, prefix, c)}
	if len(c.Aliases) > 0 {
		al := make([]string, 0, len(c.Aliases))
		for _, a := range c.Aliases {
			al = append(al, f.Code(prefix+a))
		}
		lines = append(lines, strings.Join(al, ", "))
	}
	return strings.Join(lines, "\n")
}

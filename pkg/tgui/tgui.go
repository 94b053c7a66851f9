package tgui

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"lassbot/internal/transport"
)

// Inline is a small builder for inline keyboards.
type Inline struct {
	rm   *tele.ReplyMarkup
	rows []tele.Row
}

func NewInline() *Inline {
	return &Inline{rm: &tele.ReplyMarkup{}}
}

// Row appends a row of buttons.
func (i *Inline) Row(btn ...tele.Btn) *Inline {
	if len(btn) == 0 {
		return i
	}
	i.rows = append(i.rows, i.rm.Row(btn...))
	i.rm.Inline(i.rows...)
	return i
}

func (i *Inline) Len() int { return len(i.rows) }

func (i *Inline) Markup() *tele.ReplyMarkup { return i.rm }

// Btn creates a callback button with raw callback_data.
func Btn(text, data string) tele.Btn {
	return tele.Btn{Text: TruncRunes(text, MaxButtonTextLen), Data: data}
}

// NavMarkup lays the navigation buttons out on a single row. It returns nil
// for an empty nav and an error when any callback_data exceeds Telegram's
// limit.
func NavMarkup(nav []transport.NavButton) (*tele.ReplyMarkup, error) {
	if len(nav) == 0 {
		return nil, nil
	}
	btns := make([]tele.Btn, 0, len(nav))
	for _, b := range nav {
		if len(b.Data) > MaxCallbackDataLen {
			return nil, fmt.Errorf("%w: %q", ErrCallbackDataTooLong, b.Data)
		}
		btns = append(btns, Btn(b.Label, b.Data))
	}
	return NewInline().Row(btns...).Markup(), nil
}

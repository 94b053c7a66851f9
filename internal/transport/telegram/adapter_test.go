package telegram

import (
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"

	"lassbot/internal/transport"
)

func TestSendSplitsAtTextLimit(t *testing.T) {
	t.Parallel()

	in := strings.Repeat("<b>linha</b> com acentuação\n", 300)
	chunks := transport.SplitText(in, telegramTextLimit, strings.EqualFold(parseMode(&transport.SendOptions{}), tele.ModeHTML))
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want > 1", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > telegramTextLimit {
			t.Fatalf("chunk %d has %d runes", i, n)
		}
		if strings.Count(c, "<b>") != strings.Count(c, "</b>") {
			t.Fatalf("chunk %d cuts a tag pair: %q", i, c[len(c)-20:])
		}
	}
}

func TestToMessage(t *testing.T) {
	t.Parallel()

	if toMessage(&tele.Message{Chat: &tele.Chat{ID: 1}}) != nil {
		t.Fatalf("anonymous message was mapped")
	}

	got := toMessage(&tele.Message{
		ID:       7,
		Chat:     &tele.Chat{ID: -100, Type: tele.ChatSuperGroup},
		Sender:   &tele.User{ID: 42, Username: "ana", FirstName: "Ana", LastName: "Lima"},
		Text:     "$dado 2d6",
		ThreadID: 3,
		ReplyTo:  &tele.Message{Sender: &tele.User{ID: 9}},
	})
	want := transport.Message{
		ID: 7, ChatID: -100, ServerID: -100, ThreadID: 3, FromID: 42,
		FromUsername: "ana", FromName: "Ana Lima", Text: "$dado 2d6",
		IsGroup: true, ReplyToFromID: 9,
	}
	if got == nil || got.ID != want.ID || got.ServerID != want.ServerID || got.FromName != want.FromName ||
		!got.IsGroup || got.ReplyToFromID != want.ReplyToFromID || got.ThreadID != want.ThreadID {
		t.Fatalf("toMessage = %+v, want %+v", got, want)
	}

	dm := toMessage(&tele.Message{Chat: &tele.Chat{ID: 42, Type: tele.ChatPrivate}, Sender: &tele.User{ID: 42}})
	if dm.IsGroup {
		t.Fatalf("private chat mapped as group")
	}
}

func TestCardOptions(t *testing.T) {
	t.Parallel()

	nav := []transport.NavButton{{Label: "➡️", Data: "pager:next"}}
	o := cardOptions(transport.Card{ImageURL: "https://x/y.png"}, &transport.SendOptions{Nav: nav, DisablePreview: true})
	if o.DisablePreview || o.ParseMode != tele.ModeHTML || len(o.Nav) != 1 {
		t.Fatalf("cardOptions(image) = %+v", o)
	}
	if o := cardOptions(transport.Card{}, nil); !o.DisablePreview {
		t.Fatalf("cardOptions(no image) keeps preview")
	}
}

func TestMenuHash(t *testing.T) {
	t.Parallel()

	a := []transport.BotCommand{{Command: "dado", Description: "rola"}}
	b := []transport.BotCommand{{Command: "dad", Description: "orola"}}
	if menuHash(a) == menuHash(b) {
		t.Fatalf("menuHash ignores field boundaries")
	}
	if menuHash(a) != menuHash([]transport.BotCommand{{Command: "dado", Description: "rola"}}) {
		t.Fatalf("menuHash not stable")
	}
}

func TestParseModeDefault(t *testing.T) {
	t.Parallel()

	if got := parseMode(&transport.SendOptions{}); got != tele.ModeHTML {
		t.Fatalf("parseMode default = %q", got)
	}
	if got := parseMode(&transport.SendOptions{ParseMode: tele.ModeMarkdown}); got != tele.ModeMarkdown {
		t.Fatalf("parseMode = %q", got)
	}
}

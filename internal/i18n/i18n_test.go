package i18n

import (
	"strings"
	"testing"
)

func TestTranslate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		locale string
		key    string
		args   []any
		want   string
	}{
		{"pt-BR", MsgRollNotFound, nil, "Roll não encontrado."},
		{"pt", MsgPowerList, nil, "Lista de Poderes"},
		{"", MsgCharacterAdded, nil, "Personagem adicionado com sucesso!"},
		{"en", MsgRollNotFound, nil, "Roll not found."},
		{"en-US", MsgPowerAdded, []any{"Fire Ball"}, `Power "Fire Ball" added successfully!`},
		{"pt-BR", MsgPowerFieldUpdated, []any{"Vantagem", "Fire"}, `Vantagem do poder "Fire" atualizada com sucesso!`},
		{"pt-BR", MsgRoutineRemoved, []any{"09:00", "<#123456789>"}, "Rotina das 09:00 no canal <#123456789> foi removida com sucesso."},
		{"pt-BR", "Untranslated text", nil, "Untranslated text"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.locale+"/"+tt.key, func(t *testing.T) {
			t.Parallel()
			if got := New(tt.locale).T(tt.key, tt.args...); got != tt.want {
				t.Fatalf("T(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestMatchFallsBackToPortuguese(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "not a tag!", "ja"} {
		if got := New(in).Locale(); got != "pt-BR" {
			t.Fatalf("New(%q).Locale() = %q, want pt-BR", in, got)
		}
	}
	if got := New("en-GB").Locale(); got != "en" {
		t.Fatalf("New(en-GB).Locale() = %q, want en", got)
	}
}

func TestTranslationsKeepVerbs(t *testing.T) {
	t.Parallel()
	for key, pt := range ptBR {
		if strings.Count(key, "%s") != strings.Count(pt, "%s") {
			t.Fatalf("verb mismatch:\n%q\n%q", key, pt)
		}
		if strings.Contains(pt, "%d") {
			t.Fatalf("numeric verb in %q", pt)
		}
	}
}

func TestNilTranslator(t *testing.T) {
	t.Parallel()
	var tr *Translator
	if got := tr.T(MsgNoPowers); got != MsgNoPowers {
		t.Fatalf("nil T() = %q", got)
	}
}

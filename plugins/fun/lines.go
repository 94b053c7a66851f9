package fun

import (
	"strings"

	"lassbot/internal/transport"
)

// Persona lines are part of the character and are not translated.

var answers = []string{
	"Sim", "Não", "Com certeza", "Nem ferrando", "Tem duvidas?",
	"Tenho minhas duvidas", "Talvez", "Pergunta pro Carlim", "Capaz", "Se quiser sim mano",
}

var moods = []string{
	"Estou Feliz", "Estou rindo", "Não to Tankando", "To triste", "To com raiva", "Estou Maliciosa",
}

const bigBang = "Calma ae paizão\n" +
	"Está vendo aquela neblina brilhante?\n" +
	"É a radiação deixada do Big Bang\n" +
	"A explosão que criou o universo há 13,8 bilhões de anos, o que houve antes do Big Bang? Ninguém sabe.\n" +
	"Não importa em que galáxia você viva, ao olhar para o universo"

type egg struct {
	trigger string
	reply   func(f transport.Formatter, asker int64) string
}

func plain(s string) func(transport.Formatter, int64) string {
	return func(f transport.Formatter, _ int64) string { return f.Escape(s) }
}

// emphatic renders lead followed by a bold stage direction.
func emphatic(lead, action string) func(transport.Formatter, int64) string {
	return func(f transport.Formatter, _ int64) string { return f.Escape(lead) + " " + f.Bold(action) }
}

// Order matters: replies are collected in this order.
var eggs = []egg{
	{"Yandere Lotus", plain("Não me envolvo com essas parada.")},
	{"Vou te nerfar", func(f transport.Formatter, asker int64) string {
		return f.Escape("Eu te nerfo antes!") + " " + f.Bold("Nerfa") + " " + f.UserMention(asker)
	}},
	{"Mediador", plain("O metavekh... Como é lindo os mistérios dessa praga... Não vou te contar nada.")},
	{"Mergulhadores", plain("Ei... Eles não estão por perto né?")},
	{"Observadores", emphatic("Como esse cara são irritantes...", "Despawna um observador aleatorio")},
	{"Tia do Gusta", plain("AUREA? CADE? ONDE?")},
	{"conte sua lore", plain("Ah sim, então você quer saber minha história? Eu sou a líder dos mergulhadores... Não posso te contar mais sobre isso.")},
	{"Yin", plain("Ah sim, a gentil Yin... Preciso fazer uma visita a ela.")},
	{"Emissor", plain("Emissor? Odeio quando ele me ignora.")},
	{"Mandy", plain("A cópia bem feita dos mergulhadores? Hehe.")},
	{"Bruxa", plain("A bruxa... Sabia que seu nome é %ßðßðéþ©?")},
	{"Kaitostem", plain("A velha bruxa é uma mediadora de verdade?")},
	{"ʞɔ Lu ЯΛ Rakku KKЦ ck n˥", plain("Mano... Primeiramente, como você digitou isso certo? Segundamente, não fale com esse cara.")},
	{"Lass... E aquilo?", plain("https://tenor.com/view/peter-parker-peter-parker-tempted-tempted-gif-23970167")},
	{"2015", plain("https://tenor.com/view/jujutsu-kaisen-jujutsu-kaisen-yuuji-itadori-itadori-gif-19729870")},
	{"Yui", emphatic("Não falamos da Yui...", "Sai do Local antes que ela nerfe minha versão com o Emissor")},
	{"Ashley", plain("Talvez eu tenha a julgado mal...")},
	{"Lotus", plain("Lotus tem mais é que se fuder mesmo!")},
}

// matchEggs returns the eggs whose trigger occurs in question, ignoring
// case, in table order.
func matchEggs(question string) []egg {
	q := strings.ToLower(question)
	var out []egg
	for _, e := range eggs {
		if strings.Contains(q, strings.ToLower(e.trigger)) {
			out = append(out, e)
		}
	}
	return out
}

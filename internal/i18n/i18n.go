// Package i18n is the bot's translation table. Keys are the English source
// strings; Portuguese (pt-BR) is the default locale.
//
// Arguments are always pre-formatted strings: the printer localizes numeric
// verbs, which would mangle ids and dice totals.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var supported = []language.Tag{language.BrazilianPortuguese, language.English}

var (
	matcher = language.NewMatcher(supported)
	cat     = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, pt := range ptBR {
		_ = b.SetString(language.BrazilianPortuguese, key, pt)
	}
	return b
}

// Translator renders keys in one locale. It is immutable.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New picks the closest supported locale; unknown or empty locales get pt-BR.
func New(locale string) *Translator {
	tag := Match(locale)
	return &Translator{tag: tag, printer: message.NewPrinter(tag, message.Catalog(cat))}
}

func Match(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return supported[0]
	}
	t, err := language.Parse(locale)
	if err != nil {
		return supported[0]
	}
	_, idx, conf := matcher.Match(t)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

func (t *Translator) Locale() string { return t.tag.String() }

// T translates key and substitutes args.
func (t *Translator) T(key string, args ...any) string {
	if t == nil {
		return key
	}
	return t.printer.Sprintf(key, args...)
}

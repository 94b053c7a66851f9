// Package routines keeps the daily announcements: a registry of
// (time of day, destination) -> message, persisted after every change, and
// one scheduler trigger per entry.
package routines

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lassbot/internal/task/scheduler"
)

var ErrInvalidTimeOfDay = errors.New("invalid time of day, use HH:MM or HH:MM:SS")

type Routine struct {
	TimeOfDay   string
	Destination int64
	Message     string
}

// Key identifies a routine and its trigger.
type Key struct {
	TimeOfDay   string
	Destination int64
}

func (r Routine) Key() Key { return Key{TimeOfDay: r.TimeOfDay, Destination: r.Destination} }

// TriggerName is the scheduler entry name for k.
func (k Key) TriggerName() string {
	return "routine:" + k.TimeOfDay + ":" + strconv.FormatInt(k.Destination, 10)
}

// ValidateTimeOfDay accepts 24-hour "HH:MM" or "HH:MM:SS".
func ValidateTimeOfDay(s string) error {
	if _, _, _, err := scheduler.ParseClock(s); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return nil
}

// FormatMessage upper-cases the first character of the message and every
// character that follows whitespace. Everything else is left as typed, so
// "hello-world x.y" becomes "Hello-world X.y".
func FormatMessage(msg string) string {
	upper := cases.Upper(language.Und)
	var b strings.Builder
	b.Grow(len(msg))
	afterSpace := true
	for _, r := range msg {
		if afterSpace && isWordRune(r) {
			b.WriteString(upper.String(string(r)))
		} else {
			b.WriteRune(r)
		}
		afterSpace = unicode.IsSpace(r)
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrNotFoundOrNotPermitted = errors.New("not found or not permitted")
	ErrInvalidField           = errors.New("invalid field")
	ErrClosed                 = errors.New("store closed")
)

// Config selects the backend.
//
// Driver values:
//   - "sqlite": DSN is a file path (created with its parent directory)
//   - "postgres": DSN is a lib/pq connection string or URL
type Config struct {
	Driver      string
	DSN         string
	BusyTimeout time.Duration // sqlite only
}

type Power struct {
	ID           int64
	Name         string
	Description  string
	Advantage    string
	Disadvantage string
	Image        string
	CreatorID    int64
}

type Character struct {
	ID          int64
	Name        string
	Description string
	Server      string
	Image       string
	CreatorID   int64
}

// Roll is a named option table scoped to one server (guild or chat).
type Roll struct {
	ID        int64
	ServerID  int64
	Name      string
	Options   string
	CreatorID int64
}

// Choices splits Options on commas, trimming blanks.
func (r Roll) Choices() []string {
	var out []string
	for _, o := range strings.Split(r.Options, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// AuditEntry records a moderation or admin action.
type AuditEntry struct {
	At       time.Time
	ActorID  int64
	ChatID   int64
	ServerID int64
	Plugin   string
	Action   string
	Target   string
	OK       bool
	Error    string
}

// PowerField is the closed set of editable power columns.
type PowerField string

const (
	PowerDescription  PowerField = "description"
	PowerAdvantage    PowerField = "advantage"
	PowerDisadvantage PowerField = "disadvantage"
	PowerImage        PowerField = "image"
)

var PowerFields = []PowerField{PowerDescription, PowerAdvantage, PowerDisadvantage, PowerImage}

var powerFieldAliases = map[string]PowerField{
	"description":  PowerDescription,
	"descricao":    PowerDescription,
	"descrição":    PowerDescription,
	"advantage":    PowerAdvantage,
	"vantagem":     PowerAdvantage,
	"disadvantage": PowerDisadvantage,
	"desvantagem":  PowerDisadvantage,
	"image":        PowerImage,
	"imagem":       PowerImage,
}

func ParsePowerField(s string) (PowerField, error) {
	if f, ok := powerFieldAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidField, s)
}

// CharacterField is the closed set of editable character columns.
type CharacterField string

const (
	CharacterDescription CharacterField = "description"
	CharacterServer      CharacterField = "server"
	CharacterImage       CharacterField = "image"
)

var CharacterFields = []CharacterField{CharacterDescription, CharacterServer, CharacterImage}

var characterFieldAliases = map[string]CharacterField{
	"description": CharacterDescription,
	"descricao":   CharacterDescription,
	"descrição":   CharacterDescription,
	"server":      CharacterServer,
	"servidor":    CharacterServer,
	"image":       CharacterImage,
	"imagem":      CharacterImage,
}

func ParseCharacterField(s string) (CharacterField, error) {
	if f, ok := characterFieldAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidField, s)
}

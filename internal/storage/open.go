package storage

import (
	"context"
	"fmt"
	"strings"

	"lassbot/pkg/logx"
)

// Store is the persistence API used by the command plugins.
type Store interface {
	AddPower(ctx context.Context, p Power) (int64, error)
	ListPowers(ctx context.Context) ([]Power, error)
	GetPower(ctx context.Context, name string) (Power, error)
	RandomPower(ctx context.Context) (Power, error)
	UpdatePower(ctx context.Context, name string, creatorID int64, field PowerField, value string) error
	DeletePower(ctx context.Context, name string, creatorID int64) error

	AddCharacter(ctx context.Context, c Character) (int64, error)
	ListCharacters(ctx context.Context) ([]Character, error)
	GetCharacter(ctx context.Context, name string) (Character, error)
	UpdateCharacter(ctx context.Context, name string, creatorID int64, field CharacterField, value string) error
	DeleteCharacter(ctx context.Context, name string, creatorID int64) error

	CreateRoll(ctx context.Context, r Roll) error
	GetRoll(ctx context.Context, serverID int64, name string) (Roll, error)
	ListRolls(ctx context.Context, serverID int64) ([]Roll, error)
	DeleteRoll(ctx context.Context, serverID int64, name string, creatorID int64) error

	AppendAudit(ctx context.Context, e AuditEntry) error
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and creates the schema.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	switch d := strings.ToLower(strings.TrimSpace(cfg.Driver)); d {
	case "", "sqlite", "sqlite3":
		return openSQLite(ctx, cfg, log)
	case "postgres", "postgresql", "pq":
		return openPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", d)
	}
}

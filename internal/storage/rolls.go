package storage

import (
	"context"
	"fmt"
	"strings"
)

// Roll names and options are stored lower-cased; lookups fold the name the
// same way.

// CreateRoll inserts a roll or, for its creator, replaces the options. A name
// held by someone else on the server yields ErrNotFoundOrNotPermitted.
func (s *sqlStore) CreateRoll(ctx context.Context, r Roll) error {
	name := strings.ToLower(strings.TrimSpace(r.Name))
	opts := strings.ToLower(strings.TrimSpace(r.Options))
	if name == "" || opts == "" {
		return fmt.Errorf("roll name and options are required")
	}
	return owned(s.exec(ctx,
		`INSERT INTO rolls(server_id, name, options, creator_id) VALUES(?,?,?,?)
		 ON CONFLICT(server_id, name) DO UPDATE SET options = excluded.options
		 WHERE rolls.creator_id = excluded.creator_id`,
		r.ServerID, name, opts, r.CreatorID,
	))
}

func (s *sqlStore) GetRoll(ctx context.Context, serverID int64, name string) (Roll, error) {
	if s.db == nil {
		return Roll{}, ErrClosed
	}
	var r Roll
	err := s.queryRow(ctx,
		`SELECT id, server_id, name, options, creator_id FROM rolls WHERE server_id = ? AND name = ?`,
		serverID, strings.ToLower(strings.TrimSpace(name)),
	).Scan(&r.ID, &r.ServerID, &r.Name, &r.Options, &r.CreatorID)
	return r, notFound(err)
}

func (s *sqlStore) ListRolls(ctx context.Context, serverID int64) ([]Roll, error) {
	rows, err := s.query(ctx,
		`SELECT id, server_id, name, options, creator_id FROM rolls WHERE server_id = ? ORDER BY name`, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Roll
	for rows.Next() {
		var r Roll
		if err := rows.Scan(&r.ID, &r.ServerID, &r.Name, &r.Options, &r.CreatorID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqlStore) DeleteRoll(ctx context.Context, serverID int64, name string, creatorID int64) error {
	return owned(s.exec(ctx,
		`DELETE FROM rolls WHERE server_id = ? AND name = ? AND creator_id = ?`,
		serverID, strings.ToLower(strings.TrimSpace(name)), creatorID,
	))
}

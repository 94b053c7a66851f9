package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const characterColumns = `id, name, description, server, image, creator_id`

var characterUpdates = map[CharacterField]string{
	CharacterDescription: `UPDATE characters SET description = ? WHERE name = ? AND creator_id = ?`,
	CharacterServer:      `UPDATE characters SET server = ? WHERE name = ? AND creator_id = ?`,
	CharacterImage:       `UPDATE characters SET image = ? WHERE name = ? AND creator_id = ?`,
}

func scanCharacter(r rowScanner) (Character, error) {
	var (
		c     Character
		image sql.NullString
	)
	if err := r.Scan(&c.ID, &c.Name, &c.Description, &c.Server, &image, &c.CreatorID); err != nil {
		return Character{}, err
	}
	c.Image = image.String
	return c, nil
}

func (s *sqlStore) AddCharacter(ctx context.Context, c Character) (int64, error) {
	if strings.TrimSpace(c.Name) == "" {
		return 0, fmt.Errorf("character name is required")
	}
	return s.insertID(ctx,
		`INSERT INTO characters(name, description, server, image, creator_id) VALUES(?,?,?,?,?)`,
		c.Name, c.Description, c.Server, nullStr(c.Image), c.CreatorID,
	)
}

func (s *sqlStore) ListCharacters(ctx context.Context) ([]Character, error) {
	rows, err := s.query(ctx, `SELECT `+characterColumns+` FROM characters ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *sqlStore) GetCharacter(ctx context.Context, name string) (Character, error) {
	if s.db == nil {
		return Character{}, ErrClosed
	}
	c, err := scanCharacter(s.queryRow(ctx, `SELECT `+characterColumns+` FROM characters WHERE name = ? ORDER BY id LIMIT 1`, name))
	return c, notFound(err)
}

func (s *sqlStore) UpdateCharacter(ctx context.Context, name string, creatorID int64, field CharacterField, value string) error {
	q, ok := characterUpdates[field]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	var v any = value
	if field == CharacterImage {
		v = nullStr(value)
	}
	return owned(s.exec(ctx, q, v, name, creatorID))
}

func (s *sqlStore) DeleteCharacter(ctx context.Context, name string, creatorID int64) error {
	return owned(s.exec(ctx, `DELETE FROM characters WHERE name = ? AND creator_id = ?`, name, creatorID))
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const powerColumns = `id, name, description, advantage, disadvantage, image, creator_id`

// powerUpdates holds one fixed statement per editable field.
var powerUpdates = map[PowerField]string{
	PowerDescription:  `UPDATE powers SET description = ? WHERE name = ? AND creator_id = ?`,
	PowerAdvantage:    `UPDATE powers SET advantage = ? WHERE name = ? AND creator_id = ?`,
	PowerDisadvantage: `UPDATE powers SET disadvantage = ? WHERE name = ? AND creator_id = ?`,
	PowerImage:        `UPDATE powers SET image = ? WHERE name = ? AND creator_id = ?`,
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPower(r rowScanner) (Power, error) {
	var (
		p     Power
		image sql.NullString
	)
	if err := r.Scan(&p.ID, &p.Name, &p.Description, &p.Advantage, &p.Disadvantage, &image, &p.CreatorID); err != nil {
		return Power{}, err
	}
	p.Image = image.String
	return p, nil
}

func (s *sqlStore) AddPower(ctx context.Context, p Power) (int64, error) {
	if strings.TrimSpace(p.Name) == "" {
		return 0, fmt.Errorf("power name is required")
	}
	return s.insertID(ctx,
		`INSERT INTO powers(name, description, advantage, disadvantage, image, creator_id) VALUES(?,?,?,?,?,?)`,
		p.Name, p.Description, p.Advantage, p.Disadvantage, nullStr(p.Image), p.CreatorID,
	)
}

func (s *sqlStore) ListPowers(ctx context.Context) ([]Power, error) {
	rows, err := s.query(ctx, `SELECT `+powerColumns+` FROM powers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Power
	for rows.Next() {
		p, err := scanPower(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqlStore) GetPower(ctx context.Context, name string) (Power, error) {
	if s.db == nil {
		return Power{}, ErrClosed
	}
	p, err := scanPower(s.queryRow(ctx, `SELECT `+powerColumns+` FROM powers WHERE name = ? ORDER BY id LIMIT 1`, name))
	return p, notFound(err)
}

func (s *sqlStore) RandomPower(ctx context.Context) (Power, error) {
	if s.db == nil {
		return Power{}, ErrClosed
	}
	p, err := scanPower(s.queryRow(ctx, `SELECT `+powerColumns+` FROM powers ORDER BY RANDOM() LIMIT 1`))
	return p, notFound(err)
}

func (s *sqlStore) UpdatePower(ctx context.Context, name string, creatorID int64, field PowerField, value string) error {
	q, ok := powerUpdates[field]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	var v any = value
	if field == PowerImage {
		v = nullStr(value)
	}
	return owned(s.exec(ctx, q, v, name, creatorID))
}

func (s *sqlStore) DeletePower(ctx context.Context, name string, creatorID int64) error {
	return owned(s.exec(ctx, `DELETE FROM powers WHERE name = ? AND creator_id = ?`, name, creatorID))
}

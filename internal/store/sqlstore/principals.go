package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/jmoiron/sqlx"
)

type directory struct {
	ext sqlx.ExtContext
}

func (d *directory) Get(ctx context.Context, id int64) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM users WHERE id = ?`

	var row principalRow
	if err := sqlx.GetContext(ctx, d.ext, &row, d.ext.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, domain.Internal("get principal", err)
	}

	p, err := row.toDomain()
	if err != nil {
		return nil, domain.Internal(fmt.Sprintf("decode capabilities of principal %d", id), err)
	}
	return &p, nil
}

func (d *directory) ListByRole(ctx context.Context, role domain.Role) ([]domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM users WHERE role = ? ORDER BY id`
	return d.list(ctx, query, string(role))
}

func (d *directory) list(ctx context.Context, query string, args ...any) ([]domain.Principal, error) {
	var rows []principalRow
	if err := sqlx.SelectContext(ctx, d.ext, &rows, d.ext.Rebind(query), args...); err != nil {
		return nil, domain.Internal("list principals", err)
	}

	out := make([]domain.Principal, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toDomain()
		if err != nil {
			return nil, domain.Internal(fmt.Sprintf("decode capabilities of principal %d", rows[i].ID), err)
		}
		out = append(out, p)
	}
	return out, nil
}

// CreatePrincipal inserts a user and assigns its id
func (s *Store) CreatePrincipal(ctx context.Context, p *domain.Principal) error {
	caps := p.Capabilities.List()
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	encoded, err := json.Marshal(names)
	if err != nil {
		return domain.Internal("encode capabilities", err)
	}

	query := `
		INSERT INTO users (name, email, role, capabilities, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`
	id, err := insertReturningID(ctx, s.db, query, p.Name, p.Email, string(p.Role), string(encoded), p.CreatedAt)
	if err != nil {
		return domain.Internal("create principal", err)
	}

	p.ID = id
	return nil
}

// ListPrincipals returns every user ordered by id
func (s *Store) ListPrincipals(ctx context.Context) ([]domain.Principal, error) {
	d := &directory{ext: s.db}
	return d.list(ctx, `SELECT `+principalColumns+` FROM users ORDER BY id`)
}

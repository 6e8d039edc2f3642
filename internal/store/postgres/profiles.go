package postgres

import (
	"context"

	"github.com/NomadCrew/formflow-backend/types"
)

func (s *Store) GetProfile(ctx context.Context, userID string) (*types.Profile, error) {
	var (
		p    types.Profile
		role string
	)
	err := s.db.QueryRow(ctx, `SELECT id, email, role FROM profiles WHERE id = $1`, userID).
		Scan(&p.ID, &p.Email, &role)
	if err != nil {
		return nil, mapError("get profile", err)
	}
	p.Role = types.ParseUserRole(role)
	return &p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p *types.Profile) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO profiles (id, email, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, role = EXCLUDED.role`,
		p.ID, p.Email, string(p.Role))
	return mapError("upsert profile", err)
}

func (s *Store) ListProfiles(ctx context.Context) ([]types.Profile, error) {
	rows, err := s.db.Query(ctx, `SELECT id, email, role FROM profiles ORDER BY email`)
	if err != nil {
		return nil, mapError("list profiles", err)
	}
	defer rows.Close()

	var out []types.Profile
	for rows.Next() {
		var (
			p    types.Profile
			role string
		)
		if err := rows.Scan(&p.ID, &p.Email, &role); err != nil {
			return nil, mapError("scan profile", err)
		}
		p.Role = types.ParseUserRole(role)
		out = append(out, p)
	}
	return out, mapError("list profiles", rows.Err())
}

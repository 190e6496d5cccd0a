package repository

import (
	"context"
	"fmt"

	"heist/database"
	"heist/models"
)

// RoleRepository implements the RoleRepository interface
type RoleRepository struct {
	q queryable
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *database.DB) *RoleRepository {
	return &RoleRepository{q: db.Pool}
}

func newRoleRepositoryWithTx(tx queryable) *RoleRepository {
	return &RoleRepository{q: tx}
}

// Add stores a role entry and reports whether it was new
func (r *RoleRepository) Add(ctx context.Context, entry *models.RoleEntry) (bool, error) {
	query := `
		INSERT INTO role_entries (scope_id, actor_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, entry.ScopeID, entry.ActorID, entry.Role)
	if err != nil {
		return false, fmt.Errorf("failed to add %s role for actor %d in scope %d: %w", entry.Role, entry.ActorID, entry.ScopeID, err)
	}
	return result.RowsAffected() == 1, nil
}

// Remove deletes a role entry and reports whether it existed
func (r *RoleRepository) Remove(ctx context.Context, scopeID, actorID int64, role models.Role) (bool, error) {
	query := `
		DELETE FROM role_entries
		WHERE scope_id = $1 AND actor_id = $2 AND role = $3
	`

	result, err := r.q.Exec(ctx, query, scopeID, actorID, role)
	if err != nil {
		return false, fmt.Errorf("failed to remove %s role for actor %d in scope %d: %w", role, actorID, scopeID, err)
	}
	return result.RowsAffected() == 1, nil
}

// ListAll returns every stored role entry
func (r *RoleRepository) ListAll(ctx context.Context) ([]*models.RoleEntry, error) {
	query := `
		SELECT scope_id, actor_id, role, created_at
		FROM role_entries
		ORDER BY scope_id, role, actor_id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var entries []*models.RoleEntry
	for rows.Next() {
		var e models.RoleEntry
		if err := rows.Scan(&e.ScopeID, &e.ActorID, &e.Role, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}
	return entries, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"heist/database"
	"heist/models"

	"github.com/jackc/pgx/v5"
)

// TheftStatsRepository implements the TheftStatsRepository interface
type TheftStatsRepository struct {
	q queryable
}

// NewTheftStatsRepository creates a new theft stats repository
func NewTheftStatsRepository(db *database.DB) *TheftStatsRepository {
	return &TheftStatsRepository{q: db.Pool}
}

func newTheftStatsRepositoryWithTx(tx queryable) *TheftStatsRepository {
	return &TheftStatsRepository{q: tx}
}

// Increment adds to an actor's counters, creating the row on first use
func (r *TheftStatsRepository) Increment(ctx context.Context, actorID int64, successful, failed, victimized int) error {
	query := `
		INSERT INTO theft_stats (actor_id, successful, failed, victimized)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (actor_id) DO UPDATE SET
			successful = theft_stats.successful + EXCLUDED.successful,
			failed     = theft_stats.failed + EXCLUDED.failed,
			victimized = theft_stats.victimized + EXCLUDED.victimized,
			updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, actorID, successful, failed, victimized); err != nil {
		return fmt.Errorf("failed to increment theft stats for actor %d: %w", actorID, err)
	}
	return nil
}

// Get returns an actor's counters, or nil if they never took part in a theft
func (r *TheftStatsRepository) Get(ctx context.Context, actorID int64) (*models.TheftStats, error) {
	query := `
		SELECT actor_id, successful, failed, victimized, updated_at
		FROM theft_stats
		WHERE actor_id = $1
	`

	var s models.TheftStats
	err := r.q.QueryRow(ctx, query, actorID).Scan(&s.ActorID, &s.Successful, &s.Failed, &s.Victimized, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get theft stats for actor %d: %w", actorID, err)
	}
	return &s, nil
}

// TopThieves returns the actors with the most successful thefts
func (r *TheftStatsRepository) TopThieves(ctx context.Context, limit int) ([]*models.ThiefRankEntry, error) {
	query := `
		SELECT s.actor_id, a.username, s.successful
		FROM theft_stats s
		JOIN accounts a ON a.actor_id = s.actor_id
		WHERE s.successful > 0
		ORDER BY s.successful DESC, s.actor_id ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top thieves: %w", err)
	}
	defer rows.Close()

	var entries []*models.ThiefRankEntry
	for rows.Next() {
		var e models.ThiefRankEntry
		if err := rows.Scan(&e.ActorID, &e.Username, &e.Successful); err != nil {
			return nil, fmt.Errorf("failed to scan thief entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top thieves: %w", err)
	}
	return entries, nil
}

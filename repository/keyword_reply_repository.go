package repository

import (
	"context"
	"errors"
	"fmt"

	"heist/database"
	"heist/models"

	"github.com/jackc/pgx/v5"
)

const keywordReplyColumns = `id, trigger, scope_id, response, author_id, created_at`

// KeywordReplyRepository implements the KeywordReplyRepository interface
type KeywordReplyRepository struct {
	q queryable
}

// NewKeywordReplyRepository creates a new keyword reply repository
func NewKeywordReplyRepository(db *database.DB) *KeywordReplyRepository {
	return &KeywordReplyRepository{q: db.Pool}
}

func newKeywordReplyRepositoryWithTx(tx queryable) *KeywordReplyRepository {
	return &KeywordReplyRepository{q: tx}
}

func scanKeywordReply(row pgx.Row) (*models.KeywordReply, error) {
	var k models.KeywordReply
	if err := row.Scan(&k.ID, &k.Trigger, &k.ScopeID, &k.Response, &k.AuthorID, &k.CreatedAt); err != nil {
		return nil, err
	}
	return &k, nil
}

// Upsert stores a reply, replacing the response of an existing trigger in the same scope
func (r *KeywordReplyRepository) Upsert(ctx context.Context, reply *models.KeywordReply) error {
	// global and scoped replies are unique under separate partial indexes
	conflict := `ON CONFLICT (trigger, scope_id) WHERE scope_id IS NOT NULL`
	if reply.ScopeID == nil {
		conflict = `ON CONFLICT (trigger) WHERE scope_id IS NULL`
	}
	query := `
		INSERT INTO keyword_replies (trigger, scope_id, response, author_id)
		VALUES ($1, $2, $3, $4)
		` + conflict + ` DO UPDATE SET
			response  = EXCLUDED.response,
			author_id = EXCLUDED.author_id
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, reply.Trigger, reply.ScopeID, reply.Response, reply.AuthorID).
		Scan(&reply.ID, &reply.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert reply %q: %w", reply.Trigger, err)
	}
	return nil
}

// Find returns the reply for a trigger in exactly the given scope. A nil
// scope looks up the bot-wide entry only.
func (r *KeywordReplyRepository) Find(ctx context.Context, trigger string, scopeID *int64) (*models.KeywordReply, error) {
	query := `SELECT ` + keywordReplyColumns + `
		FROM keyword_replies
		WHERE trigger = $1 AND scope_id IS NOT DISTINCT FROM $2`

	reply, err := scanKeywordReply(r.q.QueryRow(ctx, query, trigger, scopeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reply %q: %w", trigger, err)
	}
	return reply, nil
}

// ListByScope returns the replies of one scope, or the bot-wide ones for a nil scope
func (r *KeywordReplyRepository) ListByScope(ctx context.Context, scopeID *int64) ([]*models.KeywordReply, error) {
	query := `SELECT ` + keywordReplyColumns + `
		FROM keyword_replies
		WHERE scope_id IS NOT DISTINCT FROM $1
		ORDER BY trigger`

	rows, err := r.q.Query(ctx, query, scopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	defer rows.Close()

	var replies []*models.KeywordReply
	for rows.Next() {
		reply, err := scanKeywordReply(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}
		replies = append(replies, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replies: %w", err)
	}
	return replies, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"heist/database"
	"heist/models"

	"github.com/jackc/pgx/v5"
)

const recordColumns = `id, actor_id, counterparty_id, amount, category, description, metadata, tx_group_id::text, created_at`

// TransactionRecordRepository implements the TransactionRecordRepository interface
type TransactionRecordRepository struct {
	q queryable
}

// NewTransactionRecordRepository creates a new ledger record repository
func NewTransactionRecordRepository(db *database.DB) *TransactionRecordRepository {
	return &TransactionRecordRepository{q: db.Pool}
}

func newTransactionRecordRepositoryWithTx(tx queryable) *TransactionRecordRepository {
	return &TransactionRecordRepository{q: tx}
}

func scanRecord(row pgx.Row) (*models.TransactionRecord, error) {
	var rec models.TransactionRecord
	err := row.Scan(
		&rec.ID,
		&rec.ActorID,
		&rec.CounterpartyID,
		&rec.Amount,
		&rec.Category,
		&rec.Description,
		&rec.Metadata,
		&rec.TxGroupID,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Record appends a ledger entry and fills in its ID and timestamp
func (r *TransactionRecordRepository) Record(ctx context.Context, record *models.TransactionRecord) error {
	metadata := record.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	query := `
		INSERT INTO transaction_records (actor_id, counterparty_id, amount, category, description, metadata, tx_group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		record.ActorID,
		record.CounterpartyID,
		record.Amount,
		record.Category,
		record.Description,
		metadata,
		record.TxGroupID,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record transaction for actor %d: %w", record.ActorID, err)
	}
	return nil
}

// GetByActor returns the newest records for an actor
func (r *TransactionRecordRepository) GetByActor(ctx context.Context, actorID int64, limit int) ([]*models.TransactionRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM transaction_records
		WHERE actor_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	return r.list(ctx, query, actorID, limit)
}

// LastByCategory returns the newest record of a category, or nil
func (r *TransactionRecordRepository) LastByCategory(ctx context.Context, actorID int64, category models.TransactionCategory) (*models.TransactionRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM transaction_records
		WHERE actor_id = $1 AND category = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	rec, err := scanRecord(r.q.QueryRow(ctx, query, actorID, category))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last %s record for actor %d: %w", category, actorID, err)
	}
	return rec, nil
}

// GetByGroup returns every record written by one ledger operation
func (r *TransactionRecordRepository) GetByGroup(ctx context.Context, txGroupID string) ([]*models.TransactionRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM transaction_records
		WHERE tx_group_id = $1
		ORDER BY id ASC`
	return r.list(ctx, query, txGroupID)
}

func (r *TransactionRecordRepository) list(ctx context.Context, query string, args ...any) ([]*models.TransactionRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction records: %w", err)
	}
	defer rows.Close()

	var records []*models.TransactionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction records: %w", err)
	}
	return records, nil
}

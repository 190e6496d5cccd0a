package testutil

import (
	"context"
	"testing"

	"heist/database"
	"heist/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// SeedAccount inserts an account directly, bypassing the ledger
func SeedAccount(t *testing.T, db *database.DB, actorID int64, username string, cash, bank int64) {
	t.Helper()
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(), `
			INSERT INTO accounts (actor_id, username, bank_name, cash, bank)
			VALUES ($1, $2, $3, $4, $5)
		`, actorID, username, username+"'s bank", cash, bank)
		return err
	})
	require.NoError(t, err)
}

// CreateTestRecord creates an unsaved ledger record in a fresh group
func CreateTestRecord(actorID int64, amount int64, category models.TransactionCategory) *models.TransactionRecord {
	return &models.TransactionRecord{
		ActorID:     actorID,
		Amount:      amount,
		Category:    category,
		Description: string(category),
		Metadata:    map[string]any{"test": true},
		TxGroupID:   uuid.NewString(),
	}
}

// CreateTestKeywordReply creates an unsaved reply
func CreateTestKeywordReply(trigger, response string, scopeID *int64) *models.KeywordReply {
	return &models.KeywordReply{
		Trigger:  trigger,
		ScopeID:  scopeID,
		Response: response,
		AuthorID: 1,
	}
}

// TotalMoney sums cash and bank across every account
func TotalMoney(t *testing.T, db *database.DB) int64 {
	t.Helper()
	var total int64
	err := db.QueryRow(context.Background(), `SELECT COALESCE(SUM(cash + bank), 0) FROM accounts`).Scan(&total)
	require.NoError(t, err)
	return total
}

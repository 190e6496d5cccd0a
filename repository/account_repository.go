package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"heist/database"
	"heist/models"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `actor_id, username, cash, bank, bank_name, security_level, created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ActorID,
		&a.Username,
		&a.Cash,
		&a.Bank,
		&a.BankName,
		&a.SecurityLevel,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an account, returning nil when the actor has none
func (r *AccountRepository) GetByID(ctx context.Context, actorID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE actor_id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, actorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", actorID, err)
	}
	return account, nil
}

// LockForUpdate locks the given accounts for the rest of the transaction.
// Rows are locked one at a time in ascending id order so that two
// transactions touching the same pair can never deadlock. Missing accounts
// are absent from the result.
func (r *AccountRepository) LockForUpdate(ctx context.Context, actorIDs ...int64) (map[int64]*models.Account, error) {
	ids := slices.Clone(actorIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE actor_id = $1 FOR UPDATE`

	accounts := make(map[int64]*models.Account, len(ids))
	for _, id := range ids {
		account, err := scanAccount(r.q.QueryRow(ctx, query, id))
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to lock account %d: %w", id, err)
		}
		accounts[id] = account
	}
	return accounts, nil
}

// Create opens an account with the initial cash
func (r *AccountRepository) Create(ctx context.Context, actorID int64, username, bankName string, initialCash int64) (*models.Account, error) {
	query := `
		INSERT INTO accounts (actor_id, username, bank_name, cash)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, actorID, username, bankName, initialCash))
	if err != nil {
		return nil, fmt.Errorf("failed to create account %d: %w", actorID, err)
	}
	return account, nil
}

// AddCash adds to an account's cash and returns the new cash
func (r *AccountRepository) AddCash(ctx context.Context, actorID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE accounts
		SET cash = cash + $2, updated_at = NOW()
		WHERE actor_id = $1
		RETURNING cash
	`

	var cash int64
	err := r.q.QueryRow(ctx, query, actorID, amount).Scan(&cash)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("account %d not found", actorID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add cash for account %d: %w", actorID, err)
	}
	return cash, nil
}

// DeductCash removes cash, failing if the account cannot cover it
func (r *AccountRepository) DeductCash(ctx context.Context, actorID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE accounts
		SET cash = cash - $2, updated_at = NOW()
		WHERE actor_id = $1 AND cash >= $2
		RETURNING cash
	`

	var cash int64
	err := r.q.QueryRow(ctx, query, actorID, amount).Scan(&cash)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("account %d not found or cash below %d", actorID, amount)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to deduct cash for account %d: %w", actorID, err)
	}
	return cash, nil
}

// MoveCashToBank shifts cash into the bank
func (r *AccountRepository) MoveCashToBank(ctx context.Context, actorID int64, amount int64) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET cash = cash - $2, bank = bank + $2, updated_at = NOW()
		WHERE actor_id = $1 AND cash >= $2
		RETURNING ` + accountColumns
	return r.move(ctx, query, actorID, amount)
}

// MoveBankToCash shifts bank holdings back into cash
func (r *AccountRepository) MoveBankToCash(ctx context.Context, actorID int64, amount int64) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET bank = bank - $2, cash = cash + $2, updated_at = NOW()
		WHERE actor_id = $1 AND bank >= $2
		RETURNING ` + accountColumns
	return r.move(ctx, query, actorID, amount)
}

func (r *AccountRepository) move(ctx context.Context, query string, actorID, amount int64) (*models.Account, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	account, err := scanAccount(r.q.QueryRow(ctx, query, actorID, amount))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("account %d not found or holdings below %d", actorID, amount)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to move funds for account %d: %w", actorID, err)
	}
	return account, nil
}

// SetSecurityLevel stores a new security level
func (r *AccountRepository) SetSecurityLevel(ctx context.Context, actorID int64, level int) error {
	query := `
		UPDATE accounts
		SET security_level = $2, updated_at = NOW()
		WHERE actor_id = $1
	`

	result, err := r.q.Exec(ctx, query, actorID, level)
	if err != nil {
		return fmt.Errorf("failed to set security level for account %d: %w", actorID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", actorID)
	}
	return nil
}

// TopByTotal returns the richest accounts by cash plus bank
func (r *AccountRepository) TopByTotal(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT actor_id, username, cash, bank, cash + bank AS total
		FROM accounts
		ORDER BY total DESC, actor_id ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.ActorID, &e.Username, &e.Cash, &e.Bank, &e.Total); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}
	return entries, nil
}

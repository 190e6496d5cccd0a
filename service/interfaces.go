package service

import (
	"context"
	"time"

	"heist/events"
	"heist/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account, returning nil when it does not exist
	GetByID(ctx context.Context, actorID int64) (*models.Account, error)

	// LockForUpdate locks the given accounts in ascending actor id order and
	// returns the ones that exist, keyed by actor id
	LockForUpdate(ctx context.Context, actorIDs ...int64) (map[int64]*models.Account, error)

	// Create opens a new account with the initial cash
	Create(ctx context.Context, actorID int64, username, bankName string, initialCash int64) (*models.Account, error)

	// AddCash credits cash and returns the new cash balance
	AddCash(ctx context.Context, actorID int64, amount int64) (int64, error)

	// DeductCash debits cash only if enough is available and returns the new cash balance
	DeductCash(ctx context.Context, actorID int64, amount int64) (int64, error)

	// MoveCashToBank moves cash into the bank balance
	MoveCashToBank(ctx context.Context, actorID int64, amount int64) (*models.Account, error)

	// MoveBankToCash moves bank balance back to cash
	MoveBankToCash(ctx context.Context, actorID int64, amount int64) (*models.Account, error)

	// SetSecurityLevel updates the security level
	SetSecurityLevel(ctx context.Context, actorID int64, level int) error

	// TopByTotal returns the richest accounts by cash plus bank
	TopByTotal(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
}

// TransactionRecordRepository defines the interface for the append-only ledger log
type TransactionRecordRepository interface {
	// Record appends a record and fills in its ID and CreatedAt
	Record(ctx context.Context, record *models.TransactionRecord) error

	// GetByActor returns the most recent records of an actor
	GetByActor(ctx context.Context, actorID int64, limit int) ([]*models.TransactionRecord, error)

	// LastByCategory returns the latest record of a category for an actor, or nil
	LastByCategory(ctx context.Context, actorID int64, category models.TransactionCategory) (*models.TransactionRecord, error)

	// GetByGroup returns every record written by one ledger operation
	GetByGroup(ctx context.Context, txGroupID string) ([]*models.TransactionRecord, error)
}

// TheftStatsRepository defines the interface for theft counters
type TheftStatsRepository interface {
	// Increment adds the deltas to the actor's counters, creating the row if needed
	Increment(ctx context.Context, actorID int64, successful, failed, victimized int) error

	// Get returns the actor's counters, or nil when none were recorded
	Get(ctx context.Context, actorID int64) (*models.TheftStats, error)

	// TopThieves returns actors ordered by successful thefts
	TopThieves(ctx context.Context, limit int) ([]*models.ThiefRankEntry, error)
}

// RoleRepository defines the interface for persisted scoped roles
type RoleRepository interface {
	// Add stores the entry and reports whether it was new
	Add(ctx context.Context, entry *models.RoleEntry) (bool, error)

	// Remove deletes the entry and reports whether it existed
	Remove(ctx context.Context, scopeID, actorID int64, role models.Role) (bool, error)

	// ListAll returns every stored role entry
	ListAll(ctx context.Context) ([]*models.RoleEntry, error)
}

// KeywordReplyRepository defines the interface for custom replies
type KeywordReplyRepository interface {
	// Upsert inserts or replaces the reply for (trigger, scope)
	Upsert(ctx context.Context, reply *models.KeywordReply) error

	// Find returns the reply for the exact trigger and scope, nil scope meaning global
	Find(ctx context.Context, trigger string, scopeID *int64) (*models.KeywordReply, error)

	// ListByScope returns the replies of one scope, nil scope meaning global
	ListByScope(ctx context.Context, scopeID *int64) ([]*models.KeywordReply, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases pending events
	Commit() error

	// Rollback rolls back the transaction and drops pending events
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	TransactionRecordRepository() TransactionRecordRepository
	TheftStatsRepository() TheftStatsRepository
	RoleRepository() RoleRepository
	KeywordReplyRepository() KeywordReplyRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create returns a read-write unit of work with serializable isolation
	Create() UnitOfWork

	// CreateReadOnly returns a read-only unit of work that takes no locks
	CreateReadOnly() UnitOfWork
}

// LedgerService owns account balances and the transaction log
type LedgerService interface {
	// OpenAccount creates an account, or returns the existing one with created=false
	OpenAccount(ctx context.Context, actorID int64, username, bankName string) (account *models.Account, created bool, err error)

	// GetAccount returns an account or a NotRegistered error
	GetAccount(ctx context.Context, actorID int64) (*models.Account, error)

	// Transfer moves cash between two accounts
	Transfer(ctx context.Context, senderID, receiverID int64, amount int64) (*models.TransferResult, error)

	// AttemptTheft resolves one theft attempt
	AttemptTheft(ctx context.Context, thiefID, targetID int64) (*models.TheftResult, error)

	// UpgradeSecurity buys the given security level
	UpgradeSecurity(ctx context.Context, actorID int64, targetLevel int) (*models.UpgradeResult, error)

	// UpgradeSecurityNext buys the level right above the current one
	UpgradeSecurityNext(ctx context.Context, actorID int64) (*models.UpgradeResult, error)

	// Credit adds cash on behalf of a collaborator such as the salary service
	Credit(ctx context.Context, actorID int64, amount int64, category models.TransactionCategory, description string) (int64, error)

	// Spend debits cash for a game purchase
	Spend(ctx context.Context, actorID int64, amount int64, category models.TransactionCategory, description string, metadata map[string]any) (int64, error)

	// Deposit moves cash into the bank
	Deposit(ctx context.Context, actorID int64, amount int64) (*models.BankMoveResult, error)

	// Withdraw moves bank balance to cash
	Withdraw(ctx context.Context, actorID int64, amount int64) (*models.BankMoveResult, error)

	// History returns recent transaction records of an actor
	History(ctx context.Context, actorID int64, limit int) ([]*models.TransactionRecord, error)
}

// PermissionService resolves and mutates scoped privileges
type PermissionService interface {
	// Resolve returns the actor's level in the scope; a nil scope means no chat context
	Resolve(actorID int64, scopeID *int64) models.PermissionLevel

	// HasPermission reports whether the actor has at least the required level
	HasPermission(actorID int64, required models.PermissionLevel, scopeID *int64) bool

	// AddRole adds a role and reports whether anything changed
	AddRole(ctx context.Context, scopeID, actorID int64, role models.Role) (bool, error)

	// RemoveRole removes a role and reports whether anything changed
	RemoveRole(ctx context.Context, scopeID, actorID int64, role models.Role) (bool, error)

	// Grant adds a role on behalf of a privileged actor
	Grant(ctx context.Context, granterID, scopeID, targetID int64, role models.Role) (bool, error)

	// Revoke removes a role on behalf of a privileged actor
	Revoke(ctx context.Context, revokerID, scopeID, targetID int64, role models.Role) (bool, error)

	// GroupAdmins lists masters, owners and moderators of a scope
	GroupAdmins(scopeID int64) models.GroupAdmins

	// Load hydrates the registry from storage
	Load(ctx context.Context) error
}

// KeywordService is the scoped trigger to response registry
type KeywordService interface {
	// Lookup returns the response for the text, scope entries taking precedence over global ones
	Lookup(ctx context.Context, text string, scopeID int64) (string, bool, error)

	// Upsert stores a reply; a nil scope makes it global
	Upsert(ctx context.Context, trigger, response string, scopeID *int64, authorID int64) (*models.KeywordReply, error)

	// List returns the replies of one scope, nil meaning global
	List(ctx context.Context, scopeID *int64) ([]*models.KeywordReply, error)
}

// StatsService serves read-only statistics
type StatsService interface {
	// TheftStats returns the actor's theft counters
	TheftStats(ctx context.Context, actorID int64) (*models.TheftStats, error)

	// TopThieves returns the top thieves leaderboard
	TopThieves(ctx context.Context, limit int) ([]*models.ThiefRankEntry, error)

	// Leaderboard returns the richest actors
	Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
}

// SalaryService pays the periodic salary
type SalaryService interface {
	// Collect pays the salary if the cooldown has elapsed
	Collect(ctx context.Context, actorID int64) (*SalaryResult, error)
}

// SalaryResult is the outcome of a salary collection
type SalaryResult struct {
	Amount      int64
	NewCash     int64
	NextPayment time.Time
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"heist/database"
	"heist/events"
	"heist/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	txOptions        pgx.TxOptions
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	accountRepo      service.AccountRepository
	recordRepo       service.TransactionRecordRepository
	theftStatsRepo   service.TheftStatsRepository
	roleRepo         service.RoleRepository
	keywordReplyRepo service.KeywordReplyRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// Create returns a unit of work running in a serializable transaction
func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return f.create(database.SerializableTxOptions)
}

// CreateReadOnly returns a unit of work for queries that never write
func (f *unitOfWorkFactory) CreateReadOnly() service.UnitOfWork {
	return f.create(database.ReadOnlyTxOptions)
}

func (f *unitOfWorkFactory) create(opts pgx.TxOptions) *unitOfWork {
	return &unitOfWork{
		db:               f.db,
		txOptions:        opts,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.BeginTx(ctx, u.txOptions)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.accountRepo = newAccountRepositoryWithTx(tx)
	u.recordRepo = newTransactionRecordRepositoryWithTx(tx)
	u.theftStatsRepo = newTheftStatsRepositoryWithTx(tx)
	u.roleRepo = newRoleRepositoryWithTx(tx)
	u.keywordReplyRepo = newKeywordReplyRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Flush pending events after successful commit
	u.transactionalBus.Flush()
	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	// The request context may already be done; rollback must still reach the server
	err := u.tx.Rollback(context.WithoutCancel(u.ctx))
	u.tx = nil
	u.transactionalBus.Discard()
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// TransactionRecordRepository returns the ledger record repository for this unit of work
func (u *unitOfWork) TransactionRecordRepository() service.TransactionRecordRepository {
	if u.recordRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.recordRepo
}

// TheftStatsRepository returns the theft stats repository for this unit of work
func (u *unitOfWork) TheftStatsRepository() service.TheftStatsRepository {
	if u.theftStatsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.theftStatsRepo
}

// RoleRepository returns the role repository for this unit of work
func (u *unitOfWork) RoleRepository() service.RoleRepository {
	if u.roleRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.roleRepo
}

// KeywordReplyRepository returns the keyword reply repository for this unit of work
func (u *unitOfWork) KeywordReplyRepository() service.KeywordReplyRepository {
	if u.keywordReplyRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.keywordReplyRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}

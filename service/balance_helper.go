package service

import (
	"context"
	"fmt"

	"heist/events"
	"heist/models"
)

// RecordTransaction appends a ledger record and publishes the matching balance change event.
// This is the single entry point for all balance changes in the system.
func RecordTransaction(ctx context.Context, uow UnitOfWork, record *models.TransactionRecord, oldCash, newCash int64) error {
	if err := uow.TransactionRecordRepository().Record(ctx, record); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	// Flushed after the transaction commits
	uow.EventBus().Publish(events.BalanceChangeEvent{
		ActorID:      record.ActorID,
		OldCash:      oldCash,
		NewCash:      newCash,
		Category:     record.Category,
		ChangeAmount: newCash - oldCash,
	})
	return nil
}

func counterparty(actorID int64) *int64 {
	return &actorID
}

package service

import (
	"context"
	"fmt"
	"time"

	"heist/config"
	"heist/keylock"
	"heist/models"

	log "github.com/sirupsen/logrus"
)

type salaryService struct {
	runner   *txRunner
	ledger   LedgerService
	amount   int64
	cooldown time.Duration
	locks    *keylock.Map[int64]
	now      func() time.Time
}

// NewSalaryService creates a new salary service paying through the ledger
func NewSalaryService(uowFactory UnitOfWorkFactory, ledger LedgerService, cfg *config.Config) SalaryService {
	return &salaryService{
		runner:   newTxRunner(uowFactory, cfg.StorageTimeout, cfg.StorageRetryAttempts),
		ledger:   ledger,
		amount:   cfg.DailySalary,
		cooldown: cfg.SalaryCooldown,
		locks:    keylock.New[int64](),
		now:      time.Now,
	}
}

// Collect pays the salary once per cooldown. Collections by the same actor are
// serialized so the cooldown check and the credit cannot interleave.
func (s *salaryService) Collect(ctx context.Context, actorID int64) (*SalaryResult, error) {
	unlock := s.locks.Lock(actorID)
	defer unlock()

	var last *models.TransactionRecord
	err := s.runner.Read(ctx, "salary_check", func(ctx context.Context, uow UnitOfWork) error {
		account, err := uow.AccountRepository().GetByID(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		if account == nil {
			return notRegisteredError(actorID)
		}
		last, err = uow.TransactionRecordRepository().LastByCategory(ctx, actorID, models.CategorySalary)
		if err != nil {
			return fmt.Errorf("failed to get last salary: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	if last != nil {
		next := last.CreatedAt.Add(s.cooldown)
		if now.Before(next) {
			wait := next.Sub(now).Round(time.Minute)
			return nil, validationError("salary already collected, next payment in %s", wait)
		}
	}

	newCash, err := s.ledger.Credit(ctx, actorID, s.amount, models.CategorySalary, "Daily salary")
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"actorID": actorID,
		"amount":  s.amount,
	}).Info("Salary paid")

	return &SalaryResult{
		Amount:      s.amount,
		NewCash:     newCash,
		NextPayment: now.Add(s.cooldown),
	}, nil
}

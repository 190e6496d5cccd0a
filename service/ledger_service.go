package service

import (
	"context"
	"fmt"
	"strings"

	"heist/config"
	"heist/events"
	"heist/metrics"
	"heist/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

type ledgerService struct {
	runner          *txRunner
	resolver        *TheftResolver
	startingBalance int64
	maxTheftAmount  int64
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory, resolver *TheftResolver, cfg *config.Config) LedgerService {
	return &ledgerService{
		runner:          newTxRunner(uowFactory, cfg.StorageTimeout, cfg.StorageRetryAttempts),
		resolver:        resolver,
		startingBalance: cfg.StartingBalance,
		maxTheftAmount:  cfg.MaxTheftAmount,
	}
}

func (s *ledgerService) OpenAccount(ctx context.Context, actorID int64, username, bankName string) (*models.Account, bool, error) {
	req := openAccountRequest{
		Username: strings.TrimSpace(username),
		BankName: strings.TrimSpace(bankName),
	}
	if err := validateRequest(req); err != nil {
		return nil, false, err
	}

	var (
		account *models.Account
		created bool
	)
	err := s.runner.Run(ctx, "open_account", func(ctx context.Context, uow UnitOfWork) error {
		created = false
		existing, err := uow.AccountRepository().GetByID(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		if existing != nil {
			account = existing
			return nil
		}

		// A concurrent open hits the primary key and is retried as a conflict,
		// after which the lookup above finds the winner's row.
		account, err = uow.AccountRepository().Create(ctx, actorID, req.Username, req.BankName, s.startingBalance)
		if err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}

		record := &models.TransactionRecord{
			ActorID:     actorID,
			Amount:      s.startingBalance,
			Category:    models.CategoryAccountOpened,
			Description: fmt.Sprintf("Opened account at %s", req.BankName),
			Metadata: map[string]any{
				"username":  req.Username,
				"bank_name": req.BankName,
			},
			TxGroupID: uuid.NewString(),
		}
		if err := RecordTransaction(ctx, uow, record, 0, s.startingBalance); err != nil {
			return err
		}
		uow.EventBus().Publish(events.AccountOpenedEvent{
			ActorID:        actorID,
			Username:       req.Username,
			InitialBalance: s.startingBalance,
		})
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		log.WithFields(log.Fields{
			"actorID":  actorID,
			"bankName": req.BankName,
		}).Info("Account opened")
	}
	return account, created, nil
}

func (s *ledgerService) GetAccount(ctx context.Context, actorID int64) (*models.Account, error) {
	var account *models.Account
	err := s.runner.Read(ctx, "get_account", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		account, err = uow.AccountRepository().GetByID(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		if account == nil {
			return notRegisteredError(actorID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *ledgerService) Transfer(ctx context.Context, senderID, receiverID int64, amount int64) (*models.TransferResult, error) {
	if amount <= 0 {
		return nil, validationError("transfer amount must be positive")
	}
	if senderID == receiverID {
		return nil, validationError("cannot transfer to yourself")
	}

	var result *models.TransferResult
	err := s.runner.Run(ctx, "transfer", func(ctx context.Context, uow UnitOfWork) error {
		accounts, err := uow.AccountRepository().LockForUpdate(ctx, senderID, receiverID)
		if err != nil {
			return fmt.Errorf("failed to lock accounts: %w", err)
		}
		sender, receiver := accounts[senderID], accounts[receiverID]
		if sender == nil {
			return notRegisteredError(senderID)
		}
		if receiver == nil {
			return notRegisteredError(receiverID)
		}
		if sender.Cash < amount {
			return insufficientFundsError(sender.Cash, amount)
		}

		senderCash, err := uow.AccountRepository().DeductCash(ctx, senderID, amount)
		if err != nil {
			return fmt.Errorf("failed to deduct transfer amount: %w", err)
		}
		receiverCash, err := uow.AccountRepository().AddCash(ctx, receiverID, amount)
		if err != nil {
			return fmt.Errorf("failed to add transfer amount: %w", err)
		}

		groupID := uuid.NewString()
		outgoing := &models.TransactionRecord{
			ActorID:        senderID,
			CounterpartyID: counterparty(receiverID),
			Amount:         -amount,
			Category:       models.CategoryTransfer,
			Description:    fmt.Sprintf("Transfer to %s", receiver.Username),
			TxGroupID:      groupID,
		}
		if err := RecordTransaction(ctx, uow, outgoing, sender.Cash, senderCash); err != nil {
			return err
		}
		incoming := &models.TransactionRecord{
			ActorID:        receiverID,
			CounterpartyID: counterparty(senderID),
			Amount:         amount,
			Category:       models.CategoryTransfer,
			Description:    fmt.Sprintf("Transfer from %s", sender.Username),
			TxGroupID:      groupID,
		}
		if err := RecordTransaction(ctx, uow, incoming, receiver.Cash, receiverCash); err != nil {
			return err
		}

		result = &models.TransferResult{
			Amount:           amount,
			SenderCash:       senderCash,
			ReceiverCash:     receiverCash,
			ReceiverUsername: receiver.Username,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) AttemptTheft(ctx context.Context, thiefID, targetID int64) (*models.TheftResult, error) {
	if thiefID == targetID {
		return nil, validationError("cannot steal from yourself")
	}

	var result *models.TheftResult
	err := s.runner.Run(ctx, "attempt_theft", func(ctx context.Context, uow UnitOfWork) error {
		accounts, err := uow.AccountRepository().LockForUpdate(ctx, thiefID, targetID)
		if err != nil {
			return fmt.Errorf("failed to lock accounts: %w", err)
		}
		thief, target := accounts[thiefID], accounts[targetID]
		if thief == nil {
			return notRegisteredError(thiefID)
		}
		if target == nil {
			return notRegisteredError(targetID)
		}
		if target.Cash <= 0 {
			return noFundsToStealError(targetID)
		}
		// The thief must be able to cover the minimum fine
		if thief.Cash < MinTheftPenalty {
			return insufficientFundsError(thief.Cash, MinTheftPenalty)
		}

		chance := TheftChance(target.SecurityLevel)
		roll := s.resolver.Roll()
		if roll <= chance {
			result, err = s.theftSucceeded(ctx, uow, thief, target)
		} else {
			result, err = s.theftFailed(ctx, uow, thief, target)
		}
		if err != nil {
			return err
		}
		result.Chance = chance
		result.Roll = roll
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	metrics.TheftAttempts.WithLabelValues(outcome).Inc()
	log.WithFields(log.Fields{
		"thiefID":  thiefID,
		"targetID": targetID,
		"success":  result.Success,
		"amount":   result.Amount,
		"chance":   result.Chance,
		"roll":     result.Roll,
	}).Info("Theft attempt resolved")
	return result, nil
}

func (s *ledgerService) theftSucceeded(ctx context.Context, uow UnitOfWork, thief, target *models.Account) (*models.TheftResult, error) {
	stolen := s.resolver.StolenAmount(target.Cash, s.maxTheftAmount)

	targetCash, err := uow.AccountRepository().DeductCash(ctx, target.ActorID, stolen)
	if err != nil {
		return nil, fmt.Errorf("failed to deduct stolen amount: %w", err)
	}
	thiefCash, err := uow.AccountRepository().AddCash(ctx, thief.ActorID, stolen)
	if err != nil {
		return nil, fmt.Errorf("failed to add stolen amount: %w", err)
	}

	groupID := uuid.NewString()
	records := []struct {
		record *models.TransactionRecord
		before int64
		after  int64
	}{
		{&models.TransactionRecord{
			ActorID:        thief.ActorID,
			CounterpartyID: counterparty(target.ActorID),
			Amount:         stolen,
			Category:       models.CategoryTheftSuccess,
			Description:    fmt.Sprintf("Stole from %s", target.Username),
			TxGroupID:      groupID,
		}, thief.Cash, thiefCash},
		{&models.TransactionRecord{
			ActorID:        target.ActorID,
			CounterpartyID: counterparty(thief.ActorID),
			Amount:         -stolen,
			Category:       models.CategoryTheftSuccess,
			Description:    fmt.Sprintf("Robbed by %s", thief.Username),
			TxGroupID:      groupID,
		}, target.Cash, targetCash},
	}
	for _, r := range records {
		if err := RecordTransaction(ctx, uow, r.record, r.before, r.after); err != nil {
			return nil, err
		}
	}

	if err := uow.TheftStatsRepository().Increment(ctx, thief.ActorID, 1, 0, 0); err != nil {
		return nil, fmt.Errorf("failed to update thief stats: %w", err)
	}
	if err := uow.TheftStatsRepository().Increment(ctx, target.ActorID, 0, 0, 1); err != nil {
		return nil, fmt.Errorf("failed to update victim stats: %w", err)
	}

	uow.EventBus().Publish(events.TheftSucceededEvent{
		ThiefID:        thief.ActorID,
		ThiefUsername:  thief.Username,
		TargetID:       target.ActorID,
		Amount:         stolen,
		TargetCashLeft: targetCash,
	})

	return &models.TheftResult{
		Success:    true,
		Amount:     stolen,
		ThiefCash:  thiefCash,
		TargetCash: targetCash,
	}, nil
}

func (s *ledgerService) theftFailed(ctx context.Context, uow UnitOfWork, thief, target *models.Account) (*models.TheftResult, error) {
	penalty := s.resolver.Penalty(thief.Cash)

	thiefCash, err := uow.AccountRepository().DeductCash(ctx, thief.ActorID, penalty)
	if err != nil {
		return nil, fmt.Errorf("failed to deduct theft penalty: %w", err)
	}

	// The penalty is destroyed, so the record has no counterparty
	record := &models.TransactionRecord{
		ActorID:     thief.ActorID,
		Amount:      -penalty,
		Category:    models.CategoryTheftFailed,
		Description: fmt.Sprintf("Caught stealing from %s", target.Username),
		Metadata: map[string]any{
			"target_id": target.ActorID,
		},
		TxGroupID: uuid.NewString(),
	}
	if err := RecordTransaction(ctx, uow, record, thief.Cash, thiefCash); err != nil {
		return nil, err
	}

	if err := uow.TheftStatsRepository().Increment(ctx, thief.ActorID, 0, 1, 0); err != nil {
		return nil, fmt.Errorf("failed to update thief stats: %w", err)
	}

	uow.EventBus().Publish(events.TheftFailedEvent{
		ThiefID:       thief.ActorID,
		ThiefUsername: thief.Username,
		TargetID:      target.ActorID,
		Penalty:       penalty,
	})

	return &models.TheftResult{
		Success:    false,
		Amount:     penalty,
		ThiefCash:  thiefCash,
		TargetCash: target.Cash,
	}, nil
}

func (s *ledgerService) UpgradeSecurity(ctx context.Context, actorID int64, targetLevel int) (*models.UpgradeResult, error) {
	if _, ok := models.SecurityLevelFor(targetLevel); !ok {
		return nil, validationError("security level must be between %d and %d", models.MinSecurityLevel, models.MaxSecurityLevel)
	}
	return s.upgrade(ctx, actorID, func(current int) (int, error) {
		if targetLevel <= current {
			return 0, validationError("security level %d is not above your current level %d", targetLevel, current)
		}
		return targetLevel, nil
	})
}

func (s *ledgerService) UpgradeSecurityNext(ctx context.Context, actorID int64) (*models.UpgradeResult, error) {
	return s.upgrade(ctx, actorID, func(current int) (int, error) {
		if current >= models.MaxSecurityLevel {
			return 0, validationError("security is already at the maximum level %d", models.MaxSecurityLevel)
		}
		return current + 1, nil
	})
}

// upgrade buys the level chosen by pick from the actor's current level
func (s *ledgerService) upgrade(ctx context.Context, actorID int64, pick func(current int) (int, error)) (*models.UpgradeResult, error) {
	var result *models.UpgradeResult
	err := s.runner.Run(ctx, "upgrade_security", func(ctx context.Context, uow UnitOfWork) error {
		accounts, err := uow.AccountRepository().LockForUpdate(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to lock account: %w", err)
		}
		account := accounts[actorID]
		if account == nil {
			return notRegisteredError(actorID)
		}

		targetLevel, err := pick(account.SecurityLevel)
		if err != nil {
			return err
		}
		level, _ := models.SecurityLevelFor(targetLevel)
		if account.Cash < level.UpgradeCost {
			return insufficientFundsError(account.Cash, level.UpgradeCost)
		}

		cash, err := uow.AccountRepository().DeductCash(ctx, actorID, level.UpgradeCost)
		if err != nil {
			return fmt.Errorf("failed to deduct upgrade cost: %w", err)
		}
		if err := uow.AccountRepository().SetSecurityLevel(ctx, actorID, targetLevel); err != nil {
			return fmt.Errorf("failed to set security level: %w", err)
		}

		record := &models.TransactionRecord{
			ActorID:     actorID,
			Amount:      -level.UpgradeCost,
			Category:    models.CategorySecurityUpgrade,
			Description: fmt.Sprintf("Security upgraded to level %d", targetLevel),
			Metadata: map[string]any{
				"previous_level": account.SecurityLevel,
				"new_level":      targetLevel,
			},
			TxGroupID: uuid.NewString(),
		}
		if err := RecordTransaction(ctx, uow, record, account.Cash, cash); err != nil {
			return err
		}
		uow.EventBus().Publish(events.SecurityUpgradedEvent{
			ActorID:  actorID,
			OldLevel: account.SecurityLevel,
			NewLevel: targetLevel,
			Cost:     level.UpgradeCost,
		})

		result = &models.UpgradeResult{
			PreviousLevel: account.SecurityLevel,
			NewLevel:      targetLevel,
			Cost:          level.UpgradeCost,
			CashAfter:     cash,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) Credit(ctx context.Context, actorID int64, amount int64, category models.TransactionCategory, description string) (int64, error) {
	if amount <= 0 {
		return 0, validationError("credit amount must be positive")
	}
	if !category.IsCreditCategory() {
		return 0, validationError("category %q cannot be credited", category)
	}

	var newCash int64
	err := s.runner.Run(ctx, "credit", func(ctx context.Context, uow UnitOfWork) error {
		accounts, err := uow.AccountRepository().LockForUpdate(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to lock account: %w", err)
		}
		account := accounts[actorID]
		if account == nil {
			return notRegisteredError(actorID)
		}

		newCash, err = uow.AccountRepository().AddCash(ctx, actorID, amount)
		if err != nil {
			return fmt.Errorf("failed to add cash: %w", err)
		}
		record := &models.TransactionRecord{
			ActorID:     actorID,
			Amount:      amount,
			Category:    category,
			Description: description,
			TxGroupID:   uuid.NewString(),
		}
		return RecordTransaction(ctx, uow, record, account.Cash, newCash)
	})
	if err != nil {
		return 0, err
	}
	return newCash, nil
}

func (s *ledgerService) Spend(ctx context.Context, actorID int64, amount int64, category models.TransactionCategory, description string, metadata map[string]any) (int64, error) {
	if amount <= 0 {
		return 0, validationError("amount must be positive")
	}
	if !category.IsSpendCategory() {
		return 0, validationError("category %q is not a purchase", category)
	}

	var newCash int64
	err := s.runner.Run(ctx, "spend", func(ctx context.Context, uow UnitOfWork) error {
		accounts, err := uow.AccountRepository().LockForUpdate(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to lock account: %w", err)
		}
		account := accounts[actorID]
		if account == nil {
			return notRegisteredError(actorID)
		}
		if account.Cash < amount {
			return insufficientFundsError(account.Cash, amount)
		}

		newCash, err = uow.AccountRepository().DeductCash(ctx, actorID, amount)
		if err != nil {
			return fmt.Errorf("failed to deduct cash: %w", err)
		}
		record := &models.TransactionRecord{
			ActorID:     actorID,
			Amount:      -amount,
			Category:    category,
			Description: description,
			Metadata:    metadata,
			TxGroupID:   uuid.NewString(),
		}
		return RecordTransaction(ctx, uow, record, account.Cash, newCash)
	})
	if err != nil {
		return 0, err
	}
	return newCash, nil
}

func (s *ledgerService) Deposit(ctx context.Context, actorID int64, amount int64) (*models.BankMoveResult, error) {
	if amount <= 0 {
		return nil, validationError("deposit amount must be positive")
	}
	return s.moveBetweenCashAndBank(ctx, "deposit", actorID, amount, true)
}

func (s *ledgerService) Withdraw(ctx context.Context, actorID int64, amount int64) (*models.BankMoveResult, error) {
	if amount <= 0 {
		return nil, validationError("withdraw amount must be positive")
	}
	return s.moveBetweenCashAndBank(ctx, "withdraw", actorID, amount, false)
}

func (s *ledgerService) moveBetweenCashAndBank(ctx context.Context, operation string, actorID, amount int64, toBank bool) (*models.BankMoveResult, error) {
	var result *models.BankMoveResult
	err := s.runner.Run(ctx, operation, func(ctx context.Context, uow UnitOfWork) error {
		accounts, err := uow.AccountRepository().LockForUpdate(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to lock account: %w", err)
		}
		account := accounts[actorID]
		if account == nil {
			return notRegisteredError(actorID)
		}

		var (
			updated  *models.Account
			category models.TransactionCategory
			delta    int64
		)
		if toBank {
			if account.Cash < amount {
				return insufficientFundsError(account.Cash, amount)
			}
			updated, err = uow.AccountRepository().MoveCashToBank(ctx, actorID, amount)
			category, delta = models.CategoryDeposit, -amount
		} else {
			if account.Bank < amount {
				return insufficientFundsError(account.Bank, amount)
			}
			updated, err = uow.AccountRepository().MoveBankToCash(ctx, actorID, amount)
			category, delta = models.CategoryWithdraw, amount
		}
		if err != nil {
			return fmt.Errorf("failed to move funds: %w", err)
		}

		record := &models.TransactionRecord{
			ActorID:     actorID,
			Amount:      delta,
			Category:    category,
			Description: fmt.Sprintf("%s at %s", strings.ToUpper(operation[:1])+operation[1:], account.BankName),
			Metadata: map[string]any{
				"bank_after": updated.Bank,
			},
			TxGroupID: uuid.NewString(),
		}
		if err := RecordTransaction(ctx, uow, record, account.Cash, updated.Cash); err != nil {
			return err
		}

		result = &models.BankMoveResult{
			Amount: amount,
			Cash:   updated.Cash,
			Bank:   updated.Bank,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) History(ctx context.Context, actorID int64, limit int) ([]*models.TransactionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	var records []*models.TransactionRecord
	err := s.runner.Read(ctx, "history", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		records, err = uow.TransactionRecordRepository().GetByActor(ctx, actorID, limit)
		if err != nil {
			return fmt.Errorf("failed to get transaction history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

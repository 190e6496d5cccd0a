package service

import (
	"context"
	"errors"
	"testing"

	"heist/config"
	"heist/events"
	"heist/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 111111
	bob   int64 = 222222
)

type ledgerMocks struct {
	factory  *MockUnitOfWorkFactory
	uow      *MockUnitOfWork
	accounts *MockAccountRepository
	records  *MockTransactionRecordRepository
	theft    *MockTheftStatsRepository
}

func createTestLedgerService(draws ...int64) (LedgerService, *ledgerMocks) {
	m := &ledgerMocks{
		factory:  new(MockUnitOfWorkFactory),
		uow:      new(MockUnitOfWork),
		accounts: new(MockAccountRepository),
		records:  new(MockTransactionRecordRepository),
		theft:    new(MockTheftStatsRepository),
	}
	m.uow.SetRepositories(m.accounts, m.records, m.theft)
	m.factory.On("Create").Return(m.uow)
	m.factory.On("CreateReadOnly").Return(m.uow)

	if len(draws) == 0 {
		draws = []int64{0}
	}
	resolver := NewTheftResolver(&stubSource{draws: draws})
	return NewLedgerService(m.factory, resolver, config.NewTestConfig()), m
}

func setupBasicTransactionMocks(mockUoW *MockUnitOfWork) {
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
}

func createTestAccount(actorID int64, username string, cash int64) *models.Account {
	return &models.Account{
		ActorID:       actorID,
		Username:      username,
		Cash:          cash,
		BankName:      "Heist Savings",
		SecurityLevel: 1,
	}
}

func lockedAccounts(accounts ...*models.Account) map[int64]*models.Account {
	locked := make(map[int64]*models.Account, len(accounts))
	for _, a := range accounts {
		locked[a.ActorID] = a
	}
	return locked
}

func TestLedgerService_Transfer_ValidationErrors(t *testing.T) {
	svc, m := createTestLedgerService()
	ctx := context.Background()

	_, err := svc.Transfer(ctx, alice, bob, 0)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.Transfer(ctx, alice, bob, -5)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.Transfer(ctx, alice, alice, 100)
	assert.True(t, errors.Is(err, ErrValidation))

	m.factory.AssertNotCalled(t, "Create")
}

func TestLedgerService_Transfer_InsufficientFunds(t *testing.T) {
	svc, m := createTestLedgerService()
	ctx := context.Background()
	setupBasicTransactionMocks(m.uow)

	m.accounts.On("LockForUpdate", mock.Anything, []int64{alice, bob}).
		Return(lockedAccounts(createTestAccount(alice, "alice", 1000), createTestAccount(bob, "bob", 500)), nil)

	result, err := svc.Transfer(ctx, alice, bob, 1500)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	m.accounts.AssertNotCalled(t, "DeductCash", mock.Anything, mock.Anything, mock.Anything)
	m.accounts.AssertNotCalled(t, "AddCash", mock.Anything, mock.Anything, mock.Anything)
	m.records.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
	assert.Empty(t, m.uow.PublishedEvents())
}

func TestLedgerService_Transfer_NotRegistered(t *testing.T) {
	svc, m := createTestLedgerService()
	ctx := context.Background()
	setupBasicTransactionMocks(m.uow)

	m.accounts.On("LockForUpdate", mock.Anything, []int64{alice, bob}).
		Return(lockedAccounts(createTestAccount(alice, "alice", 1000)), nil)

	_, err := svc.Transfer(ctx, alice, bob, 100)

	assert.True(t, errors.Is(err, ErrNotRegistered))
	m.records.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestLedgerService_Transfer_Success(t *testing.T) {
	svc, m := createTestLedgerService()
	ctx := context.Background()
	setupBasicTransactionMocks(m.uow)

	m.accounts.On("LockForUpdate", mock.Anything, []int64{alice, bob}).
		Return(lockedAccounts(createTestAccount(alice, "alice", 500), createTestAccount(bob, "bob", 500)), nil)
	m.accounts.On("DeductCash", mock.Anything, alice, int64(100)).Return(int64(400), nil)
	m.accounts.On("AddCash", mock.Anything, bob, int64(100)).Return(int64(600), nil)

	var groupIDs []string
	m.records.On("Record", mock.Anything, mock.MatchedBy(func(r *models.TransactionRecord) bool {
		return r.ActorID == alice && r.Amount == -100 && *r.CounterpartyID == bob && r.Category == models.CategoryTransfer
	})).Run(func(args mock.Arguments) {
		groupIDs = append(groupIDs, args.Get(1).(*models.TransactionRecord).TxGroupID)
	}).Return(nil)
	m.records.On("Record", mock.Anything, mock.MatchedBy(func(r *models.TransactionRecord) bool {
		return r.ActorID == bob && r.Amount == 100 && *r.CounterpartyID == alice && r.Category == models.CategoryTransfer
	})).Run(func(args mock.Arguments) {
		groupIDs = append(groupIDs, args.Get(1).(*models.TransactionRecord).TxGroupID)
	}).Return(nil)

	result, err := svc.Transfer(ctx, alice, bob, 100)

	require.NoError(t, err)
	assert.Equal(t, int64(100), result.Amount)
	assert.Equal(t, int64(400), result.SenderCash)
	assert.Equal(t, int64(600), result.ReceiverCash)
	assert.Equal(t, "bob", result.ReceiverUsername)

	// Conservation across both sides
	assert.Equal(t, int64(1000), result.SenderCash+result.ReceiverCash)

	require.Len(t, groupIDs, 2)
	assert.NotEmpty(t, groupIDs[0])
	assert.Equal(t, groupIDs[0], groupIDs[1])

	published := m.uow.PublishedEvents()
	require.Len(t, published, 2)
	assert.Equal(t, events.EventTypeBalanceChange, published[0].Type())

	m.accounts.AssertExpectations(t)
	m.records.AssertExpectations(t)
	m.uow.AssertCalled(t, "Commit")
}

func TestLedgerService_UpgradeSecurity_Success(t *testing.T) {
	svc, m := createTestLedgerService()
	ctx := context.Background()
	setupBasicTransactionMocks(m.uow)

	m.accounts.On("LockForUpdate", mock.Anything, []int64{alice}).
		Return(lockedAccounts(createTestAccount(alice, "alice", 20000)), nil)
	m.accounts.On("DeductCash", mock.Anything, alice, int64(15000)).Return(int64(5000), nil)
	m.accounts.On("SetSecurityLevel", mock.Anything, alice, 3).Return(nil)
	m.records.On("Record", mock.Anything, mock.MatchedBy(func(r *models.TransactionRecord) bool {
		return r.ActorID == alice && r.Amount == -15000 && r.Category == models.CategorySecurityUpgrade && r.CounterpartyID == nil
	})).Return(nil)

	result, err := svc.UpgradeSecurity(ctx, alice, 3)

	require.NoError(t, err)
	assert.Equal(t, 1, result.PreviousLevel)
	assert.Equal(t, 3, result.NewLevel)
	assert.Equal(t, int64(15000), result.Cost)
	assert.Equal(t, int64(5000), result.CashAfter)

	var upgraded *events.SecurityUpgradedEvent
	for _, e := range m.uow.PublishedEvents() {
		if ev, ok := e.(events.SecurityUpgradedEvent); ok {
			upgraded = &ev
		}
	}
	require.NotNil(t, upgraded)
	assert.Equal(t, 3, upgraded.NewLevel)

	m.accounts.AssertExpectations(t)
	m.records.AssertExpectations(t)
}

func TestLedgerService_UpgradeSecurity_Rejections(t *testing.T) {
	t.Run("out of range", func(t *testing.T) {
		svc, m := createTestLedgerService()
		for _, level := range []int{0, 6, -1} {
			_, err := svc.UpgradeSecurity(context.Background(), alice, level)
			assert.True(t, errors.Is(err, ErrValidation), "level %d", level)
		}
		m.factory.AssertNotCalled(t, "Create")
	})

	t.Run("not above current", func(t *testing.T) {
		svc, m := createTestLedgerService()
		setupBasicTransactionMocks(m.uow)
		account := createTestAccount(alice, "alice", 100000)
		account.SecurityLevel = 3
		m.accounts.On("LockForUpdate", mock.Anything, []int64{alice}).Return(lockedAccounts(account), nil)

		_, err := svc.UpgradeSecurity(context.Background(), alice, 3)
		assert.True(t, errors.Is(err, ErrValidation))
		_, err = svc.UpgradeSecurity(context.Background(), alice, 2)
		assert.True(t, errors.Is(err, ErrValidation))
		m.accounts.AssertNotCalled(t, "DeductCash", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		svc, m := createTestLedgerService()
		setupBasicTransactionMocks(m.uow)
		m.accounts.On("LockForUpdate", mock.Anything, []int64{alice}).
			Return(lockedAccounts(createTestAccount(alice, "alice", 4999)), nil)

		_, err := svc.UpgradeSecurity(context.Background(), alice, 2)
		assert.True(t, errors.Is(err, ErrInsufficientFunds))
		m.accounts.AssertNotCalled(t, "SetSecurityLevel", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("next at maximum", func(t *testing.T) {
		svc, m := createTestLedgerService()
		setupBasicTransactionMocks(m.uow)
		account := createTestAccount(alice, "alice", 1000000)
		account.SecurityLevel = models.MaxSecurityLevel
		m.accounts.On("LockForUpdate", mock.Anything, []int64{alice}).Return(lockedAccounts(account), nil)

		_, err := svc.UpgradeSecurityNext(context.Background(), alice)
		assert.True(t, errors.Is(err, ErrValidation))
	})
}

func TestLedgerService_UpgradeSecurityNext(t *testing.T) {
	svc, m := createTestLedgerService()
	setupBasicTransactionMocks(m.uow)

	m.accounts.On("LockForUpdate", mock.Anything, []int64{alice}).
		Return(lockedAccounts(createTestAccount(alice, "alice", 6000)), nil)
	m.accounts.On("DeductCash", mock.Anything, alice, int64(5000)).Return(int64(1000), nil)
	m.accounts.On("SetSecurityLevel", mock.Anything, alice, 2).Return(nil)
	m.records.On("Record", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.UpgradeSecurityNext(context.Background(), alice)

	require.NoError(t, err)
	assert.Equal(t, 2, result.NewLevel)
	assert.Equal(t, int64(1000), result.CashAfter)
}

func TestLedgerService_AttemptTheft_Success(t *testing.T) {
	// Roll draw 0 gives 1, stolen draw 0 gives the 10% floor
	svc, m := createTestLedgerService(0, 0)
	ctx := context.Background()
	setupBasicTransactionMocks(m.uow)

	m.accounts.On("LockForUpdate", mock.Anything, []int64{alice, bob}).
		Return(lockedAccounts(createTestAccount(alice, "alice", 200), createTestAccount(bob, "bob", 1000)), nil)
	m.accounts.On("DeductCash", mock.Anything, bob, int64(50)).Return(int64(950), nil)
	m.accounts.On("AddCash", mock.Anything, alice, int64(50)).Return(int64(250), nil)
	m.records.On("Record", mock.Anything, mock.MatchedBy(func(r *models.TransactionRecord) bool {
		return r.Category == models.CategoryTheftSuccess && r.CounterpartyID != nil
	})).Return(nil).Times(2)
	m.theft.On("Increment", mock.Anything, alice, 1, 0, 0).Return(nil)
	m.theft.On("Increment", mock.Anything, bob, 0, 0, 1).Return(nil)

	result, err := svc.AttemptTheft(ctx, alice, bob)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(50), result.Amount)
	assert.Equal(t, 70, result.Chance)
	assert.Equal(t, 1, result.Roll)
	assert.Equal(t, int64(250), result.ThiefCash)
	assert.Equal(t, int64(950), result.TargetCash)

	var victimEvent *events.TheftSucceededEvent
	for _, e := range m.uow.PublishedEvents() {
		if ev, ok := e.(events.TheftSucceededEvent); ok {
			victimEvent = &ev
		}
	}
	require.NotNil(t, victimEvent)
	assert.Equal(t, bob, victimEvent.TargetID)
	assert.Equal(t, int64(50), victimEvent.Amount)

	m.accounts.AssertExpectations(t)
	m.records.AssertExpectations(t)
	m.theft.AssertExpectations(t)
}

func TestLedgerService_AttemptTheft_Failure(t *testing.T) {
	// Roll draw 99 gives 100, above every chance; penalty draw 0 gives the 5% floor
	svc, m := createTestLedgerService(99, 0)
	ctx := context.Background()
	setupBasicTransactionMocks(m.uow)

	m.accounts.On("LockForUpdate", mock.Anything, []int64{alice, bob}).
		Return(lockedAccounts(createTestAccount(alice, "alice", 1000), createTestAccount(bob, "bob", 1000)), nil)
	m.accounts.On("DeductCash", mock.Anything, alice, int64(50)).Return(int64(950), nil)
	m.records.On("Record", mock.Anything, mock.MatchedBy(func(r *models.TransactionRecord) bool {
		return r.ActorID == alice && r.Amount == -50 && r.Category == models.CategoryTheftFailed && r.CounterpartyID == nil
	})).Return(nil).Once()
	m.theft.On("Increment", mock.Anything, alice, 0, 1, 0).Return(nil)

	result, err := svc.AttemptTheft(ctx, alice, bob)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, int64(50), result.Amount)
	assert.Equal(t, 100, result.Roll)
	assert.Equal(t, int64(950), result.ThiefCash)
	assert.Equal(t, int64(1000), result.TargetCash)

	// The target is never credited
	m.accounts.AssertNotCalled(t, "AddCash", mock.Anything, mock.Anything, mock.Anything)
	m.theft.AssertNotCalled(t, "Increment", mock.Anything, bob, mock.Anything, mock.Anything, mock.Anything)
	m.accounts.AssertExpectations(t)
	m.records.AssertExpectations(t)
}

func TestLedgerService_AttemptTheft_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		thief    *models.Account
		target   *models.Account
		expected error
	}{
		{"target missing", createTestAccount(alice, "alice", 1000), nil, ErrNotRegistered},
		{"thief missing", nil, createTestAccount(bob, "bob", 1000), ErrNotRegistered},
		{"target broke", createTestAccount(alice, "alice", 1000), createTestAccount(bob, "bob", 0), ErrNoFundsToSteal},
		{"thief cannot cover fine", createTestAccount(alice, "alice", 9), createTestAccount(bob, "bob", 1000), ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := createTestLedgerService()
			setupBasicTransactionMocks(m.uow)

			locked := map[int64]*models.Account{}
			if tt.thief != nil {
				locked[alice] = tt.thief
			}
			if tt.target != nil {
				locked[bob] = tt.target
			}
			m.accounts.On("LockForUpdate", mock.Anything, []int64{alice, bob}).Return(locked, nil)

			_, err := svc.AttemptTheft(context.Background(), alice, bob)

			assert.True(t, errors.Is(err, tt.expected), "got %v", err)
			m.accounts.AssertNotCalled(t, "DeductCash", mock.Anything, mock.Anything, mock.Anything)
			m.records.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
			m.uow.AssertNotCalled(t, "Commit")
		})
	}

	t.Run("self target", func(t *testing.T) {
		svc, m := createTestLedgerService()
		_, err := svc.AttemptTheft(context.Background(), alice, alice)
		assert.True(t, errors.Is(err, ErrValidation))
		m.factory.AssertNotCalled(t, "Create")
	})
}

func TestLedgerService_Credit(t *testing.T) {
	t.Run("rejects non credit category", func(t *testing.T) {
		svc, _ := createTestLedgerService()
		_, err := svc.Credit(context.Background(), alice, 100, models.CategoryTransfer, "nope")
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("rejects non positive amount", func(t *testing.T) {
		svc, _ := createTestLedgerService()
		_, err := svc.Credit(context.Background(), alice, 0, models.CategorySalary, "salary")
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("credits cash", func(t *testing.T) {
		svc, m := createTestLedgerService()
		setupBasicTransactionMocks(m.uow)
		m.accounts.On("LockForUpdate", mock.Anything, []int64{alice}).
			Return(lockedAccounts(createTestAccount(alice, "alice", 1000)), nil)
		m.accounts.On("AddCash", mock.Anything, alice, int64(100)).Return(int64(1100), nil)
		m.records.On("Record", mock.Anything, mock.MatchedBy(func(r *models.TransactionRecord) bool {
			return r.Amount == 100 && r.Category == models.CategorySalary
		})).Return(nil)

		cash, err := svc.Credit(context.Background(), alice, 100, models.CategorySalary, "Daily salary")

		require.NoError(t, err)
		assert.Equal(t, int64(1100), cash)
	})
}

func TestLedgerService_Spend(t *testing.T) {
	svc, m := createTestLedgerService()
	setupBasicTransactionMocks(m.uow)
	m.accounts.On("LockForUpdate", mock.Anything, []int64{alice}).
		Return(lockedAccounts(createTestAccount(alice, "alice", 1000)), nil)
	m.accounts.On("DeductCash", mock.Anything, alice, int64(300)).Return(int64(700), nil)
	m.records.On("Record", mock.Anything, mock.MatchedBy(func(r *models.TransactionRecord) bool {
		return r.Amount == -300 && r.Category == models.CategoryFarmPlanting && r.Metadata["crop"] == "wheat"
	})).Return(nil)

	cash, err := svc.Spend(context.Background(), alice, 300, models.CategoryFarmPlanting, "Planted wheat", map[string]any{"crop": "wheat"})
	require.NoError(t, err)
	assert.Equal(t, int64(700), cash)

	_, err = svc.Spend(context.Background(), alice, 2000, models.CategorySalary, "x", nil)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestLedgerService_OpenAccount(t *testing.T) {
	t.Run("existing account", func(t *testing.T) {
		svc, m := createTestLedgerService()
		setupBasicTransactionMocks(m.uow)
		existing := createTestAccount(alice, "alice", 4321)
		m.accounts.On("GetByID", mock.Anything, alice).Return(existing, nil)

		account, created, err := svc.OpenAccount(context.Background(), alice, "alice", "Heist Savings")

		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing, account)
		m.accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("new account", func(t *testing.T) {
		svc, m := createTestLedgerService()
		setupBasicTransactionMocks(m.uow)
		m.accounts.On("GetByID", mock.Anything, alice).Return(nil, nil)
		m.accounts.On("Create", mock.Anything, alice, "alice", "Heist Savings", int64(1000)).
			Return(createTestAccount(alice, "alice", 1000), nil)
		m.records.On("Record", mock.Anything, mock.MatchedBy(func(r *models.TransactionRecord) bool {
			return r.Category == models.CategoryAccountOpened && r.Amount == 1000 && r.CounterpartyID == nil
		})).Return(nil)

		account, created, err := svc.OpenAccount(context.Background(), alice, " alice ", "Heist Savings")

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(1000), account.Cash)

		var opened bool
		for _, e := range m.uow.PublishedEvents() {
			if _, ok := e.(events.AccountOpenedEvent); ok {
				opened = true
			}
		}
		assert.True(t, opened)
	})

	t.Run("missing bank", func(t *testing.T) {
		svc, m := createTestLedgerService()
		_, _, err := svc.OpenAccount(context.Background(), alice, "alice", "  ")
		assert.True(t, errors.Is(err, ErrValidation))
		m.factory.AssertNotCalled(t, "Create")
	})
}

func TestLedgerService_DepositWithdraw(t *testing.T) {
	t.Run("deposit", func(t *testing.T) {
		svc, m := createTestLedgerService()
		setupBasicTransactionMocks(m.uow)
		m.accounts.On("LockForUpdate", mock.Anything, []int64{alice}).
			Return(lockedAccounts(createTestAccount(alice, "alice", 1000)), nil)
		m.accounts.On("MoveCashToBank", mock.Anything, alice, int64(400)).
			Return(&models.Account{ActorID: alice, Cash: 600, Bank: 400}, nil)
		m.records.On("Record", mock.Anything, mock.MatchedBy(func(r *models.TransactionRecord) bool {
			return r.Category == models.CategoryDeposit && r.Amount == -400
		})).Return(nil)

		result, err := svc.Deposit(context.Background(), alice, 400)

		require.NoError(t, err)
		assert.Equal(t, int64(600), result.Cash)
		assert.Equal(t, int64(400), result.Bank)
	})

	t.Run("withdraw more than bank", func(t *testing.T) {
		svc, m := createTestLedgerService()
		setupBasicTransactionMocks(m.uow)
		account := createTestAccount(alice, "alice", 1000)
		account.Bank = 50
		m.accounts.On("LockForUpdate", mock.Anything, []int64{alice}).Return(lockedAccounts(account), nil)

		_, err := svc.Withdraw(context.Background(), alice, 100)

		assert.True(t, errors.Is(err, ErrInsufficientFunds))
		m.accounts.AssertNotCalled(t, "MoveBankToCash", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLedgerService_GetAccount_NotRegistered(t *testing.T) {
	svc, m := createTestLedgerService()
	setupBasicTransactionMocks(m.uow)
	m.accounts.On("GetByID", mock.Anything, alice).Return(nil, nil)

	_, err := svc.GetAccount(context.Background(), alice)

	assert.True(t, errors.Is(err, ErrNotRegistered))
	m.factory.AssertCalled(t, "CreateReadOnly")
}

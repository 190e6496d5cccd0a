package service

import (
	"context"

	"heist/models"

	"github.com/stretchr/testify/mock"
)

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) OpenAccount(ctx context.Context, actorID int64, username, bankName string) (*models.Account, bool, error) {
	args := m.Called(ctx, actorID, username, bankName)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Account), args.Bool(1), args.Error(2)
}

func (m *MockLedgerService) GetAccount(ctx context.Context, actorID int64) (*models.Account, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockLedgerService) Transfer(ctx context.Context, senderID, receiverID int64, amount int64) (*models.TransferResult, error) {
	args := m.Called(ctx, senderID, receiverID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransferResult), args.Error(1)
}

func (m *MockLedgerService) AttemptTheft(ctx context.Context, thiefID, targetID int64) (*models.TheftResult, error) {
	args := m.Called(ctx, thiefID, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TheftResult), args.Error(1)
}

func (m *MockLedgerService) UpgradeSecurity(ctx context.Context, actorID int64, targetLevel int) (*models.UpgradeResult, error) {
	args := m.Called(ctx, actorID, targetLevel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UpgradeResult), args.Error(1)
}

func (m *MockLedgerService) UpgradeSecurityNext(ctx context.Context, actorID int64) (*models.UpgradeResult, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UpgradeResult), args.Error(1)
}

func (m *MockLedgerService) Credit(ctx context.Context, actorID int64, amount int64, category models.TransactionCategory, description string) (int64, error) {
	args := m.Called(ctx, actorID, amount, category, description)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) Spend(ctx context.Context, actorID int64, amount int64, category models.TransactionCategory, description string, metadata map[string]any) (int64, error) {
	args := m.Called(ctx, actorID, amount, category, description, metadata)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) Deposit(ctx context.Context, actorID int64, amount int64) (*models.BankMoveResult, error) {
	args := m.Called(ctx, actorID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BankMoveResult), args.Error(1)
}

func (m *MockLedgerService) Withdraw(ctx context.Context, actorID int64, amount int64) (*models.BankMoveResult, error) {
	args := m.Called(ctx, actorID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BankMoveResult), args.Error(1)
}

func (m *MockLedgerService) History(ctx context.Context, actorID int64, limit int) ([]*models.TransactionRecord, error) {
	args := m.Called(ctx, actorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TransactionRecord), args.Error(1)
}

// MockPermissionService is a mock implementation of PermissionService
type MockPermissionService struct {
	mock.Mock
}

func (m *MockPermissionService) Resolve(actorID int64, scopeID *int64) models.PermissionLevel {
	args := m.Called(actorID, scopeID)
	return args.Get(0).(models.PermissionLevel)
}

func (m *MockPermissionService) HasPermission(actorID int64, required models.PermissionLevel, scopeID *int64) bool {
	args := m.Called(actorID, required, scopeID)
	return args.Bool(0)
}

func (m *MockPermissionService) AddRole(ctx context.Context, scopeID, actorID int64, role models.Role) (bool, error) {
	args := m.Called(ctx, scopeID, actorID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockPermissionService) RemoveRole(ctx context.Context, scopeID, actorID int64, role models.Role) (bool, error) {
	args := m.Called(ctx, scopeID, actorID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockPermissionService) Grant(ctx context.Context, granterID, scopeID, targetID int64, role models.Role) (bool, error) {
	args := m.Called(ctx, granterID, scopeID, targetID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockPermissionService) Revoke(ctx context.Context, revokerID, scopeID, targetID int64, role models.Role) (bool, error) {
	args := m.Called(ctx, revokerID, scopeID, targetID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockPermissionService) GroupAdmins(scopeID int64) models.GroupAdmins {
	args := m.Called(scopeID)
	return args.Get(0).(models.GroupAdmins)
}

func (m *MockPermissionService) Load(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockKeywordService is a mock implementation of KeywordService
type MockKeywordService struct {
	mock.Mock
}

func (m *MockKeywordService) Lookup(ctx context.Context, text string, scopeID int64) (string, bool, error) {
	args := m.Called(ctx, text, scopeID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockKeywordService) Upsert(ctx context.Context, trigger, response string, scopeID *int64, authorID int64) (*models.KeywordReply, error) {
	args := m.Called(ctx, trigger, response, scopeID, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.KeywordReply), args.Error(1)
}

func (m *MockKeywordService) List(ctx context.Context, scopeID *int64) ([]*models.KeywordReply, error) {
	args := m.Called(ctx, scopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.KeywordReply), args.Error(1)
}

// MockStatsService is a mock implementation of StatsService
type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) TheftStats(ctx context.Context, actorID int64) (*models.TheftStats, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TheftStats), args.Error(1)
}

func (m *MockStatsService) TopThieves(ctx context.Context, limit int) ([]*models.ThiefRankEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ThiefRankEntry), args.Error(1)
}

func (m *MockStatsService) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

// MockSalaryService is a mock implementation of SalaryService
type MockSalaryService struct {
	mock.Mock
}

func (m *MockSalaryService) Collect(ctx context.Context, actorID int64) (*SalaryResult, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SalaryResult), args.Error(1)
}

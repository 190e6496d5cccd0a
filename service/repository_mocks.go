package service

import (
	"context"
	"sync"

	"heist/events"
	"heist/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, actorID int64) (*models.Account, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) LockForUpdate(ctx context.Context, actorIDs ...int64) (map[int64]*models.Account, error) {
	args := m.Called(ctx, actorIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, actorID int64, username, bankName string, initialCash int64) (*models.Account, error) {
	args := m.Called(ctx, actorID, username, bankName, initialCash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) AddCash(ctx context.Context, actorID int64, amount int64) (int64, error) {
	args := m.Called(ctx, actorID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) DeductCash(ctx context.Context, actorID int64, amount int64) (int64, error) {
	args := m.Called(ctx, actorID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) MoveCashToBank(ctx context.Context, actorID int64, amount int64) (*models.Account, error) {
	args := m.Called(ctx, actorID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) MoveBankToCash(ctx context.Context, actorID int64, amount int64) (*models.Account, error) {
	args := m.Called(ctx, actorID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) SetSecurityLevel(ctx context.Context, actorID int64, level int) error {
	args := m.Called(ctx, actorID, level)
	return args.Error(0)
}

func (m *MockAccountRepository) TopByTotal(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

// MockTransactionRecordRepository is a mock implementation of TransactionRecordRepository
type MockTransactionRecordRepository struct {
	mock.Mock
}

func (m *MockTransactionRecordRepository) Record(ctx context.Context, record *models.TransactionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockTransactionRecordRepository) GetByActor(ctx context.Context, actorID int64, limit int) ([]*models.TransactionRecord, error) {
	args := m.Called(ctx, actorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TransactionRecord), args.Error(1)
}

func (m *MockTransactionRecordRepository) LastByCategory(ctx context.Context, actorID int64, category models.TransactionCategory) (*models.TransactionRecord, error) {
	args := m.Called(ctx, actorID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransactionRecord), args.Error(1)
}

func (m *MockTransactionRecordRepository) GetByGroup(ctx context.Context, txGroupID string) ([]*models.TransactionRecord, error) {
	args := m.Called(ctx, txGroupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TransactionRecord), args.Error(1)
}

// MockTheftStatsRepository is a mock implementation of TheftStatsRepository
type MockTheftStatsRepository struct {
	mock.Mock
}

func (m *MockTheftStatsRepository) Increment(ctx context.Context, actorID int64, successful, failed, victimized int) error {
	args := m.Called(ctx, actorID, successful, failed, victimized)
	return args.Error(0)
}

func (m *MockTheftStatsRepository) Get(ctx context.Context, actorID int64) (*models.TheftStats, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TheftStats), args.Error(1)
}

func (m *MockTheftStatsRepository) TopThieves(ctx context.Context, limit int) ([]*models.ThiefRankEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ThiefRankEntry), args.Error(1)
}

// MockRoleRepository is a mock implementation of RoleRepository
type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) Add(ctx context.Context, entry *models.RoleEntry) (bool, error) {
	args := m.Called(ctx, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoleRepository) Remove(ctx context.Context, scopeID, actorID int64, role models.Role) (bool, error) {
	args := m.Called(ctx, scopeID, actorID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoleRepository) ListAll(ctx context.Context) ([]*models.RoleEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RoleEntry), args.Error(1)
}

// MockKeywordReplyRepository is a mock implementation of KeywordReplyRepository
type MockKeywordReplyRepository struct {
	mock.Mock
}

func (m *MockKeywordReplyRepository) Upsert(ctx context.Context, reply *models.KeywordReply) error {
	args := m.Called(ctx, reply)
	return args.Error(0)
}

func (m *MockKeywordReplyRepository) Find(ctx context.Context, trigger string, scopeID *int64) (*models.KeywordReply, error) {
	args := m.Called(ctx, trigger, scopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.KeywordReply), args.Error(1)
}

func (m *MockKeywordReplyRepository) ListByScope(ctx context.Context, scopeID *int64) ([]*models.KeywordReply, error) {
	args := m.Called(ctx, scopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.KeywordReply), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu        sync.Mutex
	published []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, event)
}

// Events returns a copy of everything published so far
func (m *MockEventPublisher) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.published...)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// plain fields so tests only stub the ones they touch.
type MockUnitOfWork struct {
	mock.Mock
	accountRepo AccountRepository
	recordRepo  TransactionRecordRepository
	theftRepo   TheftStatsRepository
	roleRepo    RoleRepository
	keywordRepo KeywordReplyRepository
	eventBus    MockEventPublisher
}

func (m *MockUnitOfWork) SetRepositories(accountRepo AccountRepository, recordRepo TransactionRecordRepository, theftRepo TheftStatsRepository) {
	m.accountRepo = accountRepo
	m.recordRepo = recordRepo
	m.theftRepo = theftRepo
}

func (m *MockUnitOfWork) SetRoleRepository(repo RoleRepository) {
	m.roleRepo = repo
}

func (m *MockUnitOfWork) SetKeywordReplyRepository(repo KeywordReplyRepository) {
	m.keywordRepo = repo
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) TransactionRecordRepository() TransactionRecordRepository {
	return m.recordRepo
}

func (m *MockUnitOfWork) TheftStatsRepository() TheftStatsRepository {
	return m.theftRepo
}

func (m *MockUnitOfWork) RoleRepository() RoleRepository {
	return m.roleRepo
}

func (m *MockUnitOfWork) KeywordReplyRepository() KeywordReplyRepository {
	return m.keywordRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return &m.eventBus
}

// PublishedEvents returns the events published through this unit of work
func (m *MockUnitOfWork) PublishedEvents() []events.Event {
	return m.eventBus.Events()
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

func (m *MockUnitOfWorkFactory) CreateReadOnly() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

package service

import (
	"context"
	"testing"

	"heist/config"
	"heist/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createTestStatsService() (StatsService, *MockAccountRepository, *MockTheftStatsRepository) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockTheftRepo := new(MockTheftStatsRepository)

	mockUoW.SetRepositories(mockAccountRepo, nil, mockTheftRepo)
	mockFactory.On("CreateReadOnly").Return(mockUoW)
	setupBasicTransactionMocks(mockUoW)

	return NewStatsService(mockFactory, config.NewTestConfig()), mockAccountRepo, mockTheftRepo
}

func TestStatsService_TheftStatsDefaultsToZero(t *testing.T) {
	svc, accounts, theft := createTestStatsService()
	accounts.On("GetByID", mock.Anything, alice).Return(createTestAccount(alice, "alice", 10), nil)
	theft.On("Get", mock.Anything, alice).Return(nil, nil)

	stats, err := svc.TheftStats(context.Background(), alice)

	require.NoError(t, err)
	assert.Equal(t, alice, stats.ActorID)
	assert.Zero(t, stats.Successful)
	assert.Zero(t, stats.SuccessRate())
}

func TestStatsService_TopThievesRanksAndClamps(t *testing.T) {
	svc, _, theft := createTestStatsService()
	theft.On("TopThieves", mock.Anything, maxLeaderboardLimit).Return([]*models.ThiefRankEntry{
		{ActorID: alice, Successful: 9},
		{ActorID: bob, Successful: 4},
	}, nil)

	entries, err := svc.TopThieves(context.Background(), 1000)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)
}

func TestStatsService_LeaderboardDefaultLimit(t *testing.T) {
	svc, accounts, _ := createTestStatsService()
	accounts.On("TopByTotal", mock.Anything, defaultLeaderboardLimit).Return([]*models.LeaderboardEntry{
		{ActorID: bob, Total: 900},
	}, nil)

	entries, err := svc.Leaderboard(context.Background(), 0)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Rank)
}

package service

import (
	"context"
	"fmt"

	"heist/config"
	"heist/models"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 25
)

// statsService implements the StatsService interface
type statsService struct {
	runner *txRunner
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory, cfg *config.Config) StatsService {
	return &statsService{
		runner: newTxRunner(uowFactory, cfg.StorageTimeout, cfg.StorageRetryAttempts),
	}
}

// TheftStats returns the actor's counters, all zero when nothing was recorded yet
func (s *statsService) TheftStats(ctx context.Context, actorID int64) (*models.TheftStats, error) {
	var stats *models.TheftStats
	err := s.runner.Read(ctx, "theft_stats", func(ctx context.Context, uow UnitOfWork) error {
		account, err := uow.AccountRepository().GetByID(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		if account == nil {
			return notRegisteredError(actorID)
		}

		stats, err = uow.TheftStatsRepository().Get(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to get theft stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if stats == nil {
		stats = &models.TheftStats{ActorID: actorID}
	}
	return stats, nil
}

// TopThieves returns actors ranked by successful thefts
func (s *statsService) TopThieves(ctx context.Context, limit int) ([]*models.ThiefRankEntry, error) {
	limit = clampLimit(limit)

	var entries []*models.ThiefRankEntry
	err := s.runner.Read(ctx, "top_thieves", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		entries, err = uow.TheftStatsRepository().TopThieves(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to get top thieves: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Add rank
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Leaderboard returns the richest actors by cash plus bank
func (s *statsService) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	limit = clampLimit(limit)

	var entries []*models.LeaderboardEntry
	err := s.runner.Read(ctx, "leaderboard", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		entries, err = uow.AccountRepository().TopByTotal(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to get leaderboard: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLeaderboardLimit
	}
	return min(limit, maxLeaderboardLimit)
}

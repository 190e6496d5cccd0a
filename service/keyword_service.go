package service

import (
	"context"
	"fmt"
	"strings"

	"heist/config"
	"heist/models"

	log "github.com/sirupsen/logrus"
)

type keywordService struct {
	runner      *txRunner
	permissions PermissionService
}

// NewKeywordService creates a new keyword reply service
func NewKeywordService(uowFactory UnitOfWorkFactory, permissions PermissionService, cfg *config.Config) KeywordService {
	return &keywordService{
		runner:      newTxRunner(uowFactory, cfg.StorageTimeout, cfg.StorageRetryAttempts),
		permissions: permissions,
	}
}

// NormalizeTrigger trims and lowercases text so lookups match regardless of case
func NormalizeTrigger(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func (s *keywordService) Lookup(ctx context.Context, text string, scopeID int64) (string, bool, error) {
	trigger := NormalizeTrigger(text)
	if trigger == "" {
		return "", false, nil
	}

	var reply *models.KeywordReply
	err := s.runner.Read(ctx, "keyword_lookup", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		reply, err = uow.KeywordReplyRepository().Find(ctx, trigger, &scopeID)
		if err != nil {
			return fmt.Errorf("failed to find scoped reply: %w", err)
		}
		if reply != nil {
			return nil
		}
		reply, err = uow.KeywordReplyRepository().Find(ctx, trigger, nil)
		if err != nil {
			return fmt.Errorf("failed to find global reply: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if reply == nil {
		return "", false, nil
	}
	return reply.Response, true, nil
}

func (s *keywordService) Upsert(ctx context.Context, trigger, response string, scopeID *int64, authorID int64) (*models.KeywordReply, error) {
	req := keywordRequest{
		Trigger:  NormalizeTrigger(trigger),
		Response: strings.TrimSpace(response),
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if scopeID == nil {
		if !s.permissions.HasPermission(authorID, models.LevelMaster, nil) {
			return nil, permissionDeniedError("only masters can add global replies")
		}
	} else if !s.permissions.HasPermission(authorID, models.LevelModerator, scopeID) {
		return nil, permissionDeniedError("adding replies in this chat requires %s", models.LevelModerator)
	}

	reply := &models.KeywordReply{
		Trigger:  req.Trigger,
		ScopeID:  scopeID,
		Response: req.Response,
		AuthorID: authorID,
	}
	err := s.runner.Run(ctx, "keyword_upsert", func(ctx context.Context, uow UnitOfWork) error {
		if err := uow.KeywordReplyRepository().Upsert(ctx, reply); err != nil {
			return fmt.Errorf("failed to upsert reply: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"trigger":  reply.Trigger,
		"global":   reply.IsGlobal(),
		"authorID": authorID,
	}).Info("Custom reply saved")
	return reply, nil
}

func (s *keywordService) List(ctx context.Context, scopeID *int64) ([]*models.KeywordReply, error) {
	var replies []*models.KeywordReply
	err := s.runner.Read(ctx, "keyword_list", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		replies, err = uow.KeywordReplyRepository().ListByScope(ctx, scopeID)
		if err != nil {
			return fmt.Errorf("failed to list replies: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

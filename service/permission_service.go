package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"heist/config"
	"heist/events"
	"heist/keylock"
	"heist/models"

	log "github.com/sirupsen/logrus"
)

// roleSets holds the members of each role inside one scope
type roleSets map[models.Role]map[int64]struct{}

type permissionService struct {
	runner  *txRunner
	masters map[int64]struct{}
	locks   *keylock.Map[int64]

	mu     sync.RWMutex
	scopes map[int64]roleSets
}

// NewPermissionService creates a new permission service. Masters come from
// configuration and never change at runtime.
func NewPermissionService(uowFactory UnitOfWorkFactory, cfg *config.Config) PermissionService {
	masters := make(map[int64]struct{}, len(cfg.MasterIDs))
	for _, id := range cfg.MasterIDs {
		masters[id] = struct{}{}
	}
	return &permissionService{
		runner:  newTxRunner(uowFactory, cfg.StorageTimeout, cfg.StorageRetryAttempts),
		masters: masters,
		locks:   keylock.New[int64](),
		scopes:  make(map[int64]roleSets),
	}
}

func (s *permissionService) Resolve(actorID int64, scopeID *int64) models.PermissionLevel {
	if _, ok := s.masters[actorID]; ok {
		return models.LevelMaster
	}
	if scopeID == nil {
		return models.LevelMember
	}
	switch {
	case s.hasRole(*scopeID, actorID, models.RoleGroupOwner):
		return models.LevelGroupOwner
	case s.hasRole(*scopeID, actorID, models.RoleModerator):
		return models.LevelModerator
	default:
		return models.LevelMember
	}
}

func (s *permissionService) HasPermission(actorID int64, required models.PermissionLevel, scopeID *int64) bool {
	return s.Resolve(actorID, scopeID) >= required
}

func (s *permissionService) AddRole(ctx context.Context, scopeID, actorID int64, role models.Role) (bool, error) {
	return s.mutate(ctx, scopeID, actorID, role, true, 0)
}

func (s *permissionService) RemoveRole(ctx context.Context, scopeID, actorID int64, role models.Role) (bool, error) {
	return s.mutate(ctx, scopeID, actorID, role, false, 0)
}

func (s *permissionService) Grant(ctx context.Context, granterID, scopeID, targetID int64, role models.Role) (bool, error) {
	if err := s.checkCanManage(granterID, scopeID, role); err != nil {
		return false, err
	}
	return s.mutate(ctx, scopeID, targetID, role, true, granterID)
}

func (s *permissionService) Revoke(ctx context.Context, revokerID, scopeID, targetID int64, role models.Role) (bool, error) {
	if err := s.checkCanManage(revokerID, scopeID, role); err != nil {
		return false, err
	}
	return s.mutate(ctx, scopeID, targetID, role, false, revokerID)
}

// checkCanManage enforces who may manage which role: group owners manage
// moderators, masters manage group owners.
func (s *permissionService) checkCanManage(actorID, scopeID int64, role models.Role) error {
	if !role.Valid() {
		return validationError("unknown role %q", role)
	}
	required := models.LevelGroupOwner
	if role == models.RoleGroupOwner {
		required = models.LevelMaster
	}
	level := s.Resolve(actorID, &scopeID)
	if level < required {
		return permissionDeniedError("managing %s roles requires %s, you are %s", role, required, level)
	}
	return nil
}

func (s *permissionService) mutate(ctx context.Context, scopeID, actorID int64, role models.Role, grant bool, changedBy int64) (bool, error) {
	if !role.Valid() {
		return false, validationError("unknown role %q", role)
	}

	unlock := s.locks.Lock(scopeID)
	defer unlock()

	// Nothing else mutates this scope while the lock is held
	if s.hasRole(scopeID, actorID, role) == grant {
		return false, nil
	}

	operation := "remove_role"
	if grant {
		operation = "add_role"
	}
	err := s.runner.Run(ctx, operation, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		if grant {
			_, err = uow.RoleRepository().Add(ctx, &models.RoleEntry{ScopeID: scopeID, ActorID: actorID, Role: role})
		} else {
			_, err = uow.RoleRepository().Remove(ctx, scopeID, actorID, role)
		}
		if err != nil {
			return fmt.Errorf("failed to persist role change: %w", err)
		}
		uow.EventBus().Publish(events.RoleChangedEvent{
			ScopeID:   scopeID,
			ActorID:   actorID,
			ChangedBy: changedBy,
			Role:      role,
			Granted:   grant,
		})
		return nil
	})
	if err != nil {
		return false, err
	}

	// Memory follows storage only after the commit
	s.apply(scopeID, actorID, role, grant)

	log.WithFields(log.Fields{
		"scopeID":   scopeID,
		"actorID":   actorID,
		"role":      role,
		"granted":   grant,
		"changedBy": changedBy,
	}).Info("Role changed")
	return true, nil
}

func (s *permissionService) hasRole(scopeID, actorID int64, role models.Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.scopes[scopeID][role][actorID]
	return ok
}

// apply updates the in-memory registry, dropping sets and scopes once empty
func (s *permissionService) apply(scopeID, actorID int64, role models.Role, grant bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sets := s.scopes[scopeID]
	if grant {
		if sets == nil {
			sets = make(roleSets)
			s.scopes[scopeID] = sets
		}
		if sets[role] == nil {
			sets[role] = make(map[int64]struct{})
		}
		sets[role][actorID] = struct{}{}
		return
	}

	delete(sets[role], actorID)
	if len(sets[role]) == 0 {
		delete(sets, role)
	}
	if len(sets) == 0 {
		delete(s.scopes, scopeID)
	}
}

func (s *permissionService) GroupAdmins(scopeID int64) models.GroupAdmins {
	admins := models.GroupAdmins{
		Masters: sortedIDs(s.masters),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	admins.Owners = sortedIDs(s.scopes[scopeID][models.RoleGroupOwner])
	admins.Moderators = sortedIDs(s.scopes[scopeID][models.RoleModerator])
	return admins
}

func (s *permissionService) Load(ctx context.Context) error {
	var entries []*models.RoleEntry
	err := s.runner.Read(ctx, "load_roles", func(ctx context.Context, uow UnitOfWork) error {
		var err error
		entries, err = uow.RoleRepository().ListAll(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}

	s.mu.Lock()
	s.scopes = make(map[int64]roleSets)
	s.mu.Unlock()
	for _, entry := range entries {
		s.apply(entry.ScopeID, entry.ActorID, entry.Role, true)
	}

	log.WithField("count", len(entries)).Info("Loaded role entries")
	return nil
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

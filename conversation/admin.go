package conversation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"heist/models"
	"heist/service"
)

// Broadcaster delivers an announcement to every notification sink
type Broadcaster interface {
	Broadcast(ctx context.Context, fromID int64, text string) error
}

// Admin actions stored under KeyAction
const (
	ActionGrant  = "grant"
	ActionRevoke = "revoke"
)

const maxBroadcastLength = 2000

type adminFlow struct {
	permissions service.PermissionService
	broadcaster Broadcaster
}

// NewAdminFlow handles announcements and role changes
func NewAdminFlow(permissions service.PermissionService, broadcaster Broadcaster) StepHandler {
	return &adminFlow{permissions: permissions, broadcaster: broadcaster}
}

func (f *adminFlow) Step(ctx context.Context, sess Session, input string) (Step, error) {
	switch sess.State {
	case AdminWaitingBroadcast:
		if !f.permissions.HasPermission(sess.ActorID, models.LevelMaster, nil) {
			return Step{}, service.NewPermissionDeniedError("only masters can broadcast")
		}
		if input == "" || utf8.RuneCountInString(input) > maxBroadcastLength {
			return Step{}, service.NewValidationError("announcements must be 1 to %d characters", maxBroadcastLength)
		}
		if err := f.broadcaster.Broadcast(ctx, sess.ActorID, input); err != nil {
			return Step{}, err
		}
		return Step{Reply: "Announcement sent."}, nil

	case AdminWaitingUserID:
		target, err := ParseUserID(input)
		if err != nil {
			return Step{}, err
		}
		role := models.Role(sess.Payload.String(KeyRole))
		var changed bool
		switch sess.Payload.String(KeyAction) {
		case ActionGrant:
			changed, err = f.permissions.Grant(ctx, sess.ActorID, sess.ScopeID, target, role)
		case ActionRevoke:
			changed, err = f.permissions.Revoke(ctx, sess.ActorID, sess.ScopeID, target, role)
		default:
			return Step{}, fmt.Errorf("unknown admin action %q", sess.Payload.String(KeyAction))
		}
		if err != nil {
			return Step{}, err
		}
		return Step{Reply: roleReply(sess.Payload.String(KeyAction), role, target, changed)}, nil
	}
	return Step{}, fmt.Errorf("admin flow cannot handle state %q", sess.State)
}

func roleReply(action string, role models.Role, target int64, changed bool) string {
	name := strings.ReplaceAll(string(role), "_", " ")
	switch {
	case action == ActionGrant && changed:
		return fmt.Sprintf("<@%d> is now a %s.", target, name)
	case action == ActionGrant:
		return fmt.Sprintf("<@%d> is already a %s.", target, name)
	case changed:
		return fmt.Sprintf("<@%d> is no longer a %s.", target, name)
	default:
		return fmt.Sprintf("<@%d> was not a %s.", target, name)
	}
}

type customReplyFlow struct {
	keywords    service.KeywordService
	permissions service.PermissionService
}

// NewCustomReplyFlow collects a trigger and response, plus a scope for masters
func NewCustomReplyFlow(keywords service.KeywordService, permissions service.PermissionService) StepHandler {
	return &customReplyFlow{keywords: keywords, permissions: permissions}
}

func (f *customReplyFlow) Step(ctx context.Context, sess Session, input string) (Step, error) {
	switch sess.State {
	case CustomReplyWaitingTrigger:
		trigger := service.NormalizeTrigger(input)
		if n := utf8.RuneCountInString(trigger); n < 2 || n > 50 {
			return Step{}, service.NewValidationError("triggers must be 2 to 50 characters")
		}
		return Step{Next: CustomReplyWaitingResponse, Set: Payload{KeyTrigger: trigger}}, nil

	case CustomReplyWaitingResponse:
		if input == "" {
			return Step{}, service.NewValidationError("the reply cannot be empty")
		}
		// a direct message has no chat of its own, so its replies are global
		if sess.ScopeID == 0 {
			return f.save(ctx, sess.Payload.String(KeyTrigger), input, nil, sess.ActorID)
		}
		if f.permissions.HasPermission(sess.ActorID, models.LevelMaster, nil) {
			return Step{Next: CustomReplyWaitingScope, Set: Payload{KeyResponse: input}}, nil
		}
		scope := sess.ScopeID
		return f.save(ctx, sess.Payload.String(KeyTrigger), input, &scope, sess.ActorID)

	case CustomReplyWaitingScope:
		var scope *int64
		switch strings.ToLower(input) {
		case "here":
			if sess.ScopeID == 0 {
				return Step{}, service.NewValidationError("a direct message has no chat scope, answer `global`")
			}
			id := sess.ScopeID
			scope = &id
		case "global":
		default:
			return Step{}, service.NewValidationError("answer `here` or `global`")
		}
		return f.save(ctx, sess.Payload.String(KeyTrigger), sess.Payload.String(KeyResponse), scope, sess.ActorID)
	}
	return Step{}, fmt.Errorf("custom reply flow cannot handle state %q", sess.State)
}

func (f *customReplyFlow) save(ctx context.Context, trigger, response string, scopeID *int64, authorID int64) (Step, error) {
	reply, err := f.keywords.Upsert(ctx, trigger, response, scopeID, authorID)
	if err != nil {
		return Step{}, err
	}
	where := "in this chat"
	if reply.IsGlobal() {
		where = "everywhere"
	}
	return Step{Reply: fmt.Sprintf("I will now answer %q %s.", reply.Trigger, where)}, nil
}

// Handlers wires the production flows
func Handlers(ledger service.LedgerService, permissions service.PermissionService, keywords service.KeywordService, broadcaster Broadcaster, investmentMinimum int64) map[Namespace]StepHandler {
	return map[Namespace]StepHandler{
		NamespaceBanking:     NewBankingFlow(ledger),
		NamespaceProperty:    NewPropertyFlow(ledger),
		NamespaceTheft:       NewTheftFlow(ledger),
		NamespaceStocks:      NewStocksFlow(ledger),
		NamespaceInvestment:  NewInvestmentFlow(ledger, investmentMinimum),
		NamespaceFarm:        NewFarmFlow(ledger),
		NamespaceCastle:      NewCastleFlow(ledger),
		NamespaceAdmin:       NewAdminFlow(permissions, broadcaster),
		NamespaceCustomReply: NewCustomReplyFlow(keywords, permissions),
	}
}

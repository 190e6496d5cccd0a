package bot

import (
	"context"
	"fmt"
	"strings"

	"heist/bot/common"
	"heist/conversation"
	"heist/models"
	"heist/service"
)

type roleAction struct {
	action string
	role   models.Role
}

var (
	actionGrantModerator  = roleAction{conversation.ActionGrant, models.RoleModerator}
	actionRevokeModerator = roleAction{conversation.ActionRevoke, models.RoleModerator}
	actionGrantOwner      = roleAction{conversation.ActionGrant, models.RoleGroupOwner}
	actionRevokeOwner     = roleAction{conversation.ActionRevoke, models.RoleGroupOwner}
)

// roleCommand grants or revokes a role in the current server. Without a target
// it asks for one through the admin flow.
func (d *Dispatcher) roleCommand(ra roleAction) commandFunc {
	return func(ctx context.Context, msg Message, args []string) (string, error) {
		if msg.ScopeID == 0 {
			return "", service.NewValidationError("roles can only be managed inside a server")
		}
		if len(args) == 0 {
			return d.begin(msg, conversation.AdminWaitingUserID, conversation.Payload{
				conversation.KeyAction: ra.action,
				conversation.KeyRole:   string(ra.role),
			})
		}

		target, err := conversation.ParseUserID(args[0])
		if err != nil {
			return "", err
		}
		var changed bool
		if ra.action == conversation.ActionGrant {
			changed, err = d.permissions.Grant(ctx, msg.ActorID, msg.ScopeID, target, ra.role)
		} else {
			changed, err = d.permissions.Revoke(ctx, msg.ActorID, msg.ScopeID, target, ra.role)
		}
		if err != nil {
			return "", err
		}
		return formatRoleChange(ra, target, changed), nil
	}
}

func formatRoleChange(ra roleAction, target int64, changed bool) string {
	switch {
	case ra.action == conversation.ActionGrant && changed:
		return fmt.Sprintf("✅ %s is now %s.", common.Mention(target), ra.role)
	case ra.action == conversation.ActionGrant:
		return fmt.Sprintf("%s is already %s.", common.Mention(target), ra.role)
	case changed:
		return fmt.Sprintf("✅ %s is no longer %s.", common.Mention(target), ra.role)
	default:
		return fmt.Sprintf("%s was not %s.", common.Mention(target), ra.role)
	}
}

func (d *Dispatcher) adminsCommand(ctx context.Context, msg Message, args []string) (string, error) {
	admins := d.permissions.GroupAdmins(msg.ScopeID)

	var b strings.Builder
	b.WriteString("👑 **Admins**\n")
	writeMembers(&b, "Masters", admins.Masters)
	if msg.ScopeID != 0 {
		writeMembers(&b, "Owners", admins.Owners)
		writeMembers(&b, "Moderators", admins.Moderators)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func writeMembers(b *strings.Builder, title string, ids []int64) {
	if len(ids) == 0 {
		fmt.Fprintf(b, "%s: none\n", title)
		return
	}
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = common.Mention(id)
	}
	fmt.Fprintf(b, "%s: %s\n", title, strings.Join(mentions, ", "))
}

func (d *Dispatcher) capabilitiesCommand(ctx context.Context, msg Message, args []string) (string, error) {
	level := d.permissions.Resolve(msg.ActorID, scope(msg))

	var b strings.Builder
	fmt.Fprintf(&b, "Your level: **%s**\n", level)
	for _, capability := range level.Capabilities() {
		b.WriteString("• " + capability + "\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// addReplyCommand starts the custom reply flow for moderators and above
func (d *Dispatcher) addReplyCommand(ctx context.Context, msg Message, args []string) (string, error) {
	if !d.permissions.HasPermission(msg.ActorID, models.LevelModerator, scope(msg)) {
		return "", service.NewPermissionDeniedError("adding replies requires %s", models.LevelModerator)
	}
	return d.begin(msg, conversation.CustomReplyWaitingTrigger, nil)
}

// listRepliesCommand lists this server's replies, or the global ones when asked
func (d *Dispatcher) listRepliesCommand(ctx context.Context, msg Message, args []string) (string, error) {
	target := scope(msg)
	title := "this chat"
	if target == nil || (len(args) > 0 && strings.EqualFold(args[0], "global")) {
		target = nil
		title = "everywhere"
	}

	replies, err := d.keywords.List(ctx, target)
	if err != nil {
		return "", err
	}
	if len(replies) == 0 {
		return fmt.Sprintf("No custom replies for %s.", title), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💬 **Custom replies for %s**\n", title)
	for _, reply := range replies {
		fmt.Fprintf(&b, "`%s` → %s\n", reply.Trigger, reply.Response)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// broadcastCommand asks a master for the announcement text
func (d *Dispatcher) broadcastCommand(ctx context.Context, msg Message, args []string) (string, error) {
	if !d.permissions.HasPermission(msg.ActorID, models.LevelMaster, nil) {
		return "", service.NewPermissionDeniedError("only masters can broadcast")
	}
	return d.begin(msg, conversation.AdminWaitingBroadcast, nil)
}

package models

import "time"

// PermissionLevel is an actor's privilege within a scope
type PermissionLevel int

const (
	LevelMember PermissionLevel = iota
	LevelModerator
	LevelGroupOwner
	LevelMaster
)

func (l PermissionLevel) String() string {
	switch l {
	case LevelMember:
		return "member"
	case LevelModerator:
		return "moderator"
	case LevelGroupOwner:
		return "group owner"
	case LevelMaster:
		return "master"
	default:
		return "unknown"
	}
}

// Role is a per-scope role that can be granted at runtime
type Role string

const (
	RoleModerator  Role = "moderator"
	RoleGroupOwner Role = "group_owner"
)

// Valid reports whether the role is one of the grantable roles
func (r Role) Valid() bool {
	return r == RoleModerator || r == RoleGroupOwner
}

// Level returns the permission level a role confers
func (r Role) Level() PermissionLevel {
	switch r {
	case RoleGroupOwner:
		return LevelGroupOwner
	case RoleModerator:
		return LevelModerator
	default:
		return LevelMember
	}
}

// RoleEntry ties an actor to a role inside one scope
type RoleEntry struct {
	ScopeID   int64     `db:"scope_id"`
	ActorID   int64     `db:"actor_id"`
	Role      Role      `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

// GroupAdmins lists everyone holding privileges in a scope
type GroupAdmins struct {
	Masters    []int64
	Owners     []int64
	Moderators []int64
}

// Capabilities lists what an actor at this level may do, cumulative over lower levels
func (l PermissionLevel) Capabilities() []string {
	caps := []string{"use economy commands"}
	if l >= LevelModerator {
		caps = append(caps, "add custom replies in this chat")
	}
	if l >= LevelGroupOwner {
		caps = append(caps, "promote and demote moderators")
	}
	if l >= LevelMaster {
		caps = append(caps,
			"promote and demote group owners",
			"add global custom replies",
			"broadcast announcements",
		)
	}
	return caps
}

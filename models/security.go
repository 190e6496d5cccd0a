package models

// SecurityLevel describes one tier of theft protection
type SecurityLevel struct {
	Level       int
	Protection  int   // percent
	UpgradeCost int64 // cost to reach this level
}

const (
	MinSecurityLevel = 1
	MaxSecurityLevel = 5
)

// SecurityLevels is the fixed protection/cost table, indexed by level-1
var SecurityLevels = []SecurityLevel{
	{Level: 1, Protection: 10, UpgradeCost: 0},
	{Level: 2, Protection: 30, UpgradeCost: 5000},
	{Level: 3, Protection: 50, UpgradeCost: 15000},
	{Level: 4, Protection: 70, UpgradeCost: 40000},
	{Level: 5, Protection: 90, UpgradeCost: 100000},
}

// SecurityLevelFor returns the table entry for a level
func SecurityLevelFor(level int) (SecurityLevel, bool) {
	if level < MinSecurityLevel || level > MaxSecurityLevel {
		return SecurityLevel{}, false
	}
	return SecurityLevels[level-1], true
}

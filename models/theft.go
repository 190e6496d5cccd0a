package models

import "time"

// TheftStats holds per-actor theft counters
type TheftStats struct {
	ActorID    int64     `db:"actor_id"`
	Successful int       `db:"successful"`
	Failed     int       `db:"failed"`
	Victimized int       `db:"victimized"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// SuccessRate returns successful attempts as a percentage of all attempts
func (s *TheftStats) SuccessRate() float64 {
	attempts := s.Successful + s.Failed
	if attempts == 0 {
		return 0
	}
	return float64(s.Successful) / float64(attempts) * 100
}

// ThiefRankEntry is one row of the top thieves leaderboard
type ThiefRankEntry struct {
	Rank       int
	ActorID    int64
	Username   string
	Successful int
}

// TheftResult is the outcome of one theft attempt
type TheftResult struct {
	Success    bool
	Amount     int64 // stolen on success, penalty on failure
	Chance     int
	Roll       int
	ThiefCash  int64
	TargetCash int64
}

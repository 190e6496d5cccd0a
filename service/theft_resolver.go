package service

import (
	"math/rand"
	"sync"

	"heist/models"
)

const (
	// MinTheftChance and MaxTheftChance bound the success chance in percent
	MinTheftChance = 10
	MaxTheftChance = 80

	// MinTheftPenalty is the smallest fine a caught thief pays
	MinTheftPenalty = 10
)

// RandomSource is the only source of randomness used by the resolver
type RandomSource interface {
	// Int63n returns a uniform value in [0, n)
	Int63n(n int64) int64
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomSource returns a goroutine-safe source seeded with seed
func NewRandomSource(seed int64) RandomSource {
	return &lockedSource{rnd: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Int63n(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Int63n(n)
}

// TheftResolver computes theft odds and amounts
type TheftResolver struct {
	rnd RandomSource
}

// NewTheftResolver creates a resolver drawing from rnd
func NewTheftResolver(rnd RandomSource) *TheftResolver {
	return &TheftResolver{rnd: rnd}
}

// TheftChance returns the success chance in percent against a target at the given security level
func TheftChance(securityLevel int) int {
	protection := 0
	if level, ok := models.SecurityLevelFor(securityLevel); ok {
		protection = level.Protection
	}
	chance := max(MinTheftChance, MaxTheftChance-protection)
	return min(chance, MaxTheftChance)
}

// Roll draws a percentile in [1, 100]
func (r *TheftResolver) Roll() int {
	return int(r.uniform(1, 100))
}

// StolenAmount draws the amount taken from a target holding targetCash
func (r *TheftResolver) StolenAmount(targetCash, maxTheft int64) int64 {
	limit := min(targetCash, maxTheft)
	stolen := r.uniform(limit*10/100, limit*30/100)
	return max(1, stolen)
}

// Penalty draws the fine for a caught thief holding thiefCash. The result never
// exceeds thiefCash, so callers must ensure thiefCash >= MinTheftPenalty.
func (r *TheftResolver) Penalty(thiefCash int64) int64 {
	penalty := r.uniform(thiefCash*5/100, thiefCash*15/100)
	penalty = max(MinTheftPenalty, min(thiefCash, penalty))
	return min(penalty, thiefCash)
}

// uniform returns an integer in [lo, hi]
func (r *TheftResolver) uniform(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + r.rnd.Int63n(hi-lo+1)
}

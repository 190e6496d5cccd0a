package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"heist/models"
	"heist/service"

	"github.com/spf13/cobra"
)

// oddsTolerance is the accepted gap between the configured and the simulated success rate
const oddsTolerance = 0.02

func newOddsCmd() *cobra.Command {
	var (
		trials int
		seed   int64
	)
	oddsCmd := &cobra.Command{
		Use:   "odds",
		Short: "Print the theft odds table and check the resolver by simulation",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if trials < 1 {
				return fmt.Errorf("--trials must be positive, got %d", trials)
			}
			if !c.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			resolver := service.NewTheftResolver(service.NewRandomSource(seed))
			reports := simulateOdds(resolver, trials)
			writeOdds(c.OutOrStdout(), reports, trials)
			writeRollDistribution(c.OutOrStdout(), resolver, trials)
			return nil
		},
	}
	oddsCmd.Flags().IntVar(&trials, "trials", 100000, "simulated attempts per security level")
	oddsCmd.Flags().Int64Var(&seed, "seed", 0, "random seed, defaults to the current time")
	return oddsCmd
}

// oddsReport is the simulated outcome against one security level
type oddsReport struct {
	Level      int
	Chance     int
	Successes  int
	Actual     float64
	ChiSquared float64
}

// Pass reports whether the simulated rate is within tolerance of the configured chance
func (r oddsReport) Pass() bool {
	return math.Abs(r.Actual-float64(r.Chance)/100) <= oddsTolerance
}

// simulateOdds replays the ledger's decision, roll <= chance, for every level
func simulateOdds(resolver *service.TheftResolver, trials int) []oddsReport {
	reports := make([]oddsReport, 0, len(models.SecurityLevels))
	for _, level := range models.SecurityLevels {
		chance := service.TheftChance(level.Level)
		successes := 0
		for range trials {
			if resolver.Roll() <= chance {
				successes++
			}
		}

		p := float64(chance) / 100
		expectedWins := float64(trials) * p
		expectedLosses := float64(trials) * (1 - p)
		chiSquared := math.Pow(float64(successes)-expectedWins, 2)/expectedWins +
			math.Pow(float64(trials-successes)-expectedLosses, 2)/expectedLosses

		reports = append(reports, oddsReport{
			Level:      level.Level,
			Chance:     chance,
			Successes:  successes,
			Actual:     float64(successes) / float64(trials),
			ChiSquared: chiSquared,
		})
	}
	return reports
}

func writeOdds(w io.Writer, reports []oddsReport, trials int) {
	fmt.Fprintf(w, "=== Theft odds (%d trials per level) ===\n", trials)
	for _, r := range reports {
		status := "✓ PASS"
		if !r.Pass() {
			status = "✗ FAIL"
		}
		fmt.Fprintf(w, "Level %d | Chance: %2d%% | Successes: %d | Actual: %.2f%% | χ²: %.2f %s\n",
			r.Level, r.Chance, r.Successes, r.Actual*100, r.ChiSquared, status)
	}
}

// writeRollDistribution checks that rolls spread evenly over [1, 100]
func writeRollDistribution(w io.Writer, resolver *service.TheftResolver, trials int) {
	buckets := make([]int, 10)
	for range trials {
		buckets[(resolver.Roll()-1)/10]++
	}

	fmt.Fprintf(w, "\nRoll distribution (each bucket should have ~%d values):\n", trials/10)
	expectedPerBucket := float64(trials) / 10
	for i, count := range buckets {
		deviationPercent := (float64(count) - expectedPerBucket) / expectedPerBucket * 100
		bar := strings.Repeat("█", int(float64(count)/expectedPerBucket*20))
		fmt.Fprintf(w, "  [%3d-%3d]: %6d (%+5.2f%%) %s\n", i*10+1, i*10+10, count, deviationPercent, bar)
	}
}

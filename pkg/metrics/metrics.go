// Package metrics derives fairness and health figures from a committed assignment set.
package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/arnavshah/roster-engine/pkg/models"
)

// HealthPolicy weights the terms of the health score. Hard violations cap the
// score at HardCeiling, which must stay below 50 so infeasible schedules read
// as unhealthy at a glance.
type HealthPolicy struct {
	HardCeiling      float64 `yaml:"hard_ceiling"`
	HardPenalty      float64 `yaml:"hard_penalty"`
	SoftWeight       float64 `yaml:"soft_weight"`
	SoftCap          float64 `yaml:"soft_cap"`
	DispersionWeight float64 `yaml:"dispersion_weight"`
	DispersionCap    float64 `yaml:"dispersion_cap"`
}

// DefaultHealthPolicy is the policy used when none is configured
func DefaultHealthPolicy() HealthPolicy {
	return HealthPolicy{
		HardCeiling:      45,
		HardPenalty:      5,
		SoftWeight:       1,
		SoftCap:          25,
		DispersionWeight: 10,
		DispersionCap:    25,
	}
}

// Normalized fills zero fields from the default and clamps the hard ceiling below 50
func (p HealthPolicy) Normalized() HealthPolicy {
	def := DefaultHealthPolicy()
	if p == (HealthPolicy{}) {
		return def
	}
	if p.HardCeiling <= 0 || p.HardCeiling >= 50 {
		p.HardCeiling = def.HardCeiling
	}
	if p.HardPenalty < 0 {
		p.HardPenalty = def.HardPenalty
	}
	if p.SoftWeight < 0 {
		p.SoftWeight = def.SoftWeight
	}
	if p.DispersionWeight < 0 {
		p.DispersionWeight = def.DispersionWeight
	}
	return p
}

// Input is everything the calculator consumes
type Input struct {
	Assignments []models.Assignment
	// Pool lists every person eligible for at least one slot; they all get a count
	Pool           []string
	SoftScore      float64
	HardViolations int
	Duration       time.Duration
	Policy         HealthPolicy
}

// Calculate builds the Metrics record for a solution
func Calculate(in Input) models.Metrics {
	counts := Counts(in.Assignments, in.Pool)
	stdev := StdDev(counts)
	return models.Metrics{
		SolveMS:        in.Duration.Milliseconds(),
		HardViolations: in.HardViolations,
		SoftScore:      round(in.SoftScore),
		Fairness: models.Fairness{
			Stdev:     round(stdev),
			PerPerson: counts,
		},
		HealthScore: round(HealthScore(in.Policy, in.HardViolations, in.SoftScore, stdev)),
	}
}

// Counts maps every pool member and every assigned person to their assignment count
func Counts(assignments []models.Assignment, pool []string) map[string]int {
	counts := make(map[string]int, len(pool))
	for _, id := range pool {
		counts[id] = 0
	}
	for _, a := range assignments {
		counts[a.PersonID]++
	}
	return counts
}

// StdDev returns the population standard deviation of the counts
func StdDev(counts map[string]int) float64 {
	if len(counts) == 0 {
		return 0
	}
	// Sum in key order so the float result does not depend on map iteration.
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sum float64
	for _, k := range keys {
		sum += float64(counts[k])
	}
	mean := sum / float64(len(keys))

	var varianceSum float64
	for _, k := range keys {
		diff := float64(counts[k]) - mean
		varianceSum += diff * diff
	}
	return math.Sqrt(varianceSum / float64(len(keys)))
}

// HealthScore combines hard violations, soft score and dispersion into [0, 100]
func HealthScore(policy HealthPolicy, hard int, soft, stdev float64) float64 {
	p := policy.Normalized()
	score := 100.0
	score -= math.Min(p.SoftCap, p.SoftWeight*soft)
	score -= math.Min(p.DispersionCap, p.DispersionWeight*stdev)
	if hard > 0 {
		score = math.Min(score, p.HardCeiling) - p.HardPenalty*float64(hard-1)
	}
	return math.Max(0, math.Min(100, score))
}

func round(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

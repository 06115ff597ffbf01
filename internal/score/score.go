// Package score computes the Dynamic Importance Score (DIS) for one story
// cluster group. The whole computation is a pure function of its input so a
// pass over identical data reproduces identical scores.
package score

import (
	"math"
	"time"

	"github.com/lueurxax/storypulse/internal/core/domain"
)

// Scoring model weights. Tier weights reflect source authoritativeness,
// the log scales keep pile-on coverage from saturating the score.
const (
	tier1Weight = 3.0
	tier2Weight = 1.8
	tier3Weight = 1.0

	sourceComponentCap = 50.0
	sourceLogScale     = 20.0

	velocityComponentCap = 30.0
	velocityLogScale     = 18.0

	consistencyScale = 10.0

	tier1BonusCap      = 10.0
	tier1BonusPerItem  = 3.0
	noTier1Penalty     = 0.75
	defaultDecayHours  = 18.0
	fadingDecayCutoff  = 0.3
	spikingAccelCutoff = 2.0
	risingAccelCutoff  = 1.0

	minScore = 1.0
	maxScore = 100.0
)

// Input is a snapshot of one group at scoring time.
type Input struct {
	Tier1Count       int
	Tier2Count       int
	Tier3Count       int
	Velocity30m      int
	VelocityPrev30m  int
	ConsistencyRatio float64
	FirstSeenAt      time.Time
	Now              time.Time

	// DecayHours is the e-folding time of the freshness decay; zero means
	// the default 18h.
	DecayHours float64

	// PrevPeak carries the stored peak across passes for the monotonic merge.
	PrevPeak   int
	PrevPeakAt time.Time
}

// Result is the scored view of the group.
type Result struct {
	Score        int
	Acceleration float64
	DecayFactor  float64
	Trend        domain.TrendLabel
	PeakScore    int
	PeakAt       time.Time
}

// Compute scores one group. The returned peak is the monotonic max of the
// stored peak and the fresh score; the peak timestamp only moves when the
// peak strictly increases.
func Compute(in Input) Result {
	mass := tier1Weight*float64(in.Tier1Count) +
		tier2Weight*float64(in.Tier2Count) +
		tier3Weight*float64(in.Tier3Count)
	sourceComponent := math.Min(sourceComponentCap, math.Log(mass+1)*sourceLogScale)

	acceleration := float64(in.Velocity30m) / math.Max(1, float64(in.VelocityPrev30m))
	velocityComponent := math.Min(velocityComponentCap, math.Log(acceleration+1)*velocityLogScale)

	consistencyComponent := in.ConsistencyRatio * consistencyScale

	tier1Bonus := math.Min(tier1BonusCap, tier1BonusPerItem*float64(in.Tier1Count))

	raw := sourceComponent + velocityComponent + consistencyComponent + tier1Bonus
	if in.Tier1Count == 0 {
		raw *= noTier1Penalty
	}

	decayHours := in.DecayHours
	if decayHours <= 0 {
		decayHours = defaultDecayHours
	}

	hoursSinceFirstSeen := in.Now.Sub(in.FirstSeenAt).Hours()
	if hoursSinceFirstSeen < 0 {
		hoursSinceFirstSeen = 0
	}

	decay := math.Exp(-hoursSinceFirstSeen / decayHours)

	final := int(math.Round(clamp(raw*decay, minScore, maxScore)))

	result := Result{
		Score:        final,
		Acceleration: acceleration,
		DecayFactor:  decay,
		Trend:        trend(decay, acceleration),
		PeakScore:    in.PrevPeak,
		PeakAt:       in.PrevPeakAt,
	}

	if final > in.PrevPeak {
		result.PeakScore = final
		result.PeakAt = in.Now
	}

	return result
}

func trend(decay, acceleration float64) domain.TrendLabel {
	switch {
	case decay < fadingDecayCutoff:
		return domain.TrendFading
	case acceleration > spikingAccelCutoff:
		return domain.TrendSpiking
	case acceleration > risingAccelCutoff:
		return domain.TrendRising
	default:
		return domain.TrendStable
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

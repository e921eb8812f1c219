// Package decay implements whole-period exponential balance decay.
//
// Decay is never applied fractionally and never speculatively: only whole
// elapsed periods are collapsed, and the checkpoint advances by exactly
// periods*period rather than snapping to the evaluation time, so the
// in-progress remainder carries forward losslessly into the next evaluation.
package decay

import (
	"math"

	"decay-ledger/internal/domain"
)

// Config carries the decay parameters for one evaluation.
type Config struct {
	// Period is the number of seconds per decay step. 0 disables decay.
	Period int64
	// RatePPTM is the fraction of balance lost per elapsed period,
	// in parts per ten million (see domain.MaxDecayRatePPTM).
	RatePPTM uint64
	// EvaluationTime is "now" as supplied by the host clock, Unix seconds.
	EvaluationTime int64
}

// Result is the outcome of one evaluation. When NeedsUpdate is false the
// balance and checkpoint are returned unchanged.
type Result struct {
	NeedsUpdate   bool
	NewBalance    int64
	NewCheckpoint int64
}

// Apply computes the decayed balance and the advanced checkpoint for the
// elapsed time between lastCheckpoint and cfg.EvaluationTime.
//
// No update is produced when decay is disabled (zero rate or period), when
// less than one full period has elapsed, or when the checkpoint is ahead of
// the evaluation time (clock regression is deferred, never applied).
//
// For n whole periods the new balance is
// round(balance * (1-rate)^n), rounded half away from zero on the final
// amount only, so one evaluation over n periods equals n single-period
// evaluations up to rounding.
func Apply(currentBalance int64, lastCheckpoint int64, cfg Config) Result {
	unchanged := Result{
		NeedsUpdate:   false,
		NewBalance:    currentBalance,
		NewCheckpoint: lastCheckpoint,
	}

	if cfg.RatePPTM == 0 || cfg.Period <= 0 || lastCheckpoint > cfg.EvaluationTime {
		return unchanged
	}

	periods := (cfg.EvaluationTime - lastCheckpoint) / cfg.Period
	if periods < 1 {
		return unchanged
	}

	rate := float64(cfg.RatePPTM) / float64(domain.MaxDecayRatePPTM)
	factor := math.Pow(1.0-rate, float64(periods))

	return Result{
		NeedsUpdate:   true,
		NewBalance:    int64(math.Round(float64(currentBalance) * factor)),
		NewCheckpoint: lastCheckpoint + periods*cfg.Period,
	}
}

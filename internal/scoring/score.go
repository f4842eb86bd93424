package scoring

import (
	"fmt"

	"github.com/ppiankov/pageguard/internal/model"
)

// maxScore caps both the summed base and the final score.
const maxScore = 100

// Weights supplies per-category weights. Satisfied by *rules.Table and
// *rules.Set so all product surfaces share this one arithmetic path.
type Weights interface {
	WeightFor(model.Category) int
}

// Penalties are the fixed context adjustments applied after the capped base.
type Penalties struct {
	NoHTTPS     int `yaml:"no_https" json:"no_https"`
	CrossOrigin int `yaml:"cross_origin" json:"cross_origin"`
	Untrusted   int `yaml:"untrusted" json:"untrusted"`
}

// DefaultPenalties returns the calibrated context penalties. The untrusted
// penalty applies only once the signal base reaches the moderate threshold:
// trust moderates already-risky contexts, it does not taint every site the
// user simply never listed.
func DefaultPenalties() Penalties {
	return Penalties{NoHTTPS: 30, CrossOrigin: 20, Untrusted: 20}
}

// Score combines signals and context into a RiskAssessment.
//
// Algorithm (order is part of the contract):
//  1. Deduplicate signal categories — repeats count once for the base but
//     remain individually listed in the assessment's signal list.
//  2. Sum category weights; cap the base at 100 before context adjustments.
//  3. Apply fixed context penalties (no HTTPS, cross-origin, untrusted).
//     Signals whose category a context flag already covers are skipped in
//     the base so the same fact is never charged twice.
//  4. Clamp to [0,100].
//  5. Map to a level via the shared thresholds.
//
// Deterministic: no clock, no randomness; reasons follow signal order.
func Score(signals []model.Signal, ctx model.EvalContext, w Weights, th Thresholds, pen Penalties) model.RiskAssessment {
	base := 0
	seen := make(map[model.Category]bool)
	var reasons []string

	for _, s := range signals {
		if seen[s.Category] {
			continue
		}
		// Context flags own these facts; the penalty charges them instead.
		if !ctx.HTTPS && s.Category == model.CatNoHTTPS {
			continue
		}
		if ctx.CrossOrigin && s.Category == model.CatCrossOrigin {
			continue
		}
		seen[s.Category] = true

		weight := w.WeightFor(s.Category)
		if weight < 0 {
			weight = 0 // negative weights would break monotonicity
		}
		base += weight
		reasons = append(reasons, reasonFor(s, weight))
	}

	if base > maxScore {
		base = maxScore
	}

	score := base
	if !ctx.HTTPS {
		score += pen.NoHTTPS
		reasons = append(reasons, fmt.Sprintf("connection is not secure (+%d)", pen.NoHTTPS))
	}
	if ctx.CrossOrigin {
		score += pen.CrossOrigin
		reasons = append(reasons, fmt.Sprintf("submission crosses origins (+%d)", pen.CrossOrigin))
	}
	if !ctx.Trusted && base >= th.Moderate {
		score += pen.Untrusted
		reasons = append(reasons, fmt.Sprintf("domain is not trusted (+%d)", pen.Untrusted))
	}

	if score > maxScore {
		score = maxScore
	}
	if score < 0 {
		score = 0
	}

	return model.RiskAssessment{
		Score:   score,
		Level:   th.LevelFor(score),
		Reasons: reasons,
		Signals: append([]model.Signal(nil), signals...),
	}
}

func reasonFor(s model.Signal, weight int) string {
	if s.Detail != "" {
		return fmt.Sprintf("%s: %s (+%d)", s.Category, s.Detail, weight)
	}
	return fmt.Sprintf("%s (+%d)", s.Category, weight)
}

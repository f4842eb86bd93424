package scoring

import (
	"fmt"

	"github.com/ppiankov/pageguard/internal/model"
)

// Thresholds maps scores to discrete levels. These are the single source of
// truth for every consuming surface — no per-feature duplicates.
type Thresholds struct {
	Moderate int `yaml:"moderate" json:"moderate"`
	High     int `yaml:"high" json:"high"`
}

// DefaultThresholds returns the calibrated defaults: score≥70 → high,
// score≥40 → moderate.
func DefaultThresholds() Thresholds {
	return Thresholds{Moderate: 40, High: 70}
}

// Validate rejects non-monotonic or out-of-range threshold configurations.
func (t Thresholds) Validate() error {
	if t.Moderate <= 0 || t.High > 100 || t.Moderate >= t.High {
		return fmt.Errorf("scoring: thresholds must satisfy 0 < moderate < high ≤ 100, got %d/%d", t.Moderate, t.High)
	}
	return nil
}

// LevelFor maps a score to its level.
func (t Thresholds) LevelFor(score int) model.Level {
	switch {
	case score >= t.High:
		return model.LevelHigh
	case score >= t.Moderate:
		return model.LevelModerate
	default:
		return model.LevelLow
	}
}

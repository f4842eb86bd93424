package config

import (
	"fmt"
	"time"
)

// Schedule blocks the listed categories during a daily local-time window.
// Windows may wrap midnight: from 21:00 to 07:00 covers the evening and the
// following morning.
type Schedule struct {
	Categories []string `yaml:"categories"`
	From       string   `yaml:"from"` // "HH:MM"
	To         string   `yaml:"to"`   // "HH:MM"
}

// Validate checks the window bounds and category list.
func (s Schedule) Validate() error {
	if len(s.Categories) == 0 {
		return fmt.Errorf("schedule has no categories")
	}
	from, err := minuteOfDay(s.From)
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	to, err := minuteOfDay(s.To)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if from == to {
		return fmt.Errorf("window %s-%s is empty", s.From, s.To)
	}
	return nil
}

// Covers reports whether the window contains the local time of now.
// Invalid bounds never cover anything; Validate rejects them at load.
func (s Schedule) Covers(now time.Time) bool {
	from, err := minuteOfDay(s.From)
	if err != nil {
		return false
	}
	to, err := minuteOfDay(s.To)
	if err != nil {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	if from < to {
		return minute >= from && minute < to
	}
	// Wraps midnight.
	return minute >= from || minute < to
}

func minuteOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("bad time %q (want HH:MM)", hhmm)
	}
	return t.Hour()*60 + t.Minute(), nil
}

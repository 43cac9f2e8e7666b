package domain

// Settings holds the user's wake-time preferences. Defaults are supplied by
// the reader and are not persisted until the user changes them, so any field
// missing from an old stored record falls back to its default on read.
type Settings struct {
	// MorningHour/MorningMinute is the local time a "tomorrow morning"
	// snooze wakes at.
	MorningHour   int `json:"morningHour" yaml:"morningHour"`
	MorningMinute int `json:"morningMinute" yaml:"morningMinute"`

	// EveningHour/EveningMinute is the local time a "this evening"
	// snooze wakes at.
	EveningHour   int `json:"eveningHour" yaml:"eveningHour"`
	EveningMinute int `json:"eveningMinute" yaml:"eveningMinute"`

	// FirstDayOfWeek is the weekday index (0 = Sunday) the user's week
	// starts on.
	FirstDayOfWeek int `json:"firstDayOfWeek" yaml:"firstDayOfWeek"`

	// WeekendDay is the weekday index (0-6) a "this weekend" snooze
	// wakes on.
	WeekendDay int `json:"weekendDay" yaml:"weekendDay"`
}

// DefaultSettings returns the built-in wake-time preferences: 09:00 mornings,
// 17:00 evenings, week starting Monday, weekend on Saturday.
func DefaultSettings() Settings {
	return Settings{
		MorningHour:    9,
		MorningMinute:  0,
		EveningHour:    17,
		EveningMinute:  0,
		FirstDayOfWeek: 1,
		WeekendDay:     6,
	}
}

// Validate reports whether all fields are within range.
func (s Settings) Validate() bool {
	if s.MorningHour < 0 || s.MorningHour > 23 || s.EveningHour < 0 || s.EveningHour > 23 {
		return false
	}
	if s.MorningMinute < 0 || s.MorningMinute > 59 || s.EveningMinute < 0 || s.EveningMinute > 59 {
		return false
	}
	if s.FirstDayOfWeek < 0 || s.FirstDayOfWeek > 6 || s.WeekendDay < 0 || s.WeekendDay > 6 {
		return false
	}
	return true
}

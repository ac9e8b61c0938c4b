package core

import "testing"

func TestRepeatNext(t *testing.T) {
	tests := []struct {
		name   string
		repeat Repeat
		from   Date
		want   Date
	}{
		{"none keeps date", RepeatNone, NewDate(2024, 1, 15), NewDate(2024, 1, 15)},
		{"daily", RepeatDaily, NewDate(2024, 12, 31), NewDate(2025, 1, 1)},
		{"weekly", RepeatWeekly, NewDate(2024, 2, 26), NewDate(2024, 3, 4)},
		{"monthly", RepeatMonthly, NewDate(2024, 3, 15), NewDate(2024, 4, 15)},
		{"monthly clamps to month end", RepeatMonthly, NewDate(2024, 1, 31), NewDate(2024, 2, 29)},
		{"monthly clamps in non leap year", RepeatMonthly, NewDate(2025, 1, 31), NewDate(2025, 2, 28)},
		{"monthly across year", RepeatMonthly, NewDate(2024, 12, 10), NewDate(2025, 1, 10)},
		{"yearly", RepeatYearly, NewDate(2024, 6, 1), NewDate(2025, 6, 1)},
		{"yearly from leap day", RepeatYearly, NewDate(2024, 2, 29), NewDate(2025, 2, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.repeat.Next(tt.from); !got.Equal(tt.want.Time) {
				t.Errorf("%s.Next(%s) = %s, want %s", tt.repeat, tt.from, got, tt.want)
			}
		})
	}
}

func TestGetStepper(t *testing.T) {
	for _, r := range []Repeat{RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly} {
		if _, err := GetStepper(r); err != nil {
			t.Errorf("GetStepper(%s) error = %v", r, err)
		}
	}
	if _, err := GetStepper(RepeatNone); err == nil {
		t.Error("GetStepper(none) expected error")
	}
	if _, err := GetStepper("fortnightly"); err == nil {
		t.Error("GetStepper(fortnightly) expected error")
	}
}

func TestRepeatValid(t *testing.T) {
	if !RepeatNone.Valid() || RepeatNone.Repeats() {
		t.Error("none should be valid and not repeating")
	}
	if !RepeatMonthly.Repeats() {
		t.Error("monthly should repeat")
	}
	if Repeat("").Valid() {
		t.Error("empty repeat should be invalid")
	}
}

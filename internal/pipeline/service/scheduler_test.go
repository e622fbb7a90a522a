package service

import (
	"testing"
	"time"
)

func TestNextDailyTick(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	tests := []struct {
		name   string
		now    time.Time
		hour   int
		minute int
		want   time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC),
			hour: 8, minute: 0,
			want: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at tick rolls to tomorrow",
			now:  time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
			hour: 8, minute: 0,
			want: time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "already passed today",
			now:  time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
			hour: 8, minute: 0,
			want: time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "near midnight",
			now:  time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC),
			hour: 0, minute: 5,
			want: time.Date(2025, 6, 2, 0, 5, 0, 0, time.UTC),
		},
		{
			name: "keeps the caller's time zone",
			now:  time.Date(2025, 6, 1, 10, 0, 0, 0, ist),
			hour: 8, minute: 0,
			want: time.Date(2025, 6, 2, 8, 0, 0, 0, ist),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextDailyTick(tt.now, tt.hour, tt.minute)
			if !got.Equal(tt.want) {
				t.Errorf("nextDailyTick(%v, %02d:%02d) = %v, want %v", tt.now, tt.hour, tt.minute, got, tt.want)
			}
			if got.Location() != tt.now.Location() {
				t.Errorf("nextDailyTick location = %v, want %v", got.Location(), tt.now.Location())
			}
			if !got.After(tt.now) {
				t.Errorf("nextDailyTick(%v) = %v, not strictly after now", tt.now, got)
			}
		})
	}
}

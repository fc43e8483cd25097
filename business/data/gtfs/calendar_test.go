package gtfs

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestCalendar_IsActiveOn(t *testing.T) {
	start := time.Date(2023, 3, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2023, 5, 31, 0, 0, 0, 0, time.Local)
	weekdayCalendar := Calendar{
		ServiceId: "weekday",
		Monday:    1,
		Tuesday:   1,
		Wednesday: 1,
		Thursday:  1,
		Friday:    1,
		StartDate: &start,
		EndDate:   &end,
	}
	saturdayCalendar := Calendar{
		ServiceId: "saturday",
		Saturday:  1,
		StartDate: &start,
		EndDate:   &end,
	}
	openEndedCalendar := Calendar{
		ServiceId: "sunday",
		Sunday:    1,
	}

	tests := []struct {
		name     string
		calendar *Calendar
		date     time.Time
		want     bool
	}{
		{
			name:     "weekday active on a wednesday",
			calendar: &weekdayCalendar,
			date:     time.Date(2023, 3, 1, 0, 0, 0, 0, time.Local),
			want:     true,
		},
		{
			name:     "weekday inactive on a saturday",
			calendar: &weekdayCalendar,
			date:     time.Date(2023, 3, 4, 0, 0, 0, 0, time.Local),
			want:     false,
		},
		{
			name:     "saturday active on a saturday",
			calendar: &saturdayCalendar,
			date:     time.Date(2023, 3, 4, 0, 0, 0, 0, time.Local),
			want:     true,
		},
		{
			name:     "inactive before start date",
			calendar: &weekdayCalendar,
			date:     time.Date(2023, 2, 28, 0, 0, 0, 0, time.Local),
			want:     false,
		},
		{
			name:     "active on the last day of the range",
			calendar: &weekdayCalendar,
			date:     time.Date(2023, 5, 31, 0, 0, 0, 0, time.Local),
			want:     true,
		},
		{
			name:     "inactive after end date",
			calendar: &weekdayCalendar,
			date:     time.Date(2023, 6, 1, 0, 0, 0, 0, time.Local),
			want:     false,
		},
		{
			name:     "open ended calendar active on a sunday",
			calendar: &openEndedCalendar,
			date:     time.Date(2024, 1, 7, 0, 0, 0, 0, time.Local),
			want:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			is.Equal(tt.calendar.IsActiveOn(tt.date), tt.want)
		})
	}
}

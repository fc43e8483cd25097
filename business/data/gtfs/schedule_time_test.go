package gtfs

import (
	"testing"
	"time"
)

func TestMakeScheduleTime(t *testing.T) {
	location, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Errorf("Unable to get testing time zone location")
		return
	}
	type args struct {
		timeAt12        time.Time
		scheduleSeconds int
	}
	tests := []struct {
		name string
		args args
		want time.Time
	}{
		{
			name: "12am",
			args: args{
				timeAt12:        time.Date(2020, 1, 9, 0, 0, 0, 0, location),
				scheduleSeconds: 0,
			},
			want: time.Date(2020, 1, 9, 0, 0, 0, 0, location),
		},
		{
			name: "12pm",
			args: args{
				timeAt12:        time.Date(2020, 1, 9, 0, 0, 0, 0, location),
				scheduleSeconds: 43200,
			},
			want: time.Date(2020, 1, 9, 12, 0, 0, 0, location),
		},
		{
			name: "12:30pm, on forward day",
			args: args{
				timeAt12:        time.Date(2018, 11, 4, 0, 0, 0, 0, location),
				scheduleSeconds: 45000,
			},
			want: time.Date(2018, 11, 4, 12, 30, 0, 0, location),
		},
		{
			name: "12:30pm, on back day",
			args: args{
				timeAt12:        time.Date(2019, 3, 10, 0, 0, 0, 0, location),
				scheduleSeconds: 45000,
			},
			want: time.Date(2019, 3, 10, 12, 30, 0, 0, location),
		},
		{
			name: "past midnight into next day",
			args: args{
				timeAt12:        time.Date(2020, 1, 9, 0, 0, 0, 0, location),
				scheduleSeconds: 90000,
			},
			want: time.Date(2020, 1, 10, 1, 0, 0, 0, location),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MakeScheduleTime(tt.args.timeAt12, tt.args.scheduleSeconds); !got.Equal(tt.want) {
				t.Errorf("MakeScheduleTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServiceDaySeconds(t *testing.T) {
	location, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Errorf("Unable to get testing time zone location")
		return
	}
	tests := []struct {
		name        string
		serviceDate time.Time
		seconds     int
	}{
		{
			name:        "mid morning",
			serviceDate: time.Date(2020, 1, 9, 0, 0, 0, 0, location),
			seconds:     33300,
		},
		{
			name:        "past midnight",
			serviceDate: time.Date(2020, 1, 9, 0, 0, 0, 0, location),
			seconds:     90000,
		},
		{
			name:        "spring forward day",
			serviceDate: time.Date(2019, 3, 10, 0, 0, 0, 0, location),
			seconds:     45000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := MakeScheduleTime(tt.serviceDate, tt.seconds)
			if got := ServiceDaySeconds(tt.serviceDate, at); got != tt.seconds {
				t.Errorf("ServiceDaySeconds() = %d, want %d", got, tt.seconds)
			}
		})
	}
}

package gtfsstatic

import (
	"strings"
	"testing"
)

func Test_secondsFromGTFSTime(t *testing.T) {
	tests := []struct {
		name     string
		gtfsTime string
		want     int
		wantErr  bool
	}{
		{
			name:     "afternoon time",
			gtfsTime: "14:30:00",
			want:     52200,
		},
		{
			name:     "short hour format",
			gtfsTime: "8:05:30",
			want:     29130,
		},
		{
			name:     "past midnight on the following day",
			gtfsTime: "25:35:00",
			want:     92100,
		},
		{
			name:     "missing seconds part",
			gtfsTime: "14:30",
			wantErr:  true,
		},
		{
			name:     "not a time",
			gtfsTime: "n:o:t",
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := secondsFromGTFSTime(tt.gtfsTime)
			if tt.wantErr {
				if err == nil {
					t.Errorf("secondsFromGTFSTime(%q) produced no error, but we want one", tt.gtfsTime)
				}
				return
			}
			if err != nil {
				t.Errorf("secondsFromGTFSTime(%q) error = %v", tt.gtfsTime, err)
				return
			}
			if got != tt.want {
				t.Errorf("secondsFromGTFSTime(%q) = %d, want %d", tt.gtfsTime, got, tt.want)
			}
		})
	}
}

func Test_makeCsvParser_removesBOM(t *testing.T) {
	parser, err := makeCsvParser(strings.NewReader("\uFEFFstop_id,stop_lat,stop_lon\n9848,45.5,-122.6"), "stops.txt")
	if err != nil {
		t.Fatalf("makeCsvParser() error = %v", err)
	}
	if parser.headers[0] != "stop_id" {
		t.Errorf("first header = %q, want %q", parser.headers[0], "stop_id")
	}
	err = parser.nextRow()
	if err != nil {
		t.Fatalf("nextRow() error = %v", err)
	}
	if got := parser.getString("stop_id", false); got != "9848" {
		t.Errorf("getString(stop_id) = %q, want %q", got, "9848")
	}
}

func Test_csvParser_optionalAndRequiredColumns(t *testing.T) {
	parser := testParser(t, "stop_id,stop_lat\n9848,")

	if got := parser.getStringPointer("stop_name", true); got != nil {
		t.Errorf("optional missing column = %v, want nil", *got)
	}
	if err := parser.getError(); err != nil {
		t.Errorf("optional missing column produced error: %v", err)
	}

	parser.getFloat64("stop_lat", false)
	if err := parser.getError(); err == nil {
		t.Error("required empty value produced no error, but we want one")
	}
}

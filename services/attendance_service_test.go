package services

import "testing"

func TestSummarizeCounts(t *testing.T) {
	tests := []struct {
		name        string
		present     int64
		absent      int64
		late        int64
		excused     int64
		wantTotal   int64
		wantPercent float64
	}{
		{"all present", 10, 0, 0, 0, 10, 100},
		{"half present", 5, 5, 0, 0, 10, 50},
		{"late does not count as present", 6, 0, 4, 0, 10, 60},
		{"excused does not count as present", 6, 0, 0, 4, 10, 60},
		{"mixed", 3, 1, 1, 1, 6, 50},
		{"no records yields zero", 0, 0, 0, 0, 0, 0},
		{"rounded to two places", 1, 2, 0, 0, 3, 33.33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summarizeCounts(tt.present, tt.absent, tt.late, tt.excused)
			if got.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", got.Total, tt.wantTotal)
			}
			if got.PercentPresent != tt.wantPercent {
				t.Errorf("PercentPresent = %v, want %v", got.PercentPresent, tt.wantPercent)
			}
		})
	}
}

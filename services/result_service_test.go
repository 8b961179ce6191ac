package services

import (
	"errors"
	"testing"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/utils/apperr"
)

func TestGradeForBands(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{100, "A+"},
		{90, "A+"},
		{89.99, "A"},
		{75, "A"},
		{74.99, "B"},
		{60, "B"},
		{59.99, "C"},
		{50, "C"},
		{49.99, "D"},
		{35, "D"},
		{34.99, "F"},
		{0, "F"},
	}

	for _, tt := range tests {
		if got := gradeFor(tt.percentage); got != tt.want {
			t.Errorf("gradeFor(%v) = %q, want %q", tt.percentage, got, tt.want)
		}
	}
}

func TestStatusForThreshold(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{35, model.ResultStatusPass},
		{35.01, model.ResultStatusPass},
		{100, model.ResultStatusPass},
		{34.99, model.ResultStatusFail},
		{0, model.ResultStatusFail},
	}

	for _, tt := range tests {
		if got := statusFor(tt.percentage); got != tt.want {
			t.Errorf("statusFor(%v) = %q, want %q", tt.percentage, got, tt.want)
		}
	}
}

func TestComputeTotals(t *testing.T) {
	marks := []model.Mark{
		{MarksObtained: 85, Subject: model.Subject{MaxMarks: 100}},
		{MarksObtained: 78, Subject: model.Subject{MaxMarks: 100}},
		{MarksObtained: 92, Subject: model.Subject{MaxMarks: 100}},
	}

	total, maxTotal, err := computeTotals(marks)
	if err != nil {
		t.Fatalf("computeTotals returned error: %v", err)
	}
	if total != 255 {
		t.Errorf("total = %v, want 255", total)
	}
	if maxTotal != 300 {
		t.Errorf("maxTotal = %v, want 300", maxTotal)
	}

	percentage := round2(100 * total / maxTotal)
	if percentage != 85.00 {
		t.Errorf("percentage = %v, want 85.00", percentage)
	}
	if grade := gradeFor(percentage); grade != "A" {
		t.Errorf("grade = %q, want A", grade)
	}
	if status := statusFor(percentage); status != model.ResultStatusPass {
		t.Errorf("status = %q, want Pass", status)
	}
}

func TestComputeTotalsZeroMaxMarks(t *testing.T) {
	marks := []model.Mark{
		{MarksObtained: 40, Subject: model.Subject{MaxMarks: 100}},
		{MarksObtained: 10, Subject: model.Subject{MaxMarks: 0}},
	}

	_, _, err := computeTotals(marks)
	if !errors.Is(err, apperr.ErrZeroMaxMarks) {
		t.Fatalf("computeTotals error = %v, want ErrZeroMaxMarks", err)
	}
}

func TestComputeTotalsIdempotent(t *testing.T) {
	marks := []model.Mark{
		{MarksObtained: 33.33, Subject: model.Subject{MaxMarks: 50}},
		{MarksObtained: 41.5, Subject: model.Subject{MaxMarks: 75}},
	}

	t1, m1, err := computeTotals(marks)
	if err != nil {
		t.Fatal(err)
	}
	t2, m2, err := computeTotals(marks)
	if err != nil {
		t.Fatal(err)
	}
	if t1 != t2 || m1 != m2 {
		t.Errorf("repeated compute diverged: (%v,%v) vs (%v,%v)", t1, m1, t2, m2)
	}
	if round2(100*t1/m1) != round2(100*t2/m2) {
		t.Error("repeated percentage diverged")
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{85.004, 85.00},
		{85.006, 85.01},
		{33.333333, 33.33},
		{0, 0},
	}
	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Errorf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestVisibleTo(t *testing.T) {
	published := &model.Result{StudentID: 7, Published: true}
	unpublished := &model.Result{StudentID: 7, Published: false}

	tests := []struct {
		name            string
		result          *model.Result
		role            string
		viewerStudentID uint
		want            bool
	}{
		{"admin sees unpublished", unpublished, model.RoleAdmin, 0, true},
		{"teacher sees unpublished", unpublished, model.RoleTeacher, 0, true},
		{"owner sees published", published, model.RoleStudent, 7, true},
		{"owner blind to unpublished", unpublished, model.RoleStudent, 7, false},
		{"other student blind to published", published, model.RoleStudent, 8, false},
		{"unknown role sees nothing", published, "guest", 7, false},
		{"nil result", nil, model.RoleAdmin, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisibleTo(tt.result, tt.role, tt.viewerStudentID); got != tt.want {
				t.Errorf("VisibleTo = %v, want %v", got, tt.want)
			}
		})
	}
}

package services

import (
	"testing"
	"time"

	"github.com/nileshk-dev/gurukul/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{model.AssignmentDraft, model.AssignmentPublished, true},
		{model.AssignmentPublished, model.AssignmentClosed, true},

		// No skipping
		{model.AssignmentDraft, model.AssignmentClosed, false},
		// No reopening
		{model.AssignmentPublished, model.AssignmentDraft, false},
		{model.AssignmentClosed, model.AssignmentPublished, false},
		{model.AssignmentClosed, model.AssignmentDraft, false},
		// No self-loops
		{model.AssignmentDraft, model.AssignmentDraft, false},
		{model.AssignmentPublished, model.AssignmentPublished, false},
		{model.AssignmentClosed, model.AssignmentClosed, false},
		// Unknown states deny
		{"archived", model.AssignmentClosed, false},
		{model.AssignmentDraft, "archived", false},
	}

	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("canTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSubmissionStatusAt(t *testing.T) {
	due := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name        string
		submittedAt time.Time
		want        string
	}{
		{"well before due", due.Add(-48 * time.Hour), model.SubmissionSubmitted},
		{"exactly at due", due, model.SubmissionSubmitted},
		{"one second late", due.Add(time.Second), model.SubmissionLate},
		{"days late", due.Add(72 * time.Hour), model.SubmissionLate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := submissionStatusAt(tt.submittedAt, due); got != tt.want {
				t.Errorf("submissionStatusAt = %q, want %q", got, tt.want)
			}
		})
	}
}

package services

import (
	"testing"

	"github.com/nileshk-dev/gurukul/model"
)

func TestDecideCapabilityTable(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		action  Action
		owns    bool
		teaches bool
		want    bool
	}{
		// Admin-only actions
		{"admin manages classes", model.RoleAdmin, ActionManageClassGroups, false, false, true},
		{"teacher cannot manage classes", model.RoleTeacher, ActionManageClassGroups, false, true, false},
		{"admin manages subjects", model.RoleAdmin, ActionManageSubjects, false, false, true},
		{"admin manages accounts", model.RoleAdmin, ActionManageAccounts, false, false, true},
		{"teacher cannot manage accounts", model.RoleTeacher, ActionManageAccounts, false, false, false},
		{"admin publishes", model.RoleAdmin, ActionPublishResult, false, false, true},
		{"teacher cannot publish", model.RoleTeacher, ActionPublishResult, false, true, false},
		{"student cannot publish", model.RoleStudent, ActionPublishResult, true, false, false},

		// Subject-scoped teacher actions
		{"teacher writes marks for own subject", model.RoleTeacher, ActionWriteMark, false, true, true},
		{"teacher blocked on foreign subject", model.RoleTeacher, ActionWriteMark, false, false, false},
		{"admin writes marks anywhere", model.RoleAdmin, ActionWriteMark, false, false, true},
		{"student cannot write marks", model.RoleStudent, ActionWriteMark, true, false, false},
		{"teacher grades own subject", model.RoleTeacher, ActionGradeSubmission, false, true, true},
		{"teacher blocked grading foreign subject", model.RoleTeacher, ActionGradeSubmission, false, false, false},
		{"teacher manages assignments for own subject", model.RoleTeacher, ActionManageAssignments, false, true, true},
		{"teacher blocked on foreign subject assignments", model.RoleTeacher, ActionManageAssignments, false, false, false},
		{"admin manages assignments anywhere", model.RoleAdmin, ActionManageAssignments, false, false, true},

		// Any-teacher actions
		{"teacher recomputes", model.RoleTeacher, ActionRecomputeResult, false, false, true},
		{"teacher marks attendance", model.RoleTeacher, ActionMarkAttendance, false, false, true},
		{"student cannot mark attendance", model.RoleStudent, ActionMarkAttendance, true, false, false},

		// Student ownership actions
		{"student submits own work", model.RoleStudent, ActionSubmitAssignment, true, false, true},
		{"student cannot submit for others", model.RoleStudent, ActionSubmitAssignment, false, false, false},
		{"teacher cannot submit", model.RoleTeacher, ActionSubmitAssignment, false, true, false},
		{"admin cannot submit", model.RoleAdmin, ActionSubmitAssignment, false, false, false},

		// Record views
		{"admin views any record", model.RoleAdmin, ActionViewStudentRecord, false, false, true},
		{"teacher views any record", model.RoleTeacher, ActionViewStudentRecord, false, false, true},
		{"student views own record", model.RoleStudent, ActionViewStudentRecord, true, false, true},
		{"student blocked on foreign record", model.RoleStudent, ActionViewStudentRecord, false, false, false},

		// Unknown inputs deny
		{"unknown role denied", "guest", ActionViewStudentRecord, true, true, false},
		{"unknown action denied", model.RoleAdmin, Action("drop_tables"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decide(tt.role, tt.action, tt.owns, tt.teaches); got != tt.want {
				t.Errorf("decide(%q, %q, owns=%v, teaches=%v) = %v, want %v",
					tt.role, tt.action, tt.owns, tt.teaches, got, tt.want)
			}
		})
	}
}

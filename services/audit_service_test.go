package services

import (
	"testing"

	"github.com/nileshk-dev/gurukul/model"
)

func TestScopeForViewer(t *testing.T) {
	tests := []struct {
		name        string
		filter      AuditFilter
		role        string
		viewerID    uint
		wantActorID uint
	}{
		{"admin keeps requested actor", AuditFilter{ActorID: 42}, model.RoleAdmin, 7, 42},
		{"admin keeps global view", AuditFilter{}, model.RoleAdmin, 7, 0},
		{"teacher forced to own entries", AuditFilter{ActorID: 42}, model.RoleTeacher, 7, 7},
		{"teacher with no actor filter scoped", AuditFilter{}, model.RoleTeacher, 7, 7},
		{"student forced to own entries", AuditFilter{ActorID: 42}, model.RoleStudent, 7, 7},
		{"unknown role scoped", AuditFilter{ActorID: 42}, "guest", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScopeForViewer(tt.filter, tt.role, tt.viewerID)
			if got.ActorID != tt.wantActorID {
				t.Errorf("ScopeForViewer() ActorID = %d, want %d", got.ActorID, tt.wantActorID)
			}
		})
	}

	t.Run("other fields preserved", func(t *testing.T) {
		f := AuditFilter{EntityType: model.EntityMark, Action: model.AuditUpdate, Limit: 5}
		got := ScopeForViewer(f, model.RoleStudent, 9)
		if got.EntityType != f.EntityType || got.Action != f.Action || got.Limit != f.Limit {
			t.Errorf("ScopeForViewer() altered non-actor fields: %+v", got)
		}
	})
}

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

func TestProjects(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertProject(ctx, wedding.ProjectRecord{Title: "x"}); err == nil {
		t.Error("expected error without user id")
	}

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	p := wedding.Project{
		Summary:     "Mariage à Lyon",
		WeddingData: wedding.WeddingData{Guests: wedding.IntPtr(120), Location: wedding.StringPtr("Lyon")},
		Timeline:    []wedding.TimelineTask{{Task: "Réserver", Priority: wedding.PriorityHigh}},
		Vendors:     []wedding.Vendor{{ID: "v1", Name: "A"}},
	}
	first, err := s.InsertProject(ctx, wedding.ProjectRecord{UserID: "alice", Title: p.Title(), ConversationID: "c1", Project: p, CreatedAt: base})
	if err != nil {
		t.Fatalf("InsertProject: %v", err)
	}
	second, err := s.InsertProject(ctx, wedding.ProjectRecord{UserID: "alice", Title: "Deuxième", Project: wedding.Project{}, CreatedAt: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("InsertProject: %v", err)
	}
	if _, err := s.InsertProject(ctx, wedding.ProjectRecord{UserID: "bob", Title: "Bob", CreatedAt: base}); err != nil {
		t.Fatalf("InsertProject: %v", err)
	}

	got, err := s.GetProject(ctx, first)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Title != "Mariage à Lyon - 120 invités" || got.ConversationID != "c1" {
		t.Errorf("record = %+v", got)
	}
	if *got.Project.WeddingData.Guests != 120 || len(got.Project.Timeline) != 1 || got.Project.Vendors[0].ID != "v1" {
		t.Errorf("project = %+v", got.Project)
	}

	list, err := s.ListProjects(ctx, "alice", 10, 0)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(list) != 2 || list[0].ID != second {
		t.Errorf("ListProjects(alice) = %+v, want newest first", list)
	}

	all, err := s.ListProjects(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d projects, want 3", len(all))
	}

	if _, err := s.GetProject(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

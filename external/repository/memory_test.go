package repository

import (
	"context"
	"testing"
	"time"

	"github.com/foxseedlab/darkbot/internal/repository"
)

func TestMemoryRepository_Feedback(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	got, err := r.GetFeedback(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("expected nil for unknown id, got %+v %v", got, err)
	}

	f := &repository.Feedback{ID: "DM-1-u1", UserID: "u1", Status: repository.FeedbackStatusOpen}
	if err := r.SaveFeedback(ctx, f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Status = repository.FeedbackStatusResolved

	got, err = r.GetFeedback(ctx, "DM-1-u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != repository.FeedbackStatusOpen {
		t.Fatal("stored ticket must not alias the caller's value")
	}

	got.ThreadID = "thread-1"
	if err := r.SaveFeedback(ctx, got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, _ := r.GetFeedback(ctx, "DM-1-u1")
	if again.ThreadID != "thread-1" {
		t.Fatalf("expected update to be saved, got %+v", again)
	}
}

func TestMemoryRepository_Blacklist(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	until := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	if e, _ := r.GetBlacklist(ctx, "u1"); e != nil {
		t.Fatal("expected no entry")
	}
	if err := r.SetBlacklist(ctx, "u1", until); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, err := r.GetBlacklist(ctx, "u1")
	if err != nil || e == nil || !e.Until.Equal(until) {
		t.Fatalf("unexpected entry: %+v %v", e, err)
	}
	if err := r.DeleteBlacklist(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e, _ := r.GetBlacklist(ctx, "u1"); e != nil {
		t.Fatal("expected entry to be removed")
	}
}

package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresConversationAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Entry{EventType: "event_call_status"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Entry{ConversationID: "c"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEntries(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.Append(ctx, Entry{ConversationID: "c1", EventType: "event_call_status", Outcome: "applied"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.Append(ctx, Entry{ConversationID: "c2", EventType: "human_detected", Outcome: "applied"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Entries()
	if len(evs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(evs))
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at to be assigned")
	}

	list, err := svc.List(ctx, "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].EventType != "event_call_status" {
		t.Fatalf("unexpected journal: %+v", list)
	}
}

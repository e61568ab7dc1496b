package sessions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/parley-dev/parley/pkg/models"
)

func TestMemoryStoreEvictsOldestUserTurns(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	mustAppend := func(role models.Role, content string) {
		t.Helper()
		if _, err := store.Append(ctx, "s1", models.Turn{Role: role, Content: content}); err != nil {
			t.Fatalf("Append(%s, %q) error = %v", role, content, err)
		}
	}

	mustAppend(models.RoleSystem, "Be helpful.")
	mustAppend(models.RoleUser, "hi")

	history, err := store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	wantContents(t, history, []string{"Be helpful.", "hi"})

	mustAppend(models.RoleUser, "bye")
	history, _ = store.History(ctx, "s1")
	wantContents(t, history, []string{"Be helpful.", "hi", "bye"})

	mustAppend(models.RoleUser, "ok")
	history, _ = store.History(ctx, "s1")
	wantContents(t, history, []string{"Be helpful.", "bye", "ok"})
	if history[0].Role != models.RoleSystem {
		t.Fatalf("expected system turn to survive eviction, got role %q", history[0].Role)
	}
}

func TestMemoryStoreRetentionBound(t *testing.T) {
	const max = 5
	store := NewMemoryStore(max)
	ctx := context.Background()

	if _, err := store.Append(ctx, "s1", models.Turn{Role: models.RoleSystem, Content: "rules"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		if _, err := store.Append(ctx, "s1", models.Turn{Role: models.RoleUser, Content: fmt.Sprintf("msg-%d", i)}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		n, err := store.Len(ctx, "s1")
		if err != nil {
			t.Fatalf("Len() error = %v", err)
		}
		if n > max {
			t.Fatalf("history length %d exceeds bound %d after append %d", n, max, i)
		}
	}

	history, err := store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if history[0].Content != "rules" || history[0].Role != models.RoleSystem {
		t.Fatalf("expected system turn first, got %+v", history[0])
	}
	// Most recent user turns survive.
	last := history[len(history)-1]
	if last.Content != "msg-49" {
		t.Fatalf("expected newest user turn retained, got %q", last.Content)
	}
}

func TestMemoryStoreSystemTurnsAlwaysRetained(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := store.Append(ctx, "s1", models.Turn{Role: models.RoleSystem, Content: fmt.Sprintf("sys-%d", i)}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if _, err := store.Append(ctx, "s1", models.Turn{Role: models.RoleUser, Content: "dropped"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	history, _ := store.History(ctx, "s1")
	if len(history) != 4 {
		t.Fatalf("expected 4 retained turns, got %d", len(history))
	}
	for _, turn := range history {
		if turn.Role != models.RoleSystem {
			t.Fatalf("expected only system turns when they exceed the bound, got %q", turn.Role)
		}
	}
}

func TestMemoryStoreHistorySorted(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()
	base := time.Now()

	// Append with explicit out-of-order timestamps.
	for _, offset := range []time.Duration{3 * time.Second, time.Second, 2 * time.Second} {
		turn := models.Turn{Role: models.RoleUser, Content: offset.String(), CreatedAt: base.Add(offset)}
		if _, err := store.Append(ctx, "s1", turn); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	history, _ := store.History(ctx, "s1")
	for i := 1; i < len(history); i++ {
		if history[i].Before(history[i-1]) {
			t.Fatalf("history out of order at %d: %v before %v", i, history[i].CreatedAt, history[i-1].CreatedAt)
		}
	}
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	store := NewMemoryStore(10)

	history, err := store.History(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history for unknown session, got %d turns", len(history))
	}
}

func TestMemoryStoreValidation(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	if _, err := store.Append(ctx, "", models.Turn{Role: models.RoleUser, Content: "x"}); err != ErrSessionIDRequired {
		t.Fatalf("expected ErrSessionIDRequired, got %v", err)
	}
	if _, err := store.Append(ctx, "s1", models.Turn{Role: models.Role("tool"), Content: "x"}); err != ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestMemoryStoreSessionIsolation(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := store.Append(ctx, "a", models.Turn{Role: models.RoleUser, Content: fmt.Sprintf("a-%d", i)}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if _, err := store.Append(ctx, "b", models.Turn{Role: models.RoleUser, Content: "b-0"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	historyB, _ := store.History(ctx, "b")
	if len(historyB) != 1 || historyB[0].Content != "b-0" {
		t.Fatalf("session b contaminated: %+v", historyB)
	}
	if store.Sessions() != 2 {
		t.Fatalf("expected 2 sessions, got %d", store.Sessions())
	}
}

func TestMemoryStoreAssignsTurnFields(t *testing.T) {
	store := NewMemoryStore(10)

	stored, err := store.Append(context.Background(), "s1", models.Turn{Role: models.RoleUser, Content: "hi"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if stored.ID == "" {
		t.Fatal("expected turn id to be assigned")
	}
	if stored.CreatedAt.IsZero() {
		t.Fatal("expected turn timestamp to be assigned")
	}
	if stored.Seq == 0 {
		t.Fatal("expected turn sequence to be assigned")
	}
}

func wantContents(t *testing.T, turns []models.Turn, want []string) {
	t.Helper()
	if len(turns) != len(want) {
		t.Fatalf("expected %d turns, got %d: %+v", len(want), len(turns), turns)
	}
	for i, content := range want {
		if turns[i].Content != content {
			t.Fatalf("turn %d: expected %q, got %q", i, content, turns[i].Content)
		}
	}
}

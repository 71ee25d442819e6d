package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"pulseboard/internal/models"
)

func TestMemoryStoreTruncatesRing(t *testing.T) {
	store := NewMemoryStore(20, time.Hour)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		err := store.Append(ctx, "session-1", models.Interaction{
			Type:  models.InteractionAnalytics,
			Query: fmt.Sprintf("query %d", i),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := store.Interactions(ctx, "session-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 20 {
		t.Fatalf("Expected ring capped at 20, got %d", len(entries))
	}
	if entries[0].Query != "query 5" {
		t.Errorf("Expected oldest surviving entry to be query 5, got %q", entries[0].Query)
	}
	if entries[19].Query != "query 24" {
		t.Errorf("Expected newest entry to be query 24, got %q", entries[19].Query)
	}
}

func TestMemoryStoreSessionIsolation(t *testing.T) {
	store := NewMemoryStore(20, time.Hour)
	ctx := context.Background()

	store.Append(ctx, "session-a", models.Interaction{Query: "a"})
	store.Append(ctx, "session-b", models.Interaction{Query: "b"})

	entries, _ := store.Interactions(ctx, "session-a")
	if len(entries) != 1 || entries[0].Query != "a" {
		t.Errorf("Expected session-a to hold only its own entry, got %v", entries)
	}
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryStore(20, time.Hour)
	ctx := context.Background()

	store.Append(ctx, "session-1", models.Interaction{Query: "hello"})
	if err := store.Clear(ctx, "session-1"); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Interactions(ctx, "session-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected cleared session to be empty, got %d entries", len(entries))
	}
}

func TestMemoryStoreLastAnalytics(t *testing.T) {
	store := NewMemoryStore(20, time.Hour)
	ctx := context.Background()

	store.Append(ctx, "s", models.Interaction{Type: models.InteractionAnalytics, Query: "first", Source: models.SourceSQL})
	store.Append(ctx, "s", models.Interaction{Type: models.InteractionHelpdesk, Query: "how do I export"})
	store.Append(ctx, "s", models.Interaction{Type: models.InteractionAnalytics, Query: "second", Source: models.SourceKnowledgeBase})
	store.Append(ctx, "s", models.Interaction{Type: models.InteractionHelpdesk, Query: "another helpdesk"})

	last, err := store.LastAnalytics(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if last == nil {
		t.Fatal("Expected an analytics interaction")
	}
	if last.Query != "second" {
		t.Errorf("Expected most recent analytics entry, got %q", last.Query)
	}
	if last.Source != models.SourceKnowledgeBase {
		t.Errorf("Expected knowledge-base source, got %q", last.Source)
	}
}

func TestMemoryStoreLastAnalyticsEmpty(t *testing.T) {
	store := NewMemoryStore(20, time.Hour)

	last, err := store.LastAnalytics(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if last != nil {
		t.Errorf("Expected nil for a session with no analytics entries, got %+v", last)
	}
}

func TestSanitizeInteractionCaps(t *testing.T) {
	rows := make([]map[string]interface{}, 80)
	for i := range rows {
		rows[i] = map[string]interface{}{"comment": strings.Repeat("x", 900)}
	}

	interaction := sanitizeInteraction(models.Interaction{
		Query:    strings.Repeat("q", 600),
		Response: strings.Repeat("r", 2000),
		Rows:     rows,
	})

	if len(interaction.Rows) != maxStoredRows {
		t.Errorf("Expected rows capped at %d, got %d", maxStoredRows, len(interaction.Rows))
	}
	if len(interaction.Query) != maxScalarChars {
		t.Errorf("Expected query capped at %d chars, got %d", maxScalarChars, len(interaction.Query))
	}
	if len(interaction.Response) != maxResponseChars {
		t.Errorf("Expected response capped at %d chars, got %d", maxResponseChars, len(interaction.Response))
	}
	if got := interaction.Rows[0]["comment"].(string); len(got) != maxScalarChars {
		t.Errorf("Expected row value capped at %d chars, got %d", maxScalarChars, len(got))
	}
	if interaction.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be stamped")
	}
}

func TestSanitizeValueNested(t *testing.T) {
	nested := map[string]interface{}{"scores": []int{1, 2, 3}}

	got := sanitizeValue(nested)
	s, ok := got.(string)
	if !ok {
		t.Fatalf("Expected nested value serialized to string, got %T", got)
	}
	if !strings.Contains(s, "scores") {
		t.Errorf("Expected JSON serialization, got %q", s)
	}
}

func TestSanitizeValueScalarsUntouched(t *testing.T) {
	if got := sanitizeValue(42); got != 42 {
		t.Errorf("Expected 42, got %v", got)
	}
	if got := sanitizeValue(nil); got != nil {
		t.Errorf("Expected nil, got %v", got)
	}
	if got := sanitizeValue("short"); got != "short" {
		t.Errorf("Expected short string untouched, got %v", got)
	}
}

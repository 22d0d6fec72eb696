package versions

import (
	"context"
	"strings"
	"testing"
	"time"

	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/domain/entity"
	"ad-studio-api/internal/infrastructure/persistence/memory"
	apperrors "ad-studio-api/pkg/errors"
)

func newTestStore(t *testing.T, opts Options) (*Store, *session.Store) {
	t.Helper()
	sess := session.NewStore("test", memory.NewKVStore())
	return NewStore(sess, opts), sess
}

func sampleScript(lines ...string) entity.Script {
	out := make(entity.Script, len(lines))
	for i, l := range lines {
		out[i] = entity.ScriptLine{Line: l, ArtDirection: "calm"}
	}
	return out
}

// TestSnapshot_DeepCopy 修改当前脚本不会影响已保存的版本
func TestSnapshot_DeepCopy(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, Options{})

	live := sampleScript("a", "b")
	v := s.Snapshot(ctx, live, "first")
	live[0].Line = "mutated"

	got, err := s.Get(ctx, v.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Script[0].Line != "a" {
		t.Fatalf("stored version changed: %+v", got.Script)
	}
	if v.ID == "" || v.Timestamp.IsZero() || v.Description != "first" {
		t.Fatalf("version = %+v", v)
	}
}

func TestSnapshot_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := newTestStore(t, Options{Now: func() time.Time { return fixed }})

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		v := s.Snapshot(ctx, sampleScript("a"), "x")
		if seen[v.ID] {
			t.Fatalf("duplicate id %s", v.ID)
		}
		seen[v.ID] = true
	}
}

// TestHistory_AppendOnly N 次快照得到 N 个版本，恢复只增加一个
func TestHistory_AppendOnly(t *testing.T) {
	ctx := context.Background()
	s, sess := newTestStore(t, Options{})

	sess.SetScript(ctx, sampleScript("a", "b"))
	if _, created := s.EnsureInitial(ctx, DescInitialGeneration); !created {
		t.Fatal("expected an initial snapshot")
	}
	if _, created := s.EnsureInitial(ctx, DescInitialGeneration); created {
		t.Fatal("initial snapshot must be created only once")
	}

	const n = 4
	var ids []string
	for i := 0; i < n; i++ {
		ids = append(ids, s.Snapshot(ctx, sampleScript("v", string(rune('0'+i))), "edit").ID)
	}
	if got := len(s.List(ctx)); got != n+1 {
		t.Fatalf("history length = %d, want %d", got, n+1)
	}

	before := s.List(ctx)
	restored, err := s.Restore(ctx, ids[1], RestoreOptions{})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	after := s.List(ctx)
	if len(after) != len(before)+1 {
		t.Fatalf("restore changed history by %d, want +1", len(after)-len(before))
	}
	for i := range before {
		if after[i].ID != before[i].ID {
			t.Fatalf("entry %d was rewritten by restore", i)
		}
	}
	if !strings.HasPrefix(after[len(after)-1].Description, "Restored from version ") {
		t.Fatalf("restore description = %q", after[len(after)-1].Description)
	}
	if !restored.Equal(sampleScript("v", "1")) {
		t.Fatalf("restored = %+v", restored)
	}
	if !sess.Script(ctx).Equal(restored) {
		t.Fatal("restore should write the current script")
	}
}

func TestRestore_RequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, Options{})
	v := s.Snapshot(ctx, sampleScript("a"), "x")

	_, err := s.Restore(ctx, v.ID, RestoreOptions{HasUnsavedChanges: true})
	if !apperrors.HasCode(err, apperrors.CodeConfirmationRequired) {
		t.Fatalf("err = %v, want confirmation required", err)
	}
	if got := len(s.List(ctx)); got != 1 {
		t.Fatalf("refused restore must not touch history, len = %d", got)
	}

	if _, err := s.Restore(ctx, v.ID, RestoreOptions{HasUnsavedChanges: true, Confirmed: true}); err != nil {
		t.Fatalf("confirmed restore: %v", err)
	}
	if _, err := s.Restore(ctx, "missing", RestoreOptions{}); !apperrors.HasCode(err, apperrors.CodeVersionNotFound) {
		t.Fatalf("err = %v, want version not found", err)
	}
}

func TestDiffScripts(t *testing.T) {
	current := entity.Script{
		{Line: "same", ArtDirection: "x"},
		{Line: "changed", ArtDirection: "x"},
		{Line: "art", ArtDirection: "y"},
		{Line: "extra", ArtDirection: "x"},
	}
	other := entity.Script{
		{Line: "same", ArtDirection: "x"},
		{Line: "before", ArtDirection: "x"},
		{Line: "art", ArtDirection: "z"},
	}

	got := DiffScripts(current, other)
	want := []entity.DiffStatus{entity.DiffUnchanged, entity.DiffModified, entity.DiffModified, entity.DiffNew}
	if len(got) != len(want) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if got[i].Index != i || got[i].Status != want[i] {
			t.Errorf("line %d = %+v, want %s", i, got[i], want[i])
		}
	}
}

func TestSnapshot_MaxHistory(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, Options{MaxHistory: 3})
	var last string
	for i := 0; i < 5; i++ {
		last = s.Snapshot(ctx, sampleScript("a"), "x").ID
	}
	list := s.List(ctx)
	if len(list) != 3 || list[2].ID != last {
		t.Fatalf("capped history = %d entries", len(list))
	}
}

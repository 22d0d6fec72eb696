package refine

import (
	"context"
	"errors"
	"testing"
	"time"

	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/domain/entity"
	"ad-studio-api/internal/infrastructure/messaging"
	"ad-studio-api/internal/infrastructure/persistence/memory"
	apperrors "ad-studio-api/pkg/errors"
)

type step struct {
	resp *entity.RefinementResponse
	err  error
}

// scriptedWriter 按顺序返回预设结果
type scriptedWriter struct {
	steps []step
	calls int
	last  *entity.RefinementRequest
}

func (w *scriptedWriter) GenerateScript(context.Context, entity.AdMetadata) (entity.Script, error) {
	return nil, errors.New("not used")
}

func (w *scriptedWriter) RefineScript(_ context.Context, req *entity.RefinementRequest) (*entity.RefinementResponse, error) {
	i := w.calls
	w.calls++
	w.last = req
	if i >= len(w.steps) {
		return nil, errors.New("unexpected call")
	}
	return w.steps[i].resp, w.steps[i].err
}

func (w *scriptedWriter) Ping(context.Context) error { return nil }

type recordingPublisher struct {
	events []*messaging.ValidationEvent
}

func (p *recordingPublisher) PublishValidation(_ context.Context, ev *messaging.ValidationEvent) (string, error) {
	p.events = append(p.events, ev)
	return "1-0", nil
}

func testOptions() Options {
	return Options{MaxRetries: 2, RetryBackoff: time.Millisecond}
}

func seeded(t *testing.T) *session.Store {
	t.Helper()
	ctx := context.Background()
	sess := session.NewStore("s1", memory.NewKVStore())
	sess.SetScript(ctx, script("zero", "one", "two"))
	sess.SetFormData(ctx, entity.AdMetadata{KeySellingPoints: "fast", Tone: "calm", AdLength: 30})
	return sess
}

func TestRefine_PersistsAndRecords(t *testing.T) {
	ctx := context.Background()
	sess := seeded(t)
	w := &scriptedWriter{steps: []step{{resp: claims([]int{1, 2}, line("ONE"), line("TWO"))}}}
	pub := &recordingPublisher{}

	out, err := NewService(w, pub, testOptions()).Refine(ctx, sess, Input{
		Selection:   entity.NewSelectionSet(1),
		Instruction: "  louder ",
	})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}

	want := script("zero", "ONE", "two")
	if !out.Script.Equal(want) || !sess.Script(ctx).Equal(want) {
		t.Fatalf("script = %+v", out.Script)
	}
	if w.last.ImprovementInstruction != "louder" || w.last.AdLength != 30 {
		t.Fatalf("request = %+v", w.last)
	}

	history := sess.ScriptVersions(ctx)
	if len(history) != 2 || history[0].Description != "Before refinement" || history[1].Description != "Refined: louder" {
		t.Fatalf("history = %+v", history)
	}
	if !history[0].Script.Equal(script("zero", "one", "two")) {
		t.Fatal("pre-refinement snapshot must hold the original script")
	}

	stored := sess.Validation(ctx)
	if stored == nil || len(stored.RevertedChanges) != 1 || stored.RevertedChanges[0].Index != 2 {
		t.Fatalf("stored validation = %+v", stored)
	}
	if len(pub.events) != 1 || pub.events[0].SessionID != "s1" || pub.events[0].Attempts != 1 {
		t.Fatalf("events = %+v", pub.events)
	}
}

// TestRefine_CleanClearsStaleFeedback 无违规的精修删除上一次的越权记录
func TestRefine_CleanClearsStaleFeedback(t *testing.T) {
	ctx := context.Background()
	sess := seeded(t)
	sess.SetValidation(ctx, &entity.ValidationMetadata{HadUnauthorizedChanges: true, OriginalLength: 3, ReceivedLength: 3})

	w := &scriptedWriter{steps: []step{{resp: claims([]int{0}, line("ZERO"))}}}
	if _, err := NewService(w, nil, testOptions()).Refine(ctx, sess, Input{
		Selection: entity.NewSelectionSet(0), Instruction: "x",
	}); err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if sess.Validation(ctx) != nil {
		t.Fatal("clean refinement must remove stale validation data")
	}
}

func TestRefine_UsesLiveSelection(t *testing.T) {
	ctx := context.Background()
	sess := seeded(t)
	sess.SetSelection(ctx, entity.NewSelectionSet(2))

	w := &scriptedWriter{steps: []step{{resp: claims([]int{2}, line("TWO"))}}}
	if _, err := NewService(w, nil, testOptions()).Refine(ctx, sess, Input{Instruction: "x"}); err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(w.last.SelectedSentences) != 1 || w.last.SelectedSentences[0] != 2 {
		t.Fatalf("selected = %v", w.last.SelectedSentences)
	}
	if !sess.Selection(ctx).Empty() {
		t.Fatal("selection should be cleared after success")
	}
}

// TestRefine_MalformedIsNoOp 信封不合法时不修改任何会话数据
func TestRefine_MalformedIsNoOp(t *testing.T) {
	ctx := context.Background()
	sess := seeded(t)
	sess.SetSelection(ctx, entity.NewSelectionSet(1))
	bad := &entity.RefinementResponse{Data: []entity.ScriptLine{line("a"), line("b")}, ModifiedIndices: []int{1}}
	w := &scriptedWriter{steps: []step{{resp: bad}}}

	_, err := NewService(w, nil, testOptions()).Refine(ctx, sess, Input{Instruction: "x"})
	if !apperrors.HasCode(err, apperrors.CodeMalformedResponse) {
		t.Fatalf("err = %v", err)
	}
	if w.calls != 1 {
		t.Fatalf("malformed envelopes must not be retried, calls = %d", w.calls)
	}
	if !sess.Script(ctx).Equal(script("zero", "one", "two")) {
		t.Fatal("script changed after malformed response")
	}
	if sess.Validation(ctx) != nil || sess.Selection(ctx).Empty() || len(sess.ScriptVersions(ctx)) != 0 {
		t.Fatal("validation, selection and history must be untouched")
	}
}

func TestRefine_InputErrorsSkipUpstream(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		code apperrors.ErrorCode
	}{
		{"no selection", Input{Instruction: "x"}, apperrors.CodeNoSelection},
		{"blank instruction", Input{Selection: entity.NewSelectionSet(0), Instruction: "   "}, apperrors.CodeEmptyInstruction},
		{"out of range", Input{Selection: entity.NewSelectionSet(9), Instruction: "x"}, apperrors.CodeSelectionOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := seeded(t)
			w := &scriptedWriter{}
			_, err := NewService(w, nil, testOptions()).Refine(context.Background(), sess, tt.in)
			if !apperrors.HasCode(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			if w.calls != 0 {
				t.Fatal("input errors must not reach the upstream")
			}
			if len(sess.ScriptVersions(context.Background())) != 0 {
				t.Fatal("input errors must not snapshot")
			}
		})
	}
}

func TestRefine_RetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	sess := seeded(t)
	w := &scriptedWriter{steps: []step{
		{err: apperrors.ErrUpstreamTimeout},
		{err: apperrors.UpstreamStatusError(503, "busy")},
		{resp: claims([]int{0}, line("ZERO"))},
	}}

	out, err := NewService(w, nil, testOptions()).Refine(ctx, sess, Input{Selection: entity.NewSelectionSet(0), Instruction: "x"})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if out.Attempts != 3 || w.calls != 3 {
		t.Fatalf("attempts = %d, calls = %d", out.Attempts, w.calls)
	}
}

func TestRefine_RetryBudget(t *testing.T) {
	sess := seeded(t)
	w := &scriptedWriter{steps: []step{
		{err: apperrors.ErrUpstreamUnavailable},
		{err: apperrors.ErrUpstreamUnavailable},
		{err: apperrors.ErrUpstreamUnavailable},
		{resp: claims([]int{0}, line("never"))},
	}}

	_, err := NewService(w, nil, testOptions()).Refine(context.Background(), sess, Input{Selection: entity.NewSelectionSet(0), Instruction: "x"})
	if !apperrors.HasCode(err, apperrors.CodeUpstreamUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if w.calls != 3 {
		t.Fatalf("calls = %d, want 1 + 2 retries", w.calls)
	}
}

func TestRefine_ClientErrorIsPermanent(t *testing.T) {
	sess := seeded(t)
	w := &scriptedWriter{steps: []step{{err: apperrors.UpstreamStatusError(422, "bad input")}}}

	_, err := NewService(w, nil, testOptions()).Refine(context.Background(), sess, Input{Selection: entity.NewSelectionSet(0), Instruction: "x"})
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeUpstreamError || appErr.UpstreamStatus != 422 {
		t.Fatalf("err = %v", err)
	}
	if w.calls != 1 {
		t.Fatalf("4xx must not be retried, calls = %d", w.calls)
	}
}

func TestRefine_OneAtATime(t *testing.T) {
	sess := seeded(t)
	release, _ := sess.TryLock()
	defer release()

	_, err := NewService(&scriptedWriter{}, nil, testOptions()).Refine(context.Background(), sess, Input{Selection: entity.NewSelectionSet(0), Instruction: "x"})
	if !apperrors.HasCode(err, apperrors.CodeOperationInProgress) {
		t.Fatalf("err = %v", err)
	}
}

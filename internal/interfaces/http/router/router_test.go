package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ad-studio-api/internal/application/audio"
	"ad-studio-api/internal/application/generation"
	"ad-studio-api/internal/application/refine"
	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/application/versions"
	"ad-studio-api/internal/config"
	"ad-studio-api/internal/domain/entity"
	"ad-studio-api/internal/infrastructure/persistence/memory"
	"ad-studio-api/internal/infrastructure/tts"
	"ad-studio-api/internal/interfaces/http/handler"
	"ad-studio-api/internal/interfaces/http/middleware"
	apperrors "ad-studio-api/pkg/errors"
	"ad-studio-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

// stubWriter 生成固定脚本，精修返回预设响应
type stubWriter struct {
	refine    *entity.RefinementResponse
	refineErr error
	pingErr   error

	// entered/release 非空时精修调用阻塞，直到 release 关闭
	entered chan struct{}
	release chan struct{}
}

func (w *stubWriter) GenerateScript(_ context.Context, meta entity.AdMetadata) (entity.Script, error) {
	return entity.Script{
		{Line: "Meet " + meta.ProductName, ArtDirection: "upbeat"},
		{Line: "It is fast", ArtDirection: "calm"},
		{Line: "Buy now", ArtDirection: "loud"},
	}, nil
}

func (w *stubWriter) RefineScript(context.Context, *entity.RefinementRequest) (*entity.RefinementResponse, error) {
	if w.release != nil {
		w.entered <- struct{}{}
		<-w.release
	}
	return w.refine, w.refineErr
}

func (w *stubWriter) Ping(context.Context) error { return w.pingErr }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		ErrorCode      string `json:"error_code"`
		Details        string `json:"details"`
		Retryable      bool   `json:"retryable"`
		UpstreamStatus int    `json:"upstream_status"`
	} `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	token  string
}

func newTestServer(t *testing.T, writer *stubWriter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.App.Name = "ad-studio-api"
	cfg.App.Env = "test"

	kv := memory.NewKVStore()
	registry := session.NewRegistry(kv, 0)
	vopts := versions.Options{}

	handlers := &RouterHandlers{
		Health:  handler.NewHealthHandler(kv, writer, nil),
		Script:  handler.NewScriptHandler(generation.NewService(writer, vopts)),
		Refine:  handler.NewRefineHandler(refine.NewService(writer, nil, refine.Options{RetryBackoff: time.Millisecond, Versions: vopts}), 0),
		Version: handler.NewVersionHandler(vopts),
		Audio:   handler.NewAudioHandler(audio.NewService(tts.Placeholder{})),
		Session: handler.NewSessionHandler(registry),
	}
	tokens := utils.NewJWTManager("test-secret", "ad-studio-api", time.Hour)
	return &testServer{engine: NewWithDeps(cfg, handlers, tokens, registry, nil).Engine()}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set(middleware.SessionTokenHeader, s.token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	if tok := w.Header().Get(middleware.SessionTokenHeader); tok != "" {
		s.token = tok
	}
	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (s *testServer) generate(t *testing.T) {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/v1/scripts/generate", map[string]any{
		"product_name":       "Brew",
		"target_audience":    "commuters",
		"key_selling_points": "fast",
		"tone":               "calm",
		"ad_length":          "30s",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSystemEndpoints(t *testing.T) {
	s := newTestServer(t, &stubWriter{})
	for _, path := range []string{"/health", "/live", "/ready"} {
		w, _ := s.do(t, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, w.Code)
		}
	}
	if s.token != "" {
		t.Fatal("system endpoints must not issue session tokens")
	}
}

func TestReady_DegradedUpstreamStaysReady(t *testing.T) {
	s := newTestServer(t, &stubWriter{pingErr: apperrors.ErrUpstreamUnavailable})
	w, _ := s.do(t, http.MethodGet, "/ready", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"degraded"`)) {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestTestConnection(t *testing.T) {
	s := newTestServer(t, &stubWriter{pingErr: apperrors.ErrUpstreamTimeout})
	w, env := s.do(t, http.MethodGet, "/v1/test_connection", nil)
	if w.Code != http.StatusGatewayTimeout || env.Error.ErrorCode != string(apperrors.CodeUpstreamTimeout) {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSessionTokenKeepsState(t *testing.T) {
	s := newTestServer(t, &stubWriter{})
	s.generate(t)
	if s.token == "" {
		t.Fatal("expected a session token")
	}

	w, env := s.do(t, http.MethodGet, "/v1/script", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var data struct {
		Script entity.Script `json:"script"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if len(data.Script) != 3 || data.Script[0].Line != "Meet Brew" {
		t.Fatalf("script = %+v", data.Script)
	}

	// 新令牌看不到旧会话
	s.token = ""
	_, env = s.do(t, http.MethodGet, "/v1/script", nil)
	_ = json.Unmarshal(env.Data, &data)
	if len(data.Script) != 0 {
		t.Fatalf("fresh session sees script %+v", data.Script)
	}
}

func TestGenerate_MissingFields(t *testing.T) {
	s := newTestServer(t, &stubWriter{})
	w, env := s.do(t, http.MethodPost, "/v1/scripts/generate", map[string]any{"product_name": "Brew"})
	if w.Code != http.StatusBadRequest || env.Error.ErrorCode != string(apperrors.CodeMissingFormField) {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	// 表单仍可恢复
	_, env = s.do(t, http.MethodGet, "/v1/scripts/form", nil)
	var form struct {
		Found bool `json:"found"`
	}
	_ = json.Unmarshal(env.Data, &form)
	if form.Found {
		t.Fatal("invalid form must not be stored")
	}
}

func TestRefine_RevertsUnauthorizedChanges(t *testing.T) {
	writer := &stubWriter{refine: &entity.RefinementResponse{
		Data: []entity.ScriptLine{
			{Line: "It is blazing fast", ArtDirection: "calm"},
			{Line: "BUY NOW", ArtDirection: "shout"},
		},
		ModifiedIndices: []int{1, 2},
	}}
	s := newTestServer(t, writer)
	s.generate(t)

	w, env := s.do(t, http.MethodPost, "/v1/script/refine", map[string]any{
		"selected_sentences":      []int{1},
		"improvement_instruction": "more energy",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var out refine.Output
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Script[1].Line != "It is blazing fast" || out.Script[2].Line != "Buy now" {
		t.Fatalf("script = %+v", out.Script)
	}
	if out.Validation == nil || !out.Validation.HadUnauthorizedChanges {
		t.Fatalf("validation = %+v", out.Validation)
	}

	w, env = s.do(t, http.MethodGet, "/v1/script/validation", nil)
	if w.Code != http.StatusOK || !bytes.Contains(env.Data, []byte(`"index":2`)) {
		t.Fatalf("report = %s", w.Body.String())
	}

	w, _ = s.do(t, http.MethodDelete, "/v1/script/validation", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("dismiss status = %d", w.Code)
	}
	_, env = s.do(t, http.MethodGet, "/v1/script/validation", nil)
	if len(env.Data) != 0 && string(env.Data) != "null" {
		t.Fatalf("report after dismiss = %s", env.Data)
	}
}

func TestRefine_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		writer    *stubWriter
		body      map[string]any
		status    int
		code      apperrors.ErrorCode
		retryable bool
	}{
		{
			name:   "no selection",
			writer: &stubWriter{},
			body:   map[string]any{"improvement_instruction": "x"},
			status: http.StatusBadRequest,
			code:   apperrors.CodeNoSelection,
		},
		{
			name: "malformed",
			writer: &stubWriter{refine: &entity.RefinementResponse{
				Data: []entity.ScriptLine{{Line: "a"}, {Line: "b"}}, ModifiedIndices: []int{1},
			}},
			body:      map[string]any{"selected_sentences": []int{1}, "improvement_instruction": "x"},
			status:    http.StatusBadGateway,
			code:      apperrors.CodeMalformedResponse,
			retryable: true,
		},
		{
			name:      "upstream 4xx",
			writer:    &stubWriter{refineErr: apperrors.UpstreamStatusError(422, "bad input")},
			body:      map[string]any{"selected_sentences": []int{0}, "improvement_instruction": "x"},
			status:    http.StatusBadGateway,
			code:      apperrors.CodeUpstreamError,
			retryable: true,
		},
		{
			name:   "unknown error hides details",
			writer: &stubWriter{refineErr: errors.New("secret dsn")},
			body:   map[string]any{"selected_sentences": []int{0}, "improvement_instruction": "x"},
			status: http.StatusInternalServerError,
			code:   apperrors.CodeUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.writer)
			s.generate(t)
			w, env := s.do(t, http.MethodPost, "/v1/script/refine", tt.body)
			if w.Code != tt.status || env.Error == nil || env.Error.ErrorCode != string(tt.code) {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if env.Error.Retryable != tt.retryable {
				t.Fatalf("retryable = %v", env.Error.Retryable)
			}
			if bytes.Contains(w.Body.Bytes(), []byte("secret dsn")) {
				t.Fatal("internal error leaked")
			}
		})
	}
}

func TestSelection(t *testing.T) {
	s := newTestServer(t, &stubWriter{})
	w, env := s.do(t, http.MethodPut, "/v1/script/selection", map[string]any{"selected_sentences": []int{0}})
	if w.Code != http.StatusNotFound || env.Error.ErrorCode != string(apperrors.CodeScriptNotFound) {
		t.Fatalf("status = %d", w.Code)
	}

	s.generate(t)
	w, env = s.do(t, http.MethodPut, "/v1/script/selection", map[string]any{"selected_sentences": []int{7}})
	if w.Code != http.StatusBadRequest || env.Error.ErrorCode != string(apperrors.CodeSelectionOutOfRange) {
		t.Fatalf("status = %d", w.Code)
	}

	w, _ = s.do(t, http.MethodPut, "/v1/script/selection", map[string]any{"selected_sentences": []int{2, 0}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	_, env = s.do(t, http.MethodGet, "/v1/script", nil)
	if !bytes.Contains(env.Data, []byte(`"selected_sentences":[0,2]`)) {
		t.Fatalf("script = %s", env.Data)
	}
}

func TestVersions_EditDiffRestore(t *testing.T) {
	s := newTestServer(t, &stubWriter{})
	s.generate(t)

	w, _ := s.do(t, http.MethodPut, "/v1/script", map[string]any{
		"script": []map[string]string{
			{"line": "Meet Brew", "artDirection": "upbeat"},
			{"line": "Edited", "artDirection": "calm"},
			{"line": "Buy now", "artDirection": "loud"},
			{"line": "Extra", "artDirection": ""},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body = %s", w.Code, w.Body.String())
	}

	_, env := s.do(t, http.MethodGet, "/v1/script/versions", nil)
	var list struct {
		Versions []entity.ScriptVersion `json:"versions"`
	}
	_ = json.Unmarshal(env.Data, &list)
	if len(list.Versions) != 2 || list.Versions[0].Description != versions.DescInitialGeneration {
		t.Fatalf("versions = %+v", list.Versions)
	}
	initial := list.Versions[0].ID

	_, env = s.do(t, http.MethodGet, "/v1/script/versions/"+initial+"/diff", nil)
	var diff struct {
		Lines []entity.LineDiff `json:"lines"`
	}
	_ = json.Unmarshal(env.Data, &diff)
	if len(diff.Lines) != 4 || diff.Lines[1].Status != entity.DiffModified || diff.Lines[3].Status != entity.DiffNew {
		t.Fatalf("diff = %+v", diff.Lines)
	}

	w, env = s.do(t, http.MethodPost, "/v1/script/versions/"+initial+"/restore", map[string]any{"has_unsaved_changes": true})
	if w.Code != http.StatusConflict || env.Error.ErrorCode != string(apperrors.CodeConfirmationRequired) {
		t.Fatalf("restore status = %d", w.Code)
	}

	w, _ = s.do(t, http.MethodPost, "/v1/script/versions/"+initial+"/restore", map[string]any{"has_unsaved_changes": true, "confirmed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("confirmed restore status = %d", w.Code)
	}
	_, env = s.do(t, http.MethodGet, "/v1/script/versions", nil)
	_ = json.Unmarshal(env.Data, &list)
	if len(list.Versions) != 3 {
		t.Fatalf("restore must append a version, got %d", len(list.Versions))
	}

	w, _ = s.do(t, http.MethodGet, "/v1/script/versions/missing/diff", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing version status = %d", w.Code)
	}
}

// TestValidation_SurvivesRestoreAndRegenerate 越权反馈只在关闭或干净精修后清除
func TestValidation_SurvivesRestoreAndRegenerate(t *testing.T) {
	writer := &stubWriter{refine: &entity.RefinementResponse{
		Data:            []entity.ScriptLine{{Line: "BUY NOW", ArtDirection: "shout"}},
		ModifiedIndices: []int{2},
	}}
	s := newTestServer(t, writer)
	s.generate(t)

	w, _ := s.do(t, http.MethodPost, "/v1/script/refine", map[string]any{
		"selected_sentences":      []int{1},
		"improvement_instruction": "louder",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("refine status = %d, body = %s", w.Code, w.Body.String())
	}

	_, env := s.do(t, http.MethodGet, "/v1/script/versions", nil)
	var list struct {
		Versions []entity.ScriptVersion `json:"versions"`
	}
	_ = json.Unmarshal(env.Data, &list)
	if len(list.Versions) == 0 {
		t.Fatal("no versions")
	}
	w, _ = s.do(t, http.MethodPost, "/v1/script/versions/"+list.Versions[0].ID+"/restore", map[string]any{"confirmed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("restore status = %d", w.Code)
	}
	_, env = s.do(t, http.MethodGet, "/v1/script/validation", nil)
	if !bytes.Contains(env.Data, []byte(`"index":2`)) {
		t.Fatalf("report after restore = %s", env.Data)
	}

	s.generate(t)
	_, env = s.do(t, http.MethodGet, "/v1/script/validation", nil)
	if !bytes.Contains(env.Data, []byte(`"index":2`)) {
		t.Fatalf("report after regenerate = %s", env.Data)
	}
}

// TestScriptWrites_ConflictDuringRefine 精修进行中时编辑、快照与恢复都返回 409，不丢失写入
func TestScriptWrites_ConflictDuringRefine(t *testing.T) {
	writer := &stubWriter{
		refine: &entity.RefinementResponse{
			Data:            []entity.ScriptLine{{Line: "ZERO", ArtDirection: "upbeat"}},
			ModifiedIndices: []int{0},
		},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestServer(t, writer)
	s.generate(t)

	_, env := s.do(t, http.MethodGet, "/v1/script/versions", nil)
	var list struct {
		Versions []entity.ScriptVersion `json:"versions"`
	}
	_ = json.Unmarshal(env.Data, &list)
	initial := list.Versions[0].ID

	refiner := &testServer{engine: s.engine, token: s.token}
	done := make(chan int, 1)
	go func() {
		w, _ := refiner.do(t, http.MethodPost, "/v1/script/refine", map[string]any{
			"selected_sentences":      []int{0},
			"improvement_instruction": "louder",
		})
		done <- w.Code
	}()
	<-writer.entered

	edit := map[string]any{"script": []map[string]string{
		{"line": "a", "artDirection": ""}, {"line": "b", "artDirection": ""},
		{"line": "c", "artDirection": ""}, {"line": "d", "artDirection": ""},
	}}
	requests := []struct {
		method, path string
		body         any
	}{
		{http.MethodPut, "/v1/script", edit},
		{http.MethodPost, "/v1/script/versions", nil},
		{http.MethodPost, "/v1/script/versions/" + initial + "/restore", map[string]any{"confirmed": true}},
	}
	for _, r := range requests {
		w, env := s.do(t, r.method, r.path, r.body)
		if w.Code != http.StatusConflict || env.Error.ErrorCode != string(apperrors.CodeOperationInProgress) {
			t.Errorf("%s %s status = %d, body = %s", r.method, r.path, w.Code, w.Body.String())
		}
	}

	close(writer.release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("refine status = %d", code)
	}

	_, env = s.do(t, http.MethodGet, "/v1/script", nil)
	var data struct {
		Script entity.Script `json:"script"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if len(data.Script) != 3 || data.Script[0].Line != "ZERO" {
		t.Fatalf("script = %+v", data.Script)
	}

	// 锁释放后编辑正常生效
	w, _ := s.do(t, http.MethodPut, "/v1/script", edit)
	if w.Code != http.StatusOK {
		t.Fatalf("edit after refine status = %d", w.Code)
	}
}

func TestAudio(t *testing.T) {
	s := newTestServer(t, &stubWriter{})
	s.generate(t)

	w, env := s.do(t, http.MethodPost, "/v1/audio", map[string]any{"speed": 3.0})
	if w.Code != http.StatusBadRequest || env.Error.ErrorCode != string(apperrors.CodeAudioParamOutOfRange) {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w, env = s.do(t, http.MethodPost, "/v1/audio", map[string]any{"speed": 1.5})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var v entity.AudioVersion
	_ = json.Unmarshal(env.Data, &v)
	if v.AudioURL != tts.PlaceholderAudioURL || v.Speed != 1.5 || v.Pitch != 1.0 {
		t.Fatalf("audio = %+v", v)
	}

	w, _ = s.do(t, http.MethodGet, "/v1/audio/versions/"+v.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("load status = %d", w.Code)
	}
	w, _ = s.do(t, http.MethodGet, "/v1/audio/versions/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing audio status = %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	s := newTestServer(t, &stubWriter{})
	s.generate(t)

	w, _ := s.do(t, http.MethodDelete, "/v1/session", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	_, env := s.do(t, http.MethodGet, "/v1/script/versions", nil)
	if !bytes.Contains(env.Data, []byte(`"total":0`)) {
		t.Fatalf("versions after delete = %s", env.Data)
	}
}

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNI-Final-Project/api-multimodal-ai/api/handlers"
	"github.com/UNI-Final-Project/api-multimodal-ai/api/middleware"
	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/agenttest"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/orchestration"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/service/chat"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/service/meal"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/service/qa"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/store"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/utils/validator"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/queue"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/storage"
)

type stubQueue struct {
	mu       sync.Mutex
	payloads []*models.QAPayload
	statuses map[string]*queue.TaskStatus
	results  map[string]*models.QAResult
}

func newStubQueue() *stubQueue {
	return &stubQueue{statuses: map[string]*queue.TaskStatus{}, results: map[string]*models.QAResult{}}
}

func (q *stubQueue) Enqueue(ctx context.Context, p *models.QAPayload) error {
	q.mu.Lock()
	q.payloads = append(q.payloads, p)
	q.mu.Unlock()
	return q.SaveStatus(ctx, &queue.TaskStatus{TaskID: p.TaskID, Status: models.StatusPending, StartedAt: time.Now()})
}

func (q *stubQueue) GetTaskStatus(_ context.Context, id string) (*queue.TaskStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.statuses[id]; ok {
		return st, nil
	}
	return nil, fmt.Errorf("%w: %s", queue.ErrTaskNotFound, id)
}

func (q *stubQueue) CancelTask(ctx context.Context, id string) error {
	if _, err := q.GetTaskStatus(ctx, id); err != nil {
		return err
	}
	return q.SaveStatus(ctx, &queue.TaskStatus{TaskID: id, Status: models.StatusCancelled})
}

func (q *stubQueue) SaveStatus(_ context.Context, st *queue.TaskStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statuses[st.TaskID] = st
	return nil
}

func (q *stubQueue) SaveResult(_ context.Context, r *models.QAResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.results[r.TaskID] = r
	return nil
}

func (q *stubQueue) GetResult(_ context.Context, id string) (*models.QAResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if r, ok := q.results[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", queue.ErrResultNotFound, id)
}

type testServer struct {
	router  *gin.Engine
	backend *agenttest.Backend
	queue   *stubQueue
	qa      *qa.QAService
	store   *store.Memory
}

func newTestServer(t *testing.T, replies ...string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if len(replies) == 0 {
		replies = []string{"## Resumen\nBuena elección."}
	}
	log := logger.NewTestLogger()
	cfg := config.DefaultOrchestrationConfig()
	cfg.Generation.MaxRetries = 0
	cfg.Generation.FallbackModel = ""
	backend := agenttest.New(replies...)
	orch := orchestration.New(backend, cfg, log,
		orchestration.WithSleeper(func(context.Context, time.Duration) error { return nil }))

	q := newStubQueue()
	qaSvc := qa.NewService(orch, q, storage.NewMemory(), log, nil)
	st := store.NewMemory()
	llmCfg := &config.LLMConfig{Provider: "gemini", GoogleAPIKey: "secret", Model: cfg.Generation.Model}

	h := handlers.NewHandlers(handlers.Deps{
		LLM:     llmCfg,
		Model:   cfg.Generation.Model,
		QA:      qaSvc,
		Meal:    meal.NewAnalyzer(backend, cfg.Generation, log),
		Store:   st,
		Chat:    chat.NewChatbot(st, backend, cfg.Generation, log),
		Decoder: validator.NewMediaDecoder(log, &validator.DecoderConfig{MaxFileSize: 1 << 20, MaxFiles: 3}),
		Logger:  log,
	})
	r := gin.New()
	SetupRoutes(r, h, log)
	return &testServer{router: r, backend: backend, queue: q, qa: qaSvc, store: st}
}

type upload struct {
	field, name, mime string
	data              []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		if f.mime != "" {
			h.Set("Content-Type", f.mime)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var body map[string]interface{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestHealthAndEnvCheck(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/env-check", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["google_api_key_loaded"])
	assert.Equal(t, "gemini", body["provider"])
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")

	rec, _ := s.do(t, req)
	assert.Equal(t, "abc-123", rec.Header().Get(middleware.RequestIDHeader))
}

func TestQAAnswersWithMetadata(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t,
		map[string]string{"question": "¿Cuántas calorías tiene este plato?", "use_files_api": "YES"},
		upload{field: "files", name: "plato.png", mime: "image/png", data: pngBytes},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/qa", body)
	req.Header.Set("Content-Type", ct)

	rec, resp := s.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, resp["ok"])
	assert.Contains(t, resp["answer"], "Buena elección")

	meta, ok := resp["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, meta["media_count"])
	assert.Contains(t, meta["analysis_types"], "nutritional")
	assert.Equal(t, true, meta["validation_passed"])
}

func TestQAMissingQuestionIsSurfacedByPipeline(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t, nil, upload{field: "files", name: "plato.png", mime: "image/png", data: pngBytes})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/qa", body)
	req.Header.Set("Content-Type", ct)

	rec, resp := s.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, resp["ok"])
	assert.Contains(t, resp["answer"], "question is empty")
	assert.Equal(t, 0, s.backend.GenerateCalls())
}

func TestQAWithoutMultipartBody(t *testing.T) {
	s := newTestServer(t)
	rec, resp := s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/qa", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, resp["ok"])
	assert.Contains(t, resp["answer"], "no files attached")
}

func TestQARejectsTooManyFiles(t *testing.T) {
	s := newTestServer(t)
	files := make([]upload, 4)
	for i := range files {
		files[i] = upload{field: "files", name: fmt.Sprintf("p%d.png", i), mime: "image/png", data: pngBytes}
	}
	body, ct := multipartBody(t, map[string]string{"question": "q"}, files...)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/qa", body)
	req.Header.Set("Content-Type", ct)

	rec, resp := s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, resp["ok"])
	assert.Contains(t, resp["error"], "too many files")
}

func TestQAAsyncLifecycle(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t,
		map[string]string{"question": "dame una receta"},
		upload{field: "files", name: "nevera.png", mime: "image/png", data: pngBytes},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/qa/async", body)
	req.Header.Set("Content-Type", ct)

	rec, resp := s.do(t, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "pending", resp["status"])
	taskID, _ := resp["taskId"].(string)
	require.NotEmpty(t, taskID)

	rec, resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/qa/result/"+taskID, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, resp["ok"])

	require.Len(t, s.queue.payloads, 1)
	require.NoError(t, s.qa.HandleTask(context.Background(), s.queue.payloads[0]))

	rec, resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/qa/status/"+taskID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", resp["status"])

	rec, resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/qa/result/"+taskID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["ok"])
	assert.Contains(t, resp["answer"], "Buena elección")
}

func TestQAStatusUnknownTask(t *testing.T) {
	s := newTestServer(t)
	rec, resp := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/qa/status/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, resp["ok"])

	rec, _ = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/qa/task/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeMeal(t *testing.T) {
	s := newTestServer(t, "```json\n{\"food_name\":\"Tacos\",\"calories\":650,\"protein_g\":30}\n```")
	body, ct := multipartBody(t, nil, upload{field: "file", name: "tacos.png", mime: "image/png", data: pngBytes})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-meal", body)
	req.Header.Set("Content-Type", ct)

	rec, resp := s.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	nutrients, ok := resp["nutrients"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Tacos", nutrients["food_name"])
	assert.EqualValues(t, 650, nutrients["calories"])
	assert.EqualValues(t, 0, nutrients["fat_g"])
	assert.Zero(t, s.backend.LastRequest().Temperature)
}

func TestAnalyzeMealRequiresImage(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/analyze-meal", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct := multipartBody(t, nil, upload{field: "file", name: "notes.txt", mime: "text/plain", data: []byte("hola")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-meal", body)
	req.Header.Set("Content-Type", ct)
	rec, _ = s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.store.PutUserMetrics(&models.UserMetrics{UserID: "u1", Weight: 60, Height: 160, CalorieGoal: 1800})

	rec, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user/ghost/profile", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	put := httptest.NewRequest(http.MethodPut, "/api/v1/user/u1/nutrition",
		bytes.NewBufferString(`{"date":"2024-05-01","calories":1500,"protein":80}`))
	put.Header.Set("Content-Type", "application/json")
	rec, _ = s.do(t, put)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, resp := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user/u1/profile", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	profile := resp["profile"].(map[string]interface{})
	assert.Len(t, profile["daily_nutrition"], 1)

	rec, resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user/u1/nutrition/history?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, resp["metadata"].(map[string]interface{})["count"])

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user/u1/nutrition/today?date=2024-05-01", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user/u1/nutrition/today?date=2024-05-02", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/user/u1/nutrition/today?date=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpoints(t *testing.T) {
	s := newTestServer(t, "Come más verduras.")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/u1", bytes.NewBufferString(`{"message":"¿Qué como?","user_name":"Ana"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, resp := s.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Come más verduras.", resp["response"])
	meta := resp["metadata"].(map[string]interface{})
	assert.Equal(t, "Ana", meta["user_name"])
	assert.Equal(t, false, meta["context_available"])

	empty := httptest.NewRequest(http.MethodPost, "/api/v1/chat/u1", bytes.NewBufferString(`{"message":"  "}`))
	empty.Header.Set("Content-Type", "application/json")
	rec, _ = s.do(t, empty)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/chat/u1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp["history"], 2)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/chat/u1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	_, resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/chat/u1/history", nil))
	assert.Len(t, resp["history"], 0)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRootPathsServeTheSameAPI(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/env-check", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body, ct := multipartBody(t,
		map[string]string{"question": "¿Cuántas calorías tiene?"},
		upload{field: "files", name: "plato.png", mime: "image/png", data: pngBytes},
	)
	req := httptest.NewRequest(http.MethodPost, "/qa", body)
	req.Header.Set("Content-Type", ct)
	rec, resp := s.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, resp["ok"])

	chat := httptest.NewRequest(http.MethodPost, "/chat/u1", bytes.NewBufferString(`{"message":"¿Qué como?"}`))
	chat.Header.Set("Content-Type", "application/json")
	rec, _ = s.do(t, chat)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, resp = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/chat/u1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp["history"], 2)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/user/ghost/profile", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

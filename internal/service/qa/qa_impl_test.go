package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/agenttest"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/orchestration"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/queue"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/storage"
)

type memQueue struct {
	mu       sync.Mutex
	payloads []*models.QAPayload
	statuses map[string]*queue.TaskStatus
	history  map[string][]models.ProcessingStatus
	results  map[string]*models.QAResult
	enqErr   error
	saveErr  error
}

func newMemQueue() *memQueue {
	return &memQueue{
		statuses: map[string]*queue.TaskStatus{},
		history:  map[string][]models.ProcessingStatus{},
		results:  map[string]*models.QAResult{},
	}
}

func (q *memQueue) Enqueue(ctx context.Context, p *models.QAPayload) error {
	if q.enqErr != nil {
		return q.enqErr
	}
	q.mu.Lock()
	q.payloads = append(q.payloads, p)
	q.mu.Unlock()
	return q.SaveStatus(ctx, &queue.TaskStatus{TaskID: p.TaskID, Status: models.StatusPending})
}

func (q *memQueue) GetTaskStatus(_ context.Context, id string) (*queue.TaskStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.statuses[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", queue.ErrTaskNotFound, id)
	}
	return st, nil
}

func (q *memQueue) CancelTask(ctx context.Context, id string) error {
	if _, err := q.GetTaskStatus(ctx, id); err != nil {
		return err
	}
	return q.SaveStatus(ctx, &queue.TaskStatus{TaskID: id, Status: models.StatusCancelled})
}

func (q *memQueue) SaveStatus(_ context.Context, st *queue.TaskStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statuses[st.TaskID] = st
	q.history[st.TaskID] = append(q.history[st.TaskID], st.Status)
	return nil
}

func (q *memQueue) SaveResult(_ context.Context, r *models.QAResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.saveErr != nil {
		return q.saveErr
	}
	q.results[r.TaskID] = r
	return nil
}

func (q *memQueue) GetResult(_ context.Context, id string) (*models.QAResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.results[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", queue.ErrResultNotFound, id)
	}
	return r, nil
}

type fixture struct {
	svc     *QAService
	queue   *memQueue
	store   *storage.Memory
	backend *agenttest.Backend
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.DefaultOrchestrationConfig()
	cfg.Generation.MaxRetries = 0
	cfg.Generation.FallbackModel = ""
	backend := agenttest.New("## Resumen\nRespuesta")
	noSleep := orchestration.WithSleeper(func(context.Context, time.Duration) error { return nil })
	orch := orchestration.New(backend, cfg, logger.NewTestLogger(), noSleep)

	q := newMemQueue()
	store := storage.NewMemory()
	return &fixture{
		svc:     NewService(orch, q, store, logger.NewTestLogger(), nil),
		queue:   q,
		store:   store,
		backend: backend,
	}
}

func plate() *models.MediaFile {
	return models.NewMediaFile("plate.jpg", "image/jpeg", []byte("jpeg-bytes"))
}

func TestAnswerRunsPipeline(t *testing.T) {
	f := newFixture(t)

	answer, summary := f.svc.Answer(context.Background(), "¿Cuántas calorías tiene?", []*models.MediaFile{plate()}, false)

	assert.Contains(t, answer, "Respuesta")
	assert.True(t, summary.Outcome.OK())
	assert.Equal(t, 1, f.backend.GenerateCalls())
}

func TestSubmitStagesFilesAndEnqueues(t *testing.T) {
	f := newFixture(t)
	ctx := logger.WithRequestID(context.Background(), "req-42")
	files := []*models.MediaFile{plate(), models.NewMediaFile("../label.png", "image/png", []byte("png"))}

	task, err := f.svc.Submit(ctx, "calorías", files, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, task.Status)

	require.Len(t, f.queue.payloads, 1)
	p := f.queue.payloads[0]
	assert.Equal(t, task.ID, p.TaskID)
	assert.Equal(t, "req-42", p.RequestID)
	assert.True(t, p.UseFilesAPI)
	require.Len(t, p.Files, 2)
	assert.Equal(t, "qa/"+task.ID+"/0-plate.jpg", p.Files[0].Key)
	assert.Equal(t, "qa/"+task.ID+"/1-label.png", p.Files[1].Key)
	assert.ElementsMatch(t, []string{p.Files[0].Key, p.Files[1].Key}, f.store.Keys())
}

func TestSubmitRemovesStagedFilesWhenEnqueueFails(t *testing.T) {
	f := newFixture(t)
	f.queue.enqErr = errors.New("redis down")

	_, err := f.svc.Submit(context.Background(), "q", []*models.MediaFile{plate()}, false)
	require.Error(t, err)
	assert.Empty(t, f.store.Keys())
}

func TestHandleTaskStoresResultAndCleansUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.svc.Submit(ctx, "¿Cuántas calorías tiene?", []*models.MediaFile{plate()}, false)
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleTask(ctx, f.queue.payloads[0]))

	assert.Equal(t,
		[]models.ProcessingStatus{models.StatusPending, models.StatusRunning, models.StatusCompleted},
		f.queue.history[task.ID])
	assert.Empty(t, f.store.Keys())

	res, err := f.svc.GetResult(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Contains(t, res.Answer, "Respuesta")
	assert.Equal(t, []string{"Resumen"}, res.Metadata["sections"])

	req := f.backend.LastRequest()
	require.NotNil(t, req)
	assert.Len(t, req.Parts, 3)
}

func TestHandleTaskValidationFailureStillCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.svc.Submit(ctx, "", nil, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleTask(ctx, f.queue.payloads[0]))

	res, err := f.svc.GetResult(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, 0, f.backend.GenerateCalls())
}

func TestHandleTaskFailsWhenStagedFileMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payload := &models.QAPayload{
		TaskID:   "t-missing",
		Question: "q",
		Files:    []models.StagedFile{{Key: "qa/t-missing/0-x.jpg", Filename: "x.jpg", MIMEType: "image/jpeg"}},
	}
	err := f.svc.HandleTask(ctx, payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	st, err := f.svc.GetStatus(ctx, "t-missing")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, st.Status)
	assert.NotEmpty(t, st.Error)
}

func TestHandleTaskEarlyAttemptLeavesTaskRunning(t *testing.T) {
	f := newFixture(t)
	f.svc.lastAttempt = func(context.Context) bool { return false }
	f.queue.saveErr = errors.New("redis down")
	ctx := context.Background()

	task, err := f.svc.Submit(ctx, "calorías", []*models.MediaFile{plate()}, false)
	require.NoError(t, err)

	err = f.svc.HandleTask(ctx, f.queue.payloads[0])
	require.Error(t, err)

	st, err := f.svc.GetStatus(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, st.Status)
	assert.Contains(t, st.Error, "redis down")
	assert.NotContains(t, f.queue.history[task.ID], models.StatusFailed)
}

func TestHandleTaskLastAttemptMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.svc.lastAttempt = func(context.Context) bool { return true }
	f.queue.saveErr = errors.New("redis down")
	ctx := context.Background()

	task, err := f.svc.Submit(ctx, "calorías", []*models.MediaFile{plate()}, false)
	require.NoError(t, err)
	require.Error(t, f.svc.HandleTask(ctx, f.queue.payloads[0]))

	st, err := f.svc.GetStatus(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, st.Status)
}

func TestHandleTaskMissingFileFailsOnAnyAttempt(t *testing.T) {
	f := newFixture(t)
	f.svc.lastAttempt = func(context.Context) bool { return false }
	ctx := context.Background()

	payload := &models.QAPayload{
		TaskID:   "t-gone",
		Question: "q",
		Files:    []models.StagedFile{{Key: "qa/t-gone/0-x.jpg", Filename: "x.jpg", MIMEType: "image/jpeg"}},
	}
	require.Error(t, f.svc.HandleTask(ctx, payload))

	st, err := f.svc.GetStatus(ctx, "t-gone")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, st.Status)
}

func TestAsynqLastAttemptOutsideWorker(t *testing.T) {
	assert.True(t, asynqLastAttempt(context.Background()))
}

func TestGetResultBeforeCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.svc.Submit(ctx, "q", []*models.MediaFile{plate()}, false)
	require.NoError(t, err)

	_, err = f.svc.GetResult(ctx, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotCompleted)

	_, err = f.svc.GetResult(ctx, "unknown")
	assert.ErrorIs(t, err, queue.ErrTaskNotFound)
}

func TestCancelTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.svc.Submit(ctx, "q", nil, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelTask(ctx, task.ID))

	st, err := f.svc.GetStatus(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, st.Status)
}

func TestCleanupStagedOnlyTouchesStagingPrefix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "q", []*models.MediaFile{plate()}, false)
	require.NoError(t, err)
	require.NoError(t, f.store.Store(ctx, "other/keep.txt", strings.NewReader("x"), 1, "text/plain"))

	n, err := f.svc.CleanupStaged(ctx, -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	time.Sleep(5 * time.Millisecond)
	n, err = f.svc.CleanupStaged(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"other/keep.txt"}, f.store.Keys())
}

func TestStagingKey(t *testing.T) {
	assert.Equal(t, "qa/t/0-a.png", StagingKey("t", 0, "dir/a.png"))
	assert.Equal(t, "qa/t/1-b.png", StagingKey("t", 1, `C:\tmp\b.png`))
	assert.Equal(t, "qa/t/2-file", StagingKey("t", 2, ""))
}

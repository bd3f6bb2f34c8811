package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/artifact"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/queue"
	"github.com/hupe1980/taskmesh/store/memory"
)

type apiEnv struct {
	store     core.Store
	queue     *queue.Queue
	artifacts core.ArtifactStore
	server    *Server
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	store := memory.NewStore()
	q := queue.New(store)
	arts := artifact.NewInMemoryStore()
	srv := New(store, q, func(o *Options) { o.Artifacts = arts })
	return &apiEnv{store: store, queue: q, artifacts: arts, server: srv}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func (e *apiEnv) createTask(t *testing.T, goal string) string {
	t.Helper()
	rec, resp := e.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{
		OwnerID: "owner-1",
		Goal:    goal,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	id, _ := data["task_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestServer_CreateAndGetTask(t *testing.T) {
	e := newAPIEnv(t)
	id := e.createTask(t, "write a summary")

	rec, resp := e.do(t, http.MethodGet, "/api/tasks/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	task, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "write a summary", task["goal"])
	assert.Equal(t, string(core.StatusPending), task["status"])
}

func TestServer_CreateTaskValidation(t *testing.T) {
	e := newAPIEnv(t)

	rec, resp := e.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{OwnerID: "owner-1", Goal: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "goal")
}

func TestServer_GetTaskNotFound(t *testing.T) {
	e := newAPIEnv(t)

	rec, resp := e.do(t, http.MethodGet, "/api/tasks/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
}

func TestServer_ListTasksByOwner(t *testing.T) {
	e := newAPIEnv(t)
	e.createTask(t, "first")
	e.createTask(t, "second")

	rec, resp := e.do(t, http.MethodGet, "/api/tasks?owner_id=owner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, tasks, 2)

	// owner_id is mandatory.
	rec, _ = e.do(t, http.MethodGet, "/api/tasks", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Lifecycle(t *testing.T) {
	e := newAPIEnv(t)
	ctx := context.Background()
	id := e.createTask(t, "long job")

	// Pause before running conflicts.
	rec, _ := e.do(t, http.MethodPost, "/api/tasks/"+id+"/pause", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, err := e.queue.Dequeue(ctx)
	require.NoError(t, err)

	rec, _ = e.do(t, http.MethodPost, "/api/tasks/"+id+"/pause", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/tasks/"+id+"/resume", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/tasks/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	task, err := e.store.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, task.Status)
}

func TestServer_StepsAndEvents(t *testing.T) {
	e := newAPIEnv(t)
	ctx := context.Background()
	id := e.createTask(t, "job")

	for i := 0; i < 3; i++ {
		step := core.NewStep(id, core.StepObserve, fmt.Sprintf("obs %d", i))
		require.NoError(t, e.store.AppendStep(ctx, step))
	}

	rec, resp := e.do(t, http.MethodGet, "/api/tasks/"+id+"/steps", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	steps, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, steps, 3)

	// task_created is event 1; replay after it yields nothing yet.
	rec, resp = e.do(t, http.MethodGet, "/api/tasks/"+id+"/events?after=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.Data)

	rec, resp = e.do(t, http.MethodGet, "/api/tasks/"+id+"/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, events, 1)

	rec, _ = e.do(t, http.MethodGet, "/api/tasks/"+id+"/events?after=oops", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ArtifactListAndDownload(t *testing.T) {
	e := newAPIEnv(t)
	id := e.createTask(t, "chart job")

	require.NoError(t, e.artifacts.Save(id, "report.csv", []byte("a,b\n1,2\n")))
	require.NoError(t, e.artifacts.Save(id, "chart.png", []byte{1, 2, 3}))

	rec, resp := e.do(t, http.MethodGet, "/api/tasks/"+id+"/artifacts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ids, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"chart.png", "report.csv"}, ids)

	// Download returns raw bytes, not the JSON envelope.
	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+id+"/artifacts/report.csv", nil)
	rec = httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "a,b\n1,2\n", rec.Body.String())

	rec, resp = e.do(t, http.MethodGet, "/api/tasks/"+id+"/artifacts/missing.bin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, resp.Error, "artifact")

	rec, _ = e.do(t, http.MethodGet, "/api/tasks/nope/artifacts", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Health(t *testing.T) {
	e := newAPIEnv(t)
	e.createTask(t, "queued job")

	rec, resp := e.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, float64(1), data["queue_length"])
}

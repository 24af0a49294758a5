package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/workflow-engine/engine/schema"
	"github.com/lyzr/workflow-engine/internal/history"
	"github.com/lyzr/workflow-engine/internal/runtime"
	"github.com/lyzr/workflow-engine/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (testLogger) Info(msg string, args ...any)  {}
func (testLogger) Error(msg string, args ...any) {}
func (testLogger) Warn(msg string, args ...any)  {}
func (testLogger) Debug(msg string, args ...any) {}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	home := t.TempDir()
	reg, err := workspace.New(home)
	require.NoError(t, err)

	hist, err := history.NewFSStore(home, 10)
	require.NoError(t, err)

	rt := runtime.New(runtime.Options{Log: testLogger{}, History: hist})

	srv := New(Config{
		Runtime:  rt,
		Registry: reg,
		History:  hist,
		Log:      testLogger{},
	})
	return srv, home
}

func writeWorkflowFile(t *testing.T, dir, name string) {
	t.Helper()
	ws := &schema.WorkflowSchema{
		Version: 1,
		Nodes: []schema.WorkflowNode{
			{ID: "greet", Data: schema.NodeData{
				NodeType: "shell",
				Script:   `echo "hi"`,
				Outputs:  []schema.PortDefinition{{Name: "stdout", Type: schema.ValueString}},
			}},
		},
	}
	raw, err := schema.Serialize(ws, schema.FormatYAML)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0o644))
}

func TestServer_AddAndListWorkspaces(t *testing.T) {
	srv, home := newTestServer(t)
	wsDir := filepath.Join(home, "proj")
	require.NoError(t, os.MkdirAll(wsDir, 0o755))

	body := strings.NewReader(`{"name":"proj","rootDirectory":"` + wsDir + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workspaces", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := srv.Echo.NewContext(req, rec)

	require.NoError(t, srv.addWorkspace(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces", nil)
	listRec := httptest.NewRecorder()
	listCtx := srv.Echo.NewContext(listReq, listRec)
	require.NoError(t, srv.listWorkspaces(listCtx))
	assert.Equal(t, http.StatusOK, listRec.Code)
	assert.Contains(t, listRec.Body.String(), "proj")
}

func TestServer_CreateRunSynchronous(t *testing.T) {
	srv, home := newTestServer(t)
	wsDir := filepath.Join(home, "proj")
	require.NoError(t, os.MkdirAll(wsDir, 0o755))
	writeWorkflowFile(t, wsDir, "flow.yaml")
	require.NoError(t, srv.registry.Add("proj", wsDir))

	body := strings.NewReader(`{"workflowPath":"flow.yaml"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workspaces/proj/runs", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := srv.Echo.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues("proj")

	require.NoError(t, srv.createRun(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var record map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "completed", record["status"])
}

func TestServer_CreateRunMissingWorkspaceReturns404(t *testing.T) {
	srv, _ := newTestServer(t)

	body := strings.NewReader(`{"workflowPath":"flow.yaml"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workspaces/ghost/runs", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := srv.Echo.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues("ghost")

	err := srv.createRun(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestServer_GetWorkflow(t *testing.T) {
	srv, home := newTestServer(t)
	wsDir := filepath.Join(home, "proj")
	require.NoError(t, os.MkdirAll(wsDir, 0o755))
	writeWorkflowFile(t, wsDir, "flow.yaml")
	require.NoError(t, srv.registry.Add("proj", wsDir))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/proj/workflows/flow.yaml", nil)
	rec := httptest.NewRecorder()
	c := srv.Echo.NewContext(req, rec)
	c.SetParamNames("name", "*")
	c.SetParamValues("proj", "flow.yaml")

	require.NoError(t, srv.getWorkflow(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "greet")
}

func TestServer_PatchWorkflowRejectsTooManyAgentOps(t *testing.T) {
	srv, home := newTestServer(t)
	wsDir := filepath.Join(home, "proj")
	require.NoError(t, os.MkdirAll(wsDir, 0o755))
	writeWorkflowFile(t, wsDir, "flow.yaml")
	require.NoError(t, srv.registry.Add("proj", wsDir))

	var ops []map[string]any
	for i := 0; i < 6; i++ {
		ops = append(ops, map[string]any{
			"op":   "add",
			"path": "/nodes/-",
			"value": map[string]any{
				"id":   "agent" + string(rune('a'+i)),
				"type": "agent",
			},
		})
	}
	raw, err := json.Marshal(ops)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/workspaces/proj/workflows/flow.yaml", strings.NewReader(string(raw)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := srv.Echo.NewContext(req, rec)
	c.SetParamNames("name", "*")
	c.SetParamValues("proj", "flow.yaml")

	err = srv.patchWorkflow(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

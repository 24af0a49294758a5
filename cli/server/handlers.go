package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/workflow-engine/common/ratelimit"
	"github.com/lyzr/workflow-engine/engine/schema"
	"github.com/lyzr/workflow-engine/internal/runtime"
	"github.com/lyzr/workflow-engine/internal/workspace"
)

func (s *Server) listWorkspaces(c echo.Context) error {
	all, err := s.registry.List()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"workspaces": all})
}

func (s *Server) addWorkspace(c echo.Context) error {
	var req struct {
		Name          string `json:"name"`
		RootDirectory string `json:"rootDirectory"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.RootDirectory == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and rootDirectory are required")
	}
	if err := s.registry.Add(req.Name, req.RootDirectory); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]any{"name": req.Name})
}

func (s *Server) removeWorkspace(c echo.Context) error {
	name := c.Param("name")
	if err := s.registry.Remove(name); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listRuns(c echo.Context) error {
	name := c.Param("name")
	ws, err := s.registry.Get(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	workflowPath := c.QueryParam("workflowPath")
	summaries, err := s.hist.List(c.Request().Context(), ws.Name, workflowPath)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"runs": summaries})
}

func (s *Server) getRun(c echo.Context) error {
	record, err := s.hist.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, record)
}

// createRun executes a workflow within workspace :name to completion. When
// the client sends `Accept: text/event-stream` (or `?stream=true`), the
// response streams engine/schema.Event records as they are emitted instead
// of waiting for the run to finish.
func (s *Server) createRun(c echo.Context) error {
	name := c.Param("name")
	ws, err := s.registry.Get(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	var req struct {
		WorkflowPath string         `json:"workflowPath"`
		Inputs       map[string]any `json:"inputs"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.WorkflowPath == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "workflowPath is required")
	}

	if err := s.checkWorkflowRateLimit(c, ws, req.WorkflowPath); err != nil {
		return err
	}

	ctx := c.Request().Context()
	wantsStream := c.QueryParam("stream") == "true" || strings.Contains(c.Request().Header.Get("Accept"), "text/event-stream")

	if !wantsStream {
		record, result, runErr := s.rt.RunAndRecord(ctx, ws.Name, ws.RootDirectory, req.WorkflowPath, req.Inputs, "manual", nil)
		if runErr != nil && record == nil {
			return echo.NewHTTPError(http.StatusInternalServerError, runErr.Error())
		}
		status := http.StatusOK
		if result == nil || !result.Success {
			status = http.StatusUnprocessableEntity
		}
		return c.JSON(status, record)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	events := make(chan schema.Event, 256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = s.rt.RunAndRecord(ctx, ws.Name, ws.RootDirectory, req.WorkflowPath, req.Inputs, "manual", events)
	}()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return nil
			}
			raw, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Response(), "%s\n\n", raw)
			c.Response().Flush()
		case <-done:
			// Drain whatever is left buffered before returning.
			for {
				select {
				case e, ok := <-events:
					if !ok {
						return nil
					}
					raw, _ := json.Marshal(e)
					fmt.Fprintf(c.Response(), "%s\n\n", raw)
					c.Response().Flush()
				default:
					return nil
				}
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Server) getWorkflow(c echo.Context) error {
	name := c.Param("name")
	ws, err := s.registry.Get(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	relPath := strings.TrimPrefix(c.Param("*"), "/")
	full := workflowFilePath(ws, relPath)

	wfSchema, err := runtime.LoadWorkflow(full)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, wfSchema)
}

// patchWorkflow applies an RFC 6902 JSON-Patch document to a workflow file
// on disk, validating the operations (per-patch agent-node cap) before the
// structural re-validation schema.ApplyPatch already performs.
func (s *Server) patchWorkflow(c echo.Context) error {
	name := c.Param("name")
	ws, err := s.registry.Get(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	relPath := strings.TrimPrefix(c.Param("*"), "/")
	full := workflowFilePath(ws, relPath)

	body, err := readAndDecodeOps(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.patchVal.ValidateOperations(body.ops); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	current, err := os.ReadFile(full)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	format := schema.DetectFormat(full, current)
	wfSchema, err := schema.Parse(current, format)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	patched, err := schema.ApplyPatch(wfSchema, body.raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	out, err := schema.Serialize(patched, format)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := os.WriteFile(full, out, 0o644); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	s.log.Info("workflow patched", "workspace", name, "path", relPath, "operations", len(body.ops))
	return c.JSON(http.StatusOK, patched)
}

type patchBody struct {
	raw []byte
	ops []map[string]any
}

func readAndDecodeOps(c echo.Context) (*patchBody, error) {
	var ops []map[string]any
	if err := c.Bind(&ops); err != nil {
		return nil, fmt.Errorf("invalid JSON-Patch document: %w", err)
	}
	raw, err := json.Marshal(ops)
	if err != nil {
		return nil, err
	}
	return &patchBody{raw: raw, ops: ops}, nil
}

func workflowFilePath(ws workspace.Workspace, relPath string) string {
	return ws.RootDirectory + string(os.PathSeparator) + relPath
}

// checkWorkflowRateLimit loads the workflow being run and scales its rate
// limit by agent-node count using the workflow inspector's complexity
// tiering.
func (s *Server) checkWorkflowRateLimit(c echo.Context, ws workspace.Workspace, workflowPath string) error {
	if s.rateLimiter() == nil {
		return nil
	}
	full := workflowFilePath(ws, strings.TrimPrefix(workflowPath, "/"))
	wfSchema, err := runtime.LoadWorkflow(full)
	if err != nil {
		return nil // let createRun's own LoadWorkflow report the real error
	}
	raw, err := json.Marshal(wfSchema)
	if err != nil {
		return nil
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil
	}
	profile := ratelimit.InspectWorkflow(asMap)

	result, err := s.rateLimiter().CheckTieredLimit(c.Request().Context(), ws.Name, profile.Tier)
	if err != nil {
		return nil // fail open for availability
	}
	if !result.Allowed {
		return c.JSON(http.StatusTooManyRequests, map[string]any{
			"error":   "workflow_rate_limit_exceeded",
			"message": fmt.Sprintf("workflow tier %q exceeded its run quota", profile.Tier),
			"details": map[string]any{
				"tier":                profile.Tier.String(),
				"limit":               result.Limit,
				"current_count":       result.CurrentCount,
				"retry_after_seconds": result.RetryAfterSeconds,
			},
		})
	}
	return nil
}

func (s *Server) rateLimiter() *ratelimit.RateLimiter { return s.rl }

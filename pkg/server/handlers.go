package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/alantheprice/appforge/pkg/events"
	"github.com/alantheprice/appforge/pkg/generate"
	"github.com/alantheprice/appforge/pkg/orchestrate"
	"github.com/alantheprice/appforge/pkg/plan"
	"github.com/alantheprice/appforge/pkg/stream"
	"github.com/alantheprice/appforge/pkg/validate"
)

// GenerateRequest is the run trigger body.
type GenerateRequest struct {
	ProjectID     string `json:"project_id"`
	Specification string `json:"specification"`
	Category      string `json:"category,omitempty"`
	Model         string `json:"model,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleGenerate runs the full pipeline and streams progress as SSE.
// Authentication is checked before any streaming starts.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectID == "" || req.Specification == "" {
		writeError(w, http.StatusBadRequest, "project_id and specification are required")
		return
	}

	writer, err := stream.NewWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Every event goes to the SSE stream and the websocket mirror.
	emit := func(eventType string, data any) {
		_ = writer.Send(eventType, data)
		s.bus.Publish(eventType, data)
	}
	emit(events.EventTypeConnectionTest, map[string]string{"project_id": req.ProjectID})

	s.runPipeline(r, req, emit)
}

// runPipeline executes planner, orchestrator and validator for one
// request, emitting the terminal event and recording the run status.
func (s *Server) runPipeline(r *http.Request, req GenerateRequest, emit events.Emitter) {
	ctx := r.Context()

	if req.Model != "" {
		if err := s.client.SetModel(req.Model); err != nil {
			s.failRun(req.ProjectID, emit, "requested model unavailable", err)
			return
		}
	}

	s.setStatus(req.ProjectID, StatusPlanning, "")
	emit(events.EventTypeStatus, events.StatusEvent(StatusPlanning, "Creating generation plan"))

	planner := plan.NewPlanner(s.client, s.cfg)
	generationPlan, err := planner.CreatePlan(ctx, req.Specification, req.Category, nil)
	if err != nil {
		s.failRun(req.ProjectID, emit, "planning failed", err)
		return
	}
	emit(events.EventTypePlanComplete, map[string]any{
		"project_name": generationPlan.ProjectName,
		"files":        generationPlan.GenerationOrder,
		"packages":     generationPlan.Packages,
	})

	s.setStatus(req.ProjectID, StatusGenerating, "")
	emit(events.EventTypeStatus, events.StatusEvent(StatusGenerating, fmt.Sprintf("Generating %d files", len(generationPlan.GenerationOrder))))

	registry := generate.NewRegistry(s.client, s.cfg)
	orchestrator := orchestrate.New(registry, s.cfg)
	result, runErr := orchestrator.Run(ctx, generationPlan, emit)

	// Artifacts generated before a fatal failure stay persisted.
	for _, file := range result.Files {
		if _, upsertErr := s.store.Upsert(req.ProjectID, file.Path, file.Content); upsertErr != nil {
			s.logger.LogError(fmt.Errorf("persist %s: %w", file.Path, upsertErr))
		}
	}
	if runErr != nil {
		s.failRun(req.ProjectID, emit, "generation failed", runErr)
		return
	}

	s.setStatus(req.ProjectID, StatusValidating, "")
	report := validate.New().ValidateProject(result.Files, emit)

	if !report.Pass {
		s.setStatus(req.ProjectID, StatusFailed, "validation did not pass")
	} else {
		s.setStatus(req.ProjectID, StatusCompleted, "")
	}
	emit(events.EventTypeComplete, map[string]any{
		"message":       fmt.Sprintf("Generated %d files (%d failed)", len(result.Files), len(result.Failures)),
		"file_count":    len(result.Files),
		"failed_files":  len(result.Failures),
		"pass":          report.Pass,
		"overall_score": report.OverallScore,
		"security_risk": string(report.SecurityRisk),
	})
}

func (s *Server) failRun(projectID string, emit events.Emitter, message string, err error) {
	s.logger.LogError(fmt.Errorf("%s: %w", message, err))
	s.setStatus(projectID, StatusFailed, err.Error())
	emit(events.EventTypeError, events.ErrorEvent(message, err))
}

// handleProjects serves /api/projects/{id}/files and
// /api/projects/{id}/status.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "unknown route")
		return
	}
	projectID := parts[0]

	switch parts[1] {
	case "files":
		writeJSON(w, http.StatusOK, map[string]any{
			"project_id": projectID,
			"files":      s.store.ListByProject(projectID),
		})
	case "status":
		st, ok := s.status(projectID)
		if !ok {
			writeError(w, http.StatusNotFound, "no runs for project")
			return
		}
		writeJSON(w, http.StatusOK, st)
	default:
		writeError(w, http.StatusNotFound, "unknown route")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"provider": s.client.GetProvider(),
		"model":    s.client.GetModel(),
	})
}

// handleWebSocket mirrors the event bus to a websocket client.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	name := fmt.Sprintf("ws-%s", conn.RemoteAddr())
	ch := s.bus.Subscribe(name)
	defer s.bus.Unsubscribe(name)

	// Drain client frames so pings and closes are processed.
	go func() {
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if writeErr := conn.WriteJSON(event); writeErr != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

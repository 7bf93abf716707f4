package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/sprite-ai/repolens/internal/app"
	"github.com/sprite-ai/repolens/internal/model"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- State ---

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// --- Review ---

type reviewRequest struct {
	Mode  string `json:"mode,omitempty"`
	Model string `json:"model,omitempty"`
}

type reviewResponse struct {
	Run    uint64          `json:"run"`
	Status model.AppStatus `json:"status"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if r.ContentLength != 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}
	}

	run, status, err := s.startRun(req)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, reviewResponse{Run: run.ID, Status: model.AppStatus{Status: model.StatusScanning}})
}

// startRun applies req to the session, starts a run and executes it in the
// background. The int is the HTTP status to use on error.
func (s *Server) startRun(req reviewRequest) (app.Run, int, error) {
	if req.Mode != "" {
		mode, err := model.ParseReviewMode(req.Mode)
		if err != nil {
			return app.Run{}, http.StatusBadRequest, err
		}
		if err := s.session.SetMode(mode); err != nil {
			return app.Run{}, http.StatusConflict, err
		}
	}
	if req.Model != "" {
		if err := s.session.SetModel(req.Model); err != nil {
			return app.Run{}, http.StatusConflict, err
		}
	}

	run, err := s.session.Start(s.runCtx)
	if err != nil {
		return app.Run{}, http.StatusConflict, err
	}
	go func() {
		if err := s.runner.Execute(s.session, run, s.root); err != nil && !errors.Is(err, app.ErrStaleRun) {
			log.Printf("review run %d: %v", run.ID, err)
		}
	}()
	return run, 0, nil
}

// --- Cancel ---

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Cancel("api request"); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot().Status)
}

// --- Models ---

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.models == nil {
		writeError(w, http.StatusNotImplemented, "model listing is not configured")
		return
	}
	names, err := s.models.Models(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "listing models: "+err.Error())
		return
	}
	s.session.SetAvailableModels(names)
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"models": names})
}
